package inmemorylivestore

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/arkade-os/bridged/internal/core/domain"
	"github.com/arkade-os/bridged/internal/core/ports"
)

type statsStore struct {
	lock  sync.RWMutex
	stats map[string]domain.ProtocolStats
}

func NewStatsStore() ports.StatsStore {
	return &statsStore{
		stats: make(map[string]domain.ProtocolStats),
	}
}

func (s *statsStore) Get(_ context.Context, protocol string) (*domain.ProtocolStats, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	stats, ok := s.stats[protocol]
	if !ok {
		return nil, nil
	}
	return &stats, nil
}

func (s *statsStore) List(_ context.Context) ([]domain.ProtocolStats, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	list := make([]domain.ProtocolStats, 0, len(s.stats))
	for _, stats := range s.stats {
		list = append(list, stats)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Protocol < list[j].Protocol })
	return list, nil
}

func (s *statsStore) Record(
	_ context.Context, protocol string, success bool, elapsed time.Duration, now time.Time,
) (*domain.ProtocolStats, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	stats, ok := s.stats[protocol]
	if !ok {
		stats = domain.NewProtocolStats(protocol)
	}
	stats.Record(success, elapsed, now)
	s.stats[protocol] = stats
	return &stats, nil
}

type preferenceStore struct {
	lock        sync.RWMutex
	preferences map[string][]domain.AssetCategory
}

func NewPreferenceStore() ports.PreferenceStore {
	return &preferenceStore{
		preferences: make(map[string][]domain.AssetCategory),
	}
}

func (s *preferenceStore) Get(
	_ context.Context, jurisdiction string,
) ([]domain.AssetCategory, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return slices.Clone(s.preferences[jurisdiction]), nil
}

func (s *preferenceStore) Set(
	_ context.Context, jurisdiction string, preferences []domain.AssetCategory,
) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if len(preferences) == 0 {
		delete(s.preferences, jurisdiction)
		return nil
	}
	s.preferences[jurisdiction] = slices.Clone(preferences)
	return nil
}
