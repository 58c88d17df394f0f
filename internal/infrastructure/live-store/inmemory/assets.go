package inmemorylivestore

import (
	"context"
	"sort"
	"sync"

	"github.com/arkade-os/bridged/internal/core/domain"
)

type assetStore struct {
	lock     sync.RWMutex
	assets   map[string]domain.SettlementAsset
	sequence uint64
}

func NewAssetStore() *assetStore {
	return &assetStore{
		assets: make(map[string]domain.SettlementAsset),
	}
}

func (s *assetStore) Add(
	_ context.Context, asset domain.SettlementAsset,
) (*domain.SettlementAsset, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.assets[asset.Ref]; ok {
		return nil, domain.ErrAssetExists
	}
	s.sequence++
	asset.Sequence = s.sequence
	s.assets[asset.Ref] = asset
	return &asset, nil
}

func (s *assetStore) Get(_ context.Context, ref string) (*domain.SettlementAsset, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	asset, ok := s.assets[ref]
	if !ok {
		return nil, nil
	}
	return &asset, nil
}

func (s *assetStore) List(_ context.Context) ([]domain.SettlementAsset, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	assets := make([]domain.SettlementAsset, 0, len(s.assets))
	for _, asset := range s.assets {
		assets = append(assets, asset)
	}
	sort.SliceStable(assets, func(i, j int) bool {
		return assets[i].Sequence < assets[j].Sequence
	})
	return assets, nil
}

func (s *assetStore) Update(
	_ context.Context, ref string, fn func(asset *domain.SettlementAsset) error,
) (*domain.SettlementAsset, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.update(ref, fn)
}

func (s *assetStore) update(
	ref string, fn func(asset *domain.SettlementAsset) error,
) (*domain.SettlementAsset, error) {
	asset, ok := s.assets[ref]
	if !ok {
		return nil, domain.ErrAssetNotFound
	}
	if err := fn(&asset); err != nil {
		return nil, err
	}
	s.assets[ref] = asset
	return &asset, nil
}
