package redislivestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/arkade-os/bridged/internal/core/domain"
	"github.com/arkade-os/bridged/internal/core/ports"
	"github.com/redis/go-redis/v9"
)

const (
	statsPrefix        = "statsStore"
	statsIndexKey      = "statsStore:index"
	preferencesHashKey = "preferenceStore:preferences"
)

type statsStore struct {
	rdb          *redis.Client
	numOfRetries int
	retryDelay   time.Duration
}

func NewStatsStore(rdb *redis.Client, numOfRetries int) ports.StatsStore {
	return &statsStore{
		rdb:          rdb,
		numOfRetries: numOfRetries,
		retryDelay:   defaultRetryDelay,
	}
}

func (s *statsStore) Get(ctx context.Context, protocol string) (*domain.ProtocolStats, error) {
	return getJSON[domain.ProtocolStats](ctx, s.rdb, statsKey(protocol))
}

func (s *statsStore) List(ctx context.Context) ([]domain.ProtocolStats, error) {
	protocols, err := s.rdb.SMembers(ctx, statsIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get protocol stats index: %v", err)
	}
	sort.Strings(protocols)

	list := make([]domain.ProtocolStats, 0, len(protocols))
	for _, protocol := range protocols {
		stats, err := s.Get(ctx, protocol)
		if err != nil {
			return nil, err
		}
		if stats != nil {
			list = append(list, *stats)
		}
	}
	return list, nil
}

func (s *statsStore) Record(
	ctx context.Context, protocol string, success bool, elapsed time.Duration, now time.Time,
) (*domain.ProtocolStats, error) {
	key := statsKey(protocol)
	var (
		updated *domain.ProtocolStats
		err     error
	)
	for range s.numOfRetries {
		if err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			stats, err := getJSON[domain.ProtocolStats](ctx, tx, key)
			if err != nil {
				return err
			}
			if stats == nil {
				newStats := domain.NewProtocolStats(protocol)
				stats = &newStats
			}
			stats.Record(success, elapsed, now)
			val, err := json.Marshal(stats)
			if err != nil {
				return err
			}

			if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, val, 0)
				pipe.SAdd(ctx, statsIndexKey, protocol)
				return nil
			}); err != nil {
				return err
			}
			updated = stats
			return nil
		}, key); err == nil {
			return updated, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, err
		}
		time.Sleep(s.retryDelay)
	}
	return nil, fmt.Errorf(
		"failed to record stats of %s after max number of retries: %v", protocol, err,
	)
}

func statsKey(protocol string) string {
	return fmt.Sprintf("%s:entity:%s", statsPrefix, protocol)
}

type preferenceStore struct {
	rdb *redis.Client
}

func NewPreferenceStore(rdb *redis.Client) ports.PreferenceStore {
	return &preferenceStore{rdb}
}

func (s *preferenceStore) Get(
	ctx context.Context, jurisdiction string,
) ([]domain.AssetCategory, error) {
	str, err := s.rdb.HGet(ctx, preferencesHashKey, jurisdiction).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get preferences of %s: %v", jurisdiction, err)
	}
	var preferences []domain.AssetCategory
	if err := json.Unmarshal([]byte(str), &preferences); err != nil {
		return nil, fmt.Errorf("malformed preferences of %s in storage: %v", jurisdiction, err)
	}
	return preferences, nil
}

func (s *preferenceStore) Set(
	ctx context.Context, jurisdiction string, preferences []domain.AssetCategory,
) error {
	if len(preferences) == 0 {
		if err := s.rdb.HDel(ctx, preferencesHashKey, jurisdiction).Err(); err != nil {
			return fmt.Errorf("failed to delete preferences of %s: %v", jurisdiction, err)
		}
		return nil
	}
	val, err := json.Marshal(preferences)
	if err != nil {
		return err
	}
	if err := s.rdb.HSet(ctx, preferencesHashKey, jurisdiction, val).Err(); err != nil {
		return fmt.Errorf("failed to set preferences of %s: %v", jurisdiction, err)
	}
	return nil
}
