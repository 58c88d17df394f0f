package redislivestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getJSON[T any](ctx context.Context, rdb getter, key string) (*T, error) {
	str, err := rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get %s: %v", key, err)
	}
	var value T
	if err := json.Unmarshal([]byte(str), &value); err != nil {
		return nil, fmt.Errorf("malformed %s in storage: %v", key, err)
	}
	return &value, nil
}

// sequencedStore persists every entity under its own key and keeps a sorted set of ids
// scored by registration sequence, so that concurrent updates of different entities never
// conflict.
type sequencedStore[T any] struct {
	rdb          *redis.Client
	prefix       string
	numOfRetries int
	retryDelay   time.Duration
	setSequence  func(value *T, sequence uint64)
	existsErr    error
	notFoundErr  error
}

// key namespaces entities apart from the index and sequence keys.
func (s *sequencedStore[T]) key(id string) string {
	return fmt.Sprintf("%s:entity:%s", s.prefix, id)
}

func (s *sequencedStore[T]) indexKey() string {
	return fmt.Sprintf("%s:index", s.prefix)
}

func (s *sequencedStore[T]) sequenceKey() string {
	return fmt.Sprintf("%s:sequence", s.prefix)
}

func (s *sequencedStore[T]) add(ctx context.Context, id string, value T) (*T, error) {
	key := s.key(id)
	var err error
	for range s.numOfRetries {
		if err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			exists, err := tx.Exists(ctx, key).Result()
			if err != nil {
				return err
			}
			if exists > 0 {
				return s.existsErr
			}
			sequence, err := tx.Incr(ctx, s.sequenceKey()).Result()
			if err != nil {
				return err
			}
			s.setSequence(&value, uint64(sequence))
			val, err := json.Marshal(value)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, val, 0)
				pipe.ZAdd(ctx, s.indexKey(), redis.Z{Score: float64(sequence), Member: id})
				return nil
			})
			return err
		}, key); err == nil {
			return &value, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, err
		}
		time.Sleep(s.retryDelay)
	}
	return nil, fmt.Errorf("failed to add %s after max number of retries: %v", key, err)
}

func (s *sequencedStore[T]) get(ctx context.Context, id string) (*T, error) {
	return getJSON[T](ctx, s.rdb, s.key(id))
}

func (s *sequencedStore[T]) list(ctx context.Context) ([]T, error) {
	ids, err := s.rdb.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %v", s.indexKey(), err)
	}
	if len(ids) == 0 {
		return []T{}, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, s.key(id))
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get %s entries: %v", s.prefix, err)
	}

	list := make([]T, 0, len(vals))
	for i, val := range vals {
		str, ok := val.(string)
		if !ok {
			continue
		}
		var value T
		if err := json.Unmarshal([]byte(str), &value); err != nil {
			return nil, fmt.Errorf("malformed %s in storage: %v", keys[i], err)
		}
		list = append(list, value)
	}
	return list, nil
}

func (s *sequencedStore[T]) update(
	ctx context.Context, id string, fn func(value *T) error,
) (*T, error) {
	key := s.key(id)
	var (
		updated *T
		err     error
	)
	for range s.numOfRetries {
		if err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			value, err := getJSON[T](ctx, tx, key)
			if err != nil {
				return err
			}
			if value == nil {
				return s.notFoundErr
			}
			if err := fn(value); err != nil {
				return err
			}
			val, err := json.Marshal(value)
			if err != nil {
				return err
			}

			if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, val, 0)
				return nil
			}); err != nil {
				return err
			}
			updated = value
			return nil
		}, key); err == nil {
			return updated, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, err
		}
		time.Sleep(s.retryDelay)
	}
	return nil, fmt.Errorf("failed to update %s after max number of retries: %v", key, err)
}
