package redislivestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/arkade-os/bridged/internal/core/domain"
	"github.com/arkade-os/bridged/internal/core/ports"
	"github.com/redis/go-redis/v9"
)

type reservationStore struct {
	rdb          *redis.Client
	routes       *sequencedStore[domain.Route]
	assets       *sequencedStore[domain.SettlementAsset]
	numOfRetries int
	retryDelay   time.Duration
}

func NewReservationStore(rdb *redis.Client, numOfRetries int) ports.ReservationStore {
	return &reservationStore{
		rdb:          rdb,
		routes:       newRouteSequencedStore(rdb, numOfRetries),
		assets:       newAssetSequencedStore(rdb, numOfRetries),
		numOfRetries: numOfRetries,
		retryDelay:   defaultRetryDelay,
	}
}

func (s *reservationStore) Reserve(
	ctx context.Context, reservation ports.Reservation, now time.Time,
) (*ports.ReservationReceipt, error) {
	var receipt *ports.ReservationReceipt
	err := s.apply(ctx, reservation, func(route *domain.Route, asset *domain.SettlementAsset) error {
		if err := route.Debit(reservation.Amount, now); err != nil {
			return err
		}
		receipt = &ports.ReservationReceipt{RouteWindow: route.LastReset}
		if asset != nil {
			if err := asset.Debit(reservation.Amount, now); err != nil {
				return err
			}
			receipt.AssetWindow = asset.LastReset
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

func (s *reservationStore) Release(
	ctx context.Context, reservation ports.Reservation, receipt ports.ReservationReceipt,
	now time.Time,
) error {
	return s.apply(ctx, reservation, func(route *domain.Route, asset *domain.SettlementAsset) error {
		if err := route.Credit(reservation.Amount, receipt.RouteWindow, now); err != nil {
			return err
		}
		if asset != nil {
			return asset.Credit(reservation.Amount, receipt.AssetWindow, now)
		}
		return nil
	})
}

// apply watches the route and the optional asset keys and writes both back in a single
// MULTI/EXEC, only if fn succeeds.
func (s *reservationStore) apply(
	ctx context.Context, reservation ports.Reservation,
	fn func(route *domain.Route, asset *domain.SettlementAsset) error,
) error {
	routeKey := s.routes.key(routeId(reservation.Route))
	keys := []string{routeKey}
	assetKey := ""
	if reservation.Asset != "" {
		assetKey = s.assets.key(reservation.Asset)
		keys = append(keys, assetKey)
	}

	var err error
	for range s.numOfRetries {
		if err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			route, err := getJSON[domain.Route](ctx, tx, routeKey)
			if err != nil {
				return err
			}
			if route == nil {
				return domain.ErrRouteNotFound
			}
			var asset *domain.SettlementAsset
			if assetKey != "" {
				asset, err = getJSON[domain.SettlementAsset](ctx, tx, assetKey)
				if err != nil {
					return err
				}
				if asset == nil {
					return domain.ErrAssetNotFound
				}
			}

			if err := fn(route, asset); err != nil {
				return err
			}

			routeVal, err := json.Marshal(route)
			if err != nil {
				return err
			}
			var assetVal []byte
			if asset != nil {
				if assetVal, err = json.Marshal(asset); err != nil {
					return err
				}
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, routeKey, routeVal, 0)
				if assetVal != nil {
					pipe.Set(ctx, assetKey, assetVal, 0)
				}
				return nil
			})
			return err
		}, keys...); err == nil {
			return nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		time.Sleep(s.retryDelay)
	}
	return fmt.Errorf(
		"failed to update reservation on %s after max number of retries: %v",
		reservation.Route, err,
	)
}
