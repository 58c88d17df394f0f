package inmemorylivestore

import (
	"context"
	"time"

	"github.com/arkade-os/bridged/internal/core/domain"
	"github.com/arkade-os/bridged/internal/core/ports"
)

// reservationStore locks routes first and assets second, the same order used everywhere a
// reservation spans both stores.
type reservationStore struct {
	routes *routeStore
	assets *assetStore
}

func NewReservationStore(routes *routeStore, assets *assetStore) ports.ReservationStore {
	return &reservationStore{routes, assets}
}

func (s *reservationStore) Reserve(
	_ context.Context, reservation ports.Reservation, now time.Time,
) (*ports.ReservationReceipt, error) {
	s.routes.lock.Lock()
	defer s.routes.lock.Unlock()
	s.assets.lock.Lock()
	defer s.assets.lock.Unlock()

	route, ok := s.routes.routes[reservation.Route]
	if !ok {
		return nil, domain.ErrRouteNotFound
	}
	if err := route.Debit(reservation.Amount, now); err != nil {
		return nil, err
	}
	receipt := &ports.ReservationReceipt{RouteWindow: route.LastReset}

	var asset domain.SettlementAsset
	if reservation.Asset != "" {
		asset, ok = s.assets.assets[reservation.Asset]
		if !ok {
			return nil, domain.ErrAssetNotFound
		}
		if err := asset.Debit(reservation.Amount, now); err != nil {
			return nil, err
		}
		receipt.AssetWindow = asset.LastReset
	}

	s.routes.routes[reservation.Route] = route
	if reservation.Asset != "" {
		s.assets.assets[reservation.Asset] = asset
	}
	return receipt, nil
}

func (s *reservationStore) Release(
	_ context.Context, reservation ports.Reservation, receipt ports.ReservationReceipt,
	now time.Time,
) error {
	s.routes.lock.Lock()
	defer s.routes.lock.Unlock()
	s.assets.lock.Lock()
	defer s.assets.lock.Unlock()

	route, ok := s.routes.routes[reservation.Route]
	if !ok {
		return domain.ErrRouteNotFound
	}
	if err := route.Credit(reservation.Amount, receipt.RouteWindow, now); err != nil {
		return err
	}

	var asset domain.SettlementAsset
	if reservation.Asset != "" {
		asset, ok = s.assets.assets[reservation.Asset]
		if !ok {
			return domain.ErrAssetNotFound
		}
		if err := asset.Credit(reservation.Amount, receipt.AssetWindow, now); err != nil {
			return err
		}
	}

	s.routes.routes[reservation.Route] = route
	if reservation.Asset != "" {
		s.assets.assets[reservation.Asset] = asset
	}
	return nil
}
