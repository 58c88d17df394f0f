package application

import (
	"context"
	goerrors "errors"
	"time"

	"github.com/arkade-os/bridged/internal/core/domain"
	log "github.com/sirupsen/logrus"
)

// errWindowOpen aborts the update of a route or asset whose daily window is still open, so
// that nothing is written.
var errWindowOpen = goerrors.New("daily window still open")

// sweepExpiredWindows persists the daily reset of every route and settlement asset whose
// window expired. Debits reset lazily anyway, this keeps stored volumes and listings fresh.
func (s *service) sweepExpiredWindows() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	now := s.now()
	routes, assets := s.resetExpiredWindows(ctx, now)
	if routes > 0 || assets > 0 {
		log.WithFields(log.Fields{
			"routes": routes,
			"assets": assets,
		}).Info("reset daily windows")
	}
}

func (s *service) resetExpiredWindows(ctx context.Context, now time.Time) (int, int) {
	resetRoutes := 0
	routes, err := s.liveStore.Routes().List(ctx)
	if err != nil {
		log.WithError(err).Warn("failed to list routes for reset sweep")
	}
	for _, route := range routes {
		if !route.Expired(now) {
			continue
		}
		if _, err := s.liveStore.Routes().Update(
			ctx, route.Key(), func(route *domain.Route) error {
				if !route.Rollover(now) {
					return errWindowOpen
				}
				return nil
			},
		); err != nil {
			if !goerrors.Is(err, errWindowOpen) {
				log.WithError(err).WithField("route", route.Key().String()).
					Warn("failed to reset route window")
			}
			continue
		}
		resetRoutes++
	}

	resetAssets := 0
	assets, err := s.liveStore.Assets().List(ctx)
	if err != nil {
		log.WithError(err).Warn("failed to list settlement assets for reset sweep")
	}
	for _, asset := range assets {
		if !asset.Expired(now) {
			continue
		}
		if _, err := s.liveStore.Assets().Update(
			ctx, asset.Ref, func(asset *domain.SettlementAsset) error {
				if !asset.Rollover(now) {
					return errWindowOpen
				}
				return nil
			},
		); err != nil {
			if !goerrors.Is(err, errWindowOpen) {
				log.WithError(err).WithField("asset", asset.Ref).
					Warn("failed to reset settlement asset window")
			}
			continue
		}
		resetAssets++
	}

	return resetRoutes, resetAssets
}
