package livestore_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/arkade-os/bridged/internal/core/domain"
	"github.com/arkade-os/bridged/internal/core/ports"
	inmemory "github.com/arkade-os/bridged/internal/infrastructure/live-store/inmemory"
	redislivestore "github.com/arkade-os/bridged/internal/infrastructure/live-store/redis"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

var (
	now      = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	routeKey = domain.RouteKey{Source: "ethereum", Destination: "base", Protocol: "cctp"}
)

func TestLiveStoreImplementations(t *testing.T) {
	stores := []struct {
		name  string
		store func(t *testing.T) ports.LiveStore
	}{
		{"inmemory", func(t *testing.T) ports.LiveStore { return inmemory.NewLiveStore() }},
		{"redis", newRedisLiveStore},
	}

	for _, tt := range stores {
		t.Run(tt.name, func(t *testing.T) {
			runLiveStoreTests(t, tt.store)
		})
	}
}

func newRedisLiveStore(t *testing.T) ports.LiveStore {
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	store := redislivestore.NewLiveStore(rdb, 100)
	t.Cleanup(store.Close)
	return store
}

func runLiveStoreTests(t *testing.T, newStore func(t *testing.T) ports.LiveStore) {
	t.Run("ProtocolStore", func(t *testing.T) {
		ctx := t.Context()
		store := newStore(t)

		first, err := store.Protocols().Add(ctx, domain.Protocol{Name: "cctp", FeeBps: 5})
		require.NoError(t, err)
		require.Equal(t, uint64(1), first.Sequence)

		second, err := store.Protocols().Add(ctx, domain.Protocol{Name: "wormhole"})
		require.NoError(t, err)
		require.Greater(t, second.Sequence, first.Sequence)

		_, err = store.Protocols().Add(ctx, domain.Protocol{Name: "cctp"})
		require.ErrorIs(t, err, domain.ErrProtocolExists)

		got, err := store.Protocols().Get(ctx, "cctp")
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Equal(t, uint32(5), got.FeeBps)

		got, err = store.Protocols().Get(ctx, "unknown")
		require.NoError(t, err)
		require.Nil(t, got)

		list, err := store.Protocols().List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		require.Equal(t, "cctp", list[0].Name)
		require.Equal(t, "wormhole", list[1].Name)
	})

	t.Run("RouteStore", func(t *testing.T) {
		ctx := t.Context()
		store := newStore(t)

		added, err := store.Routes().Add(ctx, domain.NewRoute(routeKey, 10, 50000, 1000, now))
		require.NoError(t, err)
		require.NotZero(t, added.Sequence)

		_, err = store.Routes().Add(ctx, domain.NewRoute(routeKey, 20, 50000, 1000, now))
		require.ErrorIs(t, err, domain.ErrRouteExists)

		other := routeKey
		other.Protocol = "wormhole"
		_, err = store.Routes().Add(ctx, domain.NewRoute(other, 10, 50000, 500, now))
		require.NoError(t, err)

		updated, err := store.Routes().Update(ctx, routeKey, func(r *domain.Route) error {
			return r.Debit(900, now)
		})
		require.NoError(t, err)
		require.Equal(t, uint64(900), updated.DailyVolume)

		_, err = store.Routes().Update(ctx, routeKey, func(r *domain.Route) error {
			return r.Debit(101, now)
		})
		var capErr *domain.CapacityError
		require.ErrorAs(t, err, &capErr)

		got, err := store.Routes().Get(ctx, routeKey)
		require.NoError(t, err)
		require.Equal(t, uint64(900), got.DailyVolume)
		require.Equal(t, uint64(100), got.Available(now))

		_, err = store.Routes().Update(ctx, domain.RouteKey{}, func(r *domain.Route) error {
			return nil
		})
		require.ErrorIs(t, err, domain.ErrRouteNotFound)

		list, err := store.Routes().List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		require.Equal(t, routeKey, list[0].Key())
		require.Equal(t, other, list[1].Key())
	})

	t.Run("RouteStore separator in network ids", func(t *testing.T) {
		ctx := t.Context()
		store := newStore(t)

		first := domain.RouteKey{Source: "eip155:1", Destination: "eip155:8453", Protocol: "cctp"}
		second := domain.RouteKey{Source: "eip155", Destination: "1:eip155:8453", Protocol: "cctp"}
		_, err := store.Routes().Add(ctx, domain.NewRoute(first, 10, 50000, 1000, now))
		require.NoError(t, err)
		_, err = store.Routes().Add(ctx, domain.NewRoute(second, 10, 50000, 500, now))
		require.NoError(t, err)

		_, err = store.Routes().Update(ctx, first, func(r *domain.Route) error {
			return r.Debit(700, now)
		})
		require.NoError(t, err)

		got, err := store.Routes().Get(ctx, second)
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Equal(t, second, got.Key())
		require.Zero(t, got.DailyVolume)
		require.Equal(t, uint64(500), got.DailyCap)

		list, err := store.Routes().List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
	})

	t.Run("AssetStore", func(t *testing.T) {
		ctx := t.Context()
		store := newStore(t)

		asset := domain.NewSettlementAsset("eurc", domain.CategoryFiatStablecoin, "EU", 1000, true, now)
		_, err := store.Assets().Add(ctx, asset)
		require.NoError(t, err)
		_, err = store.Assets().Add(ctx, asset)
		require.ErrorIs(t, err, domain.ErrAssetExists)

		updated, err := store.Assets().Update(ctx, "eurc", func(a *domain.SettlementAsset) error {
			a.Deactivate(now)
			return nil
		})
		require.NoError(t, err)
		require.False(t, updated.Active)

		got, err := store.Assets().Get(ctx, "eurc")
		require.NoError(t, err)
		require.False(t, got.Active)
		require.Equal(t, domain.CategoryFiatStablecoin, got.Category)

		_, err = store.Assets().Update(ctx, "usdx", func(a *domain.SettlementAsset) error {
			return nil
		})
		require.ErrorIs(t, err, domain.ErrAssetNotFound)

		for _, ref := range []string{"index", "sequence"} {
			_, err = store.Assets().Add(ctx, domain.NewSettlementAsset(
				ref, domain.CategoryCommercialDeposit, "US", 10, false, now,
			))
			require.NoError(t, err)
		}
		list, err := store.Assets().List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		require.Equal(t, "eurc", list[0].Ref)
		require.Equal(t, "index", list[1].Ref)
		require.Equal(t, "sequence", list[2].Ref)
	})

	t.Run("PreferenceStore", func(t *testing.T) {
		ctx := t.Context()
		store := newStore(t)

		prefs, err := store.Preferences().Get(ctx, "EU")
		require.NoError(t, err)
		require.Nil(t, prefs)

		expected := []domain.AssetCategory{
			domain.CategoryFiatStablecoin, domain.CategoryCentralBank,
		}
		require.NoError(t, store.Preferences().Set(ctx, "EU", expected))
		prefs, err = store.Preferences().Get(ctx, "EU")
		require.NoError(t, err)
		require.Equal(t, expected, prefs)

		require.NoError(t, store.Preferences().Set(ctx, "EU", nil))
		prefs, err = store.Preferences().Get(ctx, "EU")
		require.NoError(t, err)
		require.Nil(t, prefs)
	})

	t.Run("StatsStore", func(t *testing.T) {
		ctx := t.Context()
		store := newStore(t)

		stats, err := store.Stats().Get(ctx, "cctp")
		require.NoError(t, err)
		require.Nil(t, stats)

		stats, err = store.Stats().Record(ctx, "cctp", true, 2*time.Minute, now)
		require.NoError(t, err)
		require.Equal(t, 100.0, stats.SuccessRate)

		stats, err = store.Stats().Record(ctx, "cctp", false, 0, now)
		require.NoError(t, err)
		require.Equal(t, 50.0, stats.SuccessRate)
		require.Equal(t, uint64(2), stats.TotalTransfers)

		_, err = store.Stats().Record(ctx, "axelar", true, time.Minute, now)
		require.NoError(t, err)

		list, err := store.Stats().List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		require.Equal(t, "axelar", list[0].Protocol)
		require.Equal(t, "cctp", list[1].Protocol)
	})

	t.Run("ReservationStore", func(t *testing.T) {
		ctx := t.Context()
		store := newStore(t)

		_, err := store.Routes().Add(ctx, domain.NewRoute(routeKey, 10, 50000, 1000, now))
		require.NoError(t, err)
		_, err = store.Assets().Add(
			ctx, domain.NewSettlementAsset("eurc", domain.CategoryFiatStablecoin, "EU", 500, false, now),
		)
		require.NoError(t, err)

		reservation := ports.Reservation{Route: routeKey, Asset: "eurc", Amount: 400}
		receipt, err := store.Reservations().Reserve(ctx, reservation, now)
		require.NoError(t, err)
		require.Equal(t, now.Unix(), receipt.RouteWindow)
		require.Equal(t, now.Unix(), receipt.AssetWindow)

		// The asset has only 100 left: neither the route nor the asset must be debited.
		_, err = store.Reservations().Reserve(ctx, reservation, now)
		var capErr *domain.CapacityError
		require.ErrorAs(t, err, &capErr)
		require.Equal(t, "eurc", capErr.Key)

		route, err := store.Routes().Get(ctx, routeKey)
		require.NoError(t, err)
		require.Equal(t, uint64(400), route.DailyVolume)
		asset, err := store.Assets().Get(ctx, "eurc")
		require.NoError(t, err)
		require.Equal(t, uint64(400), asset.DailyVolume)

		// Route only reservation.
		routeOnly := ports.Reservation{Route: routeKey, Amount: 100}
		routeOnlyReceipt, err := store.Reservations().Reserve(ctx, routeOnly, now)
		require.NoError(t, err)
		require.Zero(t, routeOnlyReceipt.AssetWindow)

		require.NoError(t, store.Reservations().Release(ctx, reservation, *receipt, now))
		route, err = store.Routes().Get(ctx, routeKey)
		require.NoError(t, err)
		require.Equal(t, uint64(100), route.DailyVolume)
		asset, err = store.Assets().Get(ctx, "eurc")
		require.NoError(t, err)
		require.Zero(t, asset.DailyVolume)

		// Releasing twice would drive the asset volume below zero.
		err = store.Reservations().Release(ctx, reservation, *receipt, now)
		var volErr *domain.VolumeError
		require.ErrorAs(t, err, &volErr)
		route, err = store.Routes().Get(ctx, routeKey)
		require.NoError(t, err)
		require.Equal(t, uint64(100), route.DailyVolume)

		// After the window rolled over, releasing is a no-op.
		later := now.Add(domain.DailyWindow + time.Hour)
		_, err = store.Reservations().Reserve(ctx, ports.Reservation{Route: routeKey, Amount: 1}, later)
		require.NoError(t, err)
		require.NoError(t, store.Reservations().Release(ctx, routeOnly, *routeOnlyReceipt, later))
		route, err = store.Routes().Get(ctx, routeKey)
		require.NoError(t, err)
		require.Equal(t, uint64(1), route.DailyVolume)

		_, err = store.Reservations().Reserve(
			ctx, ports.Reservation{Route: routeKey, Asset: "unknown", Amount: 1}, later,
		)
		require.ErrorIs(t, err, domain.ErrAssetNotFound)
	})

	t.Run("ConcurrentDebits", func(t *testing.T) {
		ctx := t.Context()
		store := newStore(t)

		const (
			dailyCap   = 1000
			amount     = 30
			numWorkers = 50
		)
		_, err := store.Routes().Add(ctx, domain.NewRoute(routeKey, 10, 50000, dailyCap, now))
		require.NoError(t, err)
		_, err = store.Assets().Add(
			ctx, domain.NewSettlementAsset("eurc", domain.CategoryCentralBank, "EU", dailyCap, false, now),
		)
		require.NoError(t, err)

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
			failures  []error
		)
		for range numWorkers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.Reservations().Reserve(ctx, ports.Reservation{
					Route: routeKey, Asset: "eurc", Amount: amount,
				}, now)
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					succeeded++
					return
				}
				failures = append(failures, err)
			}()
		}
		wg.Wait()

		require.Equal(t, dailyCap/amount, succeeded)
		for _, err := range failures {
			var capErr *domain.CapacityError
			require.True(t, errors.As(err, &capErr), err.Error())
		}

		route, err := store.Routes().Get(ctx, routeKey)
		require.NoError(t, err)
		require.Equal(t, uint64(succeeded*amount), route.DailyVolume)
		require.LessOrEqual(t, route.DailyVolume, route.DailyCap)

		asset, err := store.Assets().Get(ctx, "eurc")
		require.NoError(t, err)
		require.Equal(t, route.DailyVolume, asset.DailyVolume)
	})
}
