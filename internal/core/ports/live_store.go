package ports

import (
	"context"
	"time"

	"github.com/arkade-os/bridged/internal/core/domain"
)

// LiveStore holds the mutable state read and written on the hot path of every transfer:
// route and settlement asset capacities, jurisdiction preferences and protocol statistics.
type LiveStore interface {
	Protocols() ProtocolStore
	Routes() RouteStore
	Assets() AssetStore
	Preferences() PreferenceStore
	Stats() StatsStore
	Reservations() ReservationStore
	Close()
}

type ProtocolStore interface {
	// Add assigns the registration sequence, it fails with domain.ErrProtocolExists if the
	// name is already taken.
	Add(ctx context.Context, protocol domain.Protocol) (*domain.Protocol, error)
	Get(ctx context.Context, name string) (*domain.Protocol, error)
	// List returns protocols in registration order.
	List(ctx context.Context) ([]domain.Protocol, error)
}

type RouteStore interface {
	// Add assigns the registration sequence, it fails with domain.ErrRouteExists if the
	// key is already taken.
	Add(ctx context.Context, route domain.Route) (*domain.Route, error)
	Get(ctx context.Context, key domain.RouteKey) (*domain.Route, error)
	// List returns routes in registration order.
	List(ctx context.Context) ([]domain.Route, error)
	// Update atomically applies fn to the stored route. Nothing is written if fn errors.
	// It fails with domain.ErrRouteNotFound if the key is unknown.
	Update(
		ctx context.Context, key domain.RouteKey, fn func(route *domain.Route) error,
	) (*domain.Route, error)
}

type AssetStore interface {
	Add(ctx context.Context, asset domain.SettlementAsset) (*domain.SettlementAsset, error)
	Get(ctx context.Context, ref string) (*domain.SettlementAsset, error)
	List(ctx context.Context) ([]domain.SettlementAsset, error)
	Update(
		ctx context.Context, ref string, fn func(asset *domain.SettlementAsset) error,
	) (*domain.SettlementAsset, error)
}

type PreferenceStore interface {
	// Get returns nil if no preferences are set for the jurisdiction.
	Get(ctx context.Context, jurisdiction string) ([]domain.AssetCategory, error)
	Set(ctx context.Context, jurisdiction string, preferences []domain.AssetCategory) error
}

type StatsStore interface {
	// Get returns nil if the protocol has no reported transfers.
	Get(ctx context.Context, protocol string) (*domain.ProtocolStats, error)
	List(ctx context.Context) ([]domain.ProtocolStats, error)
	// Record atomically merges a transfer outcome into the protocol statistics.
	Record(
		ctx context.Context, protocol string, success bool, elapsed time.Duration, now time.Time,
	) (*domain.ProtocolStats, error)
}

// Reservation is the capacity taken by a single transfer. Asset is empty when no settlement
// applies.
type Reservation struct {
	Route  domain.RouteKey
	Asset  string
	Amount uint64
}

// ReservationReceipt holds the starts of the daily windows the reservation was debited in.
type ReservationReceipt struct {
	RouteWindow int64
	AssetWindow int64
}

type ReservationStore interface {
	// Reserve debits the route and, if set, the settlement asset as one atomic unit: either
	// both are debited or none is.
	Reserve(ctx context.Context, reservation Reservation, now time.Time) (*ReservationReceipt, error)
	// Release credits back a reservation to the windows it was debited in. Windows that
	// rolled over meanwhile are left untouched.
	Release(
		ctx context.Context, reservation Reservation, receipt ReservationReceipt, now time.Time,
	) error
}
