package redislivestore

import (
	"context"

	"github.com/arkade-os/bridged/internal/core/domain"
	"github.com/arkade-os/bridged/internal/core/ports"
	"github.com/redis/go-redis/v9"
)

const routesPrefix = "routeStore"

type routeStore struct {
	store *sequencedStore[domain.Route]
}

func NewRouteStore(rdb *redis.Client, numOfRetries int) ports.RouteStore {
	return &routeStore{
		store: newRouteSequencedStore(rdb, numOfRetries),
	}
}

func newRouteSequencedStore(rdb *redis.Client, numOfRetries int) *sequencedStore[domain.Route] {
	return &sequencedStore[domain.Route]{
		rdb:          rdb,
		prefix:       routesPrefix,
		numOfRetries: numOfRetries,
		retryDelay:   defaultRetryDelay,
		setSequence: func(r *domain.Route, sequence uint64) {
			r.Sequence = sequence
		},
		existsErr:   domain.ErrRouteExists,
		notFoundErr: domain.ErrRouteNotFound,
	}
}

func (s *routeStore) Add(ctx context.Context, route domain.Route) (*domain.Route, error) {
	return s.store.add(ctx, routeId(route.Key()), route)
}

func (s *routeStore) Get(ctx context.Context, key domain.RouteKey) (*domain.Route, error) {
	return s.store.get(ctx, routeId(key))
}

func (s *routeStore) List(ctx context.Context) ([]domain.Route, error) {
	return s.store.list(ctx)
}

func (s *routeStore) Update(
	ctx context.Context, key domain.RouteKey, fn func(route *domain.Route) error,
) (*domain.Route, error) {
	return s.store.update(ctx, routeId(key), fn)
}
