package inmemorylivestore

import (
	"context"
	"sort"
	"sync"

	"github.com/arkade-os/bridged/internal/core/domain"
)

type routeStore struct {
	lock     sync.RWMutex
	routes   map[domain.RouteKey]domain.Route
	sequence uint64
}

func NewRouteStore() *routeStore {
	return &routeStore{
		routes: make(map[domain.RouteKey]domain.Route),
	}
}

func (s *routeStore) Add(_ context.Context, route domain.Route) (*domain.Route, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	key := route.Key()
	if _, ok := s.routes[key]; ok {
		return nil, domain.ErrRouteExists
	}
	s.sequence++
	route.Sequence = s.sequence
	s.routes[key] = route
	return &route, nil
}

func (s *routeStore) Get(_ context.Context, key domain.RouteKey) (*domain.Route, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	route, ok := s.routes[key]
	if !ok {
		return nil, nil
	}
	return &route, nil
}

func (s *routeStore) List(_ context.Context) ([]domain.Route, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	routes := make([]domain.Route, 0, len(s.routes))
	for _, route := range s.routes {
		routes = append(routes, route)
	}
	sort.Sort(domain.RoutesBySequence(routes))
	return routes, nil
}

func (s *routeStore) Update(
	_ context.Context, key domain.RouteKey, fn func(route *domain.Route) error,
) (*domain.Route, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.update(key, fn)
}

// update must be called with the lock held.
func (s *routeStore) update(
	key domain.RouteKey, fn func(route *domain.Route) error,
) (*domain.Route, error) {
	route, ok := s.routes[key]
	if !ok {
		return nil, domain.ErrRouteNotFound
	}
	if err := fn(&route); err != nil {
		return nil, err
	}
	s.routes[key] = route
	return &route, nil
}
