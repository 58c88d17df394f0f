package application

import (
	"context"
	goerrors "errors"
	"fmt"
	"time"

	"github.com/arkade-os/bridged/internal/core/domain"
	"github.com/arkade-os/bridged/internal/core/ports"
	"github.com/arkade-os/bridged/pkg/errors"
)

type routeRegistry struct {
	store ports.LiveStore
}

func (r *routeRegistry) registerRoute(
	ctx context.Context, config RouteConfig, now time.Time,
) (*domain.Route, errors.Error) {
	key := config.Key()
	meta := errors.RouteMetadata{
		Source: key.Source, Destination: key.Destination, Protocol: key.Protocol,
	}
	invalid := func(field, msg string) errors.Error {
		return errors.INVALID_ROUTE.New("%s", msg).WithMetadata(
			errors.InvalidRouteMetadata{RouteMetadata: meta, Field: field},
		)
	}

	switch {
	case key.Source == "" || key.Destination == "":
		return nil, invalid("network", "missing source or destination network")
	case key.Source == key.Destination:
		return nil, invalid("network", "source and destination networks must differ")
	case config.BaseFee == 0:
		return nil, invalid("base_fee", "base fee must be greater than zero")
	case config.DailyCap == 0:
		return nil, invalid("daily_cap", "daily cap must be greater than zero")
	case config.DestinationGasBudget == 0:
		return nil, invalid("gas_budget", "destination gas budget must be greater than zero")
	}

	protocol, err := r.store.Protocols().Get(ctx, key.Protocol)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}
	if protocol == nil {
		return nil, invalid("protocol", fmt.Sprintf("unknown protocol %s", key.Protocol))
	}

	route, err := r.store.Routes().Add(ctx, domain.NewRoute(
		key, config.BaseFee, config.DestinationGasBudget, config.DailyCap, now,
	))
	if err != nil {
		if goerrors.Is(err, domain.ErrRouteExists) {
			return nil, errors.DUPLICATE_ROUTE.New("route %s already exists", key).
				WithMetadata(meta)
		}
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}
	return route, nil
}

func (r *routeRegistry) getRoute(
	ctx context.Context, key domain.RouteKey,
) (*domain.Route, errors.Error) {
	route, err := r.store.Routes().Get(ctx, key)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}
	if route == nil {
		return nil, routeNotFound(key)
	}
	return route, nil
}

// availableCapacity accounts for a pending daily rollover without persisting it: the next
// debit or the reset sweep does.
func (r *routeRegistry) availableCapacity(
	ctx context.Context, key domain.RouteKey, now time.Time,
) (uint64, errors.Error) {
	route, err := r.getRoute(ctx, key)
	if err != nil {
		return 0, err
	}
	if !route.Active {
		return 0, nil
	}
	return route.Available(now), nil
}

func (r *routeRegistry) debitRoute(
	ctx context.Context, key domain.RouteKey, amount uint64, now time.Time,
) (*domain.Route, errors.Error) {
	route, err := r.store.Routes().Update(ctx, key, func(route *domain.Route) error {
		return route.Debit(amount, now)
	})
	if err != nil {
		return nil, toCapacityError(err, key)
	}
	return route, nil
}

func (r *routeRegistry) creditRoute(
	ctx context.Context, key domain.RouteKey, amount uint64, windowStart int64, now time.Time,
) errors.Error {
	if _, err := r.store.Routes().Update(ctx, key, func(route *domain.Route) error {
		return route.Credit(amount, windowStart, now)
	}); err != nil {
		return toCapacityError(err, key)
	}
	return nil
}

func (r *routeRegistry) deactivateRoute(
	ctx context.Context, key domain.RouteKey, now time.Time,
) errors.Error {
	if _, err := r.store.Routes().Update(ctx, key, func(route *domain.Route) error {
		route.Deactivate(now)
		return nil
	}); err != nil {
		return toCapacityError(err, key)
	}
	return nil
}

// candidates returns the active routes between the given networks that can take amount,
// in registration order. Routes left out are reported with the reason why.
func (r *routeRegistry) candidates(
	ctx context.Context, source, destination string, amount uint64, now time.Time,
) ([]domain.Route, []string, errors.Error) {
	routes, err := r.store.Routes().List(ctx)
	if err != nil {
		return nil, nil, errors.INTERNAL_ERROR.Wrap(err)
	}

	eligible := make([]domain.Route, 0)
	rejected := make([]string, 0)
	for _, route := range routes {
		if route.Source != source || route.Destination != destination {
			continue
		}
		if !route.Active {
			rejected = append(rejected, fmt.Sprintf("%s: inactive", route.Protocol))
			continue
		}
		if available := route.Available(now); available < amount {
			rejected = append(rejected, fmt.Sprintf(
				"%s: available capacity %d", route.Protocol, available,
			))
			continue
		}
		eligible = append(eligible, route)
	}
	return eligible, rejected, nil
}

func routeNotFound(key domain.RouteKey) errors.Error {
	return errors.ROUTE_NOT_FOUND.New("route %s not found", key).WithMetadata(
		errors.RouteMetadata{
			Source: key.Source, Destination: key.Destination, Protocol: key.Protocol,
		},
	)
}

// toCapacityError maps the errors returned by debits and credits of routes and settlement
// assets to their typed counterpart.
func toCapacityError(err error, key domain.RouteKey) errors.Error {
	var capErr *domain.CapacityError
	if goerrors.As(err, &capErr) {
		return errors.CAPACITY_EXCEEDED.Wrap(err).WithMetadata(errors.CapacityMetadata{
			Key:       capErr.Key,
			Amount:    capErr.Amount,
			Available: capErr.Available,
			DailyCap:  capErr.DailyCap,
		})
	}
	var volErr *domain.VolumeError
	if goerrors.As(err, &volErr) {
		return errors.INCONSISTENT_STATE.Wrap(err).WithMetadata(
			errors.InconsistentStateMetadata{
				Key:      volErr.Key,
				Volume:   volErr.Volume,
				Credit:   volErr.Credit,
				DailyCap: volErr.DailyCap,
			},
		)
	}
	switch {
	case goerrors.Is(err, domain.ErrRouteNotFound):
		return routeNotFound(key)
	case goerrors.Is(err, domain.ErrAssetNotFound):
		return errors.ASSET_NOT_FOUND.Wrap(err)
	case goerrors.Is(err, domain.ErrInactive):
		return errors.NO_ELIGIBLE_PROTOCOL.Wrap(err).WithMetadata(
			errors.NoEligibleProtocolMetadata{
				Source:      key.Source,
				Destination: key.Destination,
				Rejected:    []string{fmt.Sprintf("%s: inactive", key.Protocol)},
			},
		)
	}
	return errors.INTERNAL_ERROR.Wrap(err)
}
