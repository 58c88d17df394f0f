package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrRouteExists   = errors.New("route already exists")
	ErrRouteNotFound = errors.New("route not found")
)

// RouteKey identifies a route: a transfer path between two networks over one protocol.
type RouteKey struct {
	Source      string
	Destination string
	Protocol    string
}

func (k RouteKey) String() string {
	return fmt.Sprintf("%s:%s:%s", k.Source, k.Destination, k.Protocol)
}

type Route struct {
	Source               string
	Destination          string
	Protocol             string
	BaseFee              uint64
	DestinationGasBudget uint64
	Active               bool
	DailyCapacity
	Sequence  uint64
	CreatedAt int64
	UpdatedAt int64
}

func NewRoute(
	key RouteKey, baseFee, destinationGasBudget, dailyCap uint64, now time.Time,
) Route {
	return Route{
		Source:               key.Source,
		Destination:          key.Destination,
		Protocol:             key.Protocol,
		BaseFee:              baseFee,
		DestinationGasBudget: destinationGasBudget,
		Active:               true,
		DailyCapacity:        NewDailyCapacity(dailyCap, now),
		CreatedAt:            now.Unix(),
		UpdatedAt:            now.Unix(),
	}
}

func (r Route) Key() RouteKey {
	return RouteKey{Source: r.Source, Destination: r.Destination, Protocol: r.Protocol}
}

// Debit reserves amount on the route, resetting the daily window first if needed.
func (r *Route) Debit(amount uint64, now time.Time) error {
	if !r.Active {
		return fmt.Errorf("route %s: %w", r.Key(), ErrInactive)
	}
	if err := r.DailyCapacity.Debit(r.Key().String(), amount, now); err != nil {
		return err
	}
	r.UpdatedAt = now.Unix()
	return nil
}

// Credit releases a reservation debited in the window started at windowStart.
func (r *Route) Credit(amount uint64, windowStart int64, now time.Time) error {
	credited, err := r.DailyCapacity.Credit(r.Key().String(), amount, windowStart)
	if err != nil {
		return err
	}
	if credited {
		r.UpdatedAt = now.Unix()
	}
	return nil
}

func (r *Route) Deactivate(now time.Time) {
	r.Active = false
	r.UpdatedAt = now.Unix()
}

// RoutesBySequence sorts routes by registration order.
type RoutesBySequence []Route

func (r RoutesBySequence) Len() int           { return len(r) }
func (r RoutesBySequence) Less(i, j int) bool { return r[i].Sequence < r[j].Sequence }
func (r RoutesBySequence) Swap(i, j int)      { r[i], r[j] = r[j], r[i] }
