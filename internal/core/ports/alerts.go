package ports

import "context"

const (
	InconsistentState Topic = "Inconsistent State"
	CapacityExhausted Topic = "Capacity Exhausted"
)

type Topic string

type Alerts interface {
	Publish(ctx context.Context, topic Topic, message interface{}) error
}

// InconsistentStateAlert reports an invariant violation that aborted an operation and needs
// operator attention.
type InconsistentStateAlert struct {
	Operation  string
	TransferId string
	Key        string
	Volume     uint64
	Credit     uint64
	DailyCap   uint64
	Reason     string
}

// CapacityExhaustedAlert is sent when a debit leaves no capacity on a route or settlement
// asset for the rest of the day.
type CapacityExhaustedAlert struct {
	Key       string
	DailyCap  uint64
	LastReset int64
}
