package domain

import "time"

const TransferTopic = "transfer"

type EventType int

const (
	EventTypeUndefined EventType = iota
	EventTypeTransferAccepted
	EventTypeTransferCompleted
	EventTypeTransferFailed
	EventTypeTransferCancelled
)

func (t EventType) String() string {
	switch t {
	case EventTypeTransferAccepted:
		return "TransferAccepted"
	case EventTypeTransferCompleted:
		return "TransferCompleted"
	case EventTypeTransferFailed:
		return "TransferFailed"
	case EventTypeTransferCancelled:
		return "TransferCancelled"
	default:
		return "Undefined"
	}
}

type Event interface {
	GetTopic() string
	GetType() EventType
	GetId() string
}

type TransferEvent struct {
	Id        string
	Type      EventType
	Timestamp int64
}

func (e TransferEvent) GetTopic() string   { return TransferTopic }
func (e TransferEvent) GetType() EventType { return e.Type }
func (e TransferEvent) GetId() string      { return e.Id }

// TransferAccepted is emitted once capacity is reserved and the record is stored, it is the
// signal for the external executor to submit the transfer to the chosen protocol.
type TransferAccepted struct {
	TransferEvent
	Source          string
	Destination     string
	Asset           string
	Amount          uint64
	Recipient       string
	Protocol        string
	Format          DataFormat
	SettlementAsset string
	TotalFee        string
}

type TransferFinalized struct {
	TransferEvent
	Protocol string
	Success  bool
	Elapsed  time.Duration
}

type TransferCancelledEvent struct {
	TransferEvent
	Protocol string
	Amount   uint64
}

func NewTransferAccepted(record TransferRecord) TransferAccepted {
	return TransferAccepted{
		TransferEvent: TransferEvent{
			Id:        record.Id,
			Type:      EventTypeTransferAccepted,
			Timestamp: record.CreatedAt,
		},
		Source:          record.Source,
		Destination:     record.Destination,
		Asset:           record.Asset,
		Amount:          record.Amount,
		Recipient:       record.Recipient,
		Protocol:        record.Protocol,
		Format:          record.Format,
		SettlementAsset: record.SettlementAsset,
		TotalFee:        record.Fees.Total.String(),
	}
}

func NewTransferFinalized(record TransferRecord) TransferFinalized {
	eventType := EventTypeTransferFailed
	if record.Status == TransferCompleted {
		eventType = EventTypeTransferCompleted
	}
	return TransferFinalized{
		TransferEvent: TransferEvent{
			Id:        record.Id,
			Type:      eventType,
			Timestamp: record.CompletedAt,
		},
		Protocol: record.Protocol,
		Success:  record.Status == TransferCompleted,
		Elapsed:  record.Elapsed,
	}
}

func NewTransferCancelled(record TransferRecord) TransferCancelledEvent {
	return TransferCancelledEvent{
		TransferEvent: TransferEvent{
			Id:        record.Id,
			Type:      EventTypeTransferCancelled,
			Timestamp: record.CompletedAt,
		},
		Protocol: record.Protocol,
		Amount:   record.Amount,
	}
}
