package domain

import "context"

type TransferRepository interface {
	// Add stores a new record, it fails with ErrTransferExists if the id is already taken.
	Add(ctx context.Context, transfer TransferRecord) error
	// Get returns nil if the transfer is unknown.
	Get(ctx context.Context, id string) (*TransferRecord, error)
	// UpdateIfStatus replaces the stored record only if its current status matches from.
	// It returns whether the update was applied.
	UpdateIfStatus(ctx context.Context, transfer TransferRecord, from TransferStatus) (bool, error)
	// List returns transfers ordered by creation time, optionally filtered by status.
	List(ctx context.Context, statuses ...TransferStatus) ([]TransferRecord, error)
	Close()
}

type EventRepository interface {
	Save(ctx context.Context, topic, id string, events ...Event) error
	// GetEvents returns the history of the given aggregate, oldest first.
	GetEvents(ctx context.Context, topic, id string) ([]Event, error)
	RegisterEventsHandler(topic string, handler func(events []Event))
	ClearRegisteredHandlers(topics ...string)
	Close()
}
