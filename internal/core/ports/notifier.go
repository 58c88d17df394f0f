package ports

import (
	"context"

	"github.com/arkade-os/bridged/internal/core/domain"
)

// EventNotifier forwards transfer events to external consumers, like the executor submitting
// accepted transfers to the bridge protocols.
type EventNotifier interface {
	Notify(ctx context.Context, events []domain.Event) error
	Close()
}
