package natsnotifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/arkade-os/bridged/internal/core/domain"
	"github.com/arkade-os/bridged/internal/core/ports"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

const DefaultSubjectPrefix = "bridged"

type publisher interface {
	Publish(subject string, data []byte) error
	Drain() error
}

type notifier struct {
	conn   publisher
	prefix string
}

// NewNotifier publishes every event as json on <prefix>.<topic>.<event type>, for example
// bridged.transfer.TransferAccepted.
func NewNotifier(url, prefix string) (ports.EventNotifier, error) {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	conn, err := nats.Connect(url,
		nats.Name("bridged"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.WithError(err).Warn("disconnected from nats")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Infof("reconnected to nats at %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return newNotifier(conn, prefix), nil
}

func newNotifier(conn publisher, prefix string) *notifier {
	return &notifier{conn, strings.TrimSuffix(prefix, ".")}
}

func (n *notifier) Notify(ctx context.Context, events []domain.Event) error {
	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return err
		}

		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to serialize event %s: %w", event.GetType(), err)
		}
		subject := n.subject(event)
		if err := n.conn.Publish(subject, payload); err != nil {
			return fmt.Errorf("failed to publish event on %s: %w", subject, err)
		}
		log.Debugf("published event %s of %s", event.GetType(), event.GetId())
	}
	return nil
}

func (n *notifier) Close() {
	if err := n.conn.Drain(); err != nil {
		log.WithError(err).Warn("failed to drain nats connection")
	}
}

func (n *notifier) subject(event domain.Event) string {
	return fmt.Sprintf("%s.%s.%s", n.prefix, event.GetTopic(), event.GetType())
}
