package watermilldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/arkade-os/bridged/internal/core/domain"
	lru "github.com/hashicorp/golang-lru/v2"
	log "github.com/sirupsen/logrus"
)

// defaultHistorySize is the number of aggregates whose history is kept in memory when
// there's no db, the least recently used ones are dropped first.
const defaultHistorySize = 100_000

type subscriber struct {
	topic   string
	handler func(events []domain.Event)
}

type eventRepository struct {
	publisher message.Publisher
	db        *sql.DB

	subscribers    map[string][]subscriber // topic -> subscribers
	subscriberLock *sync.Mutex

	// history keeps the payloads by topic and id when there's no db to query.
	history     *lru.Cache[string, [][]byte]
	historyLock *sync.Mutex
}

// NewWatermillEventRepository publishes events with the given publisher.
// If db is not nil, the history of an aggregate is read from the watermill_<topic> tables
// written by a watermill-sql publisher, otherwise only the history of the most recent
// aggregates is kept in memory.
func NewWatermillEventRepository(publisher message.Publisher, db *sql.DB) domain.EventRepository {
	return newEventRepository(publisher, db, defaultHistorySize)
}

func newEventRepository(
	publisher message.Publisher, db *sql.DB, historySize int,
) *eventRepository {
	if historySize <= 0 {
		historySize = defaultHistorySize
	}
	history, _ := lru.New[string, [][]byte](historySize)
	return &eventRepository{
		publisher:      publisher,
		db:             db,
		subscribers:    make(map[string][]subscriber),
		subscriberLock: &sync.Mutex{},
		history:        history,
		historyLock:    &sync.Mutex{},
	}
}

func (e *eventRepository) ClearRegisteredHandlers(topics ...string) {
	e.subscriberLock.Lock()
	defer e.subscriberLock.Unlock()

	if len(topics) == 0 {
		e.subscribers = make(map[string][]subscriber)
		return
	}

	for _, topic := range topics {
		delete(e.subscribers, topic)
	}
}

func (e *eventRepository) Close() {
	//nolint:errcheck
	e.publisher.Close()
}

func (e *eventRepository) RegisterEventsHandler(
	topic string, handler func(events []domain.Event),
) {
	e.subscriberLock.Lock()
	defer e.subscriberLock.Unlock()

	e.subscribers[topic] = append(e.subscribers[topic], subscriber{
		topic:   topic,
		handler: handler,
	})
}

func (e *eventRepository) Save(
	ctx context.Context, topic string, id string, events ...domain.Event,
) error {
	if len(events) == 0 {
		return nil
	}

	payloads, err := serializeEvents(events)
	if err != nil {
		return err
	}
	if err := e.publish(topic, payloads); err != nil {
		return fmt.Errorf("failed to publish events of %s %s: %w", topic, id, err)
	}
	if e.db == nil {
		e.historyLock.Lock()
		key := historyKey(topic, id)
		records, _ := e.history.Get(key)
		e.history.Add(key, append(records, payloads...))
		e.historyLock.Unlock()
	}

	e.dispatch(topic, events)
	return nil
}

func (e *eventRepository) GetEvents(
	ctx context.Context, topic, id string,
) ([]domain.Event, error) {
	if e.db == nil {
		e.historyLock.Lock()
		records, _ := e.history.Get(historyKey(topic, id))
		e.historyLock.Unlock()
		return deserializeEvents(records), nil
	}
	return e.getAllEvents(ctx, topic, id)
}

func (e *eventRepository) dispatch(topic string, events []domain.Event) {
	// run the handlers in go routines
	e.subscriberLock.Lock()
	defer e.subscriberLock.Unlock()
	for _, subscriber := range e.subscribers[topic] {
		go subscriber.handler(events)
	}
}

// getAllEvents queries the watermill_<topic> table for all historical messages filtered by
// the Id field of the JSON payload, ordered by offset.
func (e *eventRepository) getAllEvents(
	ctx context.Context, topic, id string,
) ([]domain.Event, error) {
	query := fmt.Sprintf(
		`SELECT payload FROM watermill_%s WHERE payload->>'Id' = $1 ORDER BY "offset" ASC;`,
		topic,
	)

	rows, err := e.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to query messages for topic %s with id %s: %w",
			topic, id, err,
		)
	}
	// nolint
	defer rows.Close()

	records := make([][]byte, 0)
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("failed to scan message payload: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf(
			"error iterating messages for topic %s with id %s: %w", topic, id, err,
		)
	}

	return deserializeEvents(records), nil
}

func (e *eventRepository) publish(topic string, payloads [][]byte) error {
	watermillMessages := make([]*message.Message, 0, len(payloads))
	for _, payload := range payloads {
		watermillMessages = append(
			watermillMessages,
			message.NewMessage(watermill.NewUUID(), payload),
		)
	}
	return e.publisher.Publish(topic, watermillMessages...)
}

func historyKey(topic, id string) string {
	return topic + ":" + id
}

func serializeEvents(events []domain.Event) ([][]byte, error) {
	payloads := make([][]byte, 0, len(events))
	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize event %s: %w", event.GetType(), err)
		}
		payloads = append(payloads, payload)
	}
	return payloads, nil
}

func deserializeEvents(records [][]byte) []domain.Event {
	events := make([]domain.Event, 0, len(records))
	for _, record := range records {
		event, err := deserializeEvent(record)
		if err != nil {
			log.WithError(err).Warnf("failed to deserialize event: %s", string(record))
			continue
		}
		events = append(events, event)
	}
	return events
}

func deserializeEvent(buf []byte) (domain.Event, error) {
	var eventType struct {
		Type domain.EventType
	}

	if err := json.Unmarshal(buf, &eventType); err != nil {
		return nil, err
	}

	switch eventType.Type {
	case domain.EventTypeTransferAccepted:
		var event = domain.TransferAccepted{}
		if err := json.Unmarshal(buf, &event); err == nil {
			return event, nil
		}
	case domain.EventTypeTransferCompleted, domain.EventTypeTransferFailed:
		var event = domain.TransferFinalized{}
		if err := json.Unmarshal(buf, &event); err == nil {
			return event, nil
		}
	case domain.EventTypeTransferCancelled:
		var event = domain.TransferCancelledEvent{}
		if err := json.Unmarshal(buf, &event); err == nil {
			return event, nil
		}
	}

	return nil, fmt.Errorf("unknown event type %d", eventType.Type)
}
