package application

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/arkade-os/bridged/internal/core/domain"
	"github.com/arkade-os/bridged/internal/core/ports"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type mockChainRegistry struct {
	mock.Mock
}

func (m *mockChainRegistry) GetChain(ctx context.Context, chainId string) (*domain.ChainInfo, error) {
	args := m.Called(ctx, chainId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChainInfo), args.Error(1)
}

func (m *mockChainRegistry) ListChains(ctx context.Context) ([]domain.ChainInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ChainInfo), args.Error(1)
}

func (m *mockChainRegistry) Close() {}

type mockAlerts struct {
	mock.Mock
}

func (m *mockAlerts) Publish(ctx context.Context, topic ports.Topic, message interface{}) error {
	args := m.Called(ctx, topic, message)
	return args.Error(0)
}

// bpsFeeManager charges the protocol fee in basis points of the amount.
type bpsFeeManager struct {
	program string
}

func (f *bpsFeeManager) ProtocolFee(
	_ context.Context, input ports.ProtocolFeeInput,
) (decimal.Decimal, error) {
	return decimalFromUint(input.Amount).
		Mul(decimal.NewFromInt(int64(input.FeeBps))).
		Div(decimal.NewFromInt(10000)), nil
}

func (f *bpsFeeManager) GetProgram(context.Context) string { return f.program }

func (f *bpsFeeManager) UpdateProgram(_ context.Context, program string) error {
	if program == "" {
		return fmt.Errorf("empty program")
	}
	f.program = program
	return nil
}

type fakeRepoManager struct {
	transfers *fakeTransferRepo
	events    *fakeEventRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		transfers: &fakeTransferRepo{transfers: make(map[string]domain.TransferRecord)},
		events:    &fakeEventRepo{handlers: make(map[string]func([]domain.Event))},
	}
}

func (r *fakeRepoManager) Events() domain.EventRepository       { return r.events }
func (r *fakeRepoManager) Transfers() domain.TransferRepository { return r.transfers }
func (r *fakeRepoManager) Close()                               {}

type fakeTransferRepo struct {
	lock      sync.Mutex
	transfers map[string]domain.TransferRecord
	order     []string
	addErr    error
}

func (r *fakeTransferRepo) Add(_ context.Context, transfer domain.TransferRecord) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.addErr != nil {
		return r.addErr
	}
	if _, ok := r.transfers[transfer.Id]; ok {
		return domain.ErrTransferExists
	}
	r.transfers[transfer.Id] = transfer
	r.order = append(r.order, transfer.Id)
	return nil
}

func (r *fakeTransferRepo) Get(_ context.Context, id string) (*domain.TransferRecord, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	transfer, ok := r.transfers[id]
	if !ok {
		return nil, nil
	}
	return &transfer, nil
}

func (r *fakeTransferRepo) UpdateIfStatus(
	_ context.Context, transfer domain.TransferRecord, from domain.TransferStatus,
) (bool, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	stored, ok := r.transfers[transfer.Id]
	if !ok {
		return false, domain.ErrTransferNotFound
	}
	if stored.Status != from {
		return false, nil
	}
	r.transfers[transfer.Id] = transfer
	return true, nil
}

func (r *fakeTransferRepo) List(
	_ context.Context, statuses ...domain.TransferStatus,
) ([]domain.TransferRecord, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	list := make([]domain.TransferRecord, 0, len(r.order))
	for _, id := range r.order {
		transfer := r.transfers[id]
		if len(statuses) > 0 && !slices.Contains(statuses, transfer.Status) {
			continue
		}
		list = append(list, transfer)
	}
	return list, nil
}

func (r *fakeTransferRepo) Close() {}

type fakeEventRepo struct {
	lock     sync.Mutex
	saved    []domain.Event
	handlers map[string]func([]domain.Event)
}

func (r *fakeEventRepo) Save(_ context.Context, topic, _ string, events ...domain.Event) error {
	r.lock.Lock()
	r.saved = append(r.saved, events...)
	handler := r.handlers[topic]
	r.lock.Unlock()
	if handler != nil {
		handler(events)
	}
	return nil
}

func (r *fakeEventRepo) GetEvents(_ context.Context, _, id string) ([]domain.Event, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	events := make([]domain.Event, 0)
	for _, e := range r.saved {
		if e.GetId() == id {
			events = append(events, e)
		}
	}
	return events, nil
}

func (r *fakeEventRepo) RegisterEventsHandler(topic string, handler func([]domain.Event)) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.handlers[topic] = handler
}

func (r *fakeEventRepo) ClearRegisteredHandlers(topics ...string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	for _, topic := range topics {
		delete(r.handlers, topic)
	}
}

func (r *fakeEventRepo) Close() {}

func (r *fakeEventRepo) eventTypes() []domain.EventType {
	r.lock.Lock()
	defer r.lock.Unlock()
	types := make([]domain.EventType, 0, len(r.saved))
	for _, e := range r.saved {
		types = append(types, e.GetType())
	}
	return types
}

type fakeNotifier struct {
	lock     sync.Mutex
	notified []domain.Event
}

func (n *fakeNotifier) Notify(_ context.Context, events []domain.Event) error {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.notified = append(n.notified, events...)
	return nil
}

func (n *fakeNotifier) Close() {}

func (n *fakeNotifier) count() int {
	n.lock.Lock()
	defer n.lock.Unlock()
	return len(n.notified)
}

type fakeScheduler struct {
	interval time.Duration
	task     func()
	started  bool
}

func (s *fakeScheduler) Start() { s.started = true }
func (s *fakeScheduler) Stop()  {}

func (s *fakeScheduler) ScheduleTask(interval time.Duration, task func()) error {
	s.interval = interval
	s.task = task
	return nil
}

func (s *fakeScheduler) ScheduleTaskOnce(time.Time, func()) error { return nil }
