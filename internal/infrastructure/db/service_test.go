package db_test

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/arkade-os/bridged/internal/core/domain"
	"github.com/arkade-os/bridged/internal/core/ports"
	"github.com/arkade-os/bridged/internal/infrastructure/db"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var now = time.Now()

func TestService(t *testing.T) {
	dbDir := t.TempDir()
	tests := []struct {
		name   string
		config db.ServiceConfig
	}{
		{
			name: "repo_manager_with_badger_stores",
			config: db.ServiceConfig{
				EventStoreType:   "inmemory",
				DataStoreType:    "badger",
				EventStoreConfig: nil,
				DataStoreConfig:  []interface{}{"", nil},
			},
		},
		{
			name: "repo_manager_with_sqlite_stores",
			config: db.ServiceConfig{
				EventStoreType:   "inmemory",
				DataStoreType:    "sqlite",
				EventStoreConfig: nil,
				DataStoreConfig:  []interface{}{dbDir},
			},
		},
	}
	if pgDsn := os.Getenv("BRIDGED_TEST_PG_URL"); pgDsn != "" {
		tests = append(tests, struct {
			name   string
			config db.ServiceConfig
		}{
			name: "repo_manager_with_postgres_stores",
			config: db.ServiceConfig{
				EventStoreType:   "postgres",
				DataStoreType:    "postgres",
				EventStoreConfig: []interface{}{pgDsn, true},
				DataStoreConfig:  []interface{}{pgDsn, true},
			},
		})
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := db.NewService(tt.config)
			require.NoError(t, err)
			require.NotNil(t, svc)

			testEventRepository(t, svc)
			testTransferRepository(t, svc)

			svc.Close()
		})
	}

	t.Run("invalid config", func(t *testing.T) {
		svc, err := db.NewService(db.ServiceConfig{
			EventStoreType: "inmemory",
			DataStoreType:  "mongo",
		})
		require.Error(t, err)
		require.Nil(t, svc)

		svc, err = db.NewService(db.ServiceConfig{
			EventStoreType:  "kafka",
			DataStoreType:   "badger",
			DataStoreConfig: []interface{}{"", nil},
		})
		require.Error(t, err)
		require.Nil(t, svc)
		svc, err = db.NewService(db.ServiceConfig{
			EventStoreType:   "postgres",
			EventStoreConfig: []interface{}{"postgres://localhost/bridged"},
			DataStoreType:    "badger",
			DataStoreConfig:  []interface{}{"", nil},
		})
		require.Error(t, err)
		require.Nil(t, svc)
	})
}

func testEventRepository(t *testing.T, svc ports.RepoManager) {
	t.Run("test_event_repository", func(t *testing.T) {
		ctx := context.Background()
		record := newTransferRecord(now)

		var wg sync.WaitGroup
		var lock sync.Mutex
		received := make([]domain.Event, 0)
		wg.Add(2)
		svc.Events().RegisterEventsHandler(domain.TransferTopic, func(events []domain.Event) {
			lock.Lock()
			defer lock.Unlock()
			received = append(received, events...)
			wg.Done()
		})
		t.Cleanup(func() {
			svc.Events().ClearRegisteredHandlers(domain.TransferTopic)
		})

		accepted := domain.NewTransferAccepted(record)
		err := svc.Events().Save(ctx, domain.TransferTopic, record.Id, accepted)
		require.NoError(t, err)

		require.True(t, record.Finalize(false, 2*time.Minute, now.Add(2*time.Minute)))
		finalized := domain.NewTransferFinalized(record)
		err = svc.Events().Save(ctx, domain.TransferTopic, record.Id, finalized)
		require.NoError(t, err)

		waitTimeout(t, &wg, 5*time.Second)
		lock.Lock()
		require.Len(t, received, 2)
		lock.Unlock()

		events, err := svc.Events().GetEvents(ctx, domain.TransferTopic, record.Id)
		require.NoError(t, err)
		require.Len(t, events, 2)
		require.Equal(t, accepted, events[0])
		require.Equal(t, finalized, events[1])
		require.Equal(t, domain.EventTypeTransferFailed, events[1].GetType())

		events, err = svc.Events().GetEvents(ctx, domain.TransferTopic, uuid.NewString())
		require.NoError(t, err)
		require.Empty(t, events)
	})
}

func testTransferRepository(t *testing.T, svc ports.RepoManager) {
	t.Run("test_transfer_repository", func(t *testing.T) {
		ctx := context.Background()
		repo := svc.Transfers()

		first := newTransferRecord(now)
		second := newTransferRecord(now.Add(time.Second))
		third := newTransferRecord(now.Add(2 * time.Second))

		transfer, err := repo.Get(ctx, first.Id)
		require.NoError(t, err)
		require.Nil(t, transfer)

		for _, record := range []domain.TransferRecord{first, second, third} {
			require.NoError(t, repo.Add(ctx, record))
		}
		err = repo.Add(ctx, first)
		require.ErrorIs(t, err, domain.ErrTransferExists)

		transfer, err = repo.Get(ctx, first.Id)
		require.NoError(t, err)
		require.NotNil(t, transfer)
		require.Equal(t, first.Id, transfer.Id)
		require.Equal(t, first.Amount, transfer.Amount)
		require.Equal(t, first.Format, transfer.Format)
		require.Equal(t, first.RouteWindow, transfer.RouteWindow)
		require.True(t, first.Fees.Total.Equal(transfer.Fees.Total))
		require.True(t, first.Fees.DataCost.Equal(transfer.Fees.DataCost))
		require.Equal(t, domain.TransferPending, transfer.Status)

		completed := *transfer
		require.True(t, completed.Finalize(true, time.Minute, now.Add(time.Minute)))
		updated, err := repo.UpdateIfStatus(ctx, completed, domain.TransferPending)
		require.NoError(t, err)
		require.True(t, updated)

		// A concurrent cancellation lost the race.
		cancelled := *transfer
		require.True(t, cancelled.Cancel(now.Add(time.Minute)))
		updated, err = repo.UpdateIfStatus(ctx, cancelled, domain.TransferPending)
		require.NoError(t, err)
		require.False(t, updated)

		transfer, err = repo.Get(ctx, first.Id)
		require.NoError(t, err)
		require.Equal(t, domain.TransferCompleted, transfer.Status)
		require.Equal(t, time.Minute, transfer.Elapsed)
		require.Equal(t, now.Add(time.Minute).Unix(), transfer.CompletedAt)

		unknown := newTransferRecord(now)
		_, err = repo.UpdateIfStatus(ctx, unknown, domain.TransferPending)
		require.ErrorIs(t, err, domain.ErrTransferNotFound)

		// A shared postgres db may hold records of previous runs.
		known := []string{first.Id, second.Id, third.Id}

		all, err := repo.List(ctx)
		require.NoError(t, err)
		require.Equal(t, known, transferIds(all, known))

		pending, err := repo.List(ctx, domain.TransferPending)
		require.NoError(t, err)
		require.Equal(t, []string{second.Id, third.Id}, transferIds(pending, known))

		terminal, err := repo.List(
			ctx, domain.TransferCompleted, domain.TransferFailed, domain.TransferCancelled,
		)
		require.NoError(t, err)
		require.Equal(t, []string{first.Id}, transferIds(terminal, known))
	})
}

func newTransferRecord(createdAt time.Time) domain.TransferRecord {
	req := domain.TransferRequest{
		Source:      "ethereum",
		Destination: "arbitrum",
		Asset:       "USDC",
		Amount:      1_000_000,
		Sender:      "0xsender",
		Recipient:   "0xrecipient",
		Urgency:     domain.UrgencyStandard,
		Payload:     []byte(uuid.NewString()),
	}
	fees := domain.NewFeeBreakdown(
		decimal.NewFromInt(500),
		decimal.NewFromInt(300),
		decimal.NewFromInt(2_100_000),
		decimal.RequireFromString("315772.8"),
	)
	return domain.NewTransferRecord(
		req, "wormhole", domain.FormatBlob, fees, "", createdAt.Truncate(24*time.Hour).Unix(), 0,
		createdAt,
	)
}

func transferIds(transfers []domain.TransferRecord, known []string) []string {
	ids := make([]string, 0, len(transfers))
	for _, transfer := range transfers {
		if slices.Contains(known, transfer.Id) {
			ids = append(ids, transfer.Id)
		}
	}
	return ids
}

func waitTimeout(t *testing.T, wg *sync.WaitGroup, timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		require.FailNow(t, fmt.Sprintf("timed out after %s waiting for handlers", timeout))
	}
}
