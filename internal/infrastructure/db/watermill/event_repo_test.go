package watermilldb_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/arkade-os/bridged/internal/core/domain"
	watermilldb "github.com/arkade-os/bridged/internal/infrastructure/db/watermill"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestEventRepository(t *testing.T) {
	publisher := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	repo := watermilldb.NewWatermillEventRepository(publisher, nil)
	t.Cleanup(repo.Close)

	ctx := context.Background()
	now := time.Unix(1700000000, 0)
	record := domain.TransferRecord{
		Id:          "transfer-1",
		Source:      "ethereum",
		Destination: "arbitrum",
		Asset:       "USDC",
		Amount:      100,
		Recipient:   "0xrecipient",
		Protocol:    "wormhole",
		Format:      domain.FormatInline,
		Fees:        domain.NewFeeBreakdown(decimal.NewFromInt(1), decimal.Zero, decimal.Zero, decimal.Zero),
		CreatedAt:   now.Unix(),
	}

	received := make(chan []domain.Event, 2)
	repo.RegisterEventsHandler(domain.TransferTopic, func(events []domain.Event) {
		received <- events
	})

	accepted := domain.NewTransferAccepted(record)
	require.NoError(t, repo.Save(ctx, domain.TransferTopic, record.Id, accepted))

	select {
	case events := <-received:
		require.Len(t, events, 1)
		require.Equal(t, domain.EventTypeTransferAccepted, events[0].GetType())
	case <-time.After(time.Second):
		t.Fatal("handler not called")
	}

	require.True(t, record.Finalize(true, time.Minute, now.Add(time.Minute)))
	finalized := domain.NewTransferFinalized(record)
	require.NoError(t, repo.Save(ctx, domain.TransferTopic, record.Id, finalized))
	<-received

	t.Run("history", func(t *testing.T) {
		events, err := repo.GetEvents(ctx, domain.TransferTopic, record.Id)
		require.NoError(t, err)
		require.Len(t, events, 2)
		require.Equal(t, accepted, events[0])
		require.Equal(t, finalized, events[1])
	})

	t.Run("unknown id", func(t *testing.T) {
		events, err := repo.GetEvents(ctx, domain.TransferTopic, "unknown")
		require.NoError(t, err)
		require.Empty(t, events)
	})

	t.Run("cleared handlers", func(t *testing.T) {
		repo.ClearRegisteredHandlers(domain.TransferTopic)
		cancelled := domain.NewTransferCancelled(record)
		require.NoError(t, repo.Save(ctx, domain.TransferTopic, "transfer-2", cancelled))
		select {
		case <-received:
			t.Fatal("unexpected handler call")
		case <-time.After(100 * time.Millisecond):
		}

		events, err := repo.GetEvents(ctx, domain.TransferTopic, "transfer-2")
		require.NoError(t, err)
		require.Len(t, events, 1)
		require.IsType(t, domain.TransferCancelledEvent{}, events[0])
		require.Equal(t, cancelled, events[0])
	})
}
