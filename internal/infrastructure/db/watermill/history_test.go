package watermilldb

import (
	"context"
	"fmt"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/arkade-os/bridged/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func TestInMemoryHistoryIsBounded(t *testing.T) {
	publisher := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	repo := newEventRepository(publisher, nil, 2)
	t.Cleanup(repo.Close)
	ctx := context.Background()

	save := func(id string) {
		event := domain.NewTransferAccepted(domain.TransferRecord{Id: id, Amount: 10})
		require.NoError(t, repo.Save(ctx, domain.TransferTopic, id, event))
	}
	history := func(id string) []domain.Event {
		events, err := repo.GetEvents(ctx, domain.TransferTopic, id)
		require.NoError(t, err)
		return events
	}

	save("transfer-1")
	save("transfer-2")
	// Reading transfer-1 makes transfer-2 the least recently used.
	require.Len(t, history("transfer-1"), 1)
	save("transfer-3")

	require.Len(t, history("transfer-1"), 1)
	require.Empty(t, history("transfer-2"))
	require.Len(t, history("transfer-3"), 1)
	require.Equal(t, 2, repo.history.Len())

	for i := range 10 {
		save(fmt.Sprintf("transfer-%d", i+10))
	}
	require.Equal(t, 2, repo.history.Len())
}
