package dbutil

import (
	"math"
	"testing"
	"time"

	"github.com/arkade-os/bridged/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestTransferRow(t *testing.T) {
	record := domain.TransferRecord{
		Id:          "transfer-1",
		Source:      "ethereum",
		Destination: "base",
		Asset:       "USDC",
		Amount:      math.MaxInt64,
		Urgency:     domain.UrgencyFast,
		PayloadSize: 150_000,
		Protocol:    "axelar",
		Format:      domain.FormatBlob,
		Fees: domain.NewFeeBreakdown(
			decimal.NewFromInt(10), decimal.NewFromInt(20),
			decimal.NewFromInt(30), decimal.RequireFromString("0.5"),
		),
		Status:      domain.TransferCompleted,
		RouteWindow: 1_700_000_000,
		CreatedAt:   1_700_000_100,
		CompletedAt: 1_700_000_200,
		Elapsed:     100 * time.Second,
	}

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, ValidateAmount(record))

		got, err := NewTransferRow(record).ToDomain()
		require.NoError(t, err)
		require.Equal(t, record.Amount, got.Amount)
		require.Equal(t, record.Urgency, got.Urgency)
		require.Equal(t, record.Format, got.Format)
		require.Equal(t, record.Elapsed, got.Elapsed)
		require.True(t, record.Fees.Total.Equal(got.Fees.Total))
	})

	t.Run("invalid", func(t *testing.T) {
		oversized := record
		oversized.Amount = math.MaxInt64 + 1
		require.Error(t, ValidateAmount(oversized))

		row := NewTransferRow(record)
		row.TotalFee = "not a number"
		_, err := row.ToDomain()
		require.Error(t, err)
	})

	t.Run("statuses", func(t *testing.T) {
		require.Equal(
			t, []int16{int16(domain.TransferPending), int16(domain.TransferFailed)},
			StatusValues([]domain.TransferStatus{domain.TransferPending, domain.TransferFailed}),
		)
	})
}
