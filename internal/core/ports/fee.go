package ports

import (
	"context"

	"github.com/arkade-os/bridged/internal/core/domain"
	"github.com/shopspring/decimal"
)

// ProtocolFeeInput holds the variables a protocol fee program can refer to.
type ProtocolFeeInput struct {
	Amount      uint64
	FeeBps      uint32
	Urgency     domain.Urgency
	Source      string
	Destination string
	Protocol    string
}

type FeeManager interface {
	ProtocolFee(ctx context.Context, input ProtocolFeeInput) (decimal.Decimal, error)
	GetProgram(ctx context.Context) string
	// UpdateProgram replaces the current program only if the new one compiles.
	UpdateProgram(ctx context.Context, program string) error
}
