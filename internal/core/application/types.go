package application

import (
	"context"
	"time"

	"github.com/arkade-os/bridged/internal/core/domain"
	"github.com/arkade-os/bridged/pkg/errors"
	"github.com/shopspring/decimal"
)

type Service interface {
	Start() errors.Error
	Stop()
	// Quote prices a transfer without reserving any capacity.
	Quote(ctx context.Context, req domain.TransferRequest) (*Quote, errors.Error)
	// Submit reserves route and settlement capacity and stores a pending transfer.
	// Resubmitting a request with the same fingerprint returns the original transfer with
	// Duplicate set.
	Submit(ctx context.Context, req domain.TransferRequest) (*SubmitResult, errors.Error)
	// ReportCompletion is a no-op for transfers that already reached a terminal state.
	ReportCompletion(
		ctx context.Context, transferId string, success bool, elapsed time.Duration,
	) errors.Error
	GetTransfer(ctx context.Context, transferId string) (*domain.TransferRecord, errors.Error)
	CancelTransfer(ctx context.Context, transferId string) errors.Error
	ListTransfers(
		ctx context.Context, statuses ...domain.TransferStatus,
	) ([]domain.TransferRecord, errors.Error)
}

type Quote struct {
	Protocol        string
	Format          FormatEstimate
	Fees            domain.FeeBreakdown
	EstimatedTime   time.Duration
	Score           ScoredProtocol
	SettlementAsset string
	// Alternatives holds the other eligible protocols, best first.
	Alternatives []ScoredProtocol
}

type SubmitResult struct {
	TransferId string
	Duplicate  bool
	Transfer   domain.TransferRecord
}

// FormatEstimate costs are in the smallest unit of the destination chain gas token and
// include the urgency multiplier. BlobCost is zero if the chain does not support blobs.
type FormatEstimate struct {
	Format     domain.DataFormat
	Cost       decimal.Decimal
	InlineCost decimal.Decimal
	BlobCost   decimal.Decimal
	BlobChunks uint64
}

type ScoredProtocol struct {
	Protocol      string
	Score         int
	Reliability   int
	Speed         int
	Cost          int
	UrgencyBonus  int
	SuccessRate   float64
	EstimatedTime time.Duration
	Fees          domain.FeeBreakdown
	Sequence      uint64
}

type RouteConfig struct {
	Source               string
	Destination          string
	Protocol             string
	BaseFee              uint64
	DestinationGasBudget uint64
	DailyCap             uint64
}

func (c RouteConfig) Key() domain.RouteKey {
	return domain.RouteKey{Source: c.Source, Destination: c.Destination, Protocol: c.Protocol}
}

type SettlementAssetConfig struct {
	Ref          string
	Category     domain.AssetCategory
	Jurisdiction string
	DailyCap     uint64
	Preferred    bool
}

type RouteCapacity struct {
	Key       domain.RouteKey
	Active    bool
	DailyCap  uint64
	Available uint64
	LastReset int64
}
