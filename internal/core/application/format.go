package application

import (
	"math/big"

	"github.com/arkade-os/bridged/internal/core/domain"
	"github.com/ethereum/go-ethereum/params"
	"github.com/shopspring/decimal"
)

const (
	// BlobThreshold is the payload size up to which inline data is cheaper than the fixed
	// overhead of a blob.
	BlobThreshold = 100 * 1024

	inlineGasPerByte = params.TxDataNonZeroGasEIP2028
	blobChunkSize    = params.BlobTxBlobGasPerBlob
)

var urgencyMultipliers = map[domain.Urgency]decimal.Decimal{
	domain.UrgencyEconomy:  decimal.NewFromInt(1),
	domain.UrgencyStandard: decimal.RequireFromString("1.2"),
	domain.UrgencyFast:     decimal.RequireFromString("1.5"),
}

type formatOptimizer struct{}

func urgencyMultiplier(urgency domain.Urgency) decimal.Decimal {
	multiplier, ok := urgencyMultipliers[urgency]
	if !ok {
		return decimal.NewFromInt(1)
	}
	return multiplier
}

func (formatOptimizer) recommendFormat(
	chain domain.ChainInfo, payloadSize int, urgency domain.Urgency,
) FormatEstimate {
	size := uint64(max(payloadSize, 0))
	multiplier := urgencyMultiplier(urgency)

	inlineCost := decimalFromUint(size).
		Mul(decimalFromUint(uint64(inlineGasPerByte))).
		Mul(decimalFromUint(chain.GasPrice)).
		Mul(multiplier)

	estimate := FormatEstimate{
		Format:     domain.FormatInline,
		Cost:       inlineCost,
		InlineCost: inlineCost,
		BlobCost:   decimal.Zero,
	}
	if !chain.BlobSupported {
		return estimate
	}

	chunks := (size + blobChunkSize - 1) / blobChunkSize
	blobCost := decimalFromUint(chunks * blobChunkSize).
		Mul(decimalFromUint(chain.BlobGasPrice)).
		Add(decimalFromUint(chain.BlobBaseFee)).
		Mul(multiplier)
	estimate.BlobCost = blobCost
	estimate.BlobChunks = chunks

	if size > BlobThreshold {
		estimate.Format = domain.FormatBlob
		estimate.Cost = blobCost
	}
	return estimate
}

func decimalFromUint(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}
