package domain

import "time"

// ChainInfo describes the capabilities and current gas prices of a destination chain.
// Prices are expressed in the smallest unit of the chain gas token.
type ChainInfo struct {
	Id               string
	BlobSupported    bool
	AverageBlockTime time.Duration
	GasToken         string
	GasPrice         uint64
	BlobGasPrice     uint64
	BlobBaseFee      uint64
}
