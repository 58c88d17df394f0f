package ports

import (
	"context"
	"errors"

	"github.com/arkade-os/bridged/internal/core/domain"
)

var ErrUnknownChain = errors.New("unknown chain")

type ChainRegistry interface {
	// GetChain fails with ErrUnknownChain if the chain is not registered.
	GetChain(ctx context.Context, chainId string) (*domain.ChainInfo, error)
	ListChains(ctx context.Context) ([]domain.ChainInfo, error)
	Close()
}
