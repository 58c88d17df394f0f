package redislivestore

import (
	"context"

	"github.com/arkade-os/bridged/internal/core/domain"
	"github.com/arkade-os/bridged/internal/core/ports"
	"github.com/redis/go-redis/v9"
)

const protocolsPrefix = "protocolStore"

type protocolStore struct {
	store *sequencedStore[domain.Protocol]
}

func NewProtocolStore(rdb *redis.Client, numOfRetries int) ports.ProtocolStore {
	return &protocolStore{
		store: &sequencedStore[domain.Protocol]{
			rdb:          rdb,
			prefix:       protocolsPrefix,
			numOfRetries: numOfRetries,
			retryDelay:   defaultRetryDelay,
			setSequence: func(p *domain.Protocol, sequence uint64) {
				p.Sequence = sequence
			},
			existsErr:   domain.ErrProtocolExists,
			notFoundErr: domain.ErrProtocolNotFound,
		},
	}
}

func (s *protocolStore) Add(
	ctx context.Context, protocol domain.Protocol,
) (*domain.Protocol, error) {
	return s.store.add(ctx, protocol.Name, protocol)
}

func (s *protocolStore) Get(ctx context.Context, name string) (*domain.Protocol, error) {
	return s.store.get(ctx, name)
}

func (s *protocolStore) List(ctx context.Context) ([]domain.Protocol, error) {
	return s.store.list(ctx)
}
