package redislivestore

import (
	"context"

	"github.com/arkade-os/bridged/internal/core/domain"
	"github.com/arkade-os/bridged/internal/core/ports"
	"github.com/redis/go-redis/v9"
)

const assetsPrefix = "assetStore"

type assetStore struct {
	store *sequencedStore[domain.SettlementAsset]
}

func NewAssetStore(rdb *redis.Client, numOfRetries int) ports.AssetStore {
	return &assetStore{
		store: newAssetSequencedStore(rdb, numOfRetries),
	}
}

func newAssetSequencedStore(
	rdb *redis.Client, numOfRetries int,
) *sequencedStore[domain.SettlementAsset] {
	return &sequencedStore[domain.SettlementAsset]{
		rdb:          rdb,
		prefix:       assetsPrefix,
		numOfRetries: numOfRetries,
		retryDelay:   defaultRetryDelay,
		setSequence: func(a *domain.SettlementAsset, sequence uint64) {
			a.Sequence = sequence
		},
		existsErr:   domain.ErrAssetExists,
		notFoundErr: domain.ErrAssetNotFound,
	}
}

func (s *assetStore) Add(
	ctx context.Context, asset domain.SettlementAsset,
) (*domain.SettlementAsset, error) {
	return s.store.add(ctx, asset.Ref, asset)
}

func (s *assetStore) Get(ctx context.Context, ref string) (*domain.SettlementAsset, error) {
	return s.store.get(ctx, ref)
}

func (s *assetStore) List(ctx context.Context) ([]domain.SettlementAsset, error) {
	return s.store.list(ctx)
}

func (s *assetStore) Update(
	ctx context.Context, ref string, fn func(asset *domain.SettlementAsset) error,
) (*domain.SettlementAsset, error) {
	return s.store.update(ctx, ref, fn)
}
