package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/arkade-os/bridged/internal/core/domain"
	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
)

const transferStoreDir = "transfers"

type transferRepository struct {
	store *badgerhold.Store
}

func NewTransferRepository(config ...interface{}) (domain.TransferRepository, error) {
	if len(config) != 2 {
		return nil, fmt.Errorf("invalid config")
	}
	baseDir, ok := config[0].(string)
	if !ok {
		return nil, fmt.Errorf("invalid base directory")
	}
	var logger badger.Logger
	if config[1] != nil {
		logger, ok = config[1].(badger.Logger)
		if !ok {
			return nil, fmt.Errorf("invalid logger")
		}
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, transferStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open transfer store: %s", err)
	}

	return &transferRepository{store}, nil
}

func (r *transferRepository) Add(_ context.Context, transfer domain.TransferRecord) error {
	err := r.store.Insert(transfer.Id, transfer)
	for attempts := 1; errors.Is(err, badger.ErrConflict) && attempts <= maxRetries; attempts++ {
		time.Sleep(100 * time.Millisecond)
		err = r.store.Insert(transfer.Id, transfer)
	}
	if err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return domain.ErrTransferExists
		}
		return fmt.Errorf("failed to insert transfer %s: %w", transfer.Id, err)
	}
	return nil
}

func (r *transferRepository) Get(_ context.Context, id string) (*domain.TransferRecord, error) {
	var transfer domain.TransferRecord
	if err := r.store.Get(id, &transfer); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &transfer, nil
}

func (r *transferRepository) UpdateIfStatus(
	_ context.Context, transfer domain.TransferRecord, from domain.TransferStatus,
) (bool, error) {
	var updated bool
	updateFn := func(tx *badger.Txn) error {
		updated = false

		var stored domain.TransferRecord
		if err := r.store.TxGet(tx, transfer.Id, &stored); err != nil {
			if errors.Is(err, badgerhold.ErrNotFound) {
				return domain.ErrTransferNotFound
			}
			return err
		}
		if stored.Status != from {
			return nil
		}
		if err := r.store.TxUpdate(tx, transfer.Id, transfer); err != nil {
			return err
		}
		updated = true
		return nil
	}

	err := r.store.Badger().Update(updateFn)
	for attempts := 1; errors.Is(err, badger.ErrConflict) && attempts <= maxRetries; attempts++ {
		time.Sleep(100 * time.Millisecond)
		err = r.store.Badger().Update(updateFn)
	}
	if err != nil {
		return false, err
	}
	return updated, nil
}

func (r *transferRepository) List(
	_ context.Context, statuses ...domain.TransferStatus,
) ([]domain.TransferRecord, error) {
	transfers := make([]domain.TransferRecord, 0)
	query := badgerhold.Where("CreatedAt").Ge(int64(0)).SortBy("CreatedAt", "Id")
	if err := r.store.Find(&transfers, query); err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		return transfers, nil
	}

	filtered := make([]domain.TransferRecord, 0, len(transfers))
	for _, transfer := range transfers {
		if slices.Contains(statuses, transfer.Status) {
			filtered = append(filtered, transfer)
		}
	}
	return filtered, nil
}

func (r *transferRepository) Close() {
	// nolint:all
	r.store.Close()
}
