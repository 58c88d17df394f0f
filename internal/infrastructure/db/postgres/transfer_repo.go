package pgdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/arkade-os/bridged/internal/core/domain"
	dbutil "github.com/arkade-os/bridged/internal/infrastructure/db/dbuitl"
	"github.com/jmoiron/sqlx"
)

const (
	transferColumns = `id, source, destination, asset, amount, sender, recipient, urgency,
	payload_size, settlement_jurisdiction, protocol, format, base_fee, protocol_fee,
	destination_gas, data_cost, total_fee, settlement_asset, status, route_window, asset_window,
	created_at, completed_at, elapsed`

	insertTransferQuery = `
INSERT INTO transfer (` + transferColumns + `) VALUES (
	:id, :source, :destination, :asset, :amount, :sender, :recipient, :urgency, :payload_size,
	:settlement_jurisdiction, :protocol, :format, :base_fee, :protocol_fee, :destination_gas,
	:data_cost, :total_fee, :settlement_asset, :status, :route_window, :asset_window,
	:created_at, :completed_at, :elapsed
)`
	selectTransferQuery = `SELECT ` + transferColumns + ` FROM transfer WHERE id = $1`
	updateTransferQuery = `
UPDATE transfer SET status = $1, completed_at = $2, elapsed = $3
WHERE id = $4 AND status = $5`
	listTransfersQuery = `SELECT ` + transferColumns + ` FROM transfer ORDER BY created_at, seq`

	// Uses ? bindvars, rebound after sqlx.In expansion.
	listTransfersByStatusQuery = `SELECT ` + transferColumns +
		` FROM transfer WHERE status IN (?) ORDER BY created_at, seq`
)

type transferRepository struct {
	db *sqlx.DB
}

func NewTransferRepository(config ...interface{}) (domain.TransferRepository, error) {
	if len(config) != 1 {
		return nil, fmt.Errorf("invalid config")
	}
	db, ok := config[0].(*sql.DB)
	if !ok {
		return nil, fmt.Errorf("cannot open transfer repository: invalid config")
	}

	return &transferRepository{sqlx.NewDb(db, driverName)}, nil
}

func (r *transferRepository) Add(ctx context.Context, transfer domain.TransferRecord) error {
	if err := dbutil.ValidateAmount(transfer); err != nil {
		return err
	}
	if _, err := r.db.NamedExecContext(
		ctx, insertTransferQuery, dbutil.NewTransferRow(transfer),
	); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrTransferExists
		}
		return fmt.Errorf("failed to insert transfer %s: %w", transfer.Id, err)
	}
	return nil
}

func (r *transferRepository) Get(ctx context.Context, id string) (*domain.TransferRecord, error) {
	var row dbutil.TransferRow
	if err := r.db.GetContext(ctx, &row, selectTransferQuery, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.ToDomain()
}

func (r *transferRepository) UpdateIfStatus(
	ctx context.Context, transfer domain.TransferRecord, from domain.TransferStatus,
) (bool, error) {
	res, err := r.db.ExecContext(
		ctx, updateTransferQuery,
		int16(transfer.Status), transfer.CompletedAt, int64(transfer.Elapsed),
		transfer.Id, int16(from),
	)
	if err != nil {
		return false, fmt.Errorf("failed to update transfer %s: %w", transfer.Id, err)
	}
	updated, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if updated > 0 {
		return true, nil
	}

	var exists bool
	if err := r.db.GetContext(
		ctx, &exists, `SELECT EXISTS(SELECT 1 FROM transfer WHERE id = $1)`, transfer.Id,
	); err != nil {
		return false, err
	}
	if !exists {
		return false, domain.ErrTransferNotFound
	}
	return false, nil
}

func (r *transferRepository) List(
	ctx context.Context, statuses ...domain.TransferStatus,
) ([]domain.TransferRecord, error) {
	query, args := listTransfersQuery, []interface{}{}
	if len(statuses) > 0 {
		var err error
		query, args, err = sqlx.In(listTransfersByStatusQuery, dbutil.StatusValues(statuses))
		if err != nil {
			return nil, err
		}
		query = r.db.Rebind(query)
	}

	rows := make([]dbutil.TransferRow, 0)
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	transfers := make([]domain.TransferRecord, 0, len(rows))
	for _, row := range rows {
		transfer, err := row.ToDomain()
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, *transfer)
	}
	return transfers, nil
}

func (r *transferRepository) Close() {
	_ = r.db.Close()
}
