package dbutil

import (
	"fmt"
	"math"
	"time"

	"github.com/arkade-os/bridged/internal/core/domain"
	"github.com/shopspring/decimal"
)

// TransferRow is the flat representation of a transfer record shared by the sql stores.
// Fees are stored as decimal strings.
type TransferRow struct {
	Id                     string `db:"id"`
	Source                 string `db:"source"`
	Destination            string `db:"destination"`
	Asset                  string `db:"asset"`
	Amount                 int64  `db:"amount"`
	Sender                 string `db:"sender"`
	Recipient              string `db:"recipient"`
	Urgency                int16  `db:"urgency"`
	PayloadSize            int64  `db:"payload_size"`
	SettlementJurisdiction string `db:"settlement_jurisdiction"`
	Protocol               string `db:"protocol"`
	Format                 string `db:"format"`
	BaseFee                string `db:"base_fee"`
	ProtocolFee            string `db:"protocol_fee"`
	DestinationGas         string `db:"destination_gas"`
	DataCost               string `db:"data_cost"`
	TotalFee               string `db:"total_fee"`
	SettlementAsset        string `db:"settlement_asset"`
	Status                 int16  `db:"status"`
	RouteWindow            int64  `db:"route_window"`
	AssetWindow            int64  `db:"asset_window"`
	CreatedAt              int64  `db:"created_at"`
	CompletedAt            int64  `db:"completed_at"`
	Elapsed                int64  `db:"elapsed"`
}

// ValidateAmount rejects amounts that do not fit the signed BIGINT column.
func ValidateAmount(t domain.TransferRecord) error {
	if t.Amount > math.MaxInt64 {
		return fmt.Errorf("amount %d of transfer %s exceeds the storable maximum", t.Amount, t.Id)
	}
	return nil
}

func NewTransferRow(t domain.TransferRecord) TransferRow {
	return TransferRow{
		Id:                     t.Id,
		Source:                 t.Source,
		Destination:            t.Destination,
		Asset:                  t.Asset,
		Amount:                 int64(t.Amount),
		Sender:                 t.Sender,
		Recipient:              t.Recipient,
		Urgency:                int16(t.Urgency),
		PayloadSize:            int64(t.PayloadSize),
		SettlementJurisdiction: t.SettlementJurisdiction,
		Protocol:               t.Protocol,
		Format:                 string(t.Format),
		BaseFee:                t.Fees.BaseFee.String(),
		ProtocolFee:            t.Fees.ProtocolFee.String(),
		DestinationGas:         t.Fees.DestinationGas.String(),
		DataCost:               t.Fees.DataCost.String(),
		TotalFee:               t.Fees.Total.String(),
		SettlementAsset:        t.SettlementAsset,
		Status:                 int16(t.Status),
		RouteWindow:            t.RouteWindow,
		AssetWindow:            t.AssetWindow,
		CreatedAt:              t.CreatedAt,
		CompletedAt:            t.CompletedAt,
		Elapsed:                int64(t.Elapsed),
	}
}

func (r TransferRow) ToDomain() (*domain.TransferRecord, error) {
	fees := make([]decimal.Decimal, 0, 5)
	for _, v := range []string{r.BaseFee, r.ProtocolFee, r.DestinationGas, r.DataCost, r.TotalFee} {
		fee, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("invalid fee %q of transfer %s: %w", v, r.Id, err)
		}
		fees = append(fees, fee)
	}

	return &domain.TransferRecord{
		Id:                     r.Id,
		Source:                 r.Source,
		Destination:            r.Destination,
		Asset:                  r.Asset,
		Amount:                 uint64(r.Amount),
		Sender:                 r.Sender,
		Recipient:              r.Recipient,
		Urgency:                domain.Urgency(r.Urgency),
		PayloadSize:            int(r.PayloadSize),
		SettlementJurisdiction: r.SettlementJurisdiction,
		Protocol:               r.Protocol,
		Format:                 domain.DataFormat(r.Format),
		Fees: domain.FeeBreakdown{
			BaseFee:        fees[0],
			ProtocolFee:    fees[1],
			DestinationGas: fees[2],
			DataCost:       fees[3],
			Total:          fees[4],
		},
		SettlementAsset: r.SettlementAsset,
		Status:          domain.TransferStatus(r.Status),
		RouteWindow:     r.RouteWindow,
		AssetWindow:     r.AssetWindow,
		CreatedAt:       r.CreatedAt,
		CompletedAt:     r.CompletedAt,
		Elapsed:         time.Duration(r.Elapsed),
	}, nil
}

// StatusValues converts statuses to the values stored in the status column.
func StatusValues(statuses []domain.TransferStatus) []int16 {
	values := make([]int16, 0, len(statuses))
	for _, s := range statuses {
		values = append(values, int16(s))
	}
	return values
}
