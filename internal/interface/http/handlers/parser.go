package handlers

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/arkade-os/bridged/internal/core/application"
	"github.com/arkade-os/bridged/internal/core/domain"
)

func parseTransferRequest(req transferRequest) (domain.TransferRequest, error) {
	urgency, err := domain.ParseUrgency(req.Urgency)
	if err != nil {
		return domain.TransferRequest{}, err
	}

	var payload []byte
	if req.Payload != "" {
		encoded := strings.TrimPrefix(req.Payload, "0x")
		if len(encoded) > 2*domain.MaxPayloadSize {
			return domain.TransferRequest{}, fmt.Errorf(
				"payload exceeds max size of %d bytes", domain.MaxPayloadSize,
			)
		}
		buf, err := hex.DecodeString(encoded)
		if err != nil {
			return domain.TransferRequest{}, fmt.Errorf("invalid payload, must be hex encoded")
		}
		payload = buf
	}

	return domain.TransferRequest{
		Source:                 req.Source,
		Destination:            req.Destination,
		Asset:                  req.Asset,
		Amount:                 req.Amount,
		Sender:                 req.Sender,
		Recipient:              req.Recipient,
		Urgency:                urgency,
		Payload:                payload,
		SettlementJurisdiction: req.SettlementJurisdiction,
		Nonce:                  req.Nonce,
	}, nil
}

func parseStatuses(values []string) ([]domain.TransferStatus, error) {
	statuses := make([]domain.TransferStatus, 0, len(values))
	for _, value := range values {
		for _, s := range strings.Split(value, ",") {
			status, err := domain.ParseTransferStatus(strings.TrimSpace(s))
			if err != nil {
				return nil, err
			}
			statuses = append(statuses, status)
		}
	}
	return statuses, nil
}

func parseCategories(values []string) ([]domain.AssetCategory, error) {
	categories := make([]domain.AssetCategory, 0, len(values))
	for _, value := range values {
		category, err := domain.ParseAssetCategory(value)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, nil
}

func seconds(d time.Duration) int64 {
	return int64(d / time.Second)
}

func toFeeBreakdown(fees domain.FeeBreakdown) feeBreakdown {
	return feeBreakdown{
		BaseFee:        fees.BaseFee.String(),
		ProtocolFee:    fees.ProtocolFee.String(),
		DestinationGas: fees.DestinationGas.String(),
		DataCost:       fees.DataCost.String(),
		Total:          fees.Total.String(),
	}
}

func toScoredProtocol(p application.ScoredProtocol) scoredProtocol {
	return scoredProtocol{
		Protocol:      p.Protocol,
		Score:         p.Score,
		Reliability:   p.Reliability,
		Speed:         p.Speed,
		Cost:          p.Cost,
		UrgencyBonus:  p.UrgencyBonus,
		SuccessRate:   p.SuccessRate,
		EstimatedTime: seconds(p.EstimatedTime),
		Fees:          toFeeBreakdown(p.Fees),
	}
}

func toQuote(q application.Quote) quoteResponse {
	alternatives := make([]scoredProtocol, 0, len(q.Alternatives))
	for _, p := range q.Alternatives {
		alternatives = append(alternatives, toScoredProtocol(p))
	}
	return quoteResponse{
		Protocol: q.Protocol,
		Format: formatEstimate{
			Format:     string(q.Format.Format),
			Cost:       q.Format.Cost.String(),
			InlineCost: q.Format.InlineCost.String(),
			BlobCost:   q.Format.BlobCost.String(),
			BlobChunks: q.Format.BlobChunks,
		},
		Fees:            toFeeBreakdown(q.Fees),
		EstimatedTime:   seconds(q.EstimatedTime),
		Score:           toScoredProtocol(q.Score),
		SettlementAsset: q.SettlementAsset,
		Alternatives:    alternatives,
	}
}

func toTransfer(t domain.TransferRecord) transfer {
	return transfer{
		Id:                     t.Id,
		Source:                 t.Source,
		Destination:            t.Destination,
		Asset:                  t.Asset,
		Amount:                 t.Amount,
		Sender:                 t.Sender,
		Recipient:              t.Recipient,
		Urgency:                t.Urgency.String(),
		PayloadSize:            t.PayloadSize,
		SettlementJurisdiction: t.SettlementJurisdiction,
		Protocol:               t.Protocol,
		Format:                 string(t.Format),
		Fees:                   toFeeBreakdown(t.Fees),
		SettlementAsset:        t.SettlementAsset,
		Status:                 t.Status.String(),
		CreatedAt:              t.CreatedAt,
		CompletedAt:            t.CompletedAt,
		Elapsed:                seconds(t.Elapsed),
	}
}

func toProtocol(p domain.Protocol) protocol {
	return protocol{
		Name:         p.Name,
		FeeBps:       p.FeeBps,
		ExpectedTime: seconds(p.ExpectedTime),
		Sequence:     p.Sequence,
		CreatedAt:    p.CreatedAt,
	}
}

func toRouteKey(key domain.RouteKey) routeKey {
	return routeKey{Source: key.Source, Destination: key.Destination, Protocol: key.Protocol}
}

func (k routeKey) toDomain() domain.RouteKey {
	return domain.RouteKey{Source: k.Source, Destination: k.Destination, Protocol: k.Protocol}
}

func toRoute(r domain.Route) route {
	return route{
		routeKey:             toRouteKey(r.Key()),
		BaseFee:              r.BaseFee,
		DestinationGasBudget: r.DestinationGasBudget,
		Active:               r.Active,
		DailyCap:             r.DailyCap,
		DailyVolume:          r.DailyVolume,
		LastReset:            r.LastReset,
		Sequence:             r.Sequence,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

func toSettlementAsset(a domain.SettlementAsset) settlementAsset {
	return settlementAsset{
		Ref:          a.Ref,
		Category:     a.Category.String(),
		Jurisdiction: a.Jurisdiction,
		Active:       a.Active,
		Preferred:    a.Preferred,
		DailyCap:     a.DailyCap,
		DailyVolume:  a.DailyVolume,
		LastReset:    a.LastReset,
		Sequence:     a.Sequence,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func toProtocolStats(s domain.ProtocolStats) protocolStats {
	return protocolStats{
		Protocol:           s.Protocol,
		TotalTransfers:     s.TotalTransfers,
		CompletedTransfers: s.CompletedTransfers,
		SuccessRate:        s.SuccessRate,
		AvgCompletionTime:  seconds(s.AvgCompletionTime),
		UpdatedAt:          s.UpdatedAt,
	}
}

func toChain(c domain.ChainInfo) chain {
	return chain{
		Id:               c.Id,
		BlobSupported:    c.BlobSupported,
		AverageBlockTime: seconds(c.AverageBlockTime),
		GasToken:         c.GasToken,
		GasPrice:         c.GasPrice,
		BlobGasPrice:     c.BlobGasPrice,
		BlobBaseFee:      c.BlobBaseFee,
	}
}

func toTransferEvent(e domain.Event) transferEvent {
	var timestamp int64
	switch ev := e.(type) {
	case domain.TransferAccepted:
		timestamp = ev.Timestamp
	case domain.TransferFinalized:
		timestamp = ev.Timestamp
	case domain.TransferCancelledEvent:
		timestamp = ev.Timestamp
	}
	return transferEvent{
		Type:      e.GetType().String(),
		Timestamp: timestamp,
		Data:      e,
	}
}
