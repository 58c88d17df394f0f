package application

import (
	"math"
	"sort"
	"time"

	"github.com/arkade-os/bridged/internal/core/domain"
	"github.com/shopspring/decimal"
)

const (
	reliabilityWeight = 0.40
	urgencyBonus      = 10
)

var (
	speedTiers = []struct {
		below  time.Duration
		points int
	}{
		{5 * time.Minute, 30},
		{15 * time.Minute, 20},
		{30 * time.Minute, 10},
	}
	costTiers = []struct {
		below  decimal.Decimal
		points int
	}{
		{decimal.RequireFromString("0.001"), 20},
		{decimal.RequireFromString("0.01"), 10},
	}
)

// scoreCandidate is an eligible route along with what the scorer needs to know about its
// protocol.
type scoreCandidate struct {
	route    domain.Route
	protocol domain.Protocol
	stats    *domain.ProtocolStats
}

type protocolScorer struct {
	lowLatencyProtocol string
	// feeUnit is the number of smallest units in a whole fee unit.
	feeUnit decimal.Decimal
}

func newProtocolScorer(lowLatencyProtocol string, feeUnitDecimals int32) protocolScorer {
	return protocolScorer{
		lowLatencyProtocol: lowLatencyProtocol,
		feeUnit:            decimal.New(1, feeUnitDecimals),
	}
}

// rank scores every candidate and sorts them by descending score. Ties keep protocol
// registration order.
func (s protocolScorer) rank(
	candidates []scoreCandidate, urgency domain.Urgency,
) []ScoredProtocol {
	scored := make([]ScoredProtocol, 0, len(candidates))
	for _, c := range candidates {
		scored = append(scored, s.score(c, urgency))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Sequence < scored[j].Sequence
	})
	return scored
}

func (s protocolScorer) score(c scoreCandidate, urgency domain.Urgency) ScoredProtocol {
	successRate := domain.DefaultSuccessRate
	estimatedTime := c.protocol.ExpectedTime
	if c.stats != nil {
		successRate = c.stats.SuccessRate
		if c.stats.CompletedTransfers > 0 {
			estimatedTime = c.stats.AvgCompletionTime
		}
	}

	reliability := int(math.Floor(min(max(successRate, 0), 100) * reliabilityWeight))

	speed := 0
	for _, tier := range speedTiers {
		if estimatedTime < tier.below {
			speed = tier.points
			break
		}
	}

	// Base fee only, the data cost is in the destination gas token.
	cost := 0
	fee := decimalFromUint(c.route.BaseFee).Div(s.feeUnit)
	for _, tier := range costTiers {
		if fee.LessThan(tier.below) {
			cost = tier.points
			break
		}
	}

	bonus := 0
	if urgency == domain.UrgencyFast && c.protocol.Name == s.lowLatencyProtocol {
		bonus = urgencyBonus
	}

	return ScoredProtocol{
		Protocol:      c.protocol.Name,
		Score:         reliability + speed + cost + bonus,
		Reliability:   reliability,
		Speed:         speed,
		Cost:          cost,
		UrgencyBonus:  bonus,
		SuccessRate:   successRate,
		EstimatedTime: estimatedTime,
		Sequence:      c.protocol.Sequence,
	}
}
