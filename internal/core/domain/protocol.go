package domain

import (
	"errors"
	"time"
)

// DefaultSuccessRate is the success rate of a protocol with no transfer history.
const DefaultSuccessRate = 50.0

var (
	ErrProtocolExists   = errors.New("protocol already exists")
	ErrProtocolNotFound = errors.New("protocol not found")
)

// Protocol is the cost and latency profile of a cross-chain messaging mechanism.
// FeeBps is the protocol fee in basis points of the transferred amount, ExpectedTime the
// completion time assumed until real completions are reported.
type Protocol struct {
	Name         string
	FeeBps       uint32
	ExpectedTime time.Duration
	Sequence     uint64
	CreatedAt    int64
}

type ProtocolStats struct {
	Protocol string
	// TotalTransfers counts every reported attempt, CompletedTransfers only successful ones.
	TotalTransfers     uint64
	CompletedTransfers uint64
	SuccessRate        float64
	AvgCompletionTime  time.Duration
	UpdatedAt          int64
}

func NewProtocolStats(protocol string) ProtocolStats {
	return ProtocolStats{
		Protocol:    protocol,
		SuccessRate: DefaultSuccessRate,
	}
}

// Record merges the outcome of one transfer into the running averages.
func (s *ProtocolStats) Record(success bool, elapsed time.Duration, now time.Time) {
	s.TotalTransfers++
	n := float64(s.TotalTransfers)

	outcome := 0.0
	if success {
		outcome = 100
	}
	rate := (s.SuccessRate*(n-1) + outcome) / n
	s.SuccessRate = min(max(rate, 0), 100)

	if success {
		s.CompletedTransfers++
		m := float64(s.CompletedTransfers)
		avg := (float64(s.AvgCompletionTime)*(m-1) + float64(elapsed)) / m
		s.AvgCompletionTime = time.Duration(avg)
	}
	s.UpdatedAt = now.Unix()
}
