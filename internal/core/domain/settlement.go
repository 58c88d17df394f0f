package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrAssetExists   = errors.New("settlement asset already exists")
	ErrAssetNotFound = errors.New("settlement asset not found")
)

// AssetCategory ranks settlement assets by backing, from the safest to the riskiest.
type AssetCategory uint8

const (
	CategoryCentralBank AssetCategory = iota
	CategoryReserveBacked
	CategoryCommercialDeposit
	CategoryFiatStablecoin
	CategoryUnbackedCrypto
)

var categoryNames = []string{
	"central-bank",
	"reserve-backed",
	"commercial-deposit",
	"fiat-stablecoin",
	"unbacked-crypto",
}

var riskWeights = []uint8{0, 5, 20, 50, 100}

// DefaultPreferences is the global category order used for jurisdictions without a
// configured preference list.
var DefaultPreferences = []AssetCategory{
	CategoryCentralBank,
	CategoryReserveBacked,
	CategoryCommercialDeposit,
	CategoryFiatStablecoin,
	CategoryUnbackedCrypto,
}

func (c AssetCategory) IsValid() bool {
	return int(c) < len(categoryNames)
}

func (c AssetCategory) String() string {
	if !c.IsValid() {
		return "unknown"
	}
	return categoryNames[c]
}

// RiskWeight is a pure function of the category.
func (c AssetCategory) RiskWeight() uint8 {
	if !c.IsValid() {
		return 100
	}
	return riskWeights[c]
}

func (c AssetCategory) MarshalText() ([]byte, error) {
	if !c.IsValid() {
		return nil, fmt.Errorf("invalid asset category %d", c)
	}
	return []byte(c.String()), nil
}

func (c *AssetCategory) UnmarshalText(text []byte) error {
	parsed, err := ParseAssetCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func ParseAssetCategory(s string) (AssetCategory, error) {
	for i, name := range categoryNames {
		if strings.EqualFold(name, s) {
			return AssetCategory(i), nil
		}
	}
	return 0, fmt.Errorf("unknown asset category %q", s)
}

type SettlementAsset struct {
	Ref          string
	Category     AssetCategory
	Jurisdiction string
	DailyCapacity
	Active    bool
	Preferred bool
	Sequence  uint64
	CreatedAt int64
	UpdatedAt int64
}

func NewSettlementAsset(
	ref string, category AssetCategory, jurisdiction string, dailyCap uint64, preferred bool,
	now time.Time,
) SettlementAsset {
	return SettlementAsset{
		Ref:           ref,
		Category:      category,
		Jurisdiction:  jurisdiction,
		DailyCapacity: NewDailyCapacity(dailyCap, now),
		Active:        true,
		Preferred:     preferred,
		CreatedAt:     now.Unix(),
		UpdatedAt:     now.Unix(),
	}
}

func (a SettlementAsset) RiskWeight() uint8 {
	return a.Category.RiskWeight()
}

func (a *SettlementAsset) Debit(amount uint64, now time.Time) error {
	if !a.Active {
		return fmt.Errorf("settlement asset %s: %w", a.Ref, ErrInactive)
	}
	if err := a.DailyCapacity.Debit(a.Ref, amount, now); err != nil {
		return err
	}
	a.UpdatedAt = now.Unix()
	return nil
}

func (a *SettlementAsset) Credit(amount uint64, windowStart int64, now time.Time) error {
	credited, err := a.DailyCapacity.Credit(a.Ref, amount, windowStart)
	if err != nil {
		return err
	}
	if credited {
		a.UpdatedAt = now.Unix()
	}
	return nil
}

func (a *SettlementAsset) Deactivate(now time.Time) {
	a.Active = false
	a.UpdatedAt = now.Unix()
}
