package application

import (
	"context"
	"sort"
	"time"

	"github.com/arkade-os/bridged/internal/core/domain"
	"github.com/arkade-os/bridged/internal/core/ports"
	"github.com/arkade-os/bridged/pkg/errors"
)

type assetSelector struct {
	store ports.LiveStore
}

func (s *assetSelector) preferences(
	ctx context.Context, jurisdiction string,
) ([]domain.AssetCategory, errors.Error) {
	preferences, err := s.store.Preferences().Get(ctx, jurisdiction)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}
	if len(preferences) == 0 {
		return domain.DefaultPreferences, nil
	}
	return preferences, nil
}

// selectAsset walks the preference list of the jurisdiction looking for the first active
// asset with enough capacity left. Assets of the jurisdiction are searched first, then the
// whole pool. Within a category preferred assets come first, then registration order.
func (s *assetSelector) selectAsset(
	ctx context.Context, jurisdiction string, amount uint64, now time.Time,
) (*domain.SettlementAsset, errors.Error) {
	preferences, err := s.preferences(ctx, jurisdiction)
	if err != nil {
		return nil, err
	}

	assets, listErr := s.store.Assets().List(ctx)
	if listErr != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(listErr)
	}
	sort.SliceStable(assets, func(i, j int) bool {
		if assets[i].Preferred != assets[j].Preferred {
			return assets[i].Preferred
		}
		return assets[i].Sequence < assets[j].Sequence
	})

	for _, local := range []bool{true, false} {
		for _, category := range preferences {
			for _, asset := range assets {
				if !asset.Active || asset.Category != category {
					continue
				}
				if local && asset.Jurisdiction != jurisdiction {
					continue
				}
				if asset.Available(now) >= amount {
					return &asset, nil
				}
			}
		}
	}

	return nil, errors.NO_ELIGIBLE_ASSET.New(
		"no settlement asset with %d capacity left for jurisdiction %s", amount, jurisdiction,
	).WithMetadata(errors.NoEligibleAssetMetadata{Jurisdiction: jurisdiction, Amount: amount})
}
