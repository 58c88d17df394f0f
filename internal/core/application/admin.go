package application

import (
	"context"
	goerrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/arkade-os/bridged/internal/core/domain"
	"github.com/arkade-os/bridged/internal/core/ports"
	"github.com/arkade-os/bridged/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type AdminService interface {
	RegisterProtocol(
		ctx context.Context, name string, feeBps uint32, expectedTime time.Duration,
	) (*domain.Protocol, errors.Error)
	ListProtocols(ctx context.Context) ([]domain.Protocol, errors.Error)
	RegisterRoute(ctx context.Context, config RouteConfig) (*domain.Route, errors.Error)
	DeactivateRoute(ctx context.Context, key domain.RouteKey) errors.Error
	ListRoutes(ctx context.Context) ([]domain.Route, errors.Error)
	GetRouteCapacity(ctx context.Context, key domain.RouteKey) (*RouteCapacity, errors.Error)
	RegisterSettlementAsset(
		ctx context.Context, config SettlementAssetConfig,
	) (*domain.SettlementAsset, errors.Error)
	DeactivateSettlementAsset(ctx context.Context, ref string) errors.Error
	ListSettlementAssets(ctx context.Context) ([]domain.SettlementAsset, errors.Error)
	SetJurisdictionPreferences(
		ctx context.Context, jurisdiction string, preferences []domain.AssetCategory,
	) errors.Error
	// GetJurisdictionPreferences returns the default order if the jurisdiction has none.
	GetJurisdictionPreferences(
		ctx context.Context, jurisdiction string,
	) ([]domain.AssetCategory, errors.Error)
	GetProtocolStats(ctx context.Context) ([]domain.ProtocolStats, errors.Error)
	ListChains(ctx context.Context) ([]domain.ChainInfo, errors.Error)
	GetTransferEvents(ctx context.Context, transferId string) ([]domain.Event, errors.Error)
	GetFeeProgram(ctx context.Context) string
	UpdateFeeProgram(ctx context.Context, program string) errors.Error
}

type adminService struct {
	repoManager ports.RepoManager
	liveStore   ports.LiveStore
	chains      ports.ChainRegistry
	fees        ports.FeeManager
	registry    *routeRegistry
	selector    *assetSelector
	now         func() time.Time
}

func NewAdminService(
	repoManager ports.RepoManager, liveStore ports.LiveStore, chains ports.ChainRegistry,
	fees ports.FeeManager,
) AdminService {
	return &adminService{
		repoManager: repoManager,
		liveStore:   liveStore,
		chains:      chains,
		fees:        fees,
		registry:    &routeRegistry{liveStore},
		selector:    &assetSelector{liveStore},
		now:         time.Now,
	}
}

func (a *adminService) RegisterProtocol(
	ctx context.Context, name string, feeBps uint32, expectedTime time.Duration,
) (*domain.Protocol, errors.Error) {
	name = strings.TrimSpace(name)
	meta := errors.ProtocolMetadata{Protocol: name}
	if name == "" {
		return nil, errors.INVALID_PROTOCOL.New("missing protocol name").WithMetadata(meta)
	}
	if feeBps > 10000 {
		return nil, errors.INVALID_PROTOCOL.New(
			"fee of %d bps exceeds 100%%", feeBps,
		).WithMetadata(meta)
	}
	if expectedTime <= 0 {
		return nil, errors.INVALID_PROTOCOL.New(
			"expected completion time must be greater than zero",
		).WithMetadata(meta)
	}

	protocol, err := a.liveStore.Protocols().Add(ctx, domain.Protocol{
		Name:         name,
		FeeBps:       feeBps,
		ExpectedTime: expectedTime,
		CreatedAt:    a.now().Unix(),
	})
	if err != nil {
		if goerrors.Is(err, domain.ErrProtocolExists) {
			return nil, errors.DUPLICATE_PROTOCOL.New("protocol %s already exists", name).
				WithMetadata(meta)
		}
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}

	log.WithField("protocol", name).Info("registered protocol")
	return protocol, nil
}

func (a *adminService) ListProtocols(ctx context.Context) ([]domain.Protocol, errors.Error) {
	protocols, err := a.liveStore.Protocols().List(ctx)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}
	return protocols, nil
}

func (a *adminService) RegisterRoute(
	ctx context.Context, config RouteConfig,
) (*domain.Route, errors.Error) {
	route, err := a.registry.registerRoute(ctx, config, a.now())
	if err != nil {
		return nil, err
	}
	log.WithField("route", route.Key().String()).Info("registered route")
	return route, nil
}

func (a *adminService) DeactivateRoute(ctx context.Context, key domain.RouteKey) errors.Error {
	if err := a.registry.deactivateRoute(ctx, key, a.now()); err != nil {
		return err
	}
	log.WithField("route", key.String()).Info("deactivated route")
	return nil
}

func (a *adminService) ListRoutes(ctx context.Context) ([]domain.Route, errors.Error) {
	routes, err := a.liveStore.Routes().List(ctx)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}
	return routes, nil
}

func (a *adminService) GetRouteCapacity(
	ctx context.Context, key domain.RouteKey,
) (*RouteCapacity, errors.Error) {
	now := a.now()
	route, err := a.registry.getRoute(ctx, key)
	if err != nil {
		return nil, err
	}
	available, err := a.registry.availableCapacity(ctx, key, now)
	if err != nil {
		return nil, err
	}

	lastReset := route.LastReset
	if route.Expired(now) {
		lastReset = now.Unix()
	}
	return &RouteCapacity{
		Key:       key,
		Active:    route.Active,
		DailyCap:  route.DailyCap,
		Available: available,
		LastReset: lastReset,
	}, nil
}

func (a *adminService) RegisterSettlementAsset(
	ctx context.Context, config SettlementAssetConfig,
) (*domain.SettlementAsset, errors.Error) {
	ref := strings.TrimSpace(config.Ref)
	meta := errors.AssetMetadata{Ref: ref}
	switch {
	case ref == "":
		return nil, errors.INVALID_ASSET.New("missing asset ref").WithMetadata(meta)
	case config.DailyCap == 0:
		return nil, errors.INVALID_ASSET.New("daily cap must be greater than zero").
			WithMetadata(meta)
	case !config.Category.IsValid():
		return nil, errors.INVALID_ASSET.New("invalid asset category %d", config.Category).
			WithMetadata(meta)
	}

	asset, err := a.liveStore.Assets().Add(ctx, domain.NewSettlementAsset(
		ref, config.Category, config.Jurisdiction, config.DailyCap, config.Preferred, a.now(),
	))
	if err != nil {
		if goerrors.Is(err, domain.ErrAssetExists) {
			return nil, errors.DUPLICATE_ASSET.New("settlement asset %s already exists", ref).
				WithMetadata(meta)
		}
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}

	log.WithFields(log.Fields{
		"asset":        ref,
		"category":     config.Category,
		"jurisdiction": config.Jurisdiction,
	}).Info("registered settlement asset")
	return asset, nil
}

func (a *adminService) DeactivateSettlementAsset(ctx context.Context, ref string) errors.Error {
	now := a.now()
	if _, err := a.liveStore.Assets().Update(ctx, ref, func(asset *domain.SettlementAsset) error {
		asset.Deactivate(now)
		return nil
	}); err != nil {
		if goerrors.Is(err, domain.ErrAssetNotFound) {
			return errors.ASSET_NOT_FOUND.New("settlement asset %s not found", ref).
				WithMetadata(errors.AssetMetadata{Ref: ref})
		}
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	log.WithField("asset", ref).Info("deactivated settlement asset")
	return nil
}

func (a *adminService) ListSettlementAssets(
	ctx context.Context,
) ([]domain.SettlementAsset, errors.Error) {
	assets, err := a.liveStore.Assets().List(ctx)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}
	return assets, nil
}

func (a *adminService) SetJurisdictionPreferences(
	ctx context.Context, jurisdiction string, preferences []domain.AssetCategory,
) errors.Error {
	jurisdiction = strings.TrimSpace(jurisdiction)
	if jurisdiction == "" {
		return errors.INVALID_REQUEST.New("missing jurisdiction")
	}
	seen := make(map[domain.AssetCategory]bool, len(preferences))
	for _, category := range preferences {
		if !category.IsValid() {
			return errors.INVALID_REQUEST.New("invalid asset category %d", category)
		}
		if seen[category] {
			return errors.INVALID_REQUEST.New("duplicate asset category %s", category)
		}
		seen[category] = true
	}

	if err := a.liveStore.Preferences().Set(ctx, jurisdiction, preferences); err != nil {
		return errors.INTERNAL_ERROR.Wrap(
			fmt.Errorf("failed to set preferences of %s: %w", jurisdiction, err),
		)
	}
	log.WithField("jurisdiction", jurisdiction).Info("updated settlement preferences")
	return nil
}

func (a *adminService) GetJurisdictionPreferences(
	ctx context.Context, jurisdiction string,
) ([]domain.AssetCategory, errors.Error) {
	return a.selector.preferences(ctx, jurisdiction)
}

func (a *adminService) GetProtocolStats(
	ctx context.Context,
) ([]domain.ProtocolStats, errors.Error) {
	protocols, err := a.liveStore.Protocols().List(ctx)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}
	reported, err := a.liveStore.Stats().List(ctx)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}
	byProtocol := make(map[string]domain.ProtocolStats, len(reported))
	for _, s := range reported {
		byProtocol[s.Protocol] = s
	}

	// Protocols with no reported transfers are listed with the defaults the scorer uses.
	stats := make([]domain.ProtocolStats, 0, len(protocols))
	for _, protocol := range protocols {
		s, ok := byProtocol[protocol.Name]
		if !ok {
			s = domain.NewProtocolStats(protocol.Name)
			s.AvgCompletionTime = protocol.ExpectedTime
		}
		stats = append(stats, s)
	}
	return stats, nil
}

func (a *adminService) ListChains(ctx context.Context) ([]domain.ChainInfo, errors.Error) {
	chains, err := a.chains.ListChains(ctx)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}
	return chains, nil
}

func (a *adminService) GetTransferEvents(
	ctx context.Context, transferId string,
) ([]domain.Event, errors.Error) {
	events, err := a.repoManager.Events().GetEvents(ctx, domain.TransferTopic, transferId)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(
			fmt.Errorf("failed to get events of transfer %s: %w", transferId, err),
		)
	}
	if len(events) == 0 {
		return nil, errors.TRANSFER_NOT_FOUND.New("transfer %s not found", transferId).
			WithMetadata(errors.TransferMetadata{TransferId: transferId})
	}
	return events, nil
}

func (a *adminService) GetFeeProgram(ctx context.Context) string {
	return a.fees.GetProgram(ctx)
}

func (a *adminService) UpdateFeeProgram(ctx context.Context, program string) errors.Error {
	if err := a.fees.UpdateProgram(ctx, program); err != nil {
		return errors.INVALID_REQUEST.Wrap(err)
	}
	log.Info("updated protocol fee program")
	return nil
}
