package handlers

import (
	"context"
	"time"

	"github.com/arkade-os/bridged/internal/core/application"
	"github.com/arkade-os/bridged/internal/core/domain"
	"github.com/arkade-os/bridged/pkg/errors"
	"github.com/stretchr/testify/mock"
)

func typedErr(args mock.Arguments, index int) errors.Error {
	if err := args.Get(index); err != nil {
		return err.(errors.Error)
	}
	return nil
}

type mockService struct {
	mock.Mock
}

func (m *mockService) Start() errors.Error { return nil }
func (m *mockService) Stop()               {}

func (m *mockService) Quote(
	ctx context.Context, req domain.TransferRequest,
) (*application.Quote, errors.Error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, typedErr(args, 1)
	}
	return args.Get(0).(*application.Quote), typedErr(args, 1)
}

func (m *mockService) Submit(
	ctx context.Context, req domain.TransferRequest,
) (*application.SubmitResult, errors.Error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, typedErr(args, 1)
	}
	return args.Get(0).(*application.SubmitResult), typedErr(args, 1)
}

func (m *mockService) ReportCompletion(
	ctx context.Context, transferId string, success bool, elapsed time.Duration,
) errors.Error {
	args := m.Called(ctx, transferId, success, elapsed)
	return typedErr(args, 0)
}

func (m *mockService) GetTransfer(
	ctx context.Context, transferId string,
) (*domain.TransferRecord, errors.Error) {
	args := m.Called(ctx, transferId)
	if args.Get(0) == nil {
		return nil, typedErr(args, 1)
	}
	return args.Get(0).(*domain.TransferRecord), typedErr(args, 1)
}

func (m *mockService) CancelTransfer(ctx context.Context, transferId string) errors.Error {
	args := m.Called(ctx, transferId)
	return typedErr(args, 0)
}

func (m *mockService) ListTransfers(
	ctx context.Context, statuses ...domain.TransferStatus,
) ([]domain.TransferRecord, errors.Error) {
	args := m.Called(ctx, statuses)
	if args.Get(0) == nil {
		return nil, typedErr(args, 1)
	}
	return args.Get(0).([]domain.TransferRecord), typedErr(args, 1)
}

type mockAdminService struct {
	mock.Mock
}

func (m *mockAdminService) RegisterProtocol(
	ctx context.Context, name string, feeBps uint32, expectedTime time.Duration,
) (*domain.Protocol, errors.Error) {
	args := m.Called(ctx, name, feeBps, expectedTime)
	if args.Get(0) == nil {
		return nil, typedErr(args, 1)
	}
	return args.Get(0).(*domain.Protocol), typedErr(args, 1)
}

func (m *mockAdminService) ListProtocols(ctx context.Context) ([]domain.Protocol, errors.Error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, typedErr(args, 1)
	}
	return args.Get(0).([]domain.Protocol), typedErr(args, 1)
}

func (m *mockAdminService) RegisterRoute(
	ctx context.Context, config application.RouteConfig,
) (*domain.Route, errors.Error) {
	args := m.Called(ctx, config)
	if args.Get(0) == nil {
		return nil, typedErr(args, 1)
	}
	return args.Get(0).(*domain.Route), typedErr(args, 1)
}

func (m *mockAdminService) DeactivateRoute(ctx context.Context, key domain.RouteKey) errors.Error {
	args := m.Called(ctx, key)
	return typedErr(args, 0)
}

func (m *mockAdminService) ListRoutes(ctx context.Context) ([]domain.Route, errors.Error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, typedErr(args, 1)
	}
	return args.Get(0).([]domain.Route), typedErr(args, 1)
}

func (m *mockAdminService) GetRouteCapacity(
	ctx context.Context, key domain.RouteKey,
) (*application.RouteCapacity, errors.Error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, typedErr(args, 1)
	}
	return args.Get(0).(*application.RouteCapacity), typedErr(args, 1)
}

func (m *mockAdminService) RegisterSettlementAsset(
	ctx context.Context, config application.SettlementAssetConfig,
) (*domain.SettlementAsset, errors.Error) {
	args := m.Called(ctx, config)
	if args.Get(0) == nil {
		return nil, typedErr(args, 1)
	}
	return args.Get(0).(*domain.SettlementAsset), typedErr(args, 1)
}

func (m *mockAdminService) DeactivateSettlementAsset(ctx context.Context, ref string) errors.Error {
	args := m.Called(ctx, ref)
	return typedErr(args, 0)
}

func (m *mockAdminService) ListSettlementAssets(
	ctx context.Context,
) ([]domain.SettlementAsset, errors.Error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, typedErr(args, 1)
	}
	return args.Get(0).([]domain.SettlementAsset), typedErr(args, 1)
}

func (m *mockAdminService) SetJurisdictionPreferences(
	ctx context.Context, jurisdiction string, preferences []domain.AssetCategory,
) errors.Error {
	args := m.Called(ctx, jurisdiction, preferences)
	return typedErr(args, 0)
}

func (m *mockAdminService) GetJurisdictionPreferences(
	ctx context.Context, jurisdiction string,
) ([]domain.AssetCategory, errors.Error) {
	args := m.Called(ctx, jurisdiction)
	if args.Get(0) == nil {
		return nil, typedErr(args, 1)
	}
	return args.Get(0).([]domain.AssetCategory), typedErr(args, 1)
}

func (m *mockAdminService) GetProtocolStats(
	ctx context.Context,
) ([]domain.ProtocolStats, errors.Error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, typedErr(args, 1)
	}
	return args.Get(0).([]domain.ProtocolStats), typedErr(args, 1)
}

func (m *mockAdminService) ListChains(ctx context.Context) ([]domain.ChainInfo, errors.Error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, typedErr(args, 1)
	}
	return args.Get(0).([]domain.ChainInfo), typedErr(args, 1)
}

func (m *mockAdminService) GetTransferEvents(
	ctx context.Context, transferId string,
) ([]domain.Event, errors.Error) {
	args := m.Called(ctx, transferId)
	if args.Get(0) == nil {
		return nil, typedErr(args, 1)
	}
	return args.Get(0).([]domain.Event), typedErr(args, 1)
}

func (m *mockAdminService) GetFeeProgram(ctx context.Context) string {
	args := m.Called(ctx)
	return args.String(0)
}

func (m *mockAdminService) UpdateFeeProgram(ctx context.Context, program string) errors.Error {
	args := m.Called(ctx, program)
	return typedErr(args, 0)
}
