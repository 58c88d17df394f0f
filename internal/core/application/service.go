package application

import (
	"context"
	goerrors "errors"
	"fmt"
	"time"

	"github.com/arkade-os/bridged/internal/core/domain"
	"github.com/arkade-os/bridged/internal/core/ports"
	"github.com/arkade-os/bridged/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/arkade-os/bridged/internal/core/application"

type service struct {
	repoManager ports.RepoManager
	liveStore   ports.LiveStore
	chains      ports.ChainRegistry
	fees        ports.FeeManager
	alerts      ports.Alerts
	notifier    ports.EventNotifier
	scheduler   ports.SchedulerService

	registry  *routeRegistry
	selector  *assetSelector
	scorer    protocolScorer
	optimizer formatOptimizer

	resetSweepInterval time.Duration
	now                func() time.Time

	tracer            trace.Tracer
	acceptedTransfers metric.Int64Counter
	rejectedTransfers metric.Int64Counter
	reportedTransfers metric.Int64Counter
}

// NewService wires the bridge router. Alerts, notifier and scheduler are optional.
func NewService(
	repoManager ports.RepoManager,
	liveStore ports.LiveStore,
	chains ports.ChainRegistry,
	fees ports.FeeManager,
	alerts ports.Alerts,
	notifier ports.EventNotifier,
	scheduler ports.SchedulerService,
	lowLatencyProtocol string,
	feeUnitDecimals int32,
	resetSweepInterval time.Duration,
) (Service, error) {
	meter := otel.Meter(instrumentationName)
	accepted, err := meter.Int64Counter(
		"bridged.transfers.accepted", metric.WithDescription("transfers accepted"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create accepted transfers counter: %w", err)
	}
	rejected, err := meter.Int64Counter(
		"bridged.transfers.rejected", metric.WithDescription("transfers rejected on submit"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rejected transfers counter: %w", err)
	}
	reported, err := meter.Int64Counter(
		"bridged.transfers.reported", metric.WithDescription("transfer completions reported"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create reported transfers counter: %w", err)
	}

	svc := &service{
		repoManager:        repoManager,
		liveStore:          liveStore,
		chains:             chains,
		fees:               fees,
		alerts:             alerts,
		notifier:           notifier,
		scheduler:          scheduler,
		registry:           &routeRegistry{liveStore},
		selector:           &assetSelector{liveStore},
		scorer:             newProtocolScorer(lowLatencyProtocol, feeUnitDecimals),
		optimizer:          formatOptimizer{},
		resetSweepInterval: resetSweepInterval,
		now:                time.Now,
		tracer:             otel.Tracer(instrumentationName),
		acceptedTransfers:  accepted,
		rejectedTransfers:  rejected,
		reportedTransfers:  reported,
	}

	repoManager.Events().RegisterEventsHandler(
		domain.TransferTopic, func(events []domain.Event) {
			if svc.notifier == nil || len(events) == 0 {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := svc.notifier.Notify(ctx, events); err != nil {
				log.WithError(err).WithField("transfer_id", events[0].GetId()).
					Warn("failed to notify transfer events")
			}
		},
	)

	return svc, nil
}

func (s *service) Start() errors.Error {
	if s.scheduler == nil || s.resetSweepInterval <= 0 {
		return nil
	}

	log.Debugf("scheduling daily reset sweep every %s", s.resetSweepInterval)
	if err := s.scheduler.ScheduleTask(s.resetSweepInterval, s.sweepExpiredWindows); err != nil {
		return errors.INTERNAL_ERROR.Wrap(fmt.Errorf("failed to schedule reset sweep: %w", err))
	}
	s.scheduler.Start()
	return nil
}

func (s *service) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
		log.Debug("stopped scheduler")
	}
	s.repoManager.Events().ClearRegisteredHandlers(domain.TransferTopic)
	if s.notifier != nil {
		s.notifier.Close()
		log.Debug("closed event notifier")
	}
	s.chains.Close()
	log.Debug("closed chain registry")
	s.liveStore.Close()
	log.Debug("closed live store")
	s.repoManager.Close()
	log.Debug("closed connection to db")
}

func (s *service) Quote(ctx context.Context, req domain.TransferRequest) (*Quote, errors.Error) {
	ctx, span := s.tracer.Start(ctx, "bridge.Quote", trace.WithAttributes(requestAttributes(req)...))
	defer span.End()

	quote, err := s.plan(ctx, req, s.now())
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("protocol", quote.Protocol))
	return quote, nil
}

func (s *service) Submit(
	ctx context.Context, req domain.TransferRequest,
) (result *SubmitResult, err errors.Error) {
	ctx, span := s.tracer.Start(ctx, "bridge.Submit", trace.WithAttributes(requestAttributes(req)...))
	defer span.End()
	defer func() {
		if err != nil {
			recordError(span, err)
			s.rejectedTransfers.Add(ctx, 1, metric.WithAttributes(
				attribute.String("reason", err.CodeName()),
			))
		}
	}()

	if err := req.Validate(); err != nil {
		return nil, errors.INVALID_REQUEST.Wrap(err)
	}

	id := req.Fingerprint()
	span.SetAttributes(attribute.String("transfer_id", id))

	existing, getErr := s.repoManager.Transfers().Get(ctx, id)
	if getErr != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(
			fmt.Errorf("failed to get transfer %s: %w", id, getErr),
		)
	}
	if existing != nil {
		log.WithField("transfer_id", id).Debug("duplicate transfer request")
		return &SubmitResult{TransferId: id, Duplicate: true, Transfer: *existing}, nil
	}

	now := s.now()
	quote, err := s.plan(ctx, req, now)
	if err != nil {
		return nil, err
	}

	reservation := ports.Reservation{
		Route:  req.RouteKey(quote.Protocol),
		Asset:  quote.SettlementAsset,
		Amount: req.Amount,
	}
	receipt, err := s.reserve(ctx, reservation, now)
	if err != nil {
		return nil, err
	}

	record := domain.NewTransferRecord(
		req, quote.Protocol, quote.Format.Format, quote.Fees, quote.SettlementAsset,
		receipt.RouteWindow, receipt.AssetWindow, now,
	)
	if addErr := s.repoManager.Transfers().Add(ctx, record); addErr != nil {
		// Capacity is only taken by persisted transfers.
		if releaseErr := s.release(ctx, reservation, *receipt, now); releaseErr != nil {
			s.alertIfInconsistent("submit", id, releaseErr)
			log.WithError(releaseErr).WithField("transfer_id", id).
				Error("failed to release reservation of unstored transfer")
		}

		if goerrors.Is(addErr, domain.ErrTransferExists) {
			stored, getErr := s.repoManager.Transfers().Get(ctx, id)
			if getErr == nil && stored != nil {
				return &SubmitResult{TransferId: id, Duplicate: true, Transfer: *stored}, nil
			}
		}
		return nil, errors.INTERNAL_ERROR.Wrap(
			fmt.Errorf("failed to store transfer %s: %w", id, addErr),
		)
	}

	s.saveEvents(ctx, id, domain.NewTransferAccepted(record))
	s.acceptedTransfers.Add(ctx, 1, metric.WithAttributes(
		attribute.String("protocol", record.Protocol),
		attribute.String("format", string(record.Format)),
	))

	log.WithFields(log.Fields{
		"transfer_id": id,
		"protocol":    record.Protocol,
		"format":      record.Format,
		"amount":      record.Amount,
	}).Info("transfer accepted")

	return &SubmitResult{TransferId: id, Transfer: record}, nil
}

func (s *service) ReportCompletion(
	ctx context.Context, transferId string, success bool, elapsed time.Duration,
) errors.Error {
	ctx, span := s.tracer.Start(ctx, "bridge.ReportCompletion", trace.WithAttributes(
		attribute.String("transfer_id", transferId),
		attribute.Bool("success", success),
	))
	defer span.End()

	if elapsed < 0 {
		err := errors.INVALID_REQUEST.New("elapsed time must not be negative")
		recordError(span, err)
		return err
	}

	record, err := s.GetTransfer(ctx, transferId)
	if err != nil {
		recordError(span, err)
		return err
	}

	now := s.now()
	if !record.Finalize(success, elapsed, now) {
		log.WithField("transfer_id", transferId).Debug("transfer already finalized")
		return nil
	}

	updated, updErr := s.repoManager.Transfers().UpdateIfStatus(
		ctx, *record, domain.TransferPending,
	)
	if updErr != nil {
		err := errors.INTERNAL_ERROR.Wrap(
			fmt.Errorf("failed to update transfer %s: %w", transferId, updErr),
		)
		recordError(span, err)
		return err
	}
	// Another report or a cancellation got there first.
	if !updated {
		return nil
	}

	if _, statsErr := s.liveStore.Stats().Record(
		ctx, record.Protocol, success, elapsed, now,
	); statsErr != nil {
		log.WithError(statsErr).WithField("protocol", record.Protocol).
			Warn("failed to update protocol stats")
	}

	s.saveEvents(ctx, transferId, domain.NewTransferFinalized(*record))
	s.reportedTransfers.Add(ctx, 1, metric.WithAttributes(
		attribute.String("protocol", record.Protocol),
		attribute.Bool("success", success),
	))

	log.WithFields(log.Fields{
		"transfer_id": transferId,
		"status":      record.Status,
		"elapsed":     elapsed,
	}).Info("transfer finalized")
	return nil
}

func (s *service) GetTransfer(
	ctx context.Context, transferId string,
) (*domain.TransferRecord, errors.Error) {
	record, err := s.repoManager.Transfers().Get(ctx, transferId)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(
			fmt.Errorf("failed to get transfer %s: %w", transferId, err),
		)
	}
	if record == nil {
		return nil, errors.TRANSFER_NOT_FOUND.New("transfer %s not found", transferId).
			WithMetadata(errors.TransferMetadata{TransferId: transferId})
	}
	return record, nil
}

func (s *service) CancelTransfer(ctx context.Context, transferId string) errors.Error {
	record, err := s.GetTransfer(ctx, transferId)
	if err != nil {
		return err
	}

	now := s.now()
	notPending := func(status domain.TransferStatus) errors.Error {
		return errors.TRANSFER_NOT_PENDING.New(
			"transfer %s is %s", transferId, status,
		).WithMetadata(errors.TransferMetadata{TransferId: transferId, Status: status.String()})
	}

	pending := *record
	status := record.Status
	if !record.Cancel(now) {
		return notPending(status)
	}

	updated, updErr := s.repoManager.Transfers().UpdateIfStatus(
		ctx, *record, domain.TransferPending,
	)
	if updErr != nil {
		return errors.INTERNAL_ERROR.Wrap(
			fmt.Errorf("failed to update transfer %s: %w", transferId, updErr),
		)
	}
	if !updated {
		stored, err := s.GetTransfer(ctx, transferId)
		if err != nil {
			return err
		}
		return notPending(stored.Status)
	}

	reservation := ports.Reservation{
		Route:  record.RouteKey(),
		Asset:  record.SettlementAsset,
		Amount: record.Amount,
	}
	receipt := ports.ReservationReceipt{
		RouteWindow: record.RouteWindow,
		AssetWindow: record.AssetWindow,
	}
	if err := s.release(ctx, reservation, receipt, now); err != nil {
		// Capacity was not credited, the transfer must stay pending.
		if _, rbErr := s.repoManager.Transfers().UpdateIfStatus(
			ctx, pending, domain.TransferCancelled,
		); rbErr != nil {
			log.WithError(rbErr).WithField("transfer_id", transferId).
				Error("failed to restore pending status of transfer")
		}
		s.alertIfInconsistent("cancel", transferId, err)
		return err
	}

	s.saveEvents(ctx, transferId, domain.NewTransferCancelled(*record))

	log.WithField("transfer_id", transferId).Info("transfer cancelled")
	return nil
}

func (s *service) ListTransfers(
	ctx context.Context, statuses ...domain.TransferStatus,
) ([]domain.TransferRecord, errors.Error) {
	transfers, err := s.repoManager.Transfers().List(ctx, statuses...)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(fmt.Errorf("failed to list transfers: %w", err))
	}
	return transfers, nil
}

// plan runs the format optimizer and the protocol scorer over the eligible routes and,
// if the request asks for it, selects the settlement asset. Nothing is mutated.
func (s *service) plan(
	ctx context.Context, req domain.TransferRequest, now time.Time,
) (*Quote, errors.Error) {
	if err := req.Validate(); err != nil {
		return nil, errors.INVALID_REQUEST.Wrap(err)
	}

	chain, chainErr := s.chains.GetChain(ctx, req.Destination)
	if chainErr != nil {
		if goerrors.Is(chainErr, ports.ErrUnknownChain) {
			return nil, errors.UNKNOWN_CHAIN.Wrap(chainErr).WithMetadata(
				errors.ChainMetadata{ChainId: req.Destination},
			)
		}
		return nil, errors.INTERNAL_ERROR.Wrap(
			fmt.Errorf("failed to get chain %s: %w", req.Destination, chainErr),
		)
	}

	format := s.optimizer.recommendFormat(*chain, len(req.Payload), req.Urgency)

	routes, rejected, err := s.registry.candidates(
		ctx, req.Source, req.Destination, req.Amount, now,
	)
	if err != nil {
		return nil, err
	}
	noEligibleProtocol := func() errors.Error {
		return errors.NO_ELIGIBLE_PROTOCOL.New(
			"no eligible protocol from %s to %s for amount %d",
			req.Source, req.Destination, req.Amount,
		).WithMetadata(errors.NoEligibleProtocolMetadata{
			Source:      req.Source,
			Destination: req.Destination,
			Amount:      req.Amount,
			Rejected:    rejected,
		})
	}
	if len(routes) == 0 {
		return nil, noEligibleProtocol()
	}

	candidates := make([]scoreCandidate, 0, len(routes))
	routesByProtocol := make(map[string]domain.Route, len(routes))
	protocolsByName := make(map[string]domain.Protocol, len(routes))
	for _, route := range routes {
		protocol, err := s.liveStore.Protocols().Get(ctx, route.Protocol)
		if err != nil {
			return nil, errors.INTERNAL_ERROR.Wrap(err)
		}
		if protocol == nil {
			rejected = append(rejected, fmt.Sprintf("%s: unknown protocol", route.Protocol))
			continue
		}
		stats, err := s.liveStore.Stats().Get(ctx, route.Protocol)
		if err != nil {
			return nil, errors.INTERNAL_ERROR.Wrap(err)
		}
		candidates = append(candidates, scoreCandidate{
			route:    route,
			protocol: *protocol,
			stats:    stats,
		})
		routesByProtocol[route.Protocol] = route
		protocolsByName[route.Protocol] = *protocol
	}
	if len(candidates) == 0 {
		return nil, noEligibleProtocol()
	}

	ranked := s.scorer.rank(candidates, req.Urgency)
	for i := range ranked {
		fees, err := s.feeBreakdown(
			ctx, req, routesByProtocol[ranked[i].Protocol], protocolsByName[ranked[i].Protocol],
			*chain, format,
		)
		if err != nil {
			return nil, err
		}
		ranked[i].Fees = fees
	}

	best := ranked[0]
	quote := &Quote{
		Protocol:      best.Protocol,
		Format:        format,
		Fees:          best.Fees,
		EstimatedTime: best.EstimatedTime,
		Score:         best,
		Alternatives:  ranked[1:],
	}

	if req.SettlementJurisdiction != "" {
		asset, err := s.selector.selectAsset(ctx, req.SettlementJurisdiction, req.Amount, now)
		if err != nil {
			return nil, err
		}
		quote.SettlementAsset = asset.Ref
	}
	return quote, nil
}

// feeBreakdown prices a transfer over the given route. Base and protocol fees are in the
// smallest unit of the transferred asset, destination gas and data cost in the smallest unit
// of the destination gas token.
func (s *service) feeBreakdown(
	ctx context.Context, req domain.TransferRequest, route domain.Route,
	protocol domain.Protocol, chain domain.ChainInfo, format FormatEstimate,
) (domain.FeeBreakdown, errors.Error) {
	protocolFee, err := s.fees.ProtocolFee(ctx, ports.ProtocolFeeInput{
		Amount:      req.Amount,
		FeeBps:      protocol.FeeBps,
		Urgency:     req.Urgency,
		Source:      req.Source,
		Destination: req.Destination,
		Protocol:    protocol.Name,
	})
	if err != nil {
		return domain.FeeBreakdown{}, errors.INTERNAL_ERROR.Wrap(
			fmt.Errorf("failed to compute %s protocol fee: %w", protocol.Name, err),
		)
	}
	if protocolFee.IsNegative() {
		protocolFee = decimal.Zero
	}

	destinationGas := decimalFromUint(route.DestinationGasBudget).
		Mul(decimalFromUint(chain.GasPrice)).
		Mul(urgencyMultiplier(req.Urgency))

	return domain.NewFeeBreakdown(
		decimalFromUint(route.BaseFee), protocolFee, destinationGas, format.Cost,
	), nil
}

// reserve debits the route alone, or the route and the settlement asset as one unit.
func (s *service) reserve(
	ctx context.Context, reservation ports.Reservation, now time.Time,
) (*ports.ReservationReceipt, errors.Error) {
	if reservation.Asset == "" {
		route, err := s.registry.debitRoute(ctx, reservation.Route, reservation.Amount, now)
		if err != nil {
			return nil, err
		}
		s.alertIfExhausted(route.DailyCapacity, route.Key().String(), now)
		return &ports.ReservationReceipt{RouteWindow: route.LastReset}, nil
	}

	receipt, err := s.liveStore.Reservations().Reserve(ctx, reservation, now)
	if err != nil {
		return nil, toCapacityError(err, reservation.Route)
	}
	if route, err := s.liveStore.Routes().Get(ctx, reservation.Route); err == nil && route != nil {
		s.alertIfExhausted(route.DailyCapacity, route.Key().String(), now)
	}
	if asset, err := s.liveStore.Assets().Get(ctx, reservation.Asset); err == nil && asset != nil {
		s.alertIfExhausted(asset.DailyCapacity, asset.Ref, now)
	}
	return receipt, nil
}

func (s *service) release(
	ctx context.Context, reservation ports.Reservation, receipt ports.ReservationReceipt,
	now time.Time,
) errors.Error {
	if reservation.Asset == "" {
		return s.registry.creditRoute(
			ctx, reservation.Route, reservation.Amount, receipt.RouteWindow, now,
		)
	}
	if err := s.liveStore.Reservations().Release(ctx, reservation, receipt, now); err != nil {
		return toCapacityError(err, reservation.Route)
	}
	return nil
}

func (s *service) saveEvents(ctx context.Context, id string, events ...domain.Event) {
	if err := s.repoManager.Events().Save(ctx, domain.TransferTopic, id, events...); err != nil {
		log.WithError(err).WithField("transfer_id", id).Warn("failed to save transfer events")
	}
}

func requestAttributes(req domain.TransferRequest) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("source", req.Source),
		attribute.String("destination", req.Destination),
		attribute.String("urgency", req.Urgency.String()),
		attribute.Int("payload_size", len(req.Payload)),
	}
}

func recordError(span trace.Span, err errors.Error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.CodeName())
}
