package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	domorder "github.com/lumimart/checkout/internal/domain/order"
	domoutbox "github.com/lumimart/checkout/internal/domain/outbox"
	domain "github.com/lumimart/checkout/internal/domain/payment"
	"github.com/lumimart/checkout/internal/pkg/errcode"
	"github.com/lumimart/checkout/internal/pkg/logging"
	"github.com/lumimart/checkout/internal/pkg/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	useCaseIntent    = "payment.create_intent"
	useCaseQuery     = "payment.query_status"
	useCaseReconcile = "payment.reconcile"

	publishTimeout = 300 * time.Millisecond

	// transitionAttempts bounds local retries of the order transition when
	// the store reports a transient failure between the pay info write and
	// the order update.
	transitionAttempts = 3
)

type Service struct {
	payInfos domain.Repository
	orders   domorder.Repository

	publisher domoutbox.Publisher

	log     *zap.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

func NewService(
	payInfos domain.Repository,
	orders domorder.Repository,
	publisher domoutbox.Publisher,
	logger *zap.Logger,
	m *metrics.Metrics,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		payInfos:  payInfos,
		orders:    orders,
		publisher: publisher,
		log:       logger.With(zap.String("component", "payment_service")),
		metrics:   m,
		tracer:    otel.Tracer("checkout.payment"),
	}
}

// CreateIntent opens a payment attempt for an awaiting-payment order.
// An ownership mismatch reports not-found rather than a permission error,
// so callers cannot probe for other users' order numbers. A second intent
// for the same order is an observable error, never a silent replay.
func (s *Service) CreateIntent(ctx context.Context, userID, orderNo int64, platform domain.Platform) (_ *domain.PayInfo, err error) {
	ctx, done := s.instrument(ctx, useCaseIntent,
		attribute.Int64("order.no", orderNo),
	)
	defer func() { done(err) }()

	if !platform.Valid() {
		return nil, fmt.Errorf("platform %d: %w", platform, domain.ErrUnknownPlatform)
	}

	ord, err := s.orders.FindByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	if ord.UserID != userID {
		return nil, domorder.ErrNotFound
	}
	if ord.Status != domorder.StatusAwaitingPayment {
		return nil, fmt.Errorf("order %d in status %q: %w", orderNo, ord.Status, domorder.ErrIllegalTransition)
	}

	if _, err := s.payInfos.FindByOrderNo(ctx, orderNo); err == nil {
		return nil, domain.ErrDuplicateIntent
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("look up pay info: %w", err)
	}

	info, err := domain.New(orderNo, userID, platform, ord.Payment)
	if err != nil {
		return nil, err
	}
	if err := s.payInfos.Insert(ctx, info); err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("payment_intent_created",
		zap.Int64("order_no", orderNo),
		zap.String("platform", platform.String()),
		zap.String("amount", info.PayAmount.String()),
	)
	return info, nil
}

// AttachPlatformNumber records the platform-assigned correlation number once
// the external platform acknowledges the attempt.
func (s *Service) AttachPlatformNumber(ctx context.Context, orderNo int64, platformNumber string) error {
	if platformNumber == "" {
		return fmt.Errorf("%w: platform number is required", errcode.ErrValidation)
	}

	info, err := s.payInfos.FindByOrderNo(ctx, orderNo)
	if err != nil {
		return err
	}
	if info.PlatformNumber == platformNumber {
		return nil
	}
	info.PlatformNumber = platformNumber
	info.Touch()
	return s.payInfos.Update(ctx, info)
}

// QueryStatus is the ownership-checked read of an order's payment attempt.
func (s *Service) QueryStatus(ctx context.Context, orderNo, userID int64) (_ *domain.PayInfo, err error) {
	ctx, done := s.instrument(ctx, useCaseQuery,
		attribute.Int64("order.no", orderNo),
	)
	defer func() { done(err) }()

	info, err := s.payInfos.FindByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	if info.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return info, nil
}

// Reconcile ingests one asynchronous platform notification. Delivery is
// at-least-once and unordered, so the whole path is written to make a
// duplicate a safe no-op: re-processing after a crash between the pay info
// write and the order transition completes the transition without applying
// any side effect twice.
func (s *Service) Reconcile(ctx context.Context, platformNumber, reportedStatus string) (err error) {
	ctx, done := s.instrument(ctx, useCaseReconcile,
		attribute.String("payment.platform_number", platformNumber),
		attribute.String("payment.reported_status", reportedStatus),
	)
	defer func() { done(err) }()

	logger := logging.FromContext(ctx).With(
		zap.String("platform_number", platformNumber),
		zap.String("reported_status", reportedStatus),
	)

	// Pure input validation happens before any lookup.
	if !domain.KnownStatus(reportedStatus) {
		return fmt.Errorf("status %q: %w", reportedStatus, domain.ErrUnknownStatus)
	}

	info, err := s.payInfos.FindByPlatformNumber(ctx, platformNumber)
	if err != nil {
		return fmt.Errorf("platform number %q: %w", platformNumber, err)
	}

	ord, err := s.orders.FindByOrderNo(ctx, info.OrderNo)
	if err != nil {
		if errors.Is(err, domorder.ErrNotFound) {
			logger.Error("reconcile_order_vanished", zap.Int64("order_no", info.OrderNo))
			return fmt.Errorf("order %d: %w", info.OrderNo, domain.ErrOrderVanished)
		}
		return fmt.Errorf("look up order %d: %w", info.OrderNo, err)
	}

	logger = logger.With(
		zap.Int64("order_no", ord.OrderNo),
		zap.String("order_status", string(ord.Status)),
		zap.String("stored_status", info.PlatformStatus),
	)

	switch reportedStatus {
	case domain.StatusTradeSuccess:
		return s.reconcileSuccess(ctx, logger, info, ord)

	case domain.StatusTradeClosed:
		if info.PlatformStatus == reportedStatus {
			logger.Debug("reconcile_duplicate_notification")
			return nil
		}
		if ord.Status != domorder.StatusAwaitingPayment {
			// A failure report after the order moved on records nothing;
			// the notification describes the payment, not the order.
			logger.Warn("reconcile_stale_notification")
			return nil
		}
		// Record the terminal payment failure. The order is not canceled
		// from here; cancellation stays a user- or expiry-driven event.
		info.PlatformStatus = reportedStatus
		info.Touch()
		if err := s.payInfos.Update(ctx, info); err != nil {
			return fmt.Errorf("update pay info: %w", err)
		}
		logger.Info("payment_failed_recorded")
		return nil

	default: // WAIT_BUYER_PAY progress report
		if info.PlatformStatus == reportedStatus {
			logger.Debug("reconcile_duplicate_notification")
			return nil
		}
		if ord.Status != domorder.StatusAwaitingPayment {
			logger.Warn("reconcile_stale_notification")
			return nil
		}
		info.PlatformStatus = reportedStatus
		info.Touch()
		if err := s.payInfos.Update(ctx, info); err != nil {
			return fmt.Errorf("update pay info: %w", err)
		}
		return nil
	}
}

// reconcileSuccess applies a TRADE_SUCCESS notification: persist the pay
// info status first, then conditionally move the order to paid. The guard
// on the order's current status makes a crash-retry or duplicate delivery
// converge without a second transition.
func (s *Service) reconcileSuccess(ctx context.Context, logger *zap.Logger, info *domain.PayInfo, ord *domorder.Order) error {
	switch ord.Status {
	case domorder.StatusPaid, domorder.StatusShipped, domorder.StatusCompleted:
		// A prior reconciliation already took effect.
		logger.Debug("reconcile_duplicate_notification")
		return nil
	case domorder.StatusCanceled, domorder.StatusClosed:
		logger.Warn("reconcile_stale_notification")
		return nil
	}

	if info.PlatformStatus != domain.StatusTradeSuccess {
		info.PlatformStatus = domain.StatusTradeSuccess
		info.Touch()
		if err := s.payInfos.Update(ctx, info); err != nil {
			return fmt.Errorf("update pay info: %w", err)
		}
	}

	var err error
	for attempt := 1; attempt <= transitionAttempts; attempt++ {
		err = s.orders.TransitionStatus(ctx, ord.OrderNo, domorder.StatusAwaitingPayment, domorder.StatusPaid)
		if err == nil || errors.Is(err, domorder.ErrStaleStatus) || errors.Is(err, domorder.ErrNotFound) {
			break
		}
		logger.Warn("order_transition_retry",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	switch {
	case err == nil:
		logger.Info("order_paid")
		s.publish(ctx, domorder.NewOrderPaidEvent(ord, info.PayAmount))
		return nil
	case errors.Is(err, domorder.ErrStaleStatus):
		// Lost against a concurrent cancel, or a duplicate already won.
		current, lerr := s.orders.FindByOrderNo(ctx, ord.OrderNo)
		if lerr == nil && current.Status == domorder.StatusPaid {
			logger.Debug("reconcile_duplicate_notification")
			return nil
		}
		logger.Warn("reconcile_lost_race")
		return nil
	case errors.Is(err, domorder.ErrNotFound):
		return fmt.Errorf("order %d: %w", ord.OrderNo, domain.ErrOrderVanished)
	default:
		// Transient storage failure that survived the bounded retries.
		return fmt.Errorf("transition order %d after %d attempts: %v: %w",
			ord.OrderNo, transitionAttempts, err, domain.ErrConsistency)
	}
}

func (s *Service) publish(ctx context.Context, e domoutbox.Event) {
	if s.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(pubCtx, e); err != nil {
		if s.metrics != nil {
			s.metrics.EventPublishFailures.WithLabelValues(e.EventName()).Inc()
		}
		s.log.Warn("event_publish_failed",
			zap.String("event", e.EventName()),
			zap.Error(err),
		)
	}
}

func (s *Service) instrument(ctx context.Context, useCase string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := s.tracer.Start(ctx, "UC."+useCase,
		trace.WithAttributes(append(attrs, attribute.String("use_case", useCase))...),
	)
	start := time.Now()
	return ctx, func(err error) {
		outcome := "success"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, string(errcode.FromError(err)))
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
		s.metrics.ObserveUseCase(useCase, outcome, time.Since(start).Seconds())
	}
}
