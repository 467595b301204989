package order

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	domcart "github.com/lumimart/checkout/internal/domain/cart"
	domcatalog "github.com/lumimart/checkout/internal/domain/catalog"
	dominventory "github.com/lumimart/checkout/internal/domain/inventory"
	domain "github.com/lumimart/checkout/internal/domain/order"
	domoutbox "github.com/lumimart/checkout/internal/domain/outbox"
	"github.com/lumimart/checkout/internal/pkg/errcode"
	"github.com/lumimart/checkout/internal/pkg/logging"
	"github.com/lumimart/checkout/internal/pkg/metrics"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	useCaseCreate  = "order.create"
	useCaseList    = "order.list"
	useCaseDetail  = "order.detail"
	useCaseCancel  = "order.cancel"
	useCaseShip    = "order.ship"
	useCaseReceive = "order.confirm_receipt"
	useCaseClose   = "order.close"

	cancelReasonUser    = "user_canceled"
	cancelReasonExpired = "expired"

	publishTimeout = 300 * time.Millisecond
)

// OrderNumberSource hands out fresh, collision-free order numbers.
type OrderNumberSource interface {
	Next() int64
}

type Service struct {
	orders   domain.Repository
	ledger   dominventory.Ledger
	cart     domcart.Reader
	catalog  domcatalog.Reader
	orderNos OrderNumberSource

	publisher domoutbox.Publisher
	postage   decimal.Decimal

	log     *zap.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

func NewService(
	orders domain.Repository,
	ledger dominventory.Ledger,
	cartReader domcart.Reader,
	catalogReader domcatalog.Reader,
	orderNos OrderNumberSource,
	publisher domoutbox.Publisher,
	postage decimal.Decimal,
	logger *zap.Logger,
	m *metrics.Metrics,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		orders:    orders,
		ledger:    ledger,
		cart:      cartReader,
		catalog:   catalogReader,
		orderNos:  orderNos,
		publisher: publisher,
		postage:   postage,
		log:       logger.With(zap.String("component", "order_service")),
		metrics:   m,
		tracer:    otel.Tracer("checkout.order"),
	}
}

// Page is one page of a user's orders plus the total count.
type Page struct {
	Orders   []*domain.Order
	Total    int
	PageNum  int
	PageSize int
}

// CreateOrder snapshots the user's selected cart lines into a durable order,
// reserving stock per line. Reservations are attempted in ascending product
// id order so that two concurrent orders over overlapping product sets
// cannot deadlock under row-level locking; on any failure every prior
// reservation for this attempt is released before the error surfaces.
func (s *Service) CreateOrder(ctx context.Context, userID, shippingID int64) (_ *domain.Order, err error) {
	ctx, done := s.instrument(ctx, useCaseCreate,
		attribute.Int64("order.user_id", userID),
	)
	defer func() { done(err) }()

	logger := logging.FromContext(ctx).With(
		zap.String("use_case", useCaseCreate),
		zap.Int64("user_id", userID),
	)

	lines, err := s.cart.ReadSelectedLines(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: cart has no selected lines", errcode.ErrValidation)
	}

	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })

	items := make([]domain.Item, 0, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %d: %s", errcode.ErrValidation, line.ProductID, domain.ErrInvalidQuantity)
		}
		product, perr := s.catalog.GetSellableProduct(ctx, line.ProductID)
		if perr != nil {
			return nil, fmt.Errorf("product %d: %w", line.ProductID, perr)
		}
		if !product.OnSale {
			return nil, fmt.Errorf("%w: product %d is not for sale", errcode.ErrValidation, line.ProductID)
		}
		items = append(items, domain.Item{
			ProductID:   product.ID,
			ProductName: product.Name,
			UnitPrice:   product.Price,
			Quantity:    line.Quantity,
		})
	}

	reserved := make([]domain.Item, 0, len(items))
	rollback := func() {
		for _, it := range reserved {
			if rerr := s.ledger.Release(ctx, it.ProductID, it.Quantity); rerr != nil {
				logger.Error("reservation_rollback_failed",
					zap.Int64("product_id", it.ProductID),
					zap.Error(rerr),
				)
			}
		}
	}
	for _, it := range items {
		if rerr := s.ledger.Reserve(ctx, it.ProductID, it.Quantity); rerr != nil {
			rollback()
			return nil, fmt.Errorf("product %d: %w", it.ProductID, rerr)
		}
		reserved = append(reserved, it)
	}

	orderNo := s.orderNos.Next()
	ord, err := domain.New(orderNo, userID, shippingID, items, s.postage)
	if err != nil {
		rollback()
		return nil, fmt.Errorf("construct order: %w", err)
	}

	if err := s.orders.Insert(ctx, ord); err != nil {
		rollback()
		return nil, fmt.Errorf("persist order: %w", err)
	}

	logger.Info("order_created",
		zap.Int64("order_no", ord.OrderNo),
		zap.String("payment", ord.Payment.String()),
		zap.Int("lines", len(ord.Items)),
	)

	s.publish(ctx, domain.NewOrderCreatedEvent(ord))
	return ord, nil
}

func (s *Service) ListOrders(ctx context.Context, userID int64, pageNum, pageSize int) (_ *Page, err error) {
	ctx, done := s.instrument(ctx, useCaseList)
	defer func() { done(err) }()

	if pageNum < 1 {
		pageNum = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	orders, total, err := s.orders.ListByUser(ctx, userID, pageNum, pageSize)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return &Page{Orders: orders, Total: total, PageNum: pageNum, PageSize: pageSize}, nil
}

func (s *Service) GetOrderDetail(ctx context.Context, userID, orderNo int64) (_ *domain.Order, err error) {
	ctx, done := s.instrument(ctx, useCaseDetail,
		attribute.Int64("order.no", orderNo),
	)
	defer func() { done(err) }()

	ord, err := s.orders.FindByUserAndOrderNo(ctx, userID, orderNo)
	if err != nil {
		return nil, err
	}
	return ord, nil
}

// CancelOrder cancels an awaiting-payment order on the user's behalf.
// Cancelling anything later than awaiting-payment fails with
// ErrIllegalTransition, including when a concurrent payment confirmation
// wins the transition first.
func (s *Service) CancelOrder(ctx context.Context, userID, orderNo int64) (err error) {
	ctx, done := s.instrument(ctx, useCaseCancel,
		attribute.Int64("order.no", orderNo),
	)
	defer func() { done(err) }()

	ord, err := s.orders.FindByUserAndOrderNo(ctx, userID, orderNo)
	if err != nil {
		return err
	}
	return s.cancel(ctx, ord, cancelReasonUser)
}

// cancel applies the conditional awaiting_payment -> canceled transition
// and, only on winning it, releases each line's reservation exactly once.
func (s *Service) cancel(ctx context.Context, ord *domain.Order, reason string) error {
	logger := logging.FromContext(ctx).With(
		zap.Int64("order_no", ord.OrderNo),
		zap.String("reason", reason),
	)

	if !domain.CanTransition(ord.Status, domain.StatusCanceled) {
		return fmt.Errorf("cancel order in status %q: %w", ord.Status, domain.ErrIllegalTransition)
	}

	err := s.orders.TransitionStatus(ctx, ord.OrderNo, domain.StatusAwaitingPayment, domain.StatusCanceled)
	if errors.Is(err, domain.ErrStaleStatus) {
		// Lost the race, most likely against a payment confirmation.
		return fmt.Errorf("cancel order %d: %w", ord.OrderNo, domain.ErrIllegalTransition)
	}
	if err != nil {
		return fmt.Errorf("cancel order %d: %w", ord.OrderNo, err)
	}

	s.releaseReservations(ctx, ord)

	logger.Info("order_canceled")
	s.publish(ctx, domain.NewOrderCanceledEvent(ord, reason))
	return nil
}

// releaseReservations returns every line's reserved units to the ledger.
// Callers invoke it at most once per order, after winning the transition
// out of awaiting_payment.
func (s *Service) releaseReservations(ctx context.Context, ord *domain.Order) {
	logger := logging.FromContext(ctx).With(zap.Int64("order_no", ord.OrderNo))
	for _, it := range ord.Items {
		if rerr := s.ledger.Release(ctx, it.ProductID, it.Quantity); rerr != nil {
			logger.Error("stock_release_failed",
				zap.Int64("product_id", it.ProductID),
				zap.Int("quantity", it.Quantity),
				zap.Error(rerr),
			)
		}
	}
}

// MarkShipped records shipment dispatch for a paid order.
func (s *Service) MarkShipped(ctx context.Context, orderNo int64) (err error) {
	ctx, done := s.instrument(ctx, useCaseShip,
		attribute.Int64("order.no", orderNo),
	)
	defer func() { done(err) }()

	return s.transition(ctx, orderNo, domain.StatusPaid, domain.StatusShipped)
}

// ConfirmReceipt records delivery confirmation for a shipped order.
func (s *Service) ConfirmReceipt(ctx context.Context, userID, orderNo int64) (err error) {
	ctx, done := s.instrument(ctx, useCaseReceive,
		attribute.Int64("order.no", orderNo),
	)
	defer func() { done(err) }()

	if _, err := s.orders.FindByUserAndOrderNo(ctx, userID, orderNo); err != nil {
		return err
	}
	return s.transition(ctx, orderNo, domain.StatusShipped, domain.StatusCompleted)
}

// CloseOrder administratively closes an order from any non-terminal state.
func (s *Service) CloseOrder(ctx context.Context, orderNo int64) (err error) {
	ctx, done := s.instrument(ctx, useCaseClose,
		attribute.Int64("order.no", orderNo),
	)
	defer func() { done(err) }()

	ord, err := s.orders.FindByOrderNo(ctx, orderNo)
	if err != nil {
		return err
	}
	if err := s.transition(ctx, orderNo, ord.Status, domain.StatusClosed); err != nil {
		return err
	}
	// An unpaid order still holds its reservation. Closing it ends the
	// wait for payment, so the units go back to the ledger.
	if ord.Status == domain.StatusAwaitingPayment {
		s.releaseReservations(ctx, ord)
	}
	return nil
}

func (s *Service) transition(ctx context.Context, orderNo int64, from, to domain.Status) error {
	if !domain.CanTransition(from, to) {
		return fmt.Errorf("order %d: %q -> %q: %w", orderNo, from, to, domain.ErrIllegalTransition)
	}
	err := s.orders.TransitionStatus(ctx, orderNo, from, to)
	if errors.Is(err, domain.ErrStaleStatus) {
		return fmt.Errorf("order %d: %q -> %q: %w", orderNo, from, to, domain.ErrIllegalTransition)
	}
	if err != nil {
		return fmt.Errorf("order %d: %q -> %q: %w", orderNo, from, to, err)
	}
	logging.FromContext(ctx).Info("order_status_changed",
		zap.Int64("order_no", orderNo),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return nil
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

// instrument opens a use case span and returns a completion func that
// records the span status and the RED metrics.
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
