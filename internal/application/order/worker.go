package order

import (
	"context"
	"errors"
	"time"

	domain "github.com/lumimart/checkout/internal/domain/order"
	"go.uber.org/zap"
)

// ExpiryWorker periodically cancels awaiting-payment orders older than the
// payment TTL. Expiry goes through the same conditional cancel path as a
// user cancel, so a payment confirmation racing the sweep still resolves to
// exactly one winner.
type ExpiryWorker struct {
	svc      *Service
	interval time.Duration
	ttl      time.Duration
	batch    int
	log      *zap.Logger
	cancel   context.CancelFunc
}

func NewExpiryWorker(svc *Service, interval, ttl time.Duration, logger *zap.Logger) *ExpiryWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpiryWorker{
		svc:      svc,
		interval: interval,
		ttl:      ttl,
		batch:    100,
		log:      logger.With(zap.String("component", "order_expiry_worker")),
	}
}

func (w *ExpiryWorker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	go w.loop(ctx)
	w.log.Info("expiry_worker_started",
		zap.Duration("interval", w.interval),
		zap.Duration("ttl", w.ttl),
	)
}

func (w *ExpiryWorker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.log.Info("expiry_worker_stopped")
}

func (w *ExpiryWorker) loop(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep cancels one batch of overdue orders. Losing the cancel race to a
// concurrent payment confirmation is expected and not an error.
func (w *ExpiryWorker) Sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-w.ttl)
	overdue, err := w.svc.orders.ListAwaitingBefore(ctx, cutoff, w.batch)
	if err != nil {
		w.log.Error("expiry_scan_failed", zap.Error(err))
		return
	}

	for _, ord := range overdue {
		err := w.svc.cancel(ctx, ord, cancelReasonExpired)
		switch {
		case err == nil:
			w.log.Info("order_expired", zap.Int64("order_no", ord.OrderNo))
		case errors.Is(err, domain.ErrIllegalTransition):
			w.log.Debug("expiry_lost_race", zap.Int64("order_no", ord.OrderNo))
		default:
			w.log.Error("expiry_cancel_failed",
				zap.Int64("order_no", ord.OrderNo),
				zap.Error(err),
			)
		}
	}
}
