package order

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domcart "github.com/lumimart/checkout/internal/domain/cart"
	domain "github.com/lumimart/checkout/internal/domain/order"
)

func TestExpiryWorker_SweepCancelsOverdueOrders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedProduct(1, "A", 100, 5)
	f.cart.SetLine(1, domcart.Line{ProductID: 1, Quantity: 2}, true)

	ord, err := f.svc.CreateOrder(ctx, 1, 7)
	require.NoError(t, err)
	require.Equal(t, 3, f.ledger.Stock(1))

	// ttl 0: everything created before the sweep is overdue.
	worker := NewExpiryWorker(f.svc, time.Minute, 0, zap.NewNop())
	time.Sleep(5 * time.Millisecond)
	worker.Sweep(ctx)

	stored, err := f.orders.FindByOrderNo(ctx, ord.OrderNo)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCanceled, stored.Status)
	assert.Equal(t, 5, f.ledger.Stock(1), "expiry releases the reservation")
}

func TestExpiryWorker_SweepSkipsPaidOrders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedProduct(1, "A", 100, 5)
	f.cart.SetLine(1, domcart.Line{ProductID: 1, Quantity: 1}, true)

	ord, err := f.svc.CreateOrder(ctx, 1, 7)
	require.NoError(t, err)
	require.NoError(t, f.orders.TransitionStatus(ctx, ord.OrderNo, domain.StatusAwaitingPayment, domain.StatusPaid))

	worker := NewExpiryWorker(f.svc, time.Minute, 0, zap.NewNop())
	time.Sleep(5 * time.Millisecond)
	worker.Sweep(ctx)

	stored, err := f.orders.FindByOrderNo(ctx, ord.OrderNo)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, stored.Status)
	assert.Equal(t, 4, f.ledger.Stock(1))
}

func TestExpiryWorker_SweepLeavesFreshOrdersAlone(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedProduct(1, "A", 100, 5)
	f.cart.SetLine(1, domcart.Line{ProductID: 1, Quantity: 1}, true)

	ord, err := f.svc.CreateOrder(ctx, 1, 7)
	require.NoError(t, err)

	worker := NewExpiryWorker(f.svc, time.Minute, time.Hour, zap.NewNop())
	worker.Sweep(ctx)

	stored, err := f.orders.FindByOrderNo(ctx, ord.OrderNo)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAwaitingPayment, stored.Status)
}
