package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/lumimart/checkout/internal/domain/order"
)

func mustOrder(t *testing.T, orderNo, userID int64) *domain.Order {
	t.Helper()
	ord, err := domain.New(orderNo, userID, 1,
		[]domain.Item{{ProductID: 1, ProductName: "Widget", UnitPrice: decimal.NewFromInt(100), Quantity: 1}},
		decimal.NewFromInt(10))
	require.NoError(t, err)
	return ord
}

func TestOrderRepository_InsertAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository()
	ord := mustOrder(t, 1001, 1)

	require.NoError(t, repo.Insert(ctx, ord))

	got, err := repo.FindByOrderNo(ctx, 1001)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.UserID)
	assert.Len(t, got.Items, 1)

	_, err = repo.FindByOrderNo(ctx, 9999)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.FindByUserAndOrderNo(ctx, 2, 1001)
	assert.ErrorIs(t, err, domain.ErrNotFound, "other owner reads as not found")
}

func TestOrderRepository_ReadsAreClones(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository()
	require.NoError(t, repo.Insert(ctx, mustOrder(t, 1001, 1)))

	got, err := repo.FindByOrderNo(ctx, 1001)
	require.NoError(t, err)
	got.Status = domain.StatusClosed
	got.Items[0].Quantity = 99

	again, err := repo.FindByOrderNo(ctx, 1001)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAwaitingPayment, again.Status)
	assert.Equal(t, 1, again.Items[0].Quantity)
}

func TestOrderRepository_ListByUserPaginates(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository()
	for i := int64(1); i <= 5; i++ {
		ord := mustOrder(t, 1000+i, 1)
		ord.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Second)
		require.NoError(t, repo.Insert(ctx, ord))
	}
	require.NoError(t, repo.Insert(ctx, mustOrder(t, 2001, 2)))

	page, total, err := repo.ListByUser(ctx, 1, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page, 2)
	assert.Equal(t, int64(1005), page[0].OrderNo, "newest first")
	assert.Equal(t, int64(1004), page[1].OrderNo)

	page, total, err = repo.ListByUser(ctx, 1, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page, 1)
	assert.Equal(t, int64(1001), page[0].OrderNo)

	page, total, err = repo.ListByUser(ctx, 1, 4, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Empty(t, page)
}

func TestOrderRepository_TransitionStatusIsConditional(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository()
	require.NoError(t, repo.Insert(ctx, mustOrder(t, 1001, 1)))

	require.NoError(t, repo.TransitionStatus(ctx, 1001, domain.StatusAwaitingPayment, domain.StatusPaid))

	err := repo.TransitionStatus(ctx, 1001, domain.StatusAwaitingPayment, domain.StatusCanceled)
	assert.ErrorIs(t, err, domain.ErrStaleStatus)

	err = repo.TransitionStatus(ctx, 9999, domain.StatusAwaitingPayment, domain.StatusPaid)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := repo.FindByOrderNo(ctx, 1001)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, got.Status)
}

// Two racing transitions on the same order: exactly one winner.
func TestOrderRepository_ConcurrentTransitionsOneWinner(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository()
	require.NoError(t, repo.Insert(ctx, mustOrder(t, 1001, 1)))

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, to := range []domain.Status{domain.StatusPaid, domain.StatusCanceled} {
		wg.Add(1)
		go func(to domain.Status) {
			defer wg.Done()
			results <- repo.TransitionStatus(ctx, 1001, domain.StatusAwaitingPayment, to)
		}(to)
	}
	wg.Wait()
	close(results)

	var wins, stale int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case err == domain.ErrStaleStatus:
			stale++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, stale)
}

func TestOrderRepository_ListAwaitingBefore(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository()

	old := mustOrder(t, 1001, 1)
	old.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, repo.Insert(ctx, old))

	oldPaid := mustOrder(t, 1002, 1)
	oldPaid.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, repo.Insert(ctx, oldPaid))
	require.NoError(t, repo.TransitionStatus(ctx, 1002, domain.StatusAwaitingPayment, domain.StatusPaid))

	require.NoError(t, repo.Insert(ctx, mustOrder(t, 1003, 1)))

	overdue, err := repo.ListAwaitingBefore(ctx, time.Now().UTC().Add(-30*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, int64(1001), overdue[0].OrderNo)
}
