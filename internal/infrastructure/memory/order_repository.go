package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	domain "github.com/lumimart/checkout/internal/domain/order"
)

type OrderRepository struct {
	mu     sync.RWMutex
	orders map[int64]*domain.Order
	byUser map[int64][]int64
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders: make(map[int64]*domain.Order),
		byUser: make(map[int64][]int64),
	}
}

func (r *OrderRepository) Insert(ctx context.Context, o *domain.Order) error {
	_ = ctx
	if o == nil || o.OrderNo == 0 {
		return fmt.Errorf("order repository: order number is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[o.OrderNo]; exists {
		return fmt.Errorf("order repository: order %d already exists", o.OrderNo)
	}

	r.orders[o.OrderNo] = o.Clone()
	r.byUser[o.UserID] = append(r.byUser[o.UserID], o.OrderNo)
	return nil
}

func (r *OrderRepository) FindByOrderNo(ctx context.Context, orderNo int64) (*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[orderNo]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return o.Clone(), nil
}

func (r *OrderRepository) FindByUserAndOrderNo(ctx context.Context, userID, orderNo int64) (*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[orderNo]
	if !ok || o.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return o.Clone(), nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID int64, pageNum, pageSize int) ([]*domain.Order, int, error) {
	_ = ctx
	if pageNum < 1 {
		pageNum = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	nos := r.byUser[userID]
	orders := make([]*domain.Order, 0, len(nos))
	for _, no := range nos {
		if o, ok := r.orders[no]; ok {
			orders = append(orders, o)
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})

	total := len(orders)
	start := (pageNum - 1) * pageSize
	if start >= total {
		return nil, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	page := make([]*domain.Order, 0, end-start)
	for _, o := range orders[start:end] {
		page = append(page, o.Clone())
	}
	return page, total, nil
}

// TransitionStatus applies the compare-and-set transition under the write
// lock, so exactly one of two racing transitions on the same order wins.
func (r *OrderRepository) TransitionStatus(ctx context.Context, orderNo int64, from, to domain.Status) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[orderNo]
	if !ok {
		return domain.ErrNotFound
	}
	if o.Status != from {
		return domain.ErrStaleStatus
	}

	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *OrderRepository) ListAwaitingBefore(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Order, error) {
	_ = ctx
	if limit <= 0 {
		limit = 100
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Order
	for _, o := range r.orders {
		if o.Status == domain.StatusAwaitingPayment && o.CreatedAt.Before(cutoff) {
			out = append(out, o.Clone())
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}
