package memory

import (
	"context"
	"sync"
	"time"

	domain "github.com/lumimart/checkout/internal/domain/inventory"
)

// InventoryLedger holds per-product stock counts. The conditional decrement
// happens inside one critical section, which is the in-process equivalent of
// the storage layer's atomic conditional update.
type InventoryLedger struct {
	mu      sync.Mutex
	entries map[int64]*domain.Entry
}

func NewInventoryLedger() *InventoryLedger {
	return &InventoryLedger{
		entries: make(map[int64]*domain.Entry),
	}
}

// SetStock seeds or replaces a product's count.
func (l *InventoryLedger) SetStock(productID int64, quantity int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[productID] = &domain.Entry{
		ProductID: productID,
		Quantity:  quantity,
		UpdatedAt: time.Now().UTC(),
	}
}

// Stock reports the current count, for assertions and demo seeding.
func (l *InventoryLedger) Stock(productID int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[productID]
	if !ok {
		return 0
	}
	return e.Quantity
}

func (l *InventoryLedger) Reserve(ctx context.Context, productID int64, quantity int) error {
	_ = ctx
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[productID]
	if !ok {
		return domain.ErrNotFound
	}
	if e.Quantity < quantity {
		return domain.ErrInsufficientStock
	}
	e.Quantity -= quantity
	e.UpdatedAt = time.Now().UTC()
	return nil
}

func (l *InventoryLedger) Release(ctx context.Context, productID int64, quantity int) error {
	_ = ctx
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[productID]
	if !ok {
		return domain.ErrNotFound
	}
	e.Quantity += quantity
	e.UpdatedAt = time.Now().UTC()
	return nil
}
