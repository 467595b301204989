package inventory

import "context"

// Ledger reserves and releases per-product stock. Reserve must be atomic:
// two concurrent reservations that individually fit but jointly overflow
// must have exactly one succeed.
type Ledger interface {
	// Reserve decrements the product's count by quantity, failing with
	// ErrInsufficientStock when the decrement would go negative.
	Reserve(ctx context.Context, productID int64, quantity int) error

	// Release adds the quantity back. Callers guarantee at most one release
	// per reservation through the order state machine.
	Release(ctx context.Context, productID int64, quantity int) error
}
