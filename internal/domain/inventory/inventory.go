package inventory

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("inventory: product not found")
	ErrInvalidQuantity   = errors.New("inventory: quantity must be greater than zero")
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
)

// Entry is the per-product stock count. The count never goes below zero:
// a reservation is a single conditional decrement at the storage layer, not
// a read-then-write.
type Entry struct {
	ProductID int64
	Quantity  int
	UpdatedAt time.Time
}
