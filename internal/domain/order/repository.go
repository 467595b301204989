package order

import (
	"context"
	"time"
)

type Repository interface {
	// Insert persists the order together with its items as a single unit.
	// A half-written order (order row without items) must never be
	// observable by any reader.
	Insert(ctx context.Context, o *Order) error

	FindByOrderNo(ctx context.Context, orderNo int64) (*Order, error)
	FindByUserAndOrderNo(ctx context.Context, userID, orderNo int64) (*Order, error)

	// ListByUser returns a page of the user's orders, newest first, along
	// with the total order count for that user.
	ListByUser(ctx context.Context, userID int64, pageNum, pageSize int) ([]*Order, int, error)

	// TransitionStatus conditionally moves the order from one status to
	// another. It returns ErrStaleStatus when the order is no longer in the
	// expected status, so that racing transitions resolve to exactly one
	// winner.
	TransitionStatus(ctx context.Context, orderNo int64, from, to Status) error

	// ListAwaitingBefore returns awaiting-payment orders created before the
	// cutoff, used by the expiry sweeper.
	ListAwaitingBefore(ctx context.Context, cutoff time.Time, limit int) ([]*Order, error)
}
