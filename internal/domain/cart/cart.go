package cart

import "context"

// Line is one selected cart entry at order-creation time.
type Line struct {
	ProductID int64
	Quantity  int
}

// Reader is the read boundary onto the user's cart. It returns only lines
// currently marked selected; the cart's own storage shape is not this
// core's concern.
type Reader interface {
	ReadSelectedLines(ctx context.Context, userID int64) ([]Line, error)
}
