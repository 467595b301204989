package catalog

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("catalog: product not found")

type Product struct {
	ID     int64
	Name   string
	Price  decimal.Decimal
	OnSale bool
}

// Reader exposes the sellable view of the catalog consumed at
// order-creation time.
type Reader interface {
	GetSellableProduct(ctx context.Context, productID int64) (*Product, error)
}
