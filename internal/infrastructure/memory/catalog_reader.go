package memory

import (
	"context"
	"sync"

	domain "github.com/lumimart/checkout/internal/domain/catalog"
)

type CatalogReader struct {
	mu       sync.RWMutex
	products map[int64]*domain.Product
}

func NewCatalogReader() *CatalogReader {
	return &CatalogReader{
		products: make(map[int64]*domain.Product),
	}
}

func (r *CatalogReader) Put(p domain.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = &p
}

func (r *CatalogReader) GetSellableProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *p
	return &clone, nil
}
