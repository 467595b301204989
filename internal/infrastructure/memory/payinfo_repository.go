package memory

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/lumimart/checkout/internal/domain/payment"
)

type PayInfoRepository struct {
	mu         sync.RWMutex
	byOrderNo  map[int64]*domain.PayInfo
	byPlatform map[string]int64
}

func NewPayInfoRepository() *PayInfoRepository {
	return &PayInfoRepository{
		byOrderNo:  make(map[int64]*domain.PayInfo),
		byPlatform: make(map[string]int64),
	}
}

func (r *PayInfoRepository) Insert(ctx context.Context, p *domain.PayInfo) error {
	_ = ctx
	if p == nil || p.OrderNo == 0 {
		return fmt.Errorf("payinfo repository: order number is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byOrderNo[p.OrderNo]; exists {
		return domain.ErrDuplicateIntent
	}

	r.byOrderNo[p.OrderNo] = p.Clone()
	if p.PlatformNumber != "" {
		r.byPlatform[p.PlatformNumber] = p.OrderNo
	}
	return nil
}

func (r *PayInfoRepository) FindByOrderNo(ctx context.Context, orderNo int64) (*domain.PayInfo, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byOrderNo[orderNo]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *PayInfoRepository) FindByPlatformNumber(ctx context.Context, platformNumber string) (*domain.PayInfo, error) {
	_ = ctx
	if platformNumber == "" {
		return nil, domain.ErrNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	orderNo, ok := r.byPlatform[platformNumber]
	if !ok {
		return nil, domain.ErrNotFound
	}
	p, ok := r.byOrderNo[orderNo]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *PayInfoRepository) Update(ctx context.Context, p *domain.PayInfo) error {
	_ = ctx
	if p == nil || p.OrderNo == 0 {
		return fmt.Errorf("payinfo repository: order number is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	prev, exists := r.byOrderNo[p.OrderNo]
	if !exists {
		return domain.ErrNotFound
	}

	if prev.PlatformNumber != "" && prev.PlatformNumber != p.PlatformNumber {
		delete(r.byPlatform, prev.PlatformNumber)
	}
	r.byOrderNo[p.OrderNo] = p.Clone()
	if p.PlatformNumber != "" {
		r.byPlatform[p.PlatformNumber] = p.OrderNo
	}
	return nil
}
