package payment

import "context"

type Repository interface {
	// Insert persists a new pay info record. It returns ErrDuplicateIntent
	// when an active record already exists for the same order number.
	Insert(ctx context.Context, p *PayInfo) error

	FindByOrderNo(ctx context.Context, orderNo int64) (*PayInfo, error)
	FindByPlatformNumber(ctx context.Context, platformNumber string) (*PayInfo, error)

	// Update persists in-place changes (platform number, platform status).
	Update(ctx context.Context, p *PayInfo) error
}
