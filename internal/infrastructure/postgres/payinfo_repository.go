package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lumimart/checkout/internal/domain/payment"
)

const uniqueViolation = "23505"

type PayInfoRepository struct {
	log  *zap.Logger
	pool *pgxpool.Pool
}

func NewPayInfoRepository(log *zap.Logger, pool *pgxpool.Pool) *PayInfoRepository {
	return &PayInfoRepository{log: log, pool: pool}
}

// Insert relies on the primary key to reject a second intent for the same
// order, so two concurrent CreateIntent calls resolve in the database rather
// than in process memory.
func (r *PayInfoRepository) Insert(ctx context.Context, p *payment.PayInfo) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO pay_infos
		(order_no, user_id, platform, platform_number, platform_status, pay_amount, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.OrderNo, p.UserID, int(p.Platform), p.PlatformNumber, p.PlatformStatus,
		p.PayAmount.String(), p.CreatedAt, p.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return payment.ErrDuplicateIntent
	}
	return err
}

func (r *PayInfoRepository) FindByOrderNo(ctx context.Context, orderNo int64) (*payment.PayInfo, error) {
	return r.scan(ctx, `SELECT order_no, user_id, platform, platform_number, platform_status, pay_amount, created_at, updated_at
		FROM pay_infos WHERE order_no=$1`, orderNo)
}

func (r *PayInfoRepository) FindByPlatformNumber(ctx context.Context, platformNumber string) (*payment.PayInfo, error) {
	if platformNumber == "" {
		return nil, payment.ErrNotFound
	}
	return r.scan(ctx, `SELECT order_no, user_id, platform, platform_number, platform_status, pay_amount, created_at, updated_at
		FROM pay_infos WHERE platform_number=$1`, platformNumber)
}

func (r *PayInfoRepository) Update(ctx context.Context, p *payment.PayInfo) error {
	ct, err := r.pool.Exec(ctx, `UPDATE pay_infos
		SET platform_number=$2, platform_status=$3, updated_at=$4
		WHERE order_no=$1`,
		p.OrderNo, p.PlatformNumber, p.PlatformStatus, p.UpdatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return payment.ErrNotFound
	}
	return nil
}

func (r *PayInfoRepository) scan(ctx context.Context, query string, args ...any) (*payment.PayInfo, error) {
	var (
		p         payment.PayInfo
		platform  int
		payAmount string
	)
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&p.OrderNo, &p.UserID, &platform, &p.PlatformNumber, &p.PlatformStatus,
		&payAmount, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, payment.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if p.PayAmount, err = decimal.NewFromString(payAmount); err != nil {
		return nil, err
	}
	p.Platform = payment.Platform(platform)
	return &p, nil
}
