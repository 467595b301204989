package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/lumimart/checkout/internal/domain/inventory"
)

type InventoryLedger struct {
	log  *zap.Logger
	pool *pgxpool.Pool
}

func NewInventoryLedger(log *zap.Logger, pool *pgxpool.Pool) *InventoryLedger {
	return &InventoryLedger{log: log, pool: pool}
}

// Reserve is a single conditional decrement. The WHERE clause carries the
// stock check, so two reservations racing over the last units serialize in
// the database and at most one wins.
func (l *InventoryLedger) Reserve(ctx context.Context, productID int64, quantity int) error {
	if quantity <= 0 {
		return inventory.ErrInvalidQuantity
	}
	ct, err := l.pool.Exec(ctx, `UPDATE stock_entries
		SET quantity = quantity - $2, updated_at = now()
		WHERE product_id = $1 AND quantity >= $2`, productID, quantity)
	if err != nil {
		return err
	}
	if ct.RowsAffected() > 0 {
		return nil
	}

	var current int
	err = l.pool.QueryRow(ctx, `SELECT quantity FROM stock_entries WHERE product_id=$1`, productID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return inventory.ErrNotFound
	}
	if err != nil {
		return err
	}
	return inventory.ErrInsufficientStock
}

func (l *InventoryLedger) Release(ctx context.Context, productID int64, quantity int) error {
	if quantity <= 0 {
		return inventory.ErrInvalidQuantity
	}
	ct, err := l.pool.Exec(ctx, `UPDATE stock_entries
		SET quantity = quantity + $2, updated_at = now()
		WHERE product_id = $1`, productID, quantity)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return inventory.ErrNotFound
	}
	return nil
}
