package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect builds a pgx pool and verifies connectivity before returning it.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS orders (
		order_no     BIGINT PRIMARY KEY,
		user_id      BIGINT NOT NULL,
		shipping_id  BIGINT NOT NULL,
		payment      NUMERIC(20,2) NOT NULL,
		payment_type INT NOT NULL,
		postage      NUMERIC(20,2) NOT NULL,
		status       TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_user ON orders (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders (status, created_at)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		order_no     BIGINT NOT NULL REFERENCES orders (order_no),
		product_id   BIGINT NOT NULL,
		product_name TEXT NOT NULL,
		unit_price   NUMERIC(20,2) NOT NULL,
		quantity     INT NOT NULL,
		total_price  NUMERIC(20,2) NOT NULL,
		PRIMARY KEY (order_no, product_id)
	)`,
	`CREATE TABLE IF NOT EXISTS pay_infos (
		order_no        BIGINT PRIMARY KEY,
		user_id         BIGINT NOT NULL,
		platform        INT NOT NULL,
		platform_number TEXT NOT NULL DEFAULT '',
		platform_status TEXT NOT NULL,
		pay_amount      NUMERIC(20,2) NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_pay_infos_platform_number
		ON pay_infos (platform_number) WHERE platform_number <> ''`,
	`CREATE TABLE IF NOT EXISTS stock_entries (
		product_id BIGINT PRIMARY KEY,
		quantity   INT NOT NULL CHECK (quantity >= 0),
		updated_at TIMESTAMPTZ NOT NULL
	)`,
}

// Migrate applies the schema. Statements are idempotent so restarts are safe.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
