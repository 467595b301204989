package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lumimart/checkout/internal/domain/order"
)

type OrderRepository struct {
	log  *zap.Logger
	pool *pgxpool.Pool
}

func NewOrderRepository(log *zap.Logger, pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{log: log, pool: pool}
}

// Insert writes the order row and all item rows in one transaction, so a
// half-written order is never observable.
func (r *OrderRepository) Insert(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `INSERT INTO orders
		(order_no, user_id, shipping_id, payment, payment_type, postage, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		o.OrderNo, o.UserID, o.ShippingID, o.Payment.String(), int(o.PaymentType),
		o.Postage.String(), string(o.Status), o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, it := range o.Items {
		batch.Queue(`INSERT INTO order_items
			(order_no, product_id, product_name, unit_price, quantity, total_price)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			it.OrderNo, it.ProductID, it.ProductName, it.UnitPrice.String(), it.Quantity, it.TotalPrice.String())
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *OrderRepository) FindByOrderNo(ctx context.Context, orderNo int64) (*order.Order, error) {
	o, err := r.scanOrder(ctx, `SELECT order_no, user_id, shipping_id, payment, payment_type, postage, status, created_at, updated_at
		FROM orders WHERE order_no=$1`, orderNo)
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OrderRepository) FindByUserAndOrderNo(ctx context.Context, userID, orderNo int64) (*order.Order, error) {
	o, err := r.scanOrder(ctx, `SELECT order_no, user_id, shipping_id, payment, payment_type, postage, status, created_at, updated_at
		FROM orders WHERE user_id=$1 AND order_no=$2`, userID, orderNo)
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID int64, pageNum, pageSize int) ([]*order.Order, int, error) {
	if pageNum < 1 {
		pageNum = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM orders WHERE user_id=$1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `SELECT order_no, user_id, shipping_id, payment, payment_type, postage, status, created_at, updated_at
		FROM orders WHERE user_id=$1
		ORDER BY created_at DESC, order_no DESC
		LIMIT $2 OFFSET $3`, userID, pageSize, (pageNum-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, 0, err
	}
	for _, o := range orders {
		if err := r.loadItems(ctx, o); err != nil {
			return nil, 0, err
		}
	}
	return orders, total, nil
}

// TransitionStatus applies the move as a single conditional update. Zero rows
// affected means either the order is gone or another writer already moved it;
// a follow-up read distinguishes the two.
func (r *OrderRepository) TransitionStatus(ctx context.Context, orderNo int64, from, to order.Status) error {
	ct, err := r.pool.Exec(ctx, `UPDATE orders SET status=$3, updated_at=now()
		WHERE order_no=$1 AND status=$2`, orderNo, string(from), string(to))
	if err != nil {
		return err
	}
	if ct.RowsAffected() > 0 {
		return nil
	}

	var current string
	err = r.pool.QueryRow(ctx, `SELECT status FROM orders WHERE order_no=$1`, orderNo).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return order.ErrNotFound
	}
	if err != nil {
		return err
	}
	return order.ErrStaleStatus
}

func (r *OrderRepository) ListAwaitingBefore(ctx context.Context, cutoff time.Time, limit int) ([]*order.Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT order_no, user_id, shipping_id, payment, payment_type, postage, status, created_at, updated_at
		FROM orders WHERE status=$1 AND created_at < $2
		ORDER BY created_at
		LIMIT $3`, string(order.StatusAwaitingPayment), cutoff, limit)
	if err != nil {
		return nil, err
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, err
	}
	for _, o := range orders {
		if err := r.loadItems(ctx, o); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *OrderRepository) scanOrder(ctx context.Context, query string, args ...any) (*order.Order, error) {
	row := r.pool.QueryRow(ctx, query, args...)
	o, err := scanOrderRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, order.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, o *order.Order) error {
	rows, err := r.pool.Query(ctx, `SELECT order_no, product_id, product_name, unit_price, quantity, total_price
		FROM order_items WHERE order_no=$1 ORDER BY product_id`, o.OrderNo)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			it                    order.Item
			unitPrice, totalPrice string
		)
		if err := rows.Scan(&it.OrderNo, &it.ProductID, &it.ProductName, &unitPrice, &it.Quantity, &totalPrice); err != nil {
			return err
		}
		if it.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
			return err
		}
		if it.TotalPrice, err = decimal.NewFromString(totalPrice); err != nil {
			return err
		}
		o.Items = append(o.Items, it)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrderRow(row rowScanner) (*order.Order, error) {
	var (
		o                        order.Order
		payment, postage, status string
		paymentType              int
	)
	err := row.Scan(&o.OrderNo, &o.UserID, &o.ShippingID, &payment, &paymentType,
		&postage, &status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if o.Payment, err = decimal.NewFromString(payment); err != nil {
		return nil, err
	}
	if o.Postage, err = decimal.NewFromString(postage); err != nil {
		return nil, err
	}
	o.PaymentType = order.PaymentType(paymentType)
	o.Status = order.Status(status)
	return &o, nil
}

func collectOrders(rows pgx.Rows) ([]*order.Order, error) {
	defer rows.Close()
	var orders []*order.Order
	for rows.Next() {
		o, err := scanOrderRow(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
