package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/food-checkout/internal/domain/order"
	"github.com/xenking/food-checkout/internal/wire"
)

const (
	orderColumns = `id, user_id, checkout_token, created_at, items, total,
	discount_code, discount_amount, payment_method, status`

	createOrderSQL = `INSERT INTO orders (` + orderColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (checkout_token) DO NOTHING`

	findOrderByTokenSQL = `SELECT ` + orderColumns + ` FROM orders WHERE checkout_token = $1`

	listOrdersByUserSQL = `SELECT ` + orderColumns + ` FROM orders
	WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository. Items are stored as JSONB.
type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create inserts o unless its checkout token is already taken.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tag, err := r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.UserID, o.CheckoutToken, o.CreatedAt, wire.MarshalLineItems(o.Items),
		o.Total, o.DiscountCode, o.DiscountAmount, string(o.PaymentMethod), string(o.Status),
	)
	if err != nil {
		return errors.Wrapf(err, "insert order %s", o.ID)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrDuplicateToken
	}
	return nil
}

func (r *OrderRepository) FindByCheckoutToken(ctx context.Context, token string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, findOrderByTokenSQL, token)
	if err != nil {
		return nil, errors.Wrap(err, "query order")
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrap(err, "scan order")
	}
	return &o, nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, errors.Wrap(err, "query orders")
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, errors.Wrap(err, "scan orders")
	}
	return orders, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		items  []byte
		method string
		status string
	)
	if err := row.Scan(
		&o.ID, &o.UserID, &o.CheckoutToken, &o.CreatedAt, &items, &o.Total,
		&o.DiscountCode, &o.DiscountAmount, &method, &status,
	); err != nil {
		return o, err
	}
	decoded, err := wire.UnmarshalLineItems(items)
	if err != nil {
		return o, errors.Wrapf(err, "decode items of order %s", o.ID)
	}
	o.Items = decoded
	o.PaymentMethod = order.PaymentMethod(method)
	o.Status = order.Status(status)
	o.CreatedAt = o.CreatedAt.UTC()
	return o, nil
}
