package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/food-checkout/internal/domain/discount"
)

const (
	findDiscountSQL = `SELECT code, amount, description
	FROM discount_codes WHERE code = $1 AND active = TRUE`

	listDiscountCodesSQL = `SELECT code FROM discount_codes WHERE active = TRUE ORDER BY code`

	upsertDiscountSQL = `INSERT INTO discount_codes (code, amount, description, active, updated_at)
	VALUES ($1, $2, $3, TRUE, now())
	ON CONFLICT (code) DO UPDATE
	SET amount = EXCLUDED.amount, description = EXCLUDED.description, active = TRUE, updated_at = now()`
)

var _ discount.Repository = (*DiscountRepository)(nil)

// DiscountRepository stores flat discount codes. Lookups are case-sensitive.
type DiscountRepository struct {
	pool *pgxpool.Pool
}

func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

// FindByCode returns discount.ErrRejected for unknown or inactive codes.
func (r *DiscountRepository) FindByCode(ctx context.Context, code string) (*discount.Code, error) {
	var c discount.Code
	err := r.pool.QueryRow(ctx, findDiscountSQL, code).Scan(&c.Code, &c.Amount, &c.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, discount.ErrRejected
		}
		return nil, errors.Wrap(err, "query discount code")
	}
	return &c, nil
}

func (r *DiscountRepository) ListCodes(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, listDiscountCodesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "query discount codes")
	}
	codes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, errors.Wrap(err, "scan discount codes")
	}
	return codes, nil
}

// Upsert creates or reactivates c.
func (r *DiscountRepository) Upsert(ctx context.Context, c discount.Code) error {
	if _, err := r.pool.Exec(ctx, upsertDiscountSQL, c.Code, c.Amount, c.Description); err != nil {
		return errors.Wrapf(err, "upsert discount code %s", c.Code)
	}
	return nil
}

// UpsertBatch upserts codes in one round trip.
func (r *DiscountRepository) UpsertBatch(ctx context.Context, codes []discount.Code) error {
	batch := &pgx.Batch{}
	for _, c := range codes {
		batch.Queue(upsertDiscountSQL, c.Code, c.Amount, c.Description)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return errors.Wrap(err, "upsert discount batch")
	}
	return nil
}
