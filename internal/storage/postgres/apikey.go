package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/food-checkout/internal/domain/auth"
)

const (
	findAPIKeyByHashSQL = `SELECT id, key_hash, name, scopes
	FROM api_keys WHERE key_hash = $1 AND active = TRUE`

	upsertAPIKeySQL = `INSERT INTO api_keys (id, key_hash, name, scopes, active)
	VALUES ($1, $2, $3, $4, TRUE)
	ON CONFLICT (id) DO UPDATE
	SET key_hash = EXCLUDED.key_hash, name = EXCLUDED.name, scopes = EXCLUDED.scopes, active = TRUE`
)

var _ auth.APIKeyRepository = (*APIKeyRepository)(nil)

// APIKeyRepository stores service API keys by HMAC hash.
type APIKeyRepository struct {
	pool *pgxpool.Pool
}

func NewAPIKeyRepository(pool *pgxpool.Pool) *APIKeyRepository {
	return &APIKeyRepository{pool: pool}
}

// FindByHash looks up an active key. It returns auth.ErrAPIKeyNotFound when
// nothing matches.
func (r *APIKeyRepository) FindByHash(ctx context.Context, hash string) (*auth.APIKey, error) {
	var k auth.APIKey
	err := r.pool.QueryRow(ctx, findAPIKeyByHashSQL, hash).Scan(&k.ID, &k.KeyHash, &k.Name, &k.Scopes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrAPIKeyNotFound
		}
		return nil, errors.Wrap(err, "query api key")
	}
	return &k, nil
}

// Upsert stores k, replacing any key with the same ID.
func (r *APIKeyRepository) Upsert(ctx context.Context, k auth.APIKey) error {
	if _, err := r.pool.Exec(ctx, upsertAPIKeySQL, k.ID, k.KeyHash, k.Name, k.Scopes); err != nil {
		return errors.Wrapf(err, "upsert api key %s", k.ID)
	}
	return nil
}
