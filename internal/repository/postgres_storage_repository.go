package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresStorageRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresStorageRepository returns a Postgres-backed implementation.
func NewPostgresStorageRepository(pool *pgxpool.Pool) StorageRepository {
	return &postgresStorageRepository{pool: pool}
}

func (r *postgresStorageRepository) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	const query = `
        SELECT value FROM client_storage
        WHERE namespace=$1 AND key=$2 AND (expires_at IS NULL OR expires_at > NOW())`

	var value string
	if err := r.pool.QueryRow(ctx, query, namespace, key).Scan(&value); err != nil {
		if err == pgx.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (r *postgresStorageRepository) Set(ctx context.Context, namespace string, values map[string]string, ttl time.Duration) error {
	const query = `
        INSERT INTO client_storage (namespace, key, value, expires_at, updated_at)
        VALUES ($1, $2, $3, $4, NOW())
        ON CONFLICT (namespace, key)
        DO UPDATE SET value=EXCLUDED.value, expires_at=EXCLUDED.expires_at, updated_at=NOW()`

	var expiresAt *time.Time
	if ttl > 0 {
		at := time.Now().Add(ttl)
		expiresAt = &at
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for k, v := range values {
			if _, err := tx.Exec(ctx, query, namespace, k, v, expiresAt); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *postgresStorageRepository) Delete(ctx context.Context, namespace string, keys ...string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	const query = `
        WITH removed AS (
            DELETE FROM client_storage
            WHERE namespace=$1 AND key = ANY($2)
            RETURNING expires_at
        )
        SELECT COUNT(*) FROM removed WHERE expires_at IS NULL OR expires_at > NOW()`

	var n int
	if err := r.pool.QueryRow(ctx, query, namespace, keys).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *postgresStorageRepository) PurgeExpired(ctx context.Context) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM client_storage WHERE expires_at IS NOT NULL AND expires_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
