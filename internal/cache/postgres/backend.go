// Package postgres implements the cache backend on a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Moutron/home-maintenance-app-sub001/internal/cache"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Backend stores cache entries in the cache_entries table. Run
// RunMigrationsUp before first use.
type Backend struct {
	pool *pgxpool.Pool
}

var _ cache.Backend = (*Backend)(nil)

// Connect opens a pool for url and verifies connectivity.
func Connect(ctx context.Context, url string) (*Backend, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Backend{pool: pool}, nil
}

// New wraps an existing pool. Close closes the pool.
func New(pool *pgxpool.Pool) *Backend {
	return &Backend{pool: pool}
}

// Pool exposes the underlying pool for migrations.
func (b *Backend) Pool() *pgxpool.Pool { return b.pool }

func (b *Backend) Get(ctx context.Context, family, key string) (cache.Entry, error) {
	e := cache.Entry{Family: family, Key: key}
	err := b.pool.QueryRow(ctx,
		`SELECT payload, provenance, created_at, updated_at, expires_at
		   FROM cache_entries WHERE family = $1 AND key = $2`,
		family, key,
	).Scan(&e.Payload, &e.Provenance, &e.CreatedAt, &e.UpdatedAt, &e.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return cache.Entry{}, cache.ErrNotFound
	}
	if err != nil {
		return cache.Entry{}, fmt.Errorf("select entry: %w", err)
	}
	return e, nil
}

func (b *Backend) Upsert(ctx context.Context, e cache.Entry) error {
	_, err := b.pool.Exec(ctx,
		`INSERT INTO cache_entries (family, key, payload, provenance, created_at, updated_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (family, key) DO UPDATE SET
		   payload    = EXCLUDED.payload,
		   provenance = EXCLUDED.provenance,
		   updated_at = EXCLUDED.updated_at,
		   expires_at = EXCLUDED.expires_at`,
		e.Family, e.Key, string(e.Payload), e.Provenance, e.CreatedAt, e.UpdatedAt, e.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("upsert entry: %w", err)
	}
	return nil
}

func (b *Backend) DeleteIfExpired(ctx context.Context, family, key string, now time.Time) error {
	if _, err := b.pool.Exec(ctx,
		`DELETE FROM cache_entries WHERE family = $1 AND key = $2 AND expires_at <= $3`,
		family, key, now); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

func (b *Backend) DeleteExpired(ctx context.Context, family string, now time.Time) (int64, error) {
	tag, err := b.pool.Exec(ctx,
		`DELETE FROM cache_entries WHERE family = $1 AND expires_at <= $2`, family, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (b *Backend) Stats(ctx context.Context, family string, now time.Time) (cache.Stats, error) {
	var st cache.Stats
	err := b.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE expires_at <= $2)
		   FROM cache_entries WHERE family = $1`,
		family, now,
	).Scan(&st.Total, &st.Expired)
	if err != nil {
		return cache.Stats{}, fmt.Errorf("count entries: %w", err)
	}
	st.Valid = st.Total - st.Expired
	return st, nil
}

func (b *Backend) Close() error {
	b.pool.Close()
	return nil
}
