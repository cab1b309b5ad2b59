// Package sqlite implements the cache backend on a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Moutron/home-maintenance-app-sub001/internal/cache"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	family      TEXT    NOT NULL,
	key         TEXT    NOT NULL,
	payload     BLOB    NOT NULL,
	provenance  TEXT    NOT NULL DEFAULT '',
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL,
	expires_at  INTEGER NOT NULL,
	PRIMARY KEY (family, key)
);
CREATE INDEX IF NOT EXISTS cache_entries_expiry ON cache_entries (family, expires_at);
`

// Backend stores cache entries in SQLite. Timestamps are unix nanoseconds.
type Backend struct {
	db *sql.DB
}

var _ cache.Backend = (*Backend)(nil)

// Open creates the file's parent directory if needed and ensures the schema.
func Open(path string) (*Backend, error) {
	if path == "" {
		path = "property-cache.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time avoids SQLITE_BUSY under concurrent upserts.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}
	return &Backend{db: db}, nil
}

func (b *Backend) Get(ctx context.Context, family, key string) (cache.Entry, error) {
	var (
		e                           cache.Entry
		created, updated, expiresAt int64
	)
	err := b.db.QueryRowContext(ctx,
		`SELECT payload, provenance, created_at, updated_at, expires_at
		   FROM cache_entries WHERE family = ? AND key = ?`,
		family, key,
	).Scan(&e.Payload, &e.Provenance, &created, &updated, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return cache.Entry{}, cache.ErrNotFound
	}
	if err != nil {
		return cache.Entry{}, fmt.Errorf("select entry: %w", err)
	}
	e.Family = family
	e.Key = key
	e.CreatedAt = time.Unix(0, created).UTC()
	e.UpdatedAt = time.Unix(0, updated).UTC()
	e.ExpiresAt = time.Unix(0, expiresAt).UTC()
	return e, nil
}

func (b *Backend) Upsert(ctx context.Context, e cache.Entry) error {
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO cache_entries (family, key, payload, provenance, created_at, updated_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (family, key) DO UPDATE SET
		   payload    = excluded.payload,
		   provenance = excluded.provenance,
		   updated_at = excluded.updated_at,
		   expires_at = excluded.expires_at`,
		e.Family, e.Key, e.Payload, e.Provenance,
		e.CreatedAt.UnixNano(), e.UpdatedAt.UnixNano(), e.ExpiresAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("upsert entry: %w", err)
	}
	return nil
}

func (b *Backend) DeleteIfExpired(ctx context.Context, family, key string, now time.Time) error {
	if _, err := b.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE family = ? AND key = ? AND expires_at <= ?`,
		family, key, now.UnixNano()); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

func (b *Backend) DeleteExpired(ctx context.Context, family string, now time.Time) (int64, error) {
	res, err := b.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE family = ? AND expires_at <= ?`, family, now.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("delete expired: %w", err)
	}
	return res.RowsAffected()
}

func (b *Backend) Stats(ctx context.Context, family string, now time.Time) (cache.Stats, error) {
	var st cache.Stats
	err := b.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN expires_at <= ? THEN 1 ELSE 0 END), 0)
		   FROM cache_entries WHERE family = ?`,
		now.UnixNano(), family,
	).Scan(&st.Total, &st.Expired)
	if err != nil {
		return cache.Stats{}, fmt.Errorf("count entries: %w", err)
	}
	st.Valid = st.Total - st.Expired
	return st, nil
}

func (b *Backend) Close() error { return b.db.Close() }
