//go:build integration

package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Moutron/home-maintenance-app-sub001/internal/cache"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requires CACHE_TEST_DATABASE_URL pointing at a disposable database.
func setupBackend(t *testing.T) *Backend {
	t.Helper()
	url := os.Getenv("CACHE_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("CACHE_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	require.NoError(t, RunMigrationsUp(ctx, pool))
	// Running twice must be a no-op.
	require.NoError(t, RunMigrationsUp(ctx, pool))

	_, err = pool.Exec(ctx, `TRUNCATE cache_entries`)
	require.NoError(t, err)

	b := New(pool)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestBackend_Lifecycle(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	_, err := b.Get(ctx, cache.FamilyProfile, "k")
	require.ErrorIs(t, err, cache.ErrNotFound)

	require.NoError(t, b.Upsert(ctx, cache.Entry{
		Family: cache.FamilyProfile, Key: "k", Payload: []byte(`{"yearBuilt":1980}`),
		Provenance: "property-records", CreatedAt: now, UpdatedAt: now, ExpiresAt: now.Add(time.Hour),
	}))
	later := now.Add(time.Minute)
	require.NoError(t, b.Upsert(ctx, cache.Entry{
		Family: cache.FamilyProfile, Key: "k", Payload: []byte(`{"yearBuilt":1981}`),
		Provenance: "county-assessor", CreatedAt: later, UpdatedAt: later, ExpiresAt: later.Add(time.Hour),
	}))

	e, err := b.Get(ctx, cache.FamilyProfile, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"yearBuilt":1981}`, string(e.Payload))
	assert.Equal(t, "county-assessor", e.Provenance)
	assert.True(t, e.CreatedAt.Equal(now))

	require.NoError(t, b.Upsert(ctx, cache.Entry{
		Family: cache.FamilyProfile, Key: "old", Payload: []byte(`{}`),
		CreatedAt: now, UpdatedAt: now, ExpiresAt: now,
	}))

	st, err := b.Stats(ctx, cache.FamilyProfile, now)
	require.NoError(t, err)
	assert.Equal(t, cache.Stats{Total: 2, Expired: 1, Valid: 1}, st)

	n, err := b.DeleteExpired(ctx, cache.FamilyProfile, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, b.DeleteIfExpired(ctx, cache.FamilyProfile, "k", now))
	_, err = b.Get(ctx, cache.FamilyProfile, "k")
	require.NoError(t, err, "unexpired entry survives a guarded delete")

	require.NoError(t, b.DeleteIfExpired(ctx, cache.FamilyProfile, "k", later.Add(time.Hour)))
	st, err = b.Stats(ctx, cache.FamilyProfile, now)
	require.NoError(t, err)
	assert.Equal(t, cache.Stats{}, st)
}
