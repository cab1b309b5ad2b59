package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Moutron/home-maintenance-app-sub001/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Backend {
	t.Helper()
	b, err := Open(filepath.Join(t.TempDir(), "nested", "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestBackend_GetMissing(t *testing.T) {
	b := openTemp(t)
	_, err := b.Get(context.Background(), cache.FamilyProfile, "nope")
	require.ErrorIs(t, err, cache.ErrNotFound)
}

func TestBackend_UpsertAndGet(t *testing.T) {
	b := openTemp(t)
	ctx := context.Background()
	t0 := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)

	require.NoError(t, b.Upsert(ctx, cache.Entry{
		Family: cache.FamilyProfile, Key: "k", Payload: []byte(`{"yearBuilt":1980}`),
		Provenance: "property-records", CreatedAt: t0, UpdatedAt: t0, ExpiresAt: t0.Add(time.Hour),
	}))
	t1 := t0.Add(time.Minute)
	require.NoError(t, b.Upsert(ctx, cache.Entry{
		Family: cache.FamilyProfile, Key: "k", Payload: []byte(`{"yearBuilt":1981}`),
		Provenance: "county-assessor", CreatedAt: t1, UpdatedAt: t1, ExpiresAt: t1.Add(time.Hour),
	}))

	e, err := b.Get(ctx, cache.FamilyProfile, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"yearBuilt":1981}`, string(e.Payload))
	assert.Equal(t, "county-assessor", e.Provenance)
	assert.True(t, e.CreatedAt.Equal(t0), "created_at survives upsert")
	assert.True(t, e.UpdatedAt.Equal(t1))
	assert.True(t, e.ExpiresAt.Equal(t1.Add(time.Hour)))

	// Same key in another family is independent.
	_, err = b.Get(ctx, cache.FamilyWeather, "k")
	require.ErrorIs(t, err, cache.ErrNotFound)
}

func TestBackend_DeleteExpiredAndStats(t *testing.T) {
	b := openTemp(t)
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	put := func(key string, expires time.Time) {
		require.NoError(t, b.Upsert(ctx, cache.Entry{
			Family: cache.FamilyWeather, Key: key, Payload: []byte(`{}`),
			CreatedAt: now, UpdatedAt: now, ExpiresAt: expires,
		}))
	}
	put("past", now.Add(-time.Second))
	put("boundary", now)
	put("future", now.Add(time.Hour))

	st, err := b.Stats(ctx, cache.FamilyWeather, now)
	require.NoError(t, err)
	assert.Equal(t, cache.Stats{Total: 3, Expired: 2, Valid: 1}, st)

	n, err := b.DeleteExpired(ctx, cache.FamilyWeather, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	st, err = b.Stats(ctx, cache.FamilyWeather, now)
	require.NoError(t, err)
	assert.Equal(t, cache.Stats{Total: 1, Expired: 0, Valid: 1}, st)

	require.NoError(t, b.DeleteIfExpired(ctx, cache.FamilyWeather, "future", now))
	_, err = b.Get(ctx, cache.FamilyWeather, "future")
	require.NoError(t, err, "unexpired entry survives a guarded delete")

	require.NoError(t, b.DeleteIfExpired(ctx, cache.FamilyWeather, "future", now.Add(time.Hour)))
	st, err = b.Stats(ctx, cache.FamilyWeather, now)
	require.NoError(t, err)
	assert.Equal(t, cache.Stats{}, st)
}

func TestBackend_WithStore(t *testing.T) {
	b := openTemp(t)
	store := cache.NewStore[map[string]int](b, cache.FamilyProfile, time.Hour, testLogger())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Put(ctx, "same-key", map[string]int{"writer": i}, "p")
		}()
	}
	wg.Wait()

	got, _, ok := store.Get(ctx, "same-key")
	require.True(t, ok)
	assert.Contains(t, got, "writer")
}
