package census

import (
	"context"
	"time"

	"github.com/Moutron/home-maintenance-app-sub001/internal/cache"
	"github.com/Moutron/home-maintenance-app-sub001/internal/domain"
	"github.com/jellydator/ttlcache/v3"
)

// MemoSource memoizes a source's successful fragments in process, keyed by
// the normalized address. Failures and empty fragments are not memoized so
// they can be retried.
type MemoSource struct {
	inner domain.Source
	cache *ttlcache.Cache[string, domain.PropertyProfile]
}

var _ domain.Source = (*MemoSource)(nil)

// NewMemoSource wraps inner with a memo of at most capacity entries.
func NewMemoSource(inner domain.Source, capacity int, ttl time.Duration) *MemoSource {
	c := ttlcache.New(
		ttlcache.WithTTL[string, domain.PropertyProfile](ttl),
		ttlcache.WithCapacity[string, domain.PropertyProfile](uint64(capacity)),
		ttlcache.WithDisableTouchOnHit[string, domain.PropertyProfile](),
	)
	go c.Start()
	return &MemoSource{inner: inner, cache: c}
}

func (m *MemoSource) Name() string { return m.inner.Name() }

func (m *MemoSource) Fetch(ctx context.Context, q domain.Query) (domain.PropertyProfile, error) {
	a := q.Address
	key := cache.ProfileKey(a.Street, a.City, a.State, a.ZipCode)
	if item := m.cache.Get(key); item != nil {
		return item.Value().Clone(), nil
	}
	p, err := m.inner.Fetch(ctx, q)
	if err != nil {
		return p, err
	}
	if !p.Empty() {
		m.cache.Set(key, p.Clone(), ttlcache.DefaultTTL)
	}
	return p, nil
}

// Len reports the number of memoized addresses.
func (m *MemoSource) Len() int { return m.cache.Len() }

// Close stops the memo's expiry goroutine.
func (m *MemoSource) Close() { m.cache.Stop() }
