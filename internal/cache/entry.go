package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Cache families. Each has its own TTL and its own key space.
const (
	FamilyProfile = "profile"
	FamilyWeather = "weather"
)

// ErrNotFound is returned by a Backend when no entry exists for a key.
var ErrNotFound = errors.New("cache entry not found")

// Entry is one stored payload with its provenance and lifetime.
type Entry struct {
	Family     string
	Key        string
	Payload    []byte
	Provenance string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the entry is at or past its expiry at now.
func (e Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.After(now)
}

// Stats summarizes a family at a point in time.
type Stats struct {
	Total   int64 `json:"total"`
	Expired int64 `json:"expired"`
	Valid   int64 `json:"valid"`
}

// Backend is the storage port behind a Store. Implementations must be safe
// for concurrent use. Upsert keeps the original CreatedAt of an existing entry.
// DeleteIfExpired removes the entry only if it is still expired at now, so a
// concurrent refresh survives.
type Backend interface {
	Get(ctx context.Context, family, key string) (Entry, error)
	Upsert(ctx context.Context, e Entry) error
	DeleteIfExpired(ctx context.Context, family, key string, now time.Time) error
	DeleteExpired(ctx context.Context, family string, now time.Time) (int64, error)
	Stats(ctx context.Context, family string, now time.Time) (Stats, error)
	Close() error
}

// ProfileKey normalizes an address into the profile cache key. Addresses that
// differ only in case or incidental whitespace produce the same key.
func ProfileKey(street, city, state, zip string) string {
	return strings.Join([]string{
		strings.ToLower(collapse(street)),
		strings.ToLower(collapse(city)),
		strings.ToUpper(strings.TrimSpace(state)),
		strings.TrimSpace(zip),
	}, "|")
}

// WeatherKey is the trimmed postal code.
func WeatherKey(zip string) string {
	return strings.TrimSpace(zip)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
