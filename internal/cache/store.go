package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// Recorder observes cache activity. observability.Metrics implements it.
type Recorder interface {
	RecordCacheLookup(family, result string)
	RecordCacheWrite(family, outcome string)
	RecordCacheSweep(family string, removed int64)
}

type nopRecorder struct{}

func (nopRecorder) RecordCacheLookup(string, string) {}
func (nopRecorder) RecordCacheWrite(string, string)  {}
func (nopRecorder) RecordCacheSweep(string, int64)   {}

// Store is a typed, TTL-bounded view over one family of a Backend. Get and Put
// never return errors: a failing backend behaves like an empty cache.
type Store[T any] struct {
	backend  Backend
	family   string
	ttl      time.Duration
	logger   *slog.Logger
	recorder Recorder
	clock    clockwork.Clock
}

// Option configures a Store.
type Option func(*storeOptions)

type storeOptions struct {
	clock    clockwork.Clock
	recorder Recorder
}

// WithClock overrides the store's time source.
func WithClock(c clockwork.Clock) Option {
	return func(o *storeOptions) { o.clock = c }
}

// WithRecorder reports lookups, writes and sweeps to r.
func WithRecorder(r Recorder) Option {
	return func(o *storeOptions) {
		if r != nil {
			o.recorder = r
		}
	}
}

// NewStore creates a Store for family with the given TTL.
func NewStore[T any](backend Backend, family string, ttl time.Duration, logger *slog.Logger, opts ...Option) *Store[T] {
	o := storeOptions{clock: clockwork.NewRealClock(), recorder: nopRecorder{}}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[T]{
		backend:  backend,
		family:   family,
		ttl:      ttl,
		logger:   logger.With("cache_family", family),
		recorder: o.recorder,
		clock:    o.clock,
	}
}

// Family returns the family this store reads and writes.
func (s *Store[T]) Family() string { return s.family }

// TTL returns the lifetime applied to new entries.
func (s *Store[T]) TTL() time.Duration { return s.ttl }

// Get returns the payload and provenance for key if present and unexpired.
// An expired entry is deleted before the miss is reported.
func (s *Store[T]) Get(ctx context.Context, key string) (value T, provenance string, ok bool) {
	e, err := s.backend.Get(ctx, s.family, key)
	if errors.Is(err, ErrNotFound) {
		s.recorder.RecordCacheLookup(s.family, "miss")
		return value, "", false
	}
	if err != nil {
		s.recorder.RecordCacheLookup(s.family, "error")
		s.logger.Warn("cache read failed", "key", key, "error", err)
		return value, "", false
	}

	if now := s.clock.Now(); e.Expired(now) {
		s.recorder.RecordCacheLookup(s.family, "expired")
		if err := s.backend.DeleteIfExpired(ctx, s.family, key, now); err != nil {
			s.logger.Warn("cache delete of expired entry failed", "key", key, "error", err)
		}
		return value, "", false
	}

	if err := json.Unmarshal(e.Payload, &value); err != nil {
		s.recorder.RecordCacheLookup(s.family, "error")
		s.logger.Warn("cache payload undecodable", "key", key, "error", err)
		var zero T
		return zero, "", false
	}
	s.recorder.RecordCacheLookup(s.family, "hit")
	return value, e.Provenance, true
}

// Put upserts value under key with expiry now+TTL. Failures are logged only.
func (s *Store[T]) Put(ctx context.Context, key string, value T, provenance string) {
	payload, err := json.Marshal(value)
	if err != nil {
		s.recorder.RecordCacheWrite(s.family, "error")
		s.logger.Warn("cache payload unencodable", "key", key, "error", err)
		return
	}
	now := s.clock.Now()
	err = s.backend.Upsert(ctx, Entry{
		Family:     s.family,
		Key:        key,
		Payload:    payload,
		Provenance: provenance,
		CreatedAt:  now,
		UpdatedAt:  now,
		ExpiresAt:  now.Add(s.ttl),
	})
	if err != nil {
		s.recorder.RecordCacheWrite(s.family, "error")
		s.logger.Warn("cache write failed", "key", key, "error", err)
		return
	}
	s.recorder.RecordCacheWrite(s.family, "ok")
}

// Sweep deletes every entry of the family whose expiry is at or before now.
func (s *Store[T]) Sweep(ctx context.Context) (int64, error) {
	n, err := s.backend.DeleteExpired(ctx, s.family, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("sweep %s cache: %w", s.family, err)
	}
	s.recorder.RecordCacheSweep(s.family, n)
	return n, nil
}

// Stats counts total, expired and valid entries of the family.
func (s *Store[T]) Stats(ctx context.Context) (Stats, error) {
	st, err := s.backend.Stats(ctx, s.family, s.clock.Now())
	if err != nil {
		return Stats{}, fmt.Errorf("stats %s cache: %w", s.family, err)
	}
	return st, nil
}
