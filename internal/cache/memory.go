package cache

import (
	"context"
	"slices"
	"sync"
	"time"
)

type memoryKey struct{ family, key string }

// MemoryBackend keeps entries in a map. Used for tests and CACHE_BACKEND=memory.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[memoryKey]Entry
}

// NewMemoryBackend returns an empty in-process backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[memoryKey]Entry)}
}

func (m *MemoryBackend) Get(_ context.Context, family, key string) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[memoryKey{family, key}]
	if !ok {
		return Entry{}, ErrNotFound
	}
	e.Payload = slices.Clone(e.Payload)
	return e, nil
}

func (m *MemoryBackend) Upsert(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := memoryKey{e.Family, e.Key}
	if prev, ok := m.entries[k]; ok {
		e.CreatedAt = prev.CreatedAt
	}
	e.Payload = slices.Clone(e.Payload)
	m.entries[k] = e
	return nil
}

func (m *MemoryBackend) DeleteIfExpired(_ context.Context, family, key string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := memoryKey{family, key}
	if e, ok := m.entries[k]; ok && e.Expired(now) {
		delete(m.entries, k)
	}
	return nil
}

func (m *MemoryBackend) DeleteExpired(_ context.Context, family string, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, e := range m.entries {
		if k.family == family && e.Expired(now) {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}

func (m *MemoryBackend) Stats(_ context.Context, family string, now time.Time) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var st Stats
	for k, e := range m.entries {
		if k.family != family {
			continue
		}
		st.Total++
		if e.Expired(now) {
			st.Expired++
		}
	}
	st.Valid = st.Total - st.Expired
	return st, nil
}

func (m *MemoryBackend) Close() error { return nil }
