// Package progress implements per-interface progress routing and
// completion-ordering (spec.md §4.5): a job-tracking map resolving progress
// events to the interface that owns them, rate-limited message editing, and
// a buffer that preserves reply-before-completion ordering while an
// interface is busy handling user input. None of this has a teacher
// equivalent — the teacher's dashboard pushes raw session state over a
// websocket with no ownership or ordering model — so the policy is built
// directly from spec.md, with the Redis-backed store option adapted from
// the teacher's internal/cache Redis wrapper (SPEC_FULL.md §4.5a).
package progress

import (
	"context"
	"sync"
	"time"
)

// JobTrackingEntry is the interface-owned record spec.md §3 describes:
// opaque caller info plus a creation time used for TTL eviction.
type JobTrackingEntry struct {
	Info      any
	CreatedAt time.Time
}

// TrackingStore persists JobTrackingEntry records keyed by jobId or
// batchId. The default is an in-memory map, TTL-cleaned on insert
// (spec.md §4.5, §9 "TTL cleanup"). A Redis-backed implementation lets
// multiple replicas of the same interface plugin share tracking state
// without reintroducing clustering of the core (SPEC_FULL.md §4.5a).
type TrackingStore interface {
	Put(ctx context.Context, key string, entry JobTrackingEntry) error
	Get(ctx context.Context, key string) (JobTrackingEntry, bool, error)
	Has(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// MemoryStore is the default TrackingStore: an in-memory map cleaned
// opportunistically on every insert.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]JobTrackingEntry
	ttl     time.Duration
	nowFn   func() time.Time
}

// NewMemoryStore constructs a MemoryStore evicting entries older than ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{entries: make(map[string]JobTrackingEntry), ttl: ttl, nowFn: time.Now}
}

// Put records entry under key and sweeps expired entries (spec.md §4.5
// "Job-tracking TTL"). An entry with a zero CreatedAt is stamped with the
// current time.
func (m *MemoryStore) Put(ctx context.Context, key string, entry JobTrackingEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.nowFn()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	m.entries[key] = entry
	for k, e := range m.entries {
		if now.Sub(e.CreatedAt) >= m.ttl {
			delete(m.entries, k)
		}
	}
	return nil
}

// Get returns the entry for key, if present and not yet expired.
func (m *MemoryStore) Get(ctx context.Context, key string) (JobTrackingEntry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return JobTrackingEntry{}, false, nil
	}
	if m.nowFn().Sub(e.CreatedAt) >= m.ttl {
		delete(m.entries, key)
		return JobTrackingEntry{}, false, nil
	}
	return e, true, nil
}

// Has reports whether key is tracked (spec.md §4.5 "Ownership check").
func (m *MemoryStore) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := m.Get(ctx, key)
	return ok, err
}

// Delete removes key's entry, if any.
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
