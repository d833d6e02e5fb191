package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Store guarded by a mutex.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*Entry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := buildOptions(opts)
	return &MemoryStore{
		entries: make(map[string]*Entry),
		now:     o.now,
	}
}

// Get retrieves a cache entry by key.
// Returns ErrCacheMiss if the key doesn't exist or entry is expired.
func (m *MemoryStore) Get(_ context.Context, key Key) (*Entry, error) {
	k := key.String()

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[k]
	if !ok {
		CacheMisses.WithLabelValues(backendMemory).Inc()
		return nil, ErrCacheMiss
	}

	if entry.ExpiredAt(m.now()) {
		delete(m.entries, k)
		CacheEvictions.WithLabelValues("read").Inc()
		CacheEntries.WithLabelValues(backendMemory).Set(float64(len(m.entries)))
		CacheMisses.WithLabelValues(backendMemory).Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues(backendMemory).Inc()
	clone := *entry
	return &clone, nil
}

// Set stores an entry. Entries that are already expired are dropped.
func (m *MemoryStore) Set(_ context.Context, key Key, entry *Entry) error {
	if entry == nil {
		CacheErrors.WithLabelValues("set").Inc()
		return ErrNilEntry
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if entry.TTLAt(m.now()) <= 0 {
		return nil
	}

	clone := *entry
	m.entries[key.String()] = &clone
	CacheEntries.WithLabelValues(backendMemory).Set(float64(len(m.entries)))

	return nil
}

// Delete removes a cache entry.
func (m *MemoryStore) Delete(_ context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key.String())
	CacheEntries.WithLabelValues(backendMemory).Set(float64(len(m.entries)))

	return nil
}

// Sweep removes every expired entry and returns how many were dropped.
func (m *MemoryStore) Sweep() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for k, entry := range m.entries {
		if entry.ExpiredAt(now) {
			delete(m.entries, k)
			removed++
		}
	}

	if removed > 0 {
		CacheEvictions.WithLabelValues("sweep").Add(float64(removed))
	}
	CacheEntries.WithLabelValues(backendMemory).Set(float64(len(m.entries)))

	return removed
}

// Len returns the number of stored entries, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
