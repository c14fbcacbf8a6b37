package cache

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Memory is an in-process Store. Expired entries are dropped lazily on read
// and swept whenever the map is written. TTLs get a small random jitter so
// entries populated together do not all expire in the same instant.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value  []byte
	expiry time.Time
}

// NewMemory creates an empty in-memory Store.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || m.now().After(e.expiry) {
		return nil, ErrCacheMiss
	}
	return e.value, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	jitter := time.Duration(rand.Int63n(int64(ttl)/10 + 1))

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, e := range m.entries {
		if now.After(e.expiry) {
			delete(m.entries, k)
		}
	}
	m.entries[key] = memoryEntry{value: value, expiry: now.Add(ttl + jitter)}
	return nil
}

func (m *Memory) Invalidate(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
