package cache

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/tally/pkg/domain/interfaces"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Memory implements Cache with an in-process map
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemory creates a new memory cache
func NewMemory() interfaces.Cache {
	return newMemory(time.Now)
}

func newMemory(now func() time.Time) *Memory {
	return &Memory{
		entries: make(map[string]entry),
		now:     now,
	}
}

// Get returns a copy of the stored value if it has not expired
func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, goerr.New("cache key is empty")
	}

	m.mu.RLock()
	e, exists := m.entries[key]
	m.mu.RUnlock()

	if !exists {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, false, nil
	}

	value := make([]byte, len(e.value))
	copy(value, e.value)
	return value, true, nil
}

// Set stores a copy of the value. A zero TTL never expires.
func (m *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return goerr.New("cache key is empty")
	}
	if ttl < 0 {
		return goerr.New("cache TTL must not be negative", goerr.V("ttl", ttl))
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	e := entry{value: stored}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = e
	return nil
}

// Close drops all entries
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]entry)
	return nil
}
