package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryCache is a process-local cache backend.
type MemoryCache struct {
	mu      sync.RWMutex
	config  Config
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(config Config) *MemoryCache {
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = DefaultConfig().DefaultTTL
	}
	return &MemoryCache{
		config:  config,
		entries: make(map[string]memoryEntry),
	}
}

// Get retrieves a value from the cache.
func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	fullKey := m.config.Prefix + key

	m.mu.RLock()
	entry, ok := m.entries[fullKey]
	m.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return nil, ErrCacheMiss{Key: key}
	}

	// Copy so callers cannot mutate the cached bytes.
	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, nil
}

// Set stores a value with a TTL.
func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = m.config.DefaultTTL
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[m.config.Prefix+key] = memoryEntry{
		value:     stored,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Delete removes a single key.
func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, m.config.Prefix+key)
	return nil
}

// DeleteByPrefix removes every key starting with the prefix.
func (m *MemoryCache) DeleteByPrefix(ctx context.Context, prefix string) error {
	fullPrefix := m.config.Prefix + prefix

	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		if strings.HasPrefix(key, fullPrefix) {
			delete(m.entries, key)
		}
	}
	return nil
}

// Clear removes everything.
func (m *MemoryCache) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]memoryEntry)
	return nil
}
