package authz

import (
	"sync"
	"time"
)

// decisionCache memoizes enforcement decisions for a short TTL. The
// policy is static for the process lifetime, so staleness only matters
// when a policy file override is edited and reloaded.
type decisionCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]decisionEntry
}

type decisionEntry struct {
	allowed   bool
	expiresAt time.Time
}

func newDecisionCache(ttl time.Duration) *decisionCache {
	return &decisionCache{
		ttl:     ttl,
		entries: make(map[string]decisionEntry),
	}
}

func (c *decisionCache) get(key string) (bool, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return false, false
	}
	return entry.allowed, true
}

func (c *decisionCache) set(key string, allowed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Opportunistic cleanup once the map grows past a few thousand
	// entries; the key space is bounded by roles x entities x operations.
	if len(c.entries) > 4096 {
		now := time.Now()
		for k, e := range c.entries {
			if now.After(e.expiresAt) {
				delete(c.entries, k)
			}
		}
	}

	c.entries[key] = decisionEntry{
		allowed:   allowed,
		expiresAt: time.Now().Add(c.ttl),
	}
}
