package query

import (
	"sync"
	"time"
)

// expansionCache holds query-variant lists keyed by the exact query
// string, with TTL-based lazy eviction.
type expansionCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	variants  []string
	expiresAt time.Time
}

func newExpansionCache(ttl time.Duration) *expansionCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &expansionCache{ttl: ttl, entries: map[string]cacheEntry{}}
}

func (c *expansionCache) get(query string) ([]string, bool) {
	c.mu.RLock()
	entry, ok := c.entries[query]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.variants, true
}

func (c *expansionCache) put(query string, variants []string) {
	c.mu.Lock()
	c.entries[query] = cacheEntry{variants: variants, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}
