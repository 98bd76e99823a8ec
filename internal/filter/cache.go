package filter

import (
	"sync"

	"capresolve/internal/attrs"
)

// cacheEntry memoizes one Parse outcome, errors included.
type cacheEntry struct {
	node Node
	err  error
}

// DefaultCacheLimit bounds DefaultCache.
const DefaultCacheLimit = 4096

// Cache memoizes parsed filters by their exact source text. It is safe
// for concurrent use. An unbounded cache never evicts; a bounded one is
// emptied when an insert would exceed its limit.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	limit   int
}

// NewCache creates an empty unbounded cache. Its lifetime is its owner's,
// for example one resolve session.
func NewCache() *Cache {
	return NewBoundedCache(0)
}

// NewBoundedCache creates an empty cache holding at most limit filters.
// A limit of zero or less means unbounded.
func NewBoundedCache(limit int) *Cache {
	return &Cache{entries: map[string]cacheEntry{}, limit: limit}
}

// DefaultCache lives for the whole process and backs Match and the
// filters of requirements matched outside a resolve session. It holds at
// most DefaultCacheLimit filters.
var DefaultCache = NewBoundedCache(DefaultCacheLimit)

// Parse returns the cached parse of s, parsing it on first use.
func (c *Cache) Parse(s string) (Node, error) {
	c.mu.RLock()
	entry, ok := c.entries[s]
	c.mu.RUnlock()
	if ok {
		return entry.node, entry.err
	}
	node, err := Parse(s)
	c.mu.Lock()
	if existing, ok := c.entries[s]; ok {
		c.mu.Unlock()
		return existing.node, existing.err
	}
	if c.limit > 0 && len(c.entries) >= c.limit {
		clear(c.entries)
	}
	c.entries[s] = cacheEntry{node: node, err: err}
	c.mu.Unlock()
	return node, err
}

// Len reports the number of cached filter strings.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Match parses s through the cache and evaluates it against m.
func (c *Cache) Match(s string, m attrs.Map) (bool, error) {
	node, err := c.Parse(s)
	if err != nil {
		return false, err
	}
	return node.Eval(m), nil
}

// Match parses s through DefaultCache and evaluates it against m.
func Match(s string, m attrs.Map) (bool, error) {
	return DefaultCache.Match(s, m)
}
