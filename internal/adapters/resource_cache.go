package adapters

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"capresolve/internal/metrics"
	"capresolve/internal/resource"
)

const DefaultResourceCacheTTL = 10 * time.Minute

// DeriveFunc builds the resource for the file at path.
type DeriveFunc func(ctx context.Context, path string) (*resource.Resource, error)

// ResourceCache memoizes resources derived from files. An entry is keyed
// by the file's absolute path, size and modification time, so a changed
// file is derived again. Entries idle for longer than the TTL are dropped
// on the next access.
type ResourceCache struct {
	TTL     time.Duration
	Clock   func() time.Time
	Metrics *metrics.Recorder

	mu      sync.Mutex
	entries map[cacheKey]*cacheEntry
	group   singleflight.Group
}

type cacheKey struct {
	path    string
	size    int64
	modTime int64
}

func (k cacheKey) String() string {
	return fmt.Sprintf("%s:%d:%d", k.path, k.size, k.modTime)
}

type cacheEntry struct {
	resource   *resource.Resource
	lastAccess time.Time
}

func NewResourceCache(rec *metrics.Recorder) *ResourceCache {
	return &ResourceCache{
		TTL:     DefaultResourceCacheTTL,
		Clock:   time.Now,
		Metrics: rec,
		entries: map[cacheKey]*cacheEntry{},
	}
}

// Get returns the cached resource for path or derives it. Concurrent
// callers for the same file version share one derivation. Failed
// derivations are not cached.
func (c *ResourceCache) Get(ctx context.Context, path string, derive DeriveFunc) (*resource.Resource, error) {
	key, err := fileKey(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.purgeLocked()
	r, ok := c.lookupLocked(key)
	c.mu.Unlock()
	if ok {
		c.Metrics.CacheResult(metrics.CacheHit)
		return r, nil
	}

	c.Metrics.CacheResult(metrics.CacheMiss)
	r, shared, err := c.derive(ctx, key, derive)
	if err != nil {
		c.Metrics.CacheResult(metrics.CacheError)
		return nil, err
	}
	log.Ctx(ctx).Debug().Str("path", key.path).Bool("shared", shared).Msg("resource derived")
	return r, nil
}

// derive runs fn once per key across concurrent callers. A caller that
// missed before another caller stored the entry gets the stored resource.
func (c *ResourceCache) derive(ctx context.Context, key cacheKey, fn DeriveFunc) (*resource.Resource, bool, error) {
	v, err, shared := c.group.Do(key.String(), func() (any, error) {
		c.mu.Lock()
		r, ok := c.lookupLocked(key)
		c.mu.Unlock()
		if ok {
			return r, nil
		}
		r, err := fn(ctx, key.path)
		if err != nil {
			return nil, err
		}
		c.store(key, r)
		return r, nil
	})
	if err != nil {
		return nil, shared, err
	}
	return v.(*resource.Resource), shared, nil
}

func (c *ResourceCache) lookupLocked(key cacheKey) (*resource.Resource, bool) {
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	e.lastAccess = c.now()
	return e.resource, true
}

func (c *ResourceCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purgeLocked()
	return len(c.entries)
}

// Purge drops every entry.
func (c *ResourceCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

func (c *ResourceCache) store(key cacheKey, r *resource.Resource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = map[cacheKey]*cacheEntry{}
	}
	for k := range c.entries {
		if k.path == key.path && k != key {
			delete(c.entries, k)
		}
	}
	c.entries[key] = &cacheEntry{resource: r, lastAccess: c.now()}
}

func (c *ResourceCache) purgeLocked() {
	if c.TTL <= 0 {
		return
	}
	now := c.now()
	for k, e := range c.entries {
		if now.Sub(e.lastAccess) > c.TTL {
			delete(c.entries, k)
			c.Metrics.CacheResult(metrics.CacheExpired)
		}
	}
}

func (c *ResourceCache) now() time.Time {
	if c.Clock == nil {
		return time.Now()
	}
	return c.Clock()
}

func fileKey(path string) (cacheKey, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return cacheKey{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid resource file path %q", path)).
			WithCause(err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return cacheKey{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("resource file not found: %s", abs)).
			WithCause(err)
	}
	return cacheKey{path: abs, size: info.Size(), modTime: info.ModTime().UnixNano()}, nil
}
