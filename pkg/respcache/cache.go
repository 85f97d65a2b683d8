// Package respcache time-boxes serialized response bodies for the expensive
// aggregate endpoints (AI insights, heatmap, contribution map).
package respcache

import (
	"time"

	"github.com/coocood/freecache"
)

// defaultSize is the in-memory budget for cached bodies.
const defaultSize = 8 * 1024 * 1024

// Cache is a TTL-boxed byte cache. Not a general caching framework: one TTL,
// string keys, whole-body values.
type Cache struct {
	c   *freecache.Cache
	ttl time.Duration
}

// New builds a cache with the given TTL. TTLs below one second are clamped
// up, since freecache expiry is second-granular.
func New(ttl time.Duration) *Cache {
	if ttl < time.Second {
		ttl = time.Second
	}
	return &Cache{
		c:   freecache.NewCache(defaultSize),
		ttl: ttl,
	}
}

// Get returns the cached body for key, if fresh.
func (c *Cache) Get(key string) ([]byte, bool) {
	v, err := c.c.Get([]byte(key))
	if err != nil {
		return nil, false
	}
	return v, true
}

// Set stores body under key for the cache TTL.
func (c *Cache) Set(key string, body []byte) {
	// Oversized entries are simply not cached.
	_ = c.c.Set([]byte(key), body, int(c.ttl.Seconds()))
}

// Del drops key, forcing the next request to recompute.
func (c *Cache) Del(key string) {
	c.c.Del([]byte(key))
}
