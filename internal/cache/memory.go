package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache keeps scores in process memory with expiry
type MemoryCache struct {
	cache *gocache.Cache
}

// NewMemoryCache creates a new memory cache
func NewMemoryCache(defaultTTL time.Duration, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get retrieves a score
func (c *MemoryCache) Get(key string) (float64, bool) {
	val, found := c.cache.Get(key)
	if !found {
		return 0, false
	}
	score, ok := val.(float64)
	return score, ok
}

// Set stores a score; a zero ttl uses the cache default
func (c *MemoryCache) Set(key string, score float64, ttl time.Duration) error {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	c.cache.Set(key, score, ttl)
	return nil
}

// Delete removes a score
func (c *MemoryCache) Delete(key string) error {
	c.cache.Delete(key)
	return nil
}

// Clear removes all scores
func (c *MemoryCache) Clear() error {
	c.cache.Flush()
	return nil
}
