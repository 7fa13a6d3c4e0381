package cache

import "time"

// LayeredCache checks memory first and falls back to disk
type LayeredCache struct {
	memory Cache
	disk   Cache
}

// NewLayeredCache creates a memory + disk cache
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	return &LayeredCache{
		memory: NewMemoryCache(memoryTTL, 10*time.Minute),
		disk:   NewDiskCache(diskDir, diskTTL),
	}
}

// Get retrieves a score, promoting disk hits to memory
func (c *LayeredCache) Get(key string) (float64, bool) {
	if score, found := c.memory.Get(key); found {
		return score, true
	}

	if score, found := c.disk.Get(key); found {
		_ = c.memory.Set(key, score, 0)
		return score, true
	}

	return 0, false
}

// Set stores a score in both layers
func (c *LayeredCache) Set(key string, score float64, ttl time.Duration) error {
	if err := c.memory.Set(key, score, ttl); err != nil {
		return err
	}
	return c.disk.Set(key, score, ttl)
}

// Delete removes a score from both layers
func (c *LayeredCache) Delete(key string) error {
	_ = c.memory.Delete(key)
	return c.disk.Delete(key)
}

// Clear empties both layers
func (c *LayeredCache) Clear() error {
	_ = c.memory.Clear()
	return c.disk.Clear()
}
