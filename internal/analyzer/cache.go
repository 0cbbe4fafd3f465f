package analyzer

import (
	"fmt"

	"github.com/maypok86/otter"
)

// Cache holds per-unit results keyed by a hash of the unit ID, module path,
// analysis options and source bytes.
type Cache struct {
	c otter.Cache[string, *Result]
}

// NewCache returns a cache holding up to capacity results.
func NewCache(capacity int) (*Cache, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("cache capacity must be positive, got %d", capacity)
	}
	c, err := otter.MustBuilder[string, *Result](capacity).
		CollectStats().
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}
	return &Cache{c: c}, nil
}

// Get returns the cached result for key.
func (c *Cache) Get(key string) (*Result, bool) {
	return c.c.Get(key)
}

// Set stores r under key.
func (c *Cache) Set(key string, r *Result) {
	c.c.Set(key, r)
}

// Len returns the number of cached results.
func (c *Cache) Len() int {
	return c.c.Size()
}

// Hits returns the number of lookups served from the cache.
func (c *Cache) Hits() int64 {
	return c.c.Stats().Hits()
}

// Misses returns the number of lookups that ran the pipeline.
func (c *Cache) Misses() int64 {
	return c.c.Stats().Misses()
}

// Close stops the cache's background work.
func (c *Cache) Close() {
	c.c.Close()
}
