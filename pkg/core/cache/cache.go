package cache

import (
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// Cache is a thread-safe in-memory LRU cache with TTL support. Concurrent
// misses for one key share a single computation.
type Cache struct {
	lru   *expirable.LRU[string, interface{}]
	group singleflight.Group

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// Config holds cache configuration
type Config struct {
	MaxItems int
	TTL      time.Duration // 0 keeps entries until evicted
}

// DefaultConfig returns default cache configuration
func DefaultConfig() Config {
	return Config{
		MaxItems: 1024,
		TTL:      10 * time.Minute,
	}
}

// Stats holds cache counters
type Stats struct {
	Size      int     `json:"size"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	HitRate   float64 `json:"hit_rate"` // percent
}

// New creates a new cache instance. Expired entries are swept in the
// background every TTL/100.
func New(cfg Config) *Cache {
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = DefaultConfig().MaxItems
	}
	return &Cache{
		lru: expirable.NewLRU[string, interface{}](cfg.MaxItems, nil, cfg.TTL),
	}
}

// Get retrieves a value from the cache
func (c *Cache) Get(key string) (interface{}, bool) {
	val, ok := c.lru.Get(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return val, true
}

// Set stores a value in the cache
func (c *Cache) Set(key string, value interface{}) {
	if c.lru.Add(key, value) {
		c.evictions.Add(1)
	}
}

// Delete removes a value from the cache
func (c *Cache) Delete(key string) {
	c.lru.Remove(key)
}

// Clear removes all items from the cache
func (c *Cache) Clear() {
	c.lru.Purge()
}

// Size returns the number of items in the cache, including expired items
// not yet swept
func (c *Cache) Size() int {
	return c.lru.Len()
}

// Stats returns cache statistics
func (c *Cache) Stats() Stats {
	stats := Stats{
		Size:      c.lru.Len(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total) * 100
	}
	return stats
}

// GetOrSet gets a value or computes and stores it. Errors are not cached.
// Callers missing the same key at the same time wait for one computation.
func (c *Cache) GetOrSet(key string, fn func() (interface{}, error)) (interface{}, error) {
	if val, ok := c.Get(key); ok {
		return val, nil
	}

	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		// a computation may have finished between Get and Do
		if val, ok := c.lru.Peek(key); ok {
			return val, nil
		}
		val, err := fn()
		if err != nil {
			return nil, err
		}
		c.Set(key, val)
		return val, nil
	})
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Close drops all entries. The sweep goroutine of the underlying LRU cannot
// be stopped and ends with the process.
func (c *Cache) Close() {
	c.lru.Purge()
}
