package di

import (
	"context"
	"sync"
	"time"
)

// InMemoryCache is a TTL cache used to memoize comparison results.
// Expired entries are dropped lazily on read and swept once a minute.
type InMemoryCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	value    interface{}
	deadline time.Time
}

// NewInMemoryCache creates the cache and starts its sweeper.
func NewInMemoryCache() *InMemoryCache {
	c := &InMemoryCache{entries: make(map[string]cacheEntry)}
	go c.sweep()
	return c
}

// Get returns the cached value for key, if present and not expired.
func (c *InMemoryCache) Get(ctx context.Context, key string) (interface{}, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.deadline) {
		c.mu.Lock()
		// Re-check under the write lock; a Set may have raced us.
		if cur, ok := c.entries[key]; ok && time.Now().After(cur.deadline) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return entry.value, true
}

// Set stores value under key for ttl seconds.
func (c *InMemoryCache) Set(ctx context.Context, key string, value interface{}, ttl int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{
		value:    value,
		deadline: time.Now().Add(time.Duration(ttl) * time.Second),
	}
	return nil
}

// Delete removes key from the cache.
func (c *InMemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// Clear drops every entry.
func (c *InMemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
	return nil
}

func (c *InMemoryCache) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		c.mu.Lock()
		for key, entry := range c.entries {
			if now.After(entry.deadline) {
				delete(c.entries, key)
			}
		}
		c.mu.Unlock()
	}
}
