package feed

import (
	"sync"
	"time"
)

const maxCacheEntries = 1024

type cacheEntry struct {
	page    Page
	storeAt time.Time
}

// Cache holds rendered feed pages for a short TTL. Invalidate drops everything
// and bumps the generation so loads that started before the invalidation
// cannot write stale pages back.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]cacheEntry
	generation uint64
	ttl        time.Duration
	now        func() time.Time
}

// NewCache returns a cache with the given TTL. A zero TTL disables caching.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Generation is the current invalidation epoch.
func (c *Cache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

func (c *Cache) Get(key string) (Page, bool) {
	if c.ttl <= 0 {
		return Page{}, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.storeAt) > c.ttl {
		return Page{}, false
	}
	return e.page, true
}

// Set stores page under key if no invalidation happened since gen was read.
func (c *Cache) Set(gen uint64, key string, page Page) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return
	}
	now := c.now()
	if len(c.entries) >= maxCacheEntries {
		for k, e := range c.entries {
			if now.Sub(e.storeAt) > c.ttl {
				delete(c.entries, k)
			}
		}
		if len(c.entries) >= maxCacheEntries {
			c.entries = make(map[string]cacheEntry)
		}
	}
	c.entries[key] = cacheEntry{page: page, storeAt: now}
}

// Invalidate discards every cached page.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.entries = make(map[string]cacheEntry)
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
