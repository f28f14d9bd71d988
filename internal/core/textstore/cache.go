package textstore

import (
	"sync"
	"time"
)

// TTLCache is an in-process accelerator over the durable text store.
// It may drop or expire any entry at any time; absence never means the
// document has no text.
type TTLCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	text     string
	cachedAt time.Time
}

func NewTTLCache(ttl time.Duration) *TTLCache {
	return &TTLCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached text, treating expired entries as misses.
func (c *TTLCache) Get(documentID string) (string, bool) {
	c.mu.RLock()
	e, ok := c.entries[documentID]
	c.mu.RUnlock()

	if !ok {
		return "", false
	}
	if c.now().Sub(e.cachedAt) > c.ttl {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have
		// refreshed the entry.
		if cur, ok := c.entries[documentID]; ok && c.now().Sub(cur.cachedAt) > c.ttl {
			delete(c.entries, documentID)
		}
		c.mu.Unlock()
		return "", false
	}
	return e.text, true
}

// Set stores the text. Content is immutable per document id, so
// last-write-wins is safe.
func (c *TTLCache) Set(documentID, text string) {
	c.mu.Lock()
	c.entries[documentID] = cacheEntry{text: text, cachedAt: c.now()}
	c.mu.Unlock()
}
