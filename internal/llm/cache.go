package llm

import (
	"sync"
	"time"

	"github.com/roundlot/ticker-scout/internal/model"
)

// cachedAssist is what a hit replays: the parsed result plus the request
// and response text, so a mapping served from cache still gets a full
// exchange row in the corpus.
type cachedAssist struct {
	result      model.AssistResult
	prompt      string
	rawResponse string
}

// cacheEntry represents a cached assist result.
type cacheEntry struct {
	expiry time.Time
	value  cachedAssist
}

// resultCache provides thread-safe caching for assist results keyed on the
// normalized merchant name.
type resultCache struct {
	entries map[string]cacheEntry
	stopCh  chan struct{}
	ttl     time.Duration
	mu      sync.RWMutex
}

// newResultCache creates a new cache with the specified TTL.
func newResultCache(ttl time.Duration) *resultCache {
	if ttl == 0 {
		ttl = 15 * time.Minute // Default TTL
	}

	cache := &resultCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	go cache.cleanup()

	return cache
}

// get retrieves a result from the cache if it exists and hasn't expired.
func (c *resultCache) get(key string) (cachedAssist, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists {
		return cachedAssist{}, false
	}

	if time.Now().After(entry.expiry) {
		return cachedAssist{}, false
	}

	return entry.value, true
}

// set stores a result in the cache.
func (c *resultCache) set(key string, value cachedAssist) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		value:  value,
		expiry: time.Now().Add(c.ttl),
	}
}

// cleanup periodically removes expired entries.
func (c *resultCache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, entry := range c.entries {
				if now.After(entry.expiry) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// size returns the number of entries in the cache.
func (c *resultCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the cleanup goroutine.
func (c *resultCache) Close() {
	close(c.stopCh)
}
