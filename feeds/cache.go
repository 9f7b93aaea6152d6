package feeds

import (
	"sync"
	"time"

	"pulso/models"
)

// Cache holds the last aggregated feed with its fetch time. It is advisory:
// staleness triggers a re-fetch by the caller, never a blocking wait. The
// cache is owned by whoever constructs it and passed explicitly, there is no
// shared module state.
type Cache struct {
	mu        sync.RWMutex
	data      []models.Update
	fetchedAt time.Time
}

func NewCache() *Cache {
	return &Cache{}
}

// Get returns the cached feed when it is younger than the freshness window.
// A zero window disables the cache entirely.
func (c *Cache) Get(window time.Duration) ([]models.Update, bool) {
	if window <= 0 {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.fetchedAt.IsZero() || time.Since(c.fetchedAt) >= window {
		return nil, false
	}
	return c.data, true
}

// Set stores a freshly aggregated feed.
func (c *Cache) Set(data []models.Update) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = data
	c.fetchedAt = time.Now()
}

// Invalidate drops the cached feed so the next request hits the adapters.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = nil
	c.fetchedAt = time.Time{}
}

// FetchedAt returns when the cached feed was stored, zero when empty.
func (c *Cache) FetchedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetchedAt
}
