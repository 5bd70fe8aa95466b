package remote

import (
	"sync"
	"time"
)

// TokenCache holds the process-wide platform credential. It is injectable so
// tests can control expiry without touching the wall clock.
type TokenCache interface {
	// Get returns the cached token and whether it is still usable.
	Get() (string, bool)
	// Set stores a token that stays usable for ttl.
	Set(token string, ttl time.Duration)
}

// MemoryTokenCache is the default TokenCache: a mutex-guarded singleton with
// no teardown. A cold cache just costs one extra login exchange.
type MemoryTokenCache struct {
	mu      sync.Mutex
	token   string
	expiry  time.Time
	nowFunc func() time.Time
}

func NewMemoryTokenCache() *MemoryTokenCache {
	return &MemoryTokenCache{nowFunc: time.Now}
}

func (c *MemoryTokenCache) Get() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" || !c.nowFunc().Before(c.expiry) {
		return "", false
	}
	return c.token, true
}

func (c *MemoryTokenCache) Set(token string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.expiry = c.nowFunc().Add(ttl)
}
