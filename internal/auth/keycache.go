package auth

import (
	"sync"
	"time"
)

type keyEntry struct {
	active    bool
	expiresAt time.Time
}

type keyCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]keyEntry
	now     func() time.Time
}

func newKeyCache(ttl time.Duration) *keyCache {
	return &keyCache{ttl: ttl, entries: make(map[string]keyEntry), now: time.Now}
}

func (c *keyCache) get(key string) (active, ok bool) {
	c.mu.RLock()
	e, found := c.entries[key]
	c.mu.RUnlock()
	if !found || !c.now().Before(e.expiresAt) {
		return false, false
	}
	return e.active, true
}

func (c *keyCache) put(key string, active bool) {
	c.mu.Lock()
	c.entries[key] = keyEntry{active: active, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}
