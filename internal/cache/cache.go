package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Source reports where a Value came from.
type Source string

const (
	SourceCache    Source = "cache"
	SourceComputed Source = "computed"
)

// Value is a memoized calculator outcome. Negatives is non-empty when the
// input was rejected; that outcome is cached like any other.
type Value struct {
	Sum        int
	Negatives  []int
	Delimiters []string
	Ignored    []int
	ComputedAt time.Time
}

type item struct {
	val       Value
	expiresAt time.Time
}

// Cache is a TTL cache keyed by raw input, with singleflight coalescing per key.
// Expired entries are dropped on read and by Sweep; a bounded cache also
// evicts the entry closest to expiry when a new key would exceed the bound.
type Cache struct {
	mu         sync.RWMutex
	items      map[string]item
	ttl        time.Duration
	maxEntries int
	group      singleflight.Group
	now        func() time.Time
}

func New(ttl time.Duration) *Cache { return NewBounded(ttl, 0) }

// NewBounded returns a cache holding at most maxEntries items; 0 means no bound.
func NewBounded(ttl time.Duration, maxEntries int) *Cache {
	if maxEntries < 0 {
		maxEntries = 0
	}
	return &Cache{items: make(map[string]item), ttl: ttl, maxEntries: maxEntries, now: time.Now}
}

// GetOrCompute returns a live cached value, or runs compute once for all
// concurrent callers of the same key and stores the result.
func (c *Cache) GetOrCompute(ctx context.Context, key string, compute func(context.Context) (Value, error)) (Value, Source, error) {
	if v, ok := c.get(key); ok {
		return v, SourceCache, nil
	}

	res, err, _ := c.group.Do(key, func() (interface{}, error) {
		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.store(key, v)
		return v, nil
	})
	if err != nil {
		return Value{}, "", err
	}
	return res.(Value), SourceComputed, nil
}

func (c *Cache) store(key string, v Value) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if _, exists := c.items[key]; !exists && c.maxEntries > 0 && len(c.items) >= c.maxEntries {
		c.sweepLocked(now)
		if len(c.items) >= c.maxEntries {
			c.evictSoonestLocked()
		}
	}
	c.items[key] = item{val: v, expiresAt: now.Add(c.ttl)}
}

func (c *Cache) evictSoonestLocked() {
	var (
		victim string
		soon   time.Time
		found  bool
	)
	for k, it := range c.items {
		if !found || it.expiresAt.Before(soon) {
			victim, soon, found = k, it.expiresAt, true
		}
	}
	if found {
		delete(c.items, victim)
	}
}

func (c *Cache) sweepLocked(now time.Time) int {
	n := 0
	for k, it := range c.items {
		if !now.Before(it.expiresAt) {
			delete(c.items, k)
			n++
		}
	}
	return n
}

// Sweep removes every expired entry and returns how many were dropped.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked(c.now())
}

// StartSweeper runs Sweep every interval until the returned stop func is
// called. stop is safe to call more than once.
func (c *Cache) StartSweeper(interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = time.Minute
	}
	stopCh := make(chan struct{})
	var once sync.Once
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-t.C:
				c.Sweep()
			}
		}
	}()
	return func() { once.Do(func() { close(stopCh) }) }
}

func (c *Cache) get(key string) (Value, bool) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return Value{}, false
	}
	if c.now().Before(it.expiresAt) {
		return it.val, true
	}
	c.mu.Lock()
	// another caller may have refreshed it meanwhile
	if cur, ok := c.items[key]; ok && !c.now().Before(cur.expiresAt) {
		delete(c.items, key)
	}
	c.mu.Unlock()
	return Value{}, false
}

// Purge drops every entry and returns how many were removed.
func (c *Cache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.items)
	c.items = make(map[string]item)
	return n
}

// Len returns the number of items in the cache (for tests).
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
