package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-memory Cache bounded by Policy.MaxEntries.
type MemoryCache[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
	max     int
	now     func() time.Time
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// NewMemoryCache creates an in-memory cache sized by policy.
func NewMemoryCache[V any](policy Policy) *MemoryCache[V] {
	n := policy.MaxEntries
	if n <= 0 {
		n = DefaultMaxEntries
	}
	return &MemoryCache[V]{entries: make(map[string]entry[V]), max: n, now: time.Now}
}

// Get returns the value under key unless it has expired.
func (c *MemoryCache[V]) Get(_ context.Context, key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value for ttl. When full, expired entries are purged first,
// then the entry closest to expiry is evicted.
func (c *MemoryCache[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	if key == "" {
		return ErrInvalidKey
	}
	if ttl <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.max {
		c.evictLocked(now)
	}
	c.entries[key] = entry[V]{value: value, expiresAt: now.Add(ttl)}
	return nil
}

// Delete removes key.
func (c *MemoryCache[V]) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *MemoryCache[V]) evictLocked(now time.Time) {
	var (
		soonest string
		at      time.Time
	)
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			continue
		}
		if soonest == "" || e.expiresAt.Before(at) {
			soonest, at = k, e.expiresAt
		}
	}
	if len(c.entries) >= c.max && soonest != "" {
		delete(c.entries, soonest)
	}
}

var _ Cache[int] = (*MemoryCache[int])(nil)
