// Package cache is a size bounded TTL cache with an injected clock.
//
// Instances are created by the composition root and handed to the components
// that use them; there is no package level cache state.
package cache

import (
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Clock returns the current time.
type Clock func() time.Time

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Expired   uint64 `json:"expired"`
	Entries   int    `json:"entries"`
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache maps keys to values that expire ttl after insertion.
type Cache[K comparable, V any] struct {
	lru   *lru.Cache[K, entry[V]]
	ttl   time.Duration
	clock Clock

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
	expired   atomic.Uint64
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	clock Clock
}

// WithClock overrides time.Now, mainly for tests.
func WithClock(clock Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// New creates a cache holding at most size entries.
func New[K comparable, V any](size int, ttl time.Duration, opts ...Option) (*Cache[K, V], error) {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	l, err := lru.New[K, entry[V]](size)
	if err != nil {
		return nil, err
	}
	return &Cache[K, V]{lru: l, ttl: ttl, clock: o.clock}, nil
}

// Get returns the cached value when present and not expired.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	var zero V
	e, ok := c.lru.Get(key)
	if !ok {
		c.misses.Add(1)
		return zero, false
	}
	if !c.clock().Before(e.expiresAt) {
		c.lru.Remove(key)
		c.expired.Add(1)
		c.misses.Add(1)
		return zero, false
	}
	c.hits.Add(1)
	return e.value, true
}

// Set stores value under key, replacing any previous value. Evictions count
// entries pushed out by the size bound.
func (c *Cache[K, V]) Set(key K, value V) {
	if c.lru.Add(key, entry[V]{value: value, expiresAt: c.clock().Add(c.ttl)}) {
		c.evictions.Add(1)
	}
}

// Delete drops key.
func (c *Cache[K, V]) Delete(key K) {
	c.lru.Remove(key)
}

// Purge drops every entry.
func (c *Cache[K, V]) Purge() {
	c.lru.Purge()
}

// Stats returns the current counters.
func (c *Cache[K, V]) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Expired:   c.expired.Load(),
		Entries:   c.lru.Len(),
	}
}
