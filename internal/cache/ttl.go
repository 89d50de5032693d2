// Package cache provides a small time-bounded cache for provider responses.
package cache

import (
	"sync"
	"time"
)

// Clock supplies the current time; tests substitute a manual clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock
func SystemClock() Clock {
	return systemClock{}
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL is a concurrency-safe cache whose entries expire a fixed duration after
// they were written. A later Set for the same key replaces the earlier value.
type TTL[V any] struct {
	mu      sync.RWMutex
	ttl     time.Duration
	clock   Clock
	entries map[string]entry[V]
}

// Option configures a TTL cache
type Option func(*options)

type options struct {
	clock Clock
}

// WithClock sets the clock used to stamp and expire entries
func WithClock(clock Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// NewTTL creates a cache whose entries live for ttl
func NewTTL[V any](ttl time.Duration, opts ...Option) *TTL[V] {
	o := &options{clock: SystemClock()}
	for _, opt := range opts {
		opt(o)
	}

	return &TTL[V]{
		ttl:     ttl,
		clock:   o.clock,
		entries: make(map[string]entry[V]),
	}
}

// Get returns the value for key if present and not expired
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false
	}
	if !c.clock.Now().Before(e.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have refreshed it
		if cur, ok := c.entries[key]; ok && !c.clock.Now().Before(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return zero, false
	}
	return e.value, true
}

// Set stores value under key for the cache TTL
func (c *TTL[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry[V]{
		value:     value,
		expiresAt: c.clock.Now().Add(c.ttl),
	}
}

// Delete removes key from the cache
func (c *TTL[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// Len returns the number of stored entries, expired or not
func (c *TTL[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
