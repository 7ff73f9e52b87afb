// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache provides an in-process TTL cache with lazy and periodic
// expiry, and deterministic key generation for cached operations.
package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultTTL applies when Set is given a non-positive ttl.
const DefaultTTL = 24 * time.Hour

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// expired is the single expiry rule shared by reads and sweeps.
func (e entry[V]) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// Cache maps string keys to values with an absolute expiry per entry.
// Entries are evicted by time only.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
	now     func() time.Time
	log     *zap.SugaredLogger
	name    string
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	now  func() time.Time
	log  *zap.SugaredLogger
	name string
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the logger used by Run.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithName labels the cache in log output.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// New returns an empty cache.
func New[V any](opts ...Option) *Cache[V] {
	o := options{now: time.Now, log: zap.NewNop().Sugar(), name: "cache"}
	for _, fn := range opts {
		fn(&o)
	}
	return &Cache[V]{
		entries: make(map[string]entry[V]),
		now:     o.now,
		log:     o.log,
		name:    o.name,
	}
}

// Name returns the cache label.
func (c *Cache[V]) Name() string { return c.name }

// Set stores value under key until now+ttl.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(ttl)}
}

// Get returns the value for key. An expired entry is evicted and reported
// as a miss.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if e.expired(c.now()) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Has reports whether key holds an unexpired value.
func (c *Cache[V]) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Delete removes key.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes every entry.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V])
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Sweep evicts expired entries and returns how many were removed.
func (c *Cache[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (c *Cache[V]) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := c.Sweep(); n > 0 {
				c.log.Debugw("cache sweep", "cache", c.name, "removed", n)
			}
		}
	}
}
