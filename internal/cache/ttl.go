// Package cache provides a keyed TTL cache used for composite analyses
// and LLM verdicts. It centralizes the read-check-timestamp pattern so
// freshness decisions live in one place.
package cache

import (
	"sync"
	"time"
)

// Entry pairs a cached value with the timestamp of its last mutation.
type Entry[V any] struct {
	Value     V
	Timestamp time.Time
}

// TTL is a thread-safe map from string key to value with a fixed
// time-to-live. Entries are never deleted on expiry; they age out and
// are overwritten by the next Put.
type TTL[V any] struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]Entry[V]
	now     func() time.Time
}

// NewTTL creates a cache with the given time-to-live.
func NewTTL[V any](ttl time.Duration) *TTL[V] {
	return &TTL[V]{
		ttl:     ttl,
		entries: make(map[string]Entry[V]),
		now:     time.Now,
	}
}

// SetClock overrides the time source. Intended for tests.
func (c *TTL[V]) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// TTLDuration returns the configured time-to-live.
func (c *TTL[V]) TTLDuration() time.Duration {
	return c.ttl
}

// GetIfFresh returns the entry for key if it exists and its timestamp
// is within the TTL.
func (c *TTL[V]) GetIfFresh(key string) (Entry[V], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return Entry[V]{}, false
	}
	if c.now().Sub(e.Timestamp) >= c.ttl {
		return Entry[V]{}, false
	}
	return e, true
}

// Get returns the entry for key regardless of freshness.
func (c *TTL[V]) Get(key string) (Entry[V], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	return e, ok
}

// Put stores value under key with the current time as its timestamp.
func (c *TTL[V]) Put(key string, value V) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts := c.now()
	c.entries[key] = Entry[V]{Value: value, Timestamp: ts}
	return ts
}

// PutIfNewer stores value under key with timestamp ts unless an entry
// with a later timestamp already exists. Last-writer-wins is decided on
// entry timestamps, not call order, so a slow full refresh cannot
// clobber a more recent transaction patch.
func (c *TTL[V]) PutIfNewer(key string, value V, ts time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[key]; ok && existing.Timestamp.After(ts) {
		return false
	}
	c.entries[key] = Entry[V]{Value: value, Timestamp: ts}
	return true
}

// Backdate soft-invalidates the entry for key by moving its timestamp
// to just beyond the TTL, so the next GetIfFresh misses without the
// entry being removed. Returns false if no entry exists.
func (c *TTL[V]) Backdate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	e.Timestamp = c.now().Add(-c.ttl - time.Millisecond)
	c.entries[key] = e
	return true
}

// Invalidate removes the entry for key.
func (c *TTL[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len returns the number of entries, fresh or stale.
func (c *TTL[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
