package cache

import (
	"sync"
	"time"
)

// Cache is a minimal TTL cache used on the webhook hot path.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V, ttl time.Duration)
	// SetIfAbsent stores value only when key is missing or expired and
	// reports whether it did.
	SetIfAbsent(key K, value V, ttl time.Duration) bool
	Delete(key K)
}

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache stores values in memory with per-entry TTLs. Expired entries are
// removed lazily: on lookup of the entry itself, and by a full sweep at most
// once per sweep interval.
type TTLCache[K comparable, V any] struct {
	mu            sync.Mutex
	items         map[K]cacheEntry[V]
	now           func() time.Time
	sweepInterval time.Duration
	lastSweep     time.Time
}

// NewTTLCache constructs a TTLCache. A nil now uses time.Now.
func NewTTLCache[K comparable, V any](now func() time.Time, sweepInterval time.Duration) *TTLCache[K, V] {
	if now == nil {
		now = time.Now
	}
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	return &TTLCache[K, V]{
		items:         make(map[K]cacheEntry[V]),
		now:           now,
		sweepInterval: sweepInterval,
		lastSweep:     now(),
	}
}

func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.sweepLocked(now)
	entry, ok := c.items[key]
	if !ok {
		return zero, false
	}
	if entry.expired(now) {
		delete(c.items, key)
		return zero, false
	}
	return entry.value, true
}

func (c *TTLCache[K, V]) Set(key K, value V, ttl time.Duration) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.sweepLocked(now)
	c.items[key] = newEntry(value, now, ttl)
}

func (c *TTLCache[K, V]) SetIfAbsent(key K, value V, ttl time.Duration) bool {
	if c == nil {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.sweepLocked(now)
	if entry, ok := c.items[key]; ok && !entry.expired(now) {
		return false
	}
	c.items[key] = newEntry(value, now, ttl)
	return true
}

func (c *TTLCache[K, V]) Delete(key K) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired or not.
func (c *TTLCache[K, V]) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Clear drops every entry.
func (c *TTLCache[K, V]) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.items = make(map[K]cacheEntry[V])
	c.mu.Unlock()
}

func (c *TTLCache[K, V]) sweepLocked(now time.Time) {
	if now.Sub(c.lastSweep) < c.sweepInterval {
		return
	}
	for key, entry := range c.items {
		if entry.expired(now) {
			delete(c.items, key)
		}
	}
	c.lastSweep = now
}

func newEntry[V any](value V, now time.Time, ttl time.Duration) cacheEntry[V] {
	entry := cacheEntry[V]{value: value}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}
	return entry
}

func (e cacheEntry[V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}
