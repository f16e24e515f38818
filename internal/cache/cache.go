package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// entry is a cached value with expiration
type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is an in-memory LRU cache with TTL support
type Cache[V any] struct {
	lru *lru.Cache[string, *entry[V]]
	ttl time.Duration

	done      chan struct{}
	closeOnce sync.Once
}

// New creates a new in-memory cache holding up to size entries, each
// expiring ttl after it was stored.
func New[V any](size int, ttl time.Duration) (*Cache[V], error) {
	inner, err := lru.New[string, *entry[V]](size)
	if err != nil {
		return nil, err
	}

	c := &Cache[V]{
		lru:  inner,
		ttl:  ttl,
		done: make(chan struct{}),
	}

	// Start background cleanup goroutine
	go c.cleanupLoop()

	return c, nil
}

// Get retrieves a value from the cache
func (c *Cache[V]) Get(key string) (V, bool) {
	e, ok := c.lru.Get(key)
	if !ok {
		var zero V
		return zero, false
	}

	// Check if entry has expired
	if time.Now().After(e.expiresAt) {
		c.lru.Remove(key)
		var zero V
		return zero, false
	}

	return e.value, true
}

// Set stores a value in the cache
func (c *Cache[V]) Set(key string, value V) {
	c.lru.Add(key, &entry[V]{
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	})
}

// Len returns the number of entries currently stored, expired or not
func (c *Cache[V]) Len() int {
	return c.lru.Len()
}

// Close stops the cache cleanup goroutine
func (c *Cache[V]) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// cleanupLoop periodically removes expired entries
func (c *Cache[V]) cleanupLoop() {
	ticker := time.NewTicker(c.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.done:
			return
		}
	}
}

// removeExpired removes all expired entries from the cache
func (c *Cache[V]) removeExpired() {
	now := time.Now()
	for _, key := range c.lru.Keys() {
		e, ok := c.lru.Peek(key)
		if ok && now.After(e.expiresAt) {
			c.lru.Remove(key)
		}
	}
}
