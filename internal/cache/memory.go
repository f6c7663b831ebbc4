// internal/cache/memory.go

// Package cache provides a small in-memory TTL cache used for scoped entry
// reads. Entries are invalidated by realtime change events and expire on
// their own as a backstop.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type item struct {
	value     any
	expiresAt time.Time
}

type InMemoryCache struct {
	ttl         time.Duration
	cleanupFreq time.Duration

	mu    sync.RWMutex
	items map[string]item

	stopOnce sync.Once
	stop     chan struct{}
}

func NewInMemoryCache(ttl, cleanupFreq time.Duration) *InMemoryCache {
	return &InMemoryCache{
		ttl:         ttl,
		cleanupFreq: cleanupFreq,
		items:       map[string]item{},
		stop:        make(chan struct{}),
	}
}

func (c *InMemoryCache) Set(_ context.Context, key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = item{value: value, expiresAt: time.Now().Add(c.ttl)}
}

func (c *InMemoryCache) Get(_ context.Context, key string) (any, bool) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(it.expiresAt) {
		return nil, false
	}
	return it.value, true
}

func (c *InMemoryCache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// DeletePrefix removes every key with the given prefix. Deleting keys that
// are already gone is a no-op, which keeps realtime invalidation idempotent.
func (c *InMemoryCache) DeletePrefix(_ context.Context, prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
		}
	}
}

// StartCleanup begins periodic eviction of expired items.
func (c *InMemoryCache) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(c.cleanupFreq)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stop:
				return
			case <-ticker.C:
				c.evictExpired()
			}
		}
	}()
}

func (c *InMemoryCache) StopCleanup() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *InMemoryCache) evictExpired() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, it := range c.items {
		if now.After(it.expiresAt) {
			delete(c.items, k)
		}
	}
}
