package cache

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryClient is an in-process LRU cache. Entries expire after their own
// TTL or after maxTTL, whichever comes first.
type MemoryClient struct {
	lru *expirable.LRU[string, entry]
	now func() time.Time
}

// NewMemoryClient creates a MemoryClient holding at most maxEntries.
func NewMemoryClient(maxEntries int, maxTTL time.Duration) *MemoryClient {
	if maxEntries <= 0 {
		maxEntries = 512
	}
	return &MemoryClient{
		lru: expirable.NewLRU[string, entry](maxEntries, nil, maxTTL),
		now: time.Now,
	}
}

// Get retrieves a value from cache.
func (c *MemoryClient) Get(_ context.Context, key string) ([]byte, error) {
	e, ok := c.lru.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	if !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		c.lru.Remove(key)
		return nil, ErrCacheMiss
	}
	return e.value, nil
}

// Set stores a value. A ttl <= 0 relies on maxTTL alone.
func (c *MemoryClient) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	c.lru.Add(key, e)
	return nil
}

// Delete removes a value from cache.
func (c *MemoryClient) Delete(_ context.Context, key string) error {
	c.lru.Remove(key)
	return nil
}

// DeleteByPrefix removes all keys with the given prefix.
func (c *MemoryClient) DeleteByPrefix(_ context.Context, prefix string) error {
	for _, key := range c.lru.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.lru.Remove(key)
		}
	}
	return nil
}

// Close purges the cache.
func (c *MemoryClient) Close() error {
	c.lru.Purge()
	return nil
}
