package cachemem

import (
	"context"
	"errors"
	"sync"
	"time"

	"jsonsig/internal/domain"
)

// Cache is a read-through KeyStore decorator for remote backends. Hits are
// kept for the configured TTL; misses are never cached so a key set by
// another process becomes visible on the next lookup.
type Cache struct {
	next domain.KeyStore
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	value     domain.KeyPair
	expiresAt time.Time
	hasExpiry bool
}

// New wraps next. A ttl of zero or less keeps entries until replaced.
func New(next domain.KeyStore, ttl time.Duration) *Cache {
	return &Cache{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

func (c *Cache) Get(ctx context.Context, id string) (*domain.KeyPair, bool, error) {
	if c == nil || c.next == nil {
		return nil, false, errors.New("cache backend is required")
	}
	if pair, ok := c.lookup(id); ok {
		return pair, true, nil
	}
	pair, ok, err := c.next.Get(ctx, id)
	if err != nil || !ok {
		return pair, ok, err
	}
	c.store(id, *pair)
	value := *pair
	return &value, true, nil
}

func (c *Cache) Set(ctx context.Context, id string, pair domain.KeyPair) error {
	if c == nil || c.next == nil {
		return errors.New("cache backend is required")
	}
	if err := c.next.Set(ctx, id, pair); err != nil {
		c.evict(id)
		return err
	}
	c.store(id, pair)
	return nil
}

func (c *Cache) lookup(id string) (*domain.KeyPair, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	if entry.hasExpiry && c.now().After(entry.expiresAt) {
		delete(c.entries, id)
		return nil, false
	}
	value := entry.value
	return &value, true
}

func (c *Cache) store(id string, pair domain.KeyPair) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := cacheEntry{value: pair}
	if c.ttl > 0 {
		entry.hasExpiry = true
		entry.expiresAt = c.now().Add(c.ttl)
	}
	c.entries[id] = entry
}

func (c *Cache) evict(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

var _ domain.KeyStore = (*Cache)(nil)
