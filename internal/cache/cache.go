// Package cache memoizes listing responses for a short TTL.
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

const (
	defaultSize = 64
	defaultTTL  = 5 * time.Minute
)

type Cache struct {
	lru   *expirable.LRU[string, any]
	group singleflight.Group
	// generation changes on every invalidation. A load that started under an
	// older generation returns its value but does not store it.
	generation atomic.Uint64
	// mu orders stores against invalidations.
	mu sync.Mutex
}

func New(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = defaultSize
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{lru: expirable.NewLRU[string, any](size, nil, ttl)}
}

// GetOrLoad returns the cached value for key or calls load once, even when
// several callers miss at the same time. Errors are not cached.
func GetOrLoad[T any](ctx context.Context, c *Cache, key string, load func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if c == nil {
		return load(ctx)
	}
	if v, ok := c.lru.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}

	gen := c.generation.Load()
	v, err, _ := c.group.Do(flightKey(gen, key), func() (any, error) {
		val, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.generation.Load() == gen {
			c.lru.Add(key, val)
		}
		c.mu.Unlock()
		return val, nil
	})
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache: unexpected type %T for key %s", v, key)
	}
	return typed, nil
}

// flightKey scopes in-flight loads to a generation so callers arriving after
// an invalidation never join a load that read pre-mutation data.
func flightKey(gen uint64, key string) string {
	return fmt.Sprintf("%d|%s", gen, key)
}

// InvalidatePrefix drops every entry whose key starts with prefix. Loads
// already in flight are not stored.
func (c *Cache) InvalidatePrefix(prefix string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation.Add(1)
	for _, k := range c.lru.Keys() {
		if strings.HasPrefix(k, prefix) {
			c.lru.Remove(k)
		}
	}
}

func (c *Cache) Purge() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation.Add(1)
	c.lru.Purge()
}

func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
