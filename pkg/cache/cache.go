package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// ErrInvalidCapacity is returned by New for a capacity below 1.
var ErrInvalidCapacity = errors.New("cache capacity must be > 0")

// Config holds result cache configuration.
type Config struct {
	// Name labels metrics (e.g. "profile", "match_detail")
	Name string `yaml:"name"`

	// Capacity is the maximum number of entries before LRU eviction
	Capacity int `yaml:"capacity"`
}

// FetchFunc performs the underlying call for a cache miss.
type FetchFunc[V any] func(ctx context.Context) (V, error)

// Cache memoizes successful fetch outcomes per Key and collapses concurrent
// misses for the same key onto one fetch.
//
// A nil *Cache is valid and calls fetch directly.
type Cache[V any] struct {
	name     string
	capacity int
	entries  *lru.Cache[string, Entry[V]]
	flights  singleflight.Group
}

// New creates a cache with the given capacity.
func New[V any](cfg Config) (*Cache[V], error) {
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidCapacity, cfg.Capacity)
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}

	c := &Cache[V]{name: cfg.Name, capacity: cfg.Capacity}
	entries, err := lru.NewWithEvict(cfg.Capacity, func(string, Entry[V]) {
		CacheEvictions.WithLabelValues(c.name).Inc()
	})
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	c.entries = entries
	return c, nil
}

// abandonedError marks a fetch that failed because the caller that started
// it went away. Waiters that are still alive start a new fetch.
type abandonedError struct {
	err error
}

func (e *abandonedError) Error() string { return e.err.Error() }
func (e *abandonedError) Unwrap() error { return e.err }

// GetOrFetch returns the cached value for key or runs fetch to produce it.
// Only successful outcomes are stored; an error is returned to every caller
// that shared the failed fetch and the next call fetches again.
func (c *Cache[V]) GetOrFetch(ctx context.Context, key Key, fetch FetchFunc[V]) (V, error) {
	var zero V
	if c == nil {
		return fetch(ctx)
	}

	k := key.String()
	if e, ok := c.entries.Get(k); ok {
		CacheHits.WithLabelValues(c.name).Inc()
		return e.Value, nil
	}
	CacheMisses.WithLabelValues(c.name).Inc()

	for {
		ch := c.flights.DoChan(k, func() (any, error) {
			// a flight that finished between our lookup and DoChan already stored it
			if e, ok := c.entries.Peek(k); ok {
				return e.Value, nil
			}
			v, err := fetch(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil, &abandonedError{err: err}
				}
				return nil, err
			}
			c.entries.Add(k, Entry[V]{Key: key, Value: v, CreatedAt: time.Now()})
			CacheEntries.WithLabelValues(c.name).Set(float64(c.entries.Len()))
			return v, nil
		})

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case res := <-ch:
			if res.Shared {
				CacheShared.WithLabelValues(c.name).Inc()
			}
			if res.Err != nil {
				var abandoned *abandonedError
				if errors.As(res.Err, &abandoned) {
					if ctx.Err() == nil {
						continue
					}
					return zero, abandoned.err
				}
				return zero, res.Err
			}
			v, _ := res.Val.(V)
			return v, nil
		}
	}
}

// Get returns the entry for key without fetching.
func (c *Cache[V]) Get(key Key) (Entry[V], bool) {
	if c == nil {
		return Entry[V]{}, false
	}
	e, ok := c.entries.Get(key.String())
	if ok {
		CacheHits.WithLabelValues(c.name).Inc()
	}
	return e, ok
}

// Contains reports whether key is cached without touching recency.
func (c *Cache[V]) Contains(key Key) bool {
	if c == nil {
		return false
	}
	return c.entries.Contains(key.String())
}

// Remove drops the entry for key.
func (c *Cache[V]) Remove(key Key) bool {
	if c == nil {
		return false
	}
	removed := c.entries.Remove(key.String())
	CacheEntries.WithLabelValues(c.name).Set(float64(c.entries.Len()))
	return removed
}

// Purge drops every entry.
func (c *Cache[V]) Purge() {
	if c == nil {
		return
	}
	c.entries.Purge()
	CacheEntries.WithLabelValues(c.name).Set(0)
}

// Len returns the number of cached entries.
func (c *Cache[V]) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}

// Name returns the cache name.
func (c *Cache[V]) Name() string {
	if c == nil {
		return ""
	}
	return c.name
}

// Capacity returns the configured capacity.
func (c *Cache[V]) Capacity() int {
	if c == nil {
		return 0
	}
	return c.capacity
}
