// Package cache provides a concurrency-safe memoization table for expensive
// build artifacts. Workers asking for the same missing key share a single
// computation instead of racing to repeat it.
package cache

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache maps string-like keys to computed values. Failed computations are
// not stored, so a later request retries them.
type Cache[K ~string, V any] struct {
	mu     sync.RWMutex
	values map[K]V
	flight singleflight.Group
}

func New[K ~string, V any]() *Cache[K, V] {
	return &Cache[K, V]{values: map[K]V{}}
}

// Get returns the cached value for key.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, found := c.values[key]
	return value, found
}

// GetOrCompute returns the cached value for key, computing and storing it on
// a miss. Concurrent callers with the same key share one compute invocation
// and all receive its result.
func (c *Cache[K, V]) GetOrCompute(key K, compute func() (V, error)) (V, error) {
	if value, found := c.Get(key); found {
		return value, nil
	}

	result, err, _ := c.flight.Do(string(key), func() (any, error) {
		if value, found := c.Get(key); found {
			return value, nil
		}
		value, err := compute()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.values[key] = value
		c.mu.Unlock()
		return value, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return result.(V), nil
}

// Len returns the number of stored values.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}
