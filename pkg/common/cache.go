package common

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// TTLCache is a small read-through cache for upstream responses. Concurrent
// loads of the same key are collapsed into a single upstream call.
type TTLCache[V any] struct {
	cache *expirable.LRU[string, V]
	group singleflight.Group
}

// NewTTLCache creates a cache holding up to size entries for ttl each
func NewTTLCache[V any](size int, ttl time.Duration) *TTLCache[V] {
	return &TTLCache[V]{
		cache: expirable.NewLRU[string, V](size, nil, ttl),
	}
}

// GetOrLoad returns the cached value for key, loading and caching it on miss
func (c *TTLCache[V]) GetOrLoad(key string, loader func() (V, error)) (V, error) {
	if v, ok := c.cache.Get(key); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.cache.Get(key); ok {
			return v, nil
		}
		loaded, err := loader()
		if err != nil {
			return loaded, err
		}
		c.cache.Add(key, loaded)
		return loaded, nil
	})
	return v.(V), err
}
