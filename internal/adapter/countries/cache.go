package countries

import (
	"container/list"
	"context"
	"strings"
	"sync"

	"github.com/OCHA-DAP/hdx-foodsecurity-CERF/internal/domain"
	"github.com/OCHA-DAP/hdx-foodsecurity-CERF/internal/observability"
)

// CachedNamer wraps a CountryNamer with an in-memory LRU cache.
type CachedNamer struct {
	inner   domain.CountryNamer
	cache   *lruCache[string]
	metrics *observability.Metrics
}

// NewCachedNamer creates a cache decorator around a namer.
func NewCachedNamer(inner domain.CountryNamer, maxEntries int, metrics *observability.Metrics) *CachedNamer {
	return &CachedNamer{
		inner:   inner,
		cache:   newLRUCache[string](maxEntries),
		metrics: metrics,
	}
}

func (c *CachedNamer) CountryName(ctx context.Context, code string) (string, error) {
	key := strings.ToUpper(code)
	if name, ok := c.cache.get(key); ok {
		c.metrics.CountryCache.WithLabelValues("hit").Inc()
		return name, nil
	}
	c.metrics.CountryCache.WithLabelValues("miss").Inc()

	name, err := c.inner.CountryName(ctx, code)
	if err != nil {
		return name, err
	}
	// Only cache non-empty names so transient "not found" responses can be retried.
	if name != "" {
		c.cache.put(key, name)
	}
	return name, nil
}

// lruCache is a mutex-guarded LRU map. The front of order is the most
// recently used key.
type lruCache[V any] struct {
	mu    sync.Mutex
	limit int
	order *list.List
	items map[string]*list.Element
}

type cached[V any] struct {
	key string
	val V
}

func newLRUCache[V any](limit int) *lruCache[V] {
	return &lruCache[V]{
		limit: limit,
		order: list.New(),
		items: make(map[string]*list.Element),
	}
}

func (c *lruCache[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cached[V]).val, true
}

func (c *lruCache[V]) put(key string, val V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*cached[V]).val = val
		c.order.MoveToFront(el)
		return
	}
	c.items[key] = c.order.PushFront(&cached[V]{key: key, val: val})

	for c.order.Len() > c.limit {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*cached[V]).key)
	}
}
