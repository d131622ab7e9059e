package path

import (
	"container/list"

	"stonedelve.sim/internal/sim/grid"
)

// cacheKey includes the passability epoch: any grid change that alters
// traversability bumps the epoch, so entries computed under older epochs
// simply never match again. The cache is purged lazily through LRU
// eviction, never eagerly scanned.
type cacheKey struct {
	start grid.Vec3
	goal  grid.Vec3
	epoch uint64
}

type lruCache struct {
	cap     int
	order   *list.List // front = most recently used
	entries map[cacheKey]*list.Element
}

type lruEntry struct {
	key  cacheKey
	path Path
}

func newLRU(capacity int) *lruCache {
	return &lruCache{
		cap:     capacity,
		order:   list.New(),
		entries: map[cacheKey]*list.Element{},
	}
}

func (c *lruCache) get(k cacheKey) (Path, bool) {
	el, ok := c.entries[k]
	if !ok {
		return Path{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*lruEntry).path, true
}

func (c *lruCache) put(k cacheKey, p Path) {
	if el, ok := c.entries[k]; ok {
		el.Value.(*lruEntry).path = p
		c.order.MoveToFront(el)
		return
	}
	el := c.order.PushFront(&lruEntry{key: k, path: p})
	c.entries[k] = el
	for c.order.Len() > c.cap {
		last := c.order.Back()
		c.order.Remove(last)
		delete(c.entries, last.Value.(*lruEntry).key)
	}
}

func (c *lruCache) len() int { return c.order.Len() }

// CacheLen reports how many entries the cache currently holds.
func (e *Engine) CacheLen() int { return e.cache.len() }
