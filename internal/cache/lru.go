package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRUCache is a size-bounded cache with per-entry TTL
type LRUCache[K comparable, V any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[K]*list.Element
	lru     *list.List
	now     func() time.Time

	hits   int64
	misses int64
}

type entry[K comparable, V any] struct {
	key       K
	data      V
	expiresAt time.Time
}

// NewLRUCache creates a new LRU cache. A non-positive ttl disables expiry.
func NewLRUCache[K comparable, V any](maxSize int, ttl time.Duration) *LRUCache[K, V] {
	if maxSize < 1 {
		maxSize = 1
	}
	return &LRUCache[K, V]{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[K]*list.Element),
		lru:     list.New(),
		now:     time.Now,
	}
}

// Get retrieves a value from the cache
func (c *LRUCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, exists := c.items[key]
	if !exists {
		c.misses++
		return zero, false
	}

	item := elem.Value.(*entry[K, V])
	if c.expired(item) {
		c.removeElement(elem)
		c.misses++
		return zero, false
	}

	c.lru.MoveToFront(elem)
	c.hits++
	return item.data, true
}

// Set stores a value in the cache
func (c *LRUCache[K, V]) Set(key K, data V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item := &entry[K, V]{key: key, data: data}
	if c.ttl > 0 {
		item.expiresAt = c.now().Add(c.ttl)
	}

	if elem, exists := c.items[key]; exists {
		elem.Value = item
		c.lru.MoveToFront(elem)
		return
	}

	c.items[key] = c.lru.PushFront(item)

	if c.lru.Len() > c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
}

// Delete removes a key from the cache
func (c *LRUCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.items[key]; exists {
		c.removeElement(elem)
	}
}

// Purge drops every entry.
func (c *LRUCache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]*list.Element)
	c.lru.Init()
}

func (c *LRUCache[K, V]) expired(item *entry[K, V]) bool {
	return c.ttl > 0 && c.now().After(item.expiresAt)
}

func (c *LRUCache[K, V]) removeElement(elem *list.Element) {
	item := elem.Value.(*entry[K, V])
	delete(c.items, item.key)
	c.lru.Remove(elem)
}

// CleanExpired removes all expired entries and returns count of removed items
func (c *LRUCache[K, V]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var toRemove []*list.Element
	for elem := c.lru.Front(); elem != nil; elem = elem.Next() {
		if c.expired(elem.Value.(*entry[K, V])) {
			toRemove = append(toRemove, elem)
		}
	}
	for _, elem := range toRemove {
		c.removeElement(elem)
	}
	return len(toRemove)
}

// Size returns the current number of items in the cache
func (c *LRUCache[K, V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns hit and miss counters.
func (c *LRUCache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses, Size: len(c.items)}
}
