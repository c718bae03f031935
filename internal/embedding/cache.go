package embedding

import (
	"context"
	"sync"
)

type node struct {
	prev, next *node
	key        string
	value      []float32
}

// lruCache is a doubly linked list with sentinel head and tail; the most
// recently used entry sits right after head.
type lruCache struct {
	head, tail *node
	items      map[string]*node
	capacity   int
}

func newLRUCache(capacity int) *lruCache {
	head, tail := &node{}, &node{}
	head.next = tail
	tail.prev = head

	return &lruCache{
		head:     head,
		tail:     tail,
		items:    make(map[string]*node),
		capacity: capacity,
	}
}

func (c *lruCache) remove(n *node) {
	delete(c.items, n.key)
	n.prev.next = n.next
	n.next.prev = n.prev
}

func (c *lruCache) insert(n *node) {
	c.items[n.key] = n
	next := c.head.next
	c.head.next = n
	n.prev = c.head
	next.prev = n
	n.next = next
}

func (c *lruCache) get(key string) ([]float32, bool) {
	n, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.remove(n)
	c.insert(n)
	return n.value, true
}

func (c *lruCache) put(key string, value []float32) {
	if n, ok := c.items[key]; ok {
		c.remove(n)
	}
	if len(c.items) == c.capacity {
		c.remove(c.tail.prev)
	}
	c.insert(&node{key: key, value: value})
}

func (c *lruCache) len() int {
	return len(c.items)
}

// CachedEmbedder keeps the most recent single-text embeddings in memory.
// Batch calls go straight to the wrapped embedder.
type CachedEmbedder struct {
	Embedder
	mu    sync.Mutex
	cache *lruCache
}

func NewCachedEmbedder(embedder Embedder, capacity int) *CachedEmbedder {
	if capacity <= 0 {
		capacity = 256
	}
	return &CachedEmbedder{
		Embedder: embedder,
		cache:    newLRUCache(capacity),
	}
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.mu.Lock()
	cached, ok := c.cache.get(text)
	c.mu.Unlock()
	if ok {
		return clone(cached), nil
	}

	vector, err := c.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache.put(text, clone(vector))
	c.mu.Unlock()

	return vector, nil
}

// Len reports the number of cached entries
func (c *CachedEmbedder) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.len()
}

func clone(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
