package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRUCache holds at most capacity values, each valid for ttl after its last
// write. Reads refresh recency but not the deadline.
type LRUCache[T any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	now      func() time.Time
	index    map[string]*list.Element
	order    *list.List // front is most recently used
}

type slot[T any] struct {
	key      string
	value    T
	deadline time.Time
}

// NewLRUCache returns an empty cache. A capacity below 1 is raised to 1.
func NewLRUCache[T any](capacity int, ttl time.Duration) *LRUCache[T] {
	return &LRUCache[T]{
		capacity: max(capacity, 1),
		ttl:      ttl,
		now:      time.Now,
		index:    map[string]*list.Element{},
		order:    list.New(),
	}
}

func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[key]
	if !ok {
		var zero T
		return zero, false
	}
	s := el.Value.(*slot[T])
	if c.stale(s, c.now()) {
		c.unlink(el)
		var zero T
		return zero, false
	}
	c.order.MoveToFront(el)
	return s.value, true
}

func (c *LRUCache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &slot[T]{key: key, value: value, deadline: c.now().Add(c.ttl)}
	if el, ok := c.index[key]; ok {
		el.Value = s
		c.order.MoveToFront(el)
		return
	}
	c.index[key] = c.order.PushFront(s)
	for c.order.Len() > c.capacity {
		c.unlink(c.order.Back())
	}
}

func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[key]; ok {
		c.unlink(el)
	}
}

// Purge empties the cache and reports how many values it held.
func (c *LRUCache[T]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.order.Len()
	clear(c.index)
	c.order.Init()
	return n
}

// CleanExpired drops values past their deadline and reports how many went.
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	dropped := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if c.stale(el.Value.(*slot[T]), now) {
			c.unlink(el)
			dropped++
		}
		el = prev
	}
	return dropped
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *LRUCache[T]) stale(s *slot[T], now time.Time) bool {
	return now.After(s.deadline)
}

func (c *LRUCache[T]) unlink(el *list.Element) {
	delete(c.index, el.Value.(*slot[T]).key)
	c.order.Remove(el)
}
