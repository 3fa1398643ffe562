package cache

import (
	"container/list"
	"context"
	"encoding/json"
	"sync"
	"time"
)

type memoryEntry struct {
	key       string
	payload   []byte
	expiresAt time.Time // zero means no expiry
}

// MemoryCache is an in-process LRU with per-entry TTL. Values are stored as
// JSON so callers observe the same copy semantics as with RedisCache.
type MemoryCache struct {
	mu       sync.Mutex
	clock    Clock
	capacity int
	ll       *list.List
	items    map[string]*list.Element
}

// NewMemoryCache returns a cache holding at most capacity entries.
// capacity <= 0 means unbounded; a nil clock means SystemClock.
func NewMemoryCache(capacity int, clock Clock) *MemoryCache {
	if clock == nil {
		clock = SystemClock
	}
	return &MemoryCache{
		clock:    clock,
		capacity: capacity,
		ll:       list.New(),
		items:    map[string]*list.Element{},
	}
}

func (c *MemoryCache) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	el, ok := c.items[key]
	if !ok {
		c.mu.Unlock()
		return false, nil
	}
	e := el.Value.(*memoryEntry)
	if !e.expiresAt.IsZero() && !c.clock.Now().Before(e.expiresAt) {
		c.removeElement(el)
		c.mu.Unlock()
		return false, nil
	}
	c.ll.MoveToFront(el)
	payload := e.payload
	c.mu.Unlock()

	if err := json.Unmarshal(payload, dst); err != nil {
		c.removeIfCurrent(key, e)
		return false, nil
	}
	return true, nil
}

// removeIfCurrent drops key only while it still holds e; a value stored
// after e was read stays.
func (c *MemoryCache) removeIfCurrent(key string, e *memoryEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok && el.Value.(*memoryEntry) == e {
		c.removeElement(el)
	}
}

func (c *MemoryCache) SetJSON(_ context.Context, key string, val any, ttl time.Duration) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}

	var exp time.Time
	if ttl > 0 {
		exp = c.clock.Now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value = &memoryEntry{key: key, payload: b, expiresAt: exp}
		c.ll.MoveToFront(el)
		return nil
	}

	c.items[key] = c.ll.PushFront(&memoryEntry{key: key, payload: b, expiresAt: exp})
	for c.capacity > 0 && c.ll.Len() > c.capacity {
		c.removeElement(c.ll.Back())
	}
	return nil
}

func (c *MemoryCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		if el, ok := c.items[k]; ok {
			c.removeElement(el)
		}
	}
	return nil
}

// Len reports the number of entries, expired ones included until they are touched.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

func (c *MemoryCache) removeElement(el *list.Element) {
	c.ll.Remove(el)
	delete(c.items, el.Value.(*memoryEntry).key)
}
