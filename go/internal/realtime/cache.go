package realtime

import (
	"sync"

	"github.com/mcdev12/prophecy/go/internal/models"
)

// CacheReader is the read-only view of an entity cache handed to rendering
// code. Only the sync loop writes through *Cache.
type CacheReader[T models.Entity] interface {
	Get(id string) (T, bool)
	All() []T
	Len() int
}

// Cache maps entity id to the latest known representation of that entity.
type Cache[T models.Entity] struct {
	mu      sync.RWMutex
	entries map[string]T
}

// NewCache creates an empty cache
func NewCache[T models.Entity]() *Cache[T] {
	return &Cache[T]{entries: make(map[string]T)}
}

// Get returns the entity stored under id
func (c *Cache[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[id]
	return v, ok
}

// All returns a copy of every cached entity in no particular order
func (c *Cache[T]) All() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, 0, len(c.entries))
	for _, v := range c.entries {
		out = append(out, v)
	}
	return out
}

func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Upsert stores v under its id, replacing any previous value wholesale.
func (c *Cache[T]) Upsert(v T) {
	c.mu.Lock()
	c.entries[v.EntityID()] = v
	c.mu.Unlock()
}

// Delete removes id. It reports whether an entry existed.
func (c *Cache[T]) Delete(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[id]; !ok {
		return false
	}
	delete(c.entries, id)
	return true
}

// Replace installs items as the complete contents of the cache.
func (c *Cache[T]) Replace(items []T) {
	entries := make(map[string]T, len(items))
	for _, v := range items {
		entries[v.EntityID()] = v
	}
	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
}

// find returns the first entity matching fn.
func (c *Cache[T]) find(fn func(T) bool) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, v := range c.entries {
		if fn(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}
