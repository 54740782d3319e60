// Package cache provides a small TTL-aware LRU used to memoize expensive
// lookups such as project path resolution.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Stats represents cache performance metrics
type Stats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	Size      int     `json:"size"`
	MaxSize   int     `json:"max_size"`
	HitRate   float64 `json:"hit_rate"`
}

// Config defines configuration options for the cache
type Config struct {
	MaxSize    int           `json:"max_size"`
	DefaultTTL time.Duration `json:"default_ttl"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		MaxSize:    256,
		DefaultTTL: 10 * time.Minute,
	}
}

type entry[V any] struct {
	key       string
	value     V
	createdAt time.Time
	ttl       time.Duration
}

func (e *entry[V]) expired(now time.Time) bool {
	if e.ttl == 0 {
		return false
	}
	return now.Sub(e.createdAt) > e.ttl
}

// LRU is a size-bounded cache evicting the least recently used entry.
type LRU[V any] struct {
	config       Config
	items        map[string]*list.Element
	evictionList *list.List
	stats        Stats
	now          func() time.Time
	mu           sync.Mutex
}

// NewLRU creates a new LRU cache with the given configuration
func NewLRU[V any](config Config) *LRU[V] {
	if config.MaxSize <= 0 {
		config.MaxSize = DefaultConfig().MaxSize
	}
	return &LRU[V]{
		config:       config,
		items:        make(map[string]*list.Element),
		evictionList: list.New(),
		stats:        Stats{MaxSize: config.MaxSize},
		now:          time.Now,
	}
}

// Get retrieves an item from cache
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	element, exists := c.items[key]
	if !exists {
		c.stats.Misses++
		return zero, false
	}

	e := element.Value.(*entry[V])
	if e.expired(c.now()) {
		c.removeElementUnsafe(element)
		c.stats.Misses++
		return zero, false
	}

	c.evictionList.MoveToFront(element)
	c.stats.Hits++
	return e.value, true
}

// Set stores an item with the default TTL
func (c *LRU[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.config.DefaultTTL)
}

// SetWithTTL stores an item with a custom TTL; zero never expires.
func (c *LRU[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if element, exists := c.items[key]; exists {
		e := element.Value.(*entry[V])
		e.value = value
		e.createdAt = c.now()
		e.ttl = ttl
		c.evictionList.MoveToFront(element)
		return
	}

	element := c.evictionList.PushFront(&entry[V]{
		key:       key,
		value:     value,
		createdAt: c.now(),
		ttl:       ttl,
	})
	c.items[key] = element

	if c.evictionList.Len() > c.config.MaxSize {
		c.evictOldestUnsafe()
	}
}

// Delete removes an item from cache
func (c *LRU[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if element, exists := c.items[key]; exists {
		c.removeElementUnsafe(element)
	}
}

// Stats returns cache statistics
func (c *LRU[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Size = len(c.items)
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats
}

// removeElementUnsafe removes an element from cache (caller must hold lock)
func (c *LRU[V]) removeElementUnsafe(element *list.Element) {
	e := element.Value.(*entry[V])
	delete(c.items, e.key)
	c.evictionList.Remove(element)
}

// evictOldestUnsafe evicts the oldest entry (caller must hold lock)
func (c *LRU[V]) evictOldestUnsafe() {
	if oldest := c.evictionList.Back(); oldest != nil {
		c.removeElementUnsafe(oldest)
		c.stats.Evictions++
	}
}
