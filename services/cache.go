package services

import "sync"

// DefaultCacheSize bounds the score cache when no size is configured.
const DefaultCacheSize = 10

// ScoreCache is a small bounded cache of aggregate score arrays with
// oldest-first eviction. Values are copied in and out so callers can never
// mutate a cached result.
type ScoreCache struct {
	mu       sync.Mutex
	capacity int
	order    []string
	entries  map[string][]float64
}

// NewScoreCache creates a cache holding at most capacity entries.
func NewScoreCache(capacity int) *ScoreCache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	return &ScoreCache{
		capacity: capacity,
		entries:  make(map[string][]float64, capacity),
	}
}

// Get returns a copy of the cached scores for key.
func (c *ScoreCache) Get(key string) ([]float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	scores, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), scores...), true
}

// Put stores a copy of scores, evicting the oldest entry when full.
func (c *ScoreCache) Put(key string, scores []float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		if len(c.order) >= c.capacity {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = append([]float64(nil), scores...)
}

// Len returns the number of cached entries.
func (c *ScoreCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every entry.
func (c *ScoreCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = nil
	c.entries = make(map[string][]float64, c.capacity)
}
