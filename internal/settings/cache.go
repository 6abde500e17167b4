package settings

import (
	"sync"

	"parcel/internal/project"
)

type cacheKey struct {
	plugin  string
	context string
}

// Cache memoizes resolved settings per plugin and context. Entries are
// deep-copied on both store and retrieval so callers can mutate what they
// get back without corrupting the cached baseline.
type Cache struct {
	mu      sync.Mutex
	entries map[cacheKey]Values
}

func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey]Values)}
}

// Get returns a deep copy of the cached settings for the plugin in the
// given context, or ok=false on a miss.
func (c *Cache) Get(plugin string, ctx project.Context) (Values, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[cacheKey{plugin: plugin, context: ctx.Key()}]
	if !ok {
		return nil, false
	}
	return entry.Clone(), true
}

// Add stores a deep copy of the settings for the plugin and context.
func (c *Cache) Add(plugin string, ctx project.Context, values Values) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{plugin: plugin, context: ctx.Key()}] = values.Clone()
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
