package poller

import (
	"slices"
	"strings"
	"sync"

	"github.com/Priya8975/activity-poller/internal/domain"
)

// CacheKey identifies a source handle. A source whose endpoint changes
// gets a new key; the old entry is swept at the end of the cycle.
type CacheKey struct {
	Tenant   string
	Source   string
	Endpoint string
}

func (k CacheKey) String() string {
	return k.Tenant + "|" + k.Source + "|" + k.Endpoint
}

// HandleCache keeps source handles across cycles with a two-set mark and
// sweep: keys referenced during a cycle are collected with MarkUsed, and
// Sweep evicts everything else.
type HandleCache struct {
	mu         sync.Mutex
	entries    map[CacheKey]domain.Source
	referenced map[CacheKey]struct{}
}

func NewHandleCache() *HandleCache {
	return &HandleCache{
		entries:    make(map[CacheKey]domain.Source),
		referenced: make(map[CacheKey]struct{}),
	}
}

// GetOrCreate returns the cached handle for key, or calls factory once and
// caches its result. created reports whether factory ran. A failed factory
// caches nothing.
func (c *HandleCache) GetOrCreate(key CacheKey, factory func() (domain.Source, error)) (src domain.Source, created bool, err error) {
	c.mu.Lock()
	if src, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return src, false, nil
	}
	c.mu.Unlock()

	src, err = factory()
	if err != nil {
		return nil, false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[key]; ok {
		return existing, false, nil
	}
	c.entries[key] = src
	return src, true, nil
}

// MarkUsed records that key was referenced in the current cycle.
func (c *HandleCache) MarkUsed(key CacheKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.referenced[key] = struct{}{}
}

// ResetMarks forgets the keys marked so far without evicting anything.
func (c *HandleCache) ResetMarks() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.referenced = make(map[CacheKey]struct{})
}

// Sweep evicts every entry not referenced since the previous sweep and
// starts a new mark pass. It returns the evicted keys in sorted order.
func (c *HandleCache) Sweep() []CacheKey {
	c.mu.Lock()
	defer c.mu.Unlock()

	var evicted []CacheKey
	for key := range c.entries {
		if _, ok := c.referenced[key]; !ok {
			delete(c.entries, key)
			evicted = append(evicted, key)
		}
	}
	c.referenced = make(map[CacheKey]struct{})

	sortKeys(evicted)
	return evicted
}

// Len returns the number of cached handles.
func (c *HandleCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Keys returns the cached keys in sorted order.
func (c *HandleCache) Keys() []CacheKey {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]CacheKey, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	sortKeys(keys)
	return keys
}

func sortKeys(keys []CacheKey) {
	slices.SortFunc(keys, func(a, b CacheKey) int {
		return strings.Compare(a.String(), b.String())
	})
}
