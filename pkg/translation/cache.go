package translation

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/platinummonkey/activitylens/pkg/label"
	"github.com/platinummonkey/activitylens/pkg/observability"
)

type cacheEntry struct {
	value string
	found bool
}

// lookupSource is the part of a Catalog the cache reads through.
type lookupSource interface {
	Lookup(locale, namespace, key string) (string, bool)
	DefaultLocale() string
	Locales() []string
}

// Cache memoizes catalog lookups, including misses, in an expiring LRU. It is purged
// whenever the catalog reloads. A lookup that straddles a purge is not cached.
type Cache struct {
	source  lookupSource
	entries *lru.LRU[string, cacheEntry]
	metrics *observability.Metrics

	mu         sync.RWMutex
	generation uint64
}

// NewCache wraps catalog. size <= 0 defaults to 1024 entries.
func NewCache(catalog *Catalog, size int, ttl time.Duration, metrics *observability.Metrics) *Cache {
	if size <= 0 {
		size = 1024
	}

	c := &Cache{
		source:  catalog,
		entries: lru.NewLRU[string, cacheEntry](size, nil, ttl),
		metrics: metrics,
	}
	catalog.OnReload(c.Purge)
	return c
}

// Lookup returns the cached catalog lookup for locale.
func (c *Cache) Lookup(locale, namespace, key string) (string, bool) {
	if locale == "" {
		locale = c.source.DefaultLocale()
	}
	cacheKey := locale + "\x00" + namespace + "\x00" + key

	if entry, ok := c.entries.Get(cacheKey); ok {
		c.metrics.RecordCache("translation", true)
		return entry.value, entry.found
	}
	c.metrics.RecordCache("translation", false)

	generation := c.currentGeneration()
	value, found := c.source.Lookup(locale, namespace, key)

	c.mu.RLock()
	if c.generation == generation {
		c.entries.Add(cacheKey, cacheEntry{value: value, found: found})
	}
	c.mu.RUnlock()
	return value, found
}

// Translate implements label.Translator for the default locale.
func (c *Cache) Translate(namespace, key string) (string, bool) {
	return c.Lookup("", namespace, key)
}

// ForLocale returns a cached translator bound to locale.
func (c *Cache) ForLocale(locale string) label.Translator {
	return label.TranslatorFunc(func(namespace, key string) (string, bool) {
		return c.Lookup(locale, namespace, key)
	})
}

// Len returns the number of cached lookups.
func (c *Cache) Len() int {
	return c.entries.Len()
}

func (c *Cache) currentGeneration() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// Purge drops every cached lookup. Lookups already in flight are not stored.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.entries.Purge()
}

// DefaultLocale returns the locale of lookups without one.
func (c *Cache) DefaultLocale() string {
	return c.source.DefaultLocale()
}

// Locales returns the locales of the underlying catalog.
func (c *Cache) Locales() []string {
	return c.source.Locales()
}
