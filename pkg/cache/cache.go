// Package cache provides the TTL+LRU content cache that backs extraction
// results. Capacity eviction is least-recently-used; expiry is checked
// lazily on read.
package cache

import (
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/simplelru"
)

// Entry is one cached value with its TTL bookkeeping.
type Entry struct {
	Key          string
	Value        any
	CreatedAt    time.Time
	ExpiresAt    time.Time
	LastAccessed time.Time
}

// Stats reports cache counters since construction.
type Stats struct {
	Entries    int
	MaxEntries int
	Hits       int
	Misses     int
	Evictions  int
}

// Config controls cache capacity and default entry lifetime.
type Config struct {
	MaxEntries int
	DefaultTTL time.Duration
}

// Cache is a thread-safe TTL+LRU cache. A single mutex guards every
// read/modify/write sequence so LRU bookkeeping and eviction stay atomic
// under concurrent callers.
type Cache struct {
	mu        sync.Mutex
	entries   *lru.LRU[string, *Entry]
	cfg       Config
	hits      int
	misses    int
	evictions int
	now       func() time.Time
	log       *slog.Logger
}

// New creates a cache. MaxEntries defaults to 100, DefaultTTL to one hour.
func New(cfg Config, logger *slog.Logger) *Cache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 100
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	entries, _ := lru.NewLRU[string, *Entry](cfg.MaxEntries, nil)
	return &Cache{
		entries: entries,
		cfg:     cfg,
		now:     time.Now,
		log:     logger,
	}
}

// Get returns the cached value for key, or ok=false on a miss.
// An expired entry counts as a miss and is removed.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries.Get(key)
	if !ok {
		c.misses++
		return nil, false
	}
	if c.now().After(entry.ExpiresAt) {
		c.entries.Remove(key)
		c.misses++
		c.log.Debug("cache entry expired", slog.String("key", key))
		return nil, false
	}
	entry.LastAccessed = c.now()
	c.hits++
	return entry.Value, true
}

// Set stores value under key. A zero ttl uses the default. Setting an
// existing key replaces the value and resets its TTL and recency.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.cfg.DefaultTTL
	}
	now := c.now()
	entry := &Entry{
		Key:          key,
		Value:        value,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
		LastAccessed: now,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if evicted := c.entries.Add(key, entry); evicted {
		c.evictions++
		c.log.Debug("cache evicted LRU entry", slog.Int("entries", c.entries.Len()))
	}
}

// Invalidate removes key and reports whether it was present.
func (c *Cache) Invalidate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Remove(key)
}

// Clear drops every entry and returns how many were removed.
func (c *Cache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.entries.Len()
	c.entries.Purge()
	return n
}

// CleanupExpired removes every expired entry and returns the count removed.
func (c *Cache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for _, key := range c.entries.Keys() {
		entry, ok := c.entries.Peek(key)
		if ok && c.now().After(entry.ExpiresAt) {
			c.entries.Remove(key)
			removed++
		}
	}
	return removed
}

// Stats returns a snapshot of cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Entries:    c.entries.Len(),
		MaxEntries: c.cfg.MaxEntries,
		Hits:       c.hits,
		Misses:     c.misses,
		Evictions:  c.evictions,
	}
}
