// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package devdocs

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// CacheEntry represents a cached response body with metadata
type CacheEntry struct {
	Data      []byte    // Raw response body
	FetchedAt time.Time // When this body was fetched
	ExpiresAt time.Time // When this entry stops being served
	URL       string    // Source URL for debugging
}

// isFresh checks if the entry can still be served
func (entry *CacheEntry) isFresh(now time.Time) bool {
	return entry.ExpiresAt.After(now)
}

// CacheConfig holds configuration for the cache
type CacheConfig struct {
	MaxSize int           // Maximum number of entries (0 = unlimited, but not recommended)
	TTL     time.Duration // How long an entry is served after fetching
}

// CacheMetrics tracks cache performance and usage
type CacheMetrics struct {
	Size        int64 `json:"size"`        // Current number of cached entries
	Hits        int64 `json:"hits"`        // Number of cache hits
	Misses      int64 `json:"misses"`      // Number of cache misses
	Evictions   int64 `json:"evictions"`   // Number of LRU evictions
	Cleanups    int64 `json:"cleanups"`    // Number of expired entries purged
	TotalMemory int64 `json:"totalMemory"` // Approximate memory usage in bytes
}

// DefaultCacheConfig is used for zero fields of a [CacheConfig].
var DefaultCacheConfig = CacheConfig{
	MaxSize: 32,
	TTL:     10 * time.Minute,
}

// Cache is a simple LRU cache keyed by URL.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*CacheEntry
	order   []string // Maintains access order for LRU eviction
	config  CacheConfig
	metrics CacheMetrics
	now     func() time.Time
}

// NewCache returns an empty cache. Negative sizes are treated as unlimited.
func NewCache(config CacheConfig) *Cache {
	if config.MaxSize < 0 {
		config.MaxSize = 0
	}
	if config.TTL <= 0 {
		config.TTL = DefaultCacheConfig.TTL
	}
	return &Cache{
		entries: make(map[string]*CacheEntry),
		config:  config,
		now:     time.Now,
	}
}

// Config returns the cache configuration.
func (c *Cache) Config() CacheConfig { return c.config }

// touch updates the access order for LRU eviction
func (c *Cache) touch(url string) {
	c.remove(url)
	c.order = append(c.order, url)
}

func (c *Cache) remove(url string) {
	for i, u := range c.order {
		if u == url {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// Get retrieves a fresh entry and updates access order.
func (c *Cache) Get(url string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[url]
	if !exists || !entry.isFresh(c.now()) {
		atomic.AddInt64(&c.metrics.Misses, 1)
		return nil, false
	}

	atomic.AddInt64(&c.metrics.Hits, 1)
	c.touch(url)

	// Return a copy to prevent external modification
	dataCopy := make([]byte, len(entry.Data))
	copy(dataCopy, entry.Data)
	return dataCopy, true
}

// Set stores data under url, evicting the least recently used entry when full.
func (c *Cache) Set(url string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[url]; !exists {
		for c.config.MaxSize > 0 && len(c.entries) >= c.config.MaxSize && len(c.order) > 0 {
			lru := c.order[0]
			delete(c.entries, lru)
			c.order = c.order[1:]
			atomic.AddInt64(&c.metrics.Evictions, 1)
		}
	}

	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	now := c.now()
	c.entries[url] = &CacheEntry{
		Data:      dataCopy,
		FetchedAt: now,
		ExpiresAt: now.Add(c.config.TTL),
		URL:       url,
	}
	c.touch(url)
}

// PurgeExpired removes entries past their TTL and reports how many were removed.
func (c *Cache) PurgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var expired []string
	for url, entry := range c.entries {
		if !entry.isFresh(now) {
			expired = append(expired, url)
		}
	}
	for _, url := range expired {
		delete(c.entries, url)
		c.remove(url)
	}

	if len(expired) > 0 {
		atomic.AddInt64(&c.metrics.Cleanups, int64(len(expired)))
	}
	return len(expired)
}

// Clear drops every entry and resets metrics.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*CacheEntry)
	c.order = nil
	c.metrics = CacheMetrics{}
}

// Metrics returns current cache metrics.
func (c *Cache) Metrics() CacheMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	var totalMemory int64
	for _, entry := range c.entries {
		totalMemory += int64(len(entry.Data)) + int64(len(entry.URL)) + 48 // Approximate overhead
	}

	m := c.metrics
	m.Size = int64(len(c.entries))
	m.TotalMemory = totalMemory
	return m
}

// Stats returns a formatted string with cache statistics.
func (c *Cache) Stats() string {
	m := c.Metrics()

	hitRate := float64(0)
	if total := m.Hits + m.Misses; total > 0 {
		hitRate = float64(m.Hits) / float64(total) * 100
	}

	return fmt.Sprintf("DevDocs Cache Statistics:\n"+
		"  Size: %d/%d entries\n"+
		"  Memory Usage: %.2f KB\n"+
		"  Hit Rate: %.1f%% (%d hits, %d misses)\n"+
		"  Evictions: %d\n"+
		"  Cleanups: %d\n"+
		"  TTL: %v",
		m.Size, c.config.MaxSize,
		float64(m.TotalMemory)/1024,
		hitRate, m.Hits, m.Misses,
		m.Evictions,
		m.Cleanups,
		c.config.TTL)
}
