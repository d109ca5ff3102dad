// Package repo provides the process-local response store
package repo

import (
	"context"
	"strings"
	"sync"
	"time"

	"go-neows/internal/metrics"

	"github.com/rs/zerolog"
)

// Cache key prefixes. Parts following a prefix are always passed in the
// order documented next to each prefix.
const (
	KeyFeed     = "feed"     // start_date, end_date
	KeyAsteroid = "asteroid" // asteroid_id
)

const keySeparator = ":"

// GenerateKey joins prefix and parts with a fixed separator
func GenerateKey(prefix string, parts ...string) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, p := range parts {
		b.WriteString(keySeparator)
		b.WriteString(p)
	}
	return b.String()
}

// CacheEntry is a stored value with its expiry
type CacheEntry struct {
	Key       string
	Value     any
	ExpiresAt time.Time
}

func (e CacheEntry) expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// ResponseCache is a key-value store with per-entry TTL
type ResponseCache struct {
	mu      sync.RWMutex
	entries map[string]CacheEntry
	now     func() time.Time
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// CacheOption customizes a ResponseCache
type CacheOption func(*ResponseCache)

// WithClock overrides the time source
func WithClock(now func() time.Time) CacheOption {
	return func(c *ResponseCache) {
		c.now = now
	}
}

// WithMetrics records hits, misses and evictions
func WithMetrics(m *metrics.Metrics) CacheOption {
	return func(c *ResponseCache) {
		c.metrics = m
	}
}

// WithLogger sets the logger used by the sweeper
func WithLogger(l zerolog.Logger) CacheOption {
	return func(c *ResponseCache) {
		c.log = l
	}
}

// NewResponseCache creates an empty cache
func NewResponseCache(opts ...CacheOption) *ResponseCache {
	c := &ResponseCache{
		entries: make(map[string]CacheEntry),
		now:     time.Now,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value for key if present and unexpired
func (c *ResponseCache) Get(key string) (any, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		c.metrics.CacheMiss()
		return nil, false
	}
	if entry.expired(c.now()) {
		c.mu.Lock()
		// a concurrent Set may have refreshed the key
		if cur, still := c.entries[key]; still && cur.expired(c.now()) {
			delete(c.entries, key)
			c.metrics.CacheEvicted(1)
		}
		c.mu.Unlock()
		c.metrics.CacheMiss()
		return nil, false
	}

	c.metrics.CacheHit()
	return entry.Value, true
}

// Set stores value under key until now+ttl, replacing any existing entry.
// A non-positive ttl stores nothing.
func (c *ResponseCache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = CacheEntry{Key: key, Value: value, ExpiresAt: c.now().Add(ttl)}
	n := len(c.entries)
	c.mu.Unlock()
	c.metrics.CacheSize(n)
}

// Delete removes key
func (c *ResponseCache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	n := len(c.entries)
	c.mu.Unlock()
	c.metrics.CacheSize(n)
}

// FlushAll removes every entry
func (c *ResponseCache) FlushAll() {
	c.mu.Lock()
	c.entries = make(map[string]CacheEntry)
	c.mu.Unlock()
	c.metrics.CacheSize(0)
}

// Len returns the number of stored entries, expired or not
func (c *ResponseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Sweep removes expired entries and returns how many were removed
func (c *ResponseCache) Sweep() int {
	now := c.now()
	c.mu.Lock()
	removed := 0
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
			removed++
		}
	}
	n := len(c.entries)
	c.mu.Unlock()

	c.metrics.CacheEvicted(removed)
	c.metrics.CacheSize(n)
	return removed
}

// StartSweeper runs Sweep every interval until ctx is done
func (c *ResponseCache) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		c.log.Info().Dur("interval", interval).Msg("starting cache sweeper")
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := c.Sweep(); n > 0 {
					c.log.Debug().Int("removed", n).Msg("swept expired cache entries")
				}
			}
		}
	}()
}
