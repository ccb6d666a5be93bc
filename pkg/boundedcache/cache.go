// Package boundedcache provides a generic in-memory key-value store with a
// hard capacity ceiling. Entries are ordered by last access time; when the
// ceiling is exceeded the least-recently-touched entries are evicted, so
// process-lifetime lookup maps (session claims, routing tables) stay bounded
// under sustained traffic.
package boundedcache

import (
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultMaxSize is the capacity ceiling used when none is configured.
	DefaultMaxSize = 10000
	// DefaultCleanupFraction is the share of entries removed per eviction.
	DefaultCleanupFraction = 0.2
)

// Stats describes the cache contents at a point in time. Ages are measured
// from each entry's last access to now. All fields are zero when the cache
// is empty.
type Stats struct {
	Size      int
	OldestAge time.Duration
	NewestAge time.Duration
	MeanAge   time.Duration
}

type entry[V any] struct {
	value      V
	lastAccess time.Time
	seq        uint64 // breaks timestamp ties, lower = touched earlier
}

// Cache is a mutex-guarded bounded map. Get refreshes the accessed entry's
// recency, so reads count as touches. The zero value is not usable; construct
// with New.
type Cache[K comparable, V any] struct {
	mu              sync.Mutex
	entries         map[K]*entry[V]
	maxSize         int
	cleanupFraction float64
	seq             uint64
	logger          *zap.Logger
	now             func() time.Time
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	maxSize         int
	cleanupFraction float64
	logger          *zap.Logger
}

// WithMaxSize sets the capacity ceiling. Values below 1 fall back to the
// default.
func WithMaxSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxSize = n
		}
	}
}

// WithCleanupFraction sets the share of entries removed per eviction. Values
// outside (0, 1] fall back to the default.
func WithCleanupFraction(f float64) Option {
	return func(o *options) {
		if f > 0 && f <= 1 {
			o.cleanupFraction = f
		}
	}
}

// WithLogger sets the structured logger used to report evictions.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// New creates an empty cache.
func New[K comparable, V any](opts ...Option) *Cache[K, V] {
	o := options{
		maxSize:         DefaultMaxSize,
		cleanupFraction: DefaultCleanupFraction,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Cache[K, V]{
		entries:         make(map[K]*entry[V]),
		maxSize:         o.maxSize,
		cleanupFraction: o.cleanupFraction,
		logger:          o.logger,
		now:             time.Now,
	}
}

// Put inserts or overwrites a value and marks it as just accessed. If the
// insert pushes the size past the capacity ceiling, an eviction pass runs
// before Put returns.
func (c *Cache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	c.entries[key] = &entry[V]{value: value, lastAccess: c.now(), seq: c.seq}

	if len(c.entries) > c.maxSize {
		c.evictLocked()
	}
}

// Get returns the value for key and whether it was present. A hit refreshes
// the entry's last access time.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}

	c.seq++
	e.lastAccess = c.now()
	e.seq = c.seq
	return e.value, true
}

// Remove deletes the entry for key. No-op if absent.
func (c *Cache[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear empties the cache.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]*entry[V])
}

// Size returns the current entry count.
func (c *Cache[K, V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Evict removes floor(size * cleanupFraction) least-recently-accessed
// entries. No-op when that count is zero.
func (c *Cache[K, V]) Evict() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictLocked()
}

func (c *Cache[K, V]) evictLocked() {
	count := int(math.Floor(float64(len(c.entries)) * c.cleanupFraction))
	if count <= 0 {
		return
	}

	type candidate struct {
		key        K
		lastAccess time.Time
		seq        uint64
	}
	candidates := make([]candidate, 0, len(c.entries))
	for k, e := range c.entries {
		candidates = append(candidates, candidate{key: k, lastAccess: e.lastAccess, seq: e.seq})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].lastAccess.Equal(candidates[j].lastAccess) {
			return candidates[i].seq < candidates[j].seq
		}
		return candidates[i].lastAccess.Before(candidates[j].lastAccess)
	})

	for _, cand := range candidates[:count] {
		delete(c.entries, cand.key)
	}

	c.logger.Debug("evicted least recently accessed entries",
		zap.Int("evicted", count),
		zap.Int("remaining", len(c.entries)),
	)
}

// EvictOlderThan removes every entry whose last access predates now - maxAge,
// regardless of current size. Returns the number of entries removed.
func (c *Cache[K, V]) EvictOlderThan(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-maxAge)
	removed := 0
	for k, e := range c.entries {
		if e.lastAccess.Before(cutoff) {
			delete(c.entries, k)
			removed++
		}
	}

	if removed > 0 {
		c.logger.Debug("evicted stale entries",
			zap.Duration("max_age", maxAge),
			zap.Int("evicted", removed),
			zap.Int("remaining", len(c.entries)),
		)
	}
	return removed
}

// Stats reports size and the oldest, newest and mean entry ages.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) == 0 {
		return Stats{}
	}

	now := c.now()
	var oldest, newest, total time.Duration
	first := true
	for _, e := range c.entries {
		age := now.Sub(e.lastAccess)
		if first {
			oldest, newest = age, age
			first = false
		} else {
			if age > oldest {
				oldest = age
			}
			if age < newest {
				newest = age
			}
		}
		total += age
	}

	return Stats{
		Size:      len(c.entries),
		OldestAge: oldest,
		NewestAge: newest,
		MeanAge:   total / time.Duration(len(c.entries)),
	}
}
