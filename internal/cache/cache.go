// Package cache implements the gateway's bounded in-memory LRU cache
// (spec.md §4.D): a map keyed by "{type}:{key}" with per-type TTL,
// strict LRU eviction on both entry count and cumulative byte size, and
// hit/miss/eviction statistics.
package cache

import (
	"container/list"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/joonake9644/koreagate/internal/apperrors"
	"github.com/joonake9644/koreagate/internal/telemetry"
)

// Type is one of the closed set of cacheable artifact kinds.
type Type string

const (
	TypeAddress    Type = "address"
	TypeBuilding   Type = "building"
	TypeCoordinate Type = "coordinate"
	TypeRealtime   Type = "realtime"
	TypeStatic     Type = "static"
)

// ttlPolicy is the per-type TTL table from spec.md §3.
var ttlPolicy = map[Type]time.Duration{
	TypeAddress:    24 * time.Hour,
	TypeBuilding:   24 * time.Hour,
	TypeCoordinate: 7 * 24 * time.Hour,
	TypeRealtime:   5 * time.Minute,
	TypeStatic:     30 * 24 * time.Hour,
}

const (
	maxEntries = 1000
	maxBytes   = 50 * 1024 * 1024 // 50 MiB
)

// TTLFor returns the configured TTL for typ, so callers can set
// freshness headers without duplicating the policy table.
func TTLFor(typ Type) time.Duration {
	return ttlPolicy[typ]
}

// entry is the internal bookkeeping record behind one cached artifact.
type entry struct {
	fullKey   string
	value     any
	createdAt time.Time
	expiresAt time.Time
	hits      int64
	size      int
	element   *list.Element
}

// Entry is the public, read-only view of a cached artifact.
type Entry struct {
	Value     any
	CreatedAt time.Time
	ExpiresAt time.Time
	Hits      int64
	Size      int
}

// GetResult is the outcome of a Get call.
type GetResult struct {
	Hit   bool
	Value any
	Age   time.Duration
}

// SetOptions allows a caller to override the policy TTL for one Set.
type SetOptions struct {
	TTL time.Duration
}

// Stats is the basic, always-available counter snapshot.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Size    int     `json:"size"`
	MaxSize int     `json:"maxSize"`
	HitRate float64 `json:"hitRate"`
}

// DetailedStats extends Stats with size-accounting and mutation counters.
type DetailedStats struct {
	Stats
	Sets              int64 `json:"sets"`
	Deletes           int64 `json:"deletes"`
	CalculatedSize    int64 `json:"calculatedSize"`
	MaxCalculatedSize int64 `json:"maxCalculatedSize"`
}

// MemoryUsage reports the cache's current byte footprint against its cap.
type MemoryUsage struct {
	Current    int64   `json:"current"`
	Max        int64   `json:"max"`
	Percentage float64 `json:"percentage"`
}

// Cache is a thread-safe, bounded LRU cache with per-type TTL.
//
// A single RWMutex guards both the map and the LRU list: at most one
// mutation proceeds at a time, so the eviction policy can never be
// violated by a concurrent Set (spec.md §5).
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	lru     *list.List
	size    int64 // cumulative computed size in bytes

	hits, misses, sets, deletes int64

	logger *slog.Logger
}

// New creates an empty Cache.
func New(logger *slog.Logger) *Cache {
	return &Cache{
		entries: make(map[string]*entry),
		lru:     list.New(),
		logger:  logger,
	}
}

func fullKey(typ Type, key string) string {
	return string(typ) + ":" + key
}

// computeSize estimates a value's serialized footprint.
func computeSize(value any) int {
	b, err := json.Marshal(value)
	if err != nil {
		return 0
	}
	return len(b)
}

// Set inserts value under (typ, key), evicting LRU entries as needed to
// stay within the count and size bounds.
func (c *Cache) Set(typ Type, key string, value any, opts ...SetOptions) {
	ttl := ttlPolicy[typ]
	if len(opts) > 0 && opts[0].TTL > 0 {
		ttl = opts[0].TTL
	}

	size := computeSize(value)
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	fk := fullKey(typ, key)
	if existing, ok := c.entries[fk]; ok {
		c.size -= int64(existing.size)
		existing.value = value
		existing.createdAt = now
		existing.expiresAt = now.Add(ttl)
		existing.size = size
		c.size += int64(size)
		c.lru.MoveToFront(existing.element)
		c.sets++
		c.evictUntilWithinBoundsLocked()
		return
	}

	e := &entry{
		fullKey:   fk,
		value:     value,
		createdAt: now,
		expiresAt: now.Add(ttl),
		size:      size,
	}
	e.element = c.lru.PushFront(e)
	c.entries[fk] = e
	c.size += int64(size)
	c.sets++

	c.evictUntilWithinBoundsLocked()
	telemetry.CacheMemoryUsageBytes.Set(float64(c.size))
}

// evictUntilWithinBoundsLocked evicts the least-recently-used entries
// until both bounds hold. Caller must hold c.mu for writing.
func (c *Cache) evictUntilWithinBoundsLocked() {
	for len(c.entries) > maxEntries || c.size > maxBytes {
		back := c.lru.Back()
		if back == nil {
			return
		}
		c.evictLocked(back.Value.(*entry))
	}
}

func (c *Cache) evictLocked(e *entry) {
	c.lru.Remove(e.element)
	delete(c.entries, e.fullKey)
	c.size -= int64(e.size)
	telemetry.CacheEvictionsTotal.Inc()
	if c.logger != nil {
		c.logger.Debug("cache eviction",
			"key", e.fullKey,
			"size", e.size,
			"hits", e.hits,
		)
	}
}

// Get returns the cached value for (typ, key). A miss is side-effect
// free except for the miss counter. An expired entry is removed and
// reported as a miss.
func (c *Cache) Get(typ Type, key string) GetResult {
	fk := fullKey(typ, key)

	c.mu.RLock()
	e, ok := c.entries[fk]
	c.mu.RUnlock()

	if !ok {
		c.recordMiss(typ)
		return GetResult{Hit: false}
	}

	now := time.Now()
	if now.After(e.expiresAt) {
		c.mu.Lock()
		if cur, still := c.entries[fk]; still && cur == e {
			c.evictLocked(e)
		}
		c.mu.Unlock()
		c.recordMiss(typ)
		return GetResult{Hit: false}
	}

	c.mu.Lock()
	e.hits++
	c.lru.MoveToFront(e.element)
	c.mu.Unlock()

	c.recordHit(typ)
	return GetResult{Hit: true, Value: e.value, Age: now.Sub(e.createdAt)}
}

func (c *Cache) recordHit(typ Type) {
	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
	telemetry.CacheHitsTotal.WithLabelValues(string(typ)).Inc()
}

func (c *Cache) recordMiss(typ Type) {
	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
	telemetry.CacheMissesTotal.WithLabelValues(string(typ)).Inc()
}

// Delete removes one entry. Returns true if it existed.
func (c *Cache) Delete(typ Type, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	fk := fullKey(typ, key)
	e, ok := c.entries[fk]
	if !ok {
		return false
	}
	c.evictLocked(e)
	c.deletes++
	return true
}

// DeleteByType removes every entry of the given type and returns the count.
func (c *Cache) DeleteByType(typ Type) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := string(typ) + ":"
	var toDelete []*entry
	for k, e := range c.entries {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			toDelete = append(toDelete, e)
		}
	}
	for _, e := range toDelete {
		c.evictLocked(e)
		c.deletes++
	}
	return len(toDelete)
}

// Clear empties the cache entirely.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.lru = list.New()
	c.size = 0
}

// Has reports whether (typ, key) is present and unexpired, without
// affecting statistics or recency.
func (c *Cache) Has(typ Type, key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[fullKey(typ, key)]
	if !ok {
		return false
	}
	return time.Now().Before(e.expiresAt)
}

// RemainingTTL returns the time left before (typ, key) expires, or an
// error if absent.
func (c *Cache) RemainingTTL(typ Type, key string) (time.Duration, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[fullKey(typ, key)]
	if !ok {
		return 0, apperrors.NewNotFound("no cache entry for key")
	}
	remaining := time.Until(e.expiresAt)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// MemoryUsage reports the cache's current cumulative size against the cap.
func (c *Cache) MemoryUsage() MemoryUsage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pct := float64(c.size) / float64(maxBytes) * 100
	return MemoryUsage{Current: c.size, Max: maxBytes, Percentage: pct}
}

// Stats returns the basic counter snapshot.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.statsLocked()
}

func (c *Cache) statsLocked() Stats {
	total := c.hits + c.misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(c.hits) / float64(total) * 100
	}
	return Stats{
		Hits:    c.hits,
		Misses:  c.misses,
		Size:    len(c.entries),
		MaxSize: maxEntries,
		HitRate: hitRate,
	}
}

// DetailedStats extends Stats with mutation and size-accounting counters.
func (c *Cache) DetailedStats() DetailedStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return DetailedStats{
		Stats:             c.statsLocked(),
		Sets:              c.sets,
		Deletes:           c.deletes,
		CalculatedSize:    c.size,
		MaxCalculatedSize: maxBytes,
	}
}

// ResetStats zeroes every counter without touching cached entries.
func (c *Cache) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hits, c.misses, c.sets, c.deletes = 0, 0, 0, 0
}
