// Package cache persists fused query results between runs so repeated
// queries skip both scoring passes entirely.
package cache

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/renameio"

	"github.com/openclaw/memoranda/internal/corpus"
	"github.com/openclaw/memoranda/internal/searcher"
)

const (
	// DefaultTTL is how long a cached result list stays valid.
	DefaultTTL = 24 * time.Hour
	// DefaultMaxSize is the entry cap before eviction kicks in.
	DefaultMaxSize = 100

	cacheFileName = "cache.json"
	statsFileName = "cache_stats.json"

	formatVersion = 1
)

// Entry is one cached query with its results and usage accounting.
type Entry struct {
	Query          string                  `json:"query"`
	Results        []searcher.SearchResult `json:"results"`
	CreatedAt      time.Time               `json:"created_at"`
	LastAccessedAt time.Time               `json:"last_accessed_at"`
	HitCount       int                     `json:"hit_count"`
}

// Stats tracks cache effectiveness across the cache's lifetime.
type Stats struct {
	Hits         int     `json:"hits"`
	Misses       int     `json:"misses"`
	Adds         int     `json:"adds"`
	TotalQueries int     `json:"total_queries"`
	HitRate      float64 `json:"hit_rate"`
	CacheSize    int     `json:"cache_size"`
}

// PopularQuery is a query ranked by how often it was served from cache.
type PopularQuery struct {
	Query          string    `json:"query"`
	HitCount       int       `json:"hit_count"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
}

type snapshot struct {
	Version int               `json:"version"`
	Entries map[string]*Entry `json:"entries"`
}

// ResultCache is a TTL-bounded, size-bounded query result cache with JSON
// persistence. All methods are safe for concurrent use. Persistence
// failures degrade to in-memory operation; they are logged, never returned
// to the query path.
type ResultCache struct {
	mu      sync.Mutex
	entries map[string]*Entry
	stats   Stats

	dir     string
	ttl     time.Duration
	maxSize int

	now func() time.Time
}

var _ searcher.ResultCache = (*ResultCache)(nil)

// Option configures a ResultCache.
type Option func(*ResultCache)

// WithTTL overrides the entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(c *ResultCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithMaxSize overrides the entry cap.
func WithMaxSize(n int) Option {
	return func(c *ResultCache) {
		if n > 0 {
			c.maxSize = n
		}
	}
}

// withClock replaces the time source, for expiry tests.
func withClock(now func() time.Time) Option {
	return func(c *ResultCache) { c.now = now }
}

// New opens the cache rooted at dir, loading any persisted entries and
// stats. A missing or corrupt cache file starts the cache empty.
func New(dir string, opts ...Option) *ResultCache {
	c := &ResultCache{
		entries: make(map[string]*Entry),
		dir:     dir,
		ttl:     DefaultTTL,
		maxSize: DefaultMaxSize,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.load()
	return c
}

// NormalizeQuery lowercases the query and collapses runs of whitespace, so
// trivially different spellings of the same query share one cache entry.
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

func cacheKey(query string) string {
	return corpus.HashBytes([]byte(NormalizeQuery(query)))
}

// Get returns the cached results for query, if present and unexpired.
// Expired entries are dropped on access. A hit bumps the entry's hit count
// and access time.
func (c *ResultCache) Get(query string) ([]searcher.SearchResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.TotalQueries++
	key := cacheKey(query)
	entry, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	if c.expired(entry) {
		delete(c.entries, key)
		c.stats.Misses++
		c.persistLocked()
		return nil, false
	}

	entry.HitCount++
	entry.LastAccessedAt = c.now()
	c.stats.Hits++
	c.persistLocked()

	results := make([]searcher.SearchResult, len(entry.Results))
	copy(results, entry.Results)
	return results, true
}

// Set stores results for query, evicting the least valuable entries when
// the cache is full. Storing resets the entry's hit count.
func (c *ResultCache) Set(query string, results []searcher.SearchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(query)
	now := c.now()
	stored := make([]searcher.SearchResult, len(results))
	copy(stored, results)
	c.entries[key] = &Entry{
		Query:          NormalizeQuery(query),
		Results:        stored,
		CreatedAt:      now,
		LastAccessedAt: now,
		HitCount:       1,
	}
	c.stats.Adds++
	c.evictLocked()
	c.persistLocked()
}

// Invalidate removes the entry for query, reporting whether one existed.
func (c *ResultCache) Invalidate(query string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(query)
	if _, ok := c.entries[key]; !ok {
		return false
	}
	delete(c.entries, key)
	c.persistLocked()
	return true
}

// Clear drops every entry. Stats are kept; they describe lifetime
// effectiveness, not current contents.
func (c *ResultCache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.entries)
	c.entries = make(map[string]*Entry)
	c.persistLocked()
	return n
}

// ClearExpired drops entries past their TTL and returns how many went.
func (c *ResultCache) ClearExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if c.expired(entry) {
			delete(c.entries, key)
			removed++
		}
	}
	if removed > 0 {
		c.persistLocked()
	}
	return removed
}

// Stats returns a point-in-time copy of the cache statistics.
func (c *ResultCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.CacheSize = len(c.entries)
	if s.TotalQueries > 0 {
		s.HitRate = float64(s.Hits) / float64(s.TotalQueries)
	}
	return s
}

// Popular returns up to n queries ordered by hit count descending, most
// recently accessed first among equals.
func (c *ResultCache) Popular(n int) []PopularQuery {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]PopularQuery, 0, len(c.entries))
	for _, entry := range c.entries {
		out = append(out, PopularQuery{
			Query:          entry.Query,
			HitCount:       entry.HitCount,
			LastAccessedAt: entry.LastAccessedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].HitCount != out[j].HitCount {
			return out[i].HitCount > out[j].HitCount
		}
		return out[i].LastAccessedAt.After(out[j].LastAccessedAt)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Len returns the current entry count.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *ResultCache) expired(entry *Entry) bool {
	return c.now().Sub(entry.CreatedAt) > c.ttl
}

// evictLocked removes entries until the cache fits maxSize, dropping the
// lowest (hitCount, lastAccessedAt) pairs first.
func (c *ResultCache) evictLocked() {
	for len(c.entries) > c.maxSize {
		victim := ""
		for key, entry := range c.entries {
			if victim == "" {
				victim = key
				continue
			}
			cur := c.entries[victim]
			if entry.HitCount < cur.HitCount ||
				(entry.HitCount == cur.HitCount && entry.LastAccessedAt.Before(cur.LastAccessedAt)) {
				victim = key
			}
		}
		delete(c.entries, victim)
	}
}

func (c *ResultCache) load() {
	data, err := os.ReadFile(filepath.Join(c.dir, cacheFileName))
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("result cache unreadable, starting empty", slog.String("error", err.Error()))
		}
	} else {
		var snap snapshot
		if jsonErr := json.Unmarshal(data, &snap); jsonErr != nil || snap.Version != formatVersion {
			slog.Warn("result cache corrupt, starting empty",
				slog.String("path", filepath.Join(c.dir, cacheFileName)))
		} else if snap.Entries != nil {
			c.entries = snap.Entries
		}
	}

	statsData, err := os.ReadFile(filepath.Join(c.dir, statsFileName))
	if err == nil {
		var s Stats
		if json.Unmarshal(statsData, &s) == nil {
			c.stats = s
		}
	}
}

// persistLocked writes both cache files atomically. Failures only log:
// the cache must never fail a query over a disk problem.
func (c *ResultCache) persistLocked() {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		slog.Warn("result cache persist failed", slog.String("error", err.Error()))
		return
	}

	snap := snapshot{Version: formatVersion, Entries: c.entries}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err == nil {
		err = renameio.WriteFile(filepath.Join(c.dir, cacheFileName), data, 0o644)
	}
	if err != nil {
		slog.Warn("result cache persist failed", slog.String("error", err.Error()))
	}

	s := c.stats
	s.CacheSize = len(c.entries)
	if s.TotalQueries > 0 {
		s.HitRate = float64(s.Hits) / float64(s.TotalQueries)
	}
	statsData, err := json.MarshalIndent(s, "", "  ")
	if err == nil {
		err = renameio.WriteFile(filepath.Join(c.dir, statsFileName), statsData, 0o644)
	}
	if err != nil {
		slog.Warn("result cache stats persist failed", slog.String("error", err.Error()))
	}
}
