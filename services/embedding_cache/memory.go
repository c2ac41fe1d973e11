package embedding_cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/customeros/mailvector/dto"
	"github.com/customeros/mailvector/interfaces"
	"github.com/customeros/mailvector/internal/utils"
)

const (
	DefaultMaxEntries = 500
	DefaultTTL        = 24 * time.Hour

	// Clamp bounds to keep a misconfigured cache from eating the process or
	// becoming useless
	minEntries = 10
	maxEntries = 10000
	minTTL     = time.Minute
	maxTTL     = 7 * 24 * time.Hour

	// Share of oldest entries dropped in one batch on overflow
	evictionShare = 0.10
)

type Config struct {
	MaxEntries int
	TTL        time.Duration
}

// Configure clamps the settings into their allowed ranges.
func (c Config) Configure() Config {
	if c.MaxEntries == 0 {
		c.MaxEntries = DefaultMaxEntries
	}
	if c.MaxEntries < minEntries {
		c.MaxEntries = minEntries
	}
	if c.MaxEntries > maxEntries {
		c.MaxEntries = maxEntries
	}
	if c.TTL == 0 {
		c.TTL = DefaultTTL
	}
	if c.TTL < minTTL {
		c.TTL = minTTL
	}
	if c.TTL > maxTTL {
		c.TTL = maxTTL
	}
	return c
}

type cacheEntry struct {
	embedding   []float32
	chunks      []dto.TextChunk
	metadata    map[string]interface{}
	insertedAt  time.Time
	accessCount int
}

// memoryCache is an in-process embedding cache keyed by a content hash of
// the normalized input text. It does not survive restarts and is not shared
// across pipeline instances; use the redis implementation for that.
type memoryCache struct {
	mu      sync.Mutex
	cfg     Config
	entries map[string]*cacheEntry
	hits    int64
	misses  int64
	now     func() time.Time
}

func NewMemoryCache(cfg Config) interfaces.EmbeddingCache {
	return &memoryCache{
		cfg:     cfg.Configure(),
		entries: make(map[string]*cacheEntry),
		now:     time.Now,
	}
}

func (c *memoryCache) Get(ctx context.Context, text string) (*dto.CacheEntry, error) {
	key := utils.HashContent(text)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, nil
	}
	if c.expired(entry) {
		delete(c.entries, key)
		c.misses++
		return nil, nil
	}

	entry.accessCount++
	c.hits++
	return &dto.CacheEntry{
		Embedding:   entry.embedding,
		Chunks:      entry.chunks,
		Metadata:    entry.metadata,
		InsertedAt:  entry.insertedAt,
		AccessCount: entry.accessCount,
	}, nil
}

// Set stores an embedding under the content hash. Hash collisions overwrite:
// last write wins.
func (c *memoryCache) Set(ctx context.Context, text string, embedding []float32, chunks []dto.TextChunk, metadata map[string]interface{}) error {
	key := utils.HashContent(text)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &cacheEntry{
		embedding:  embedding,
		chunks:     chunks,
		metadata:   metadata,
		insertedAt: c.now(),
	}

	if len(c.entries) > c.cfg.MaxEntries {
		c.evictOldest()
	}
	return nil
}

func (c *memoryCache) Has(ctx context.Context, text string) bool {
	key := utils.HashContent(text)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return false
	}
	if c.expired(entry) {
		delete(c.entries, key)
		return false
	}
	return true
}

// Cleanup sweeps expired entries and reports how many were removed.
func (c *memoryCache) Cleanup(ctx context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if c.expired(entry) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func (c *memoryCache) Stats(ctx context.Context) dto.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := dto.CacheStats{
		TotalHits:   c.hits,
		TotalMisses: c.misses,
		Size:        len(c.entries),
	}
	for _, entry := range c.entries {
		if stats.OldestEntry == nil || entry.insertedAt.Before(*stats.OldestEntry) {
			stats.OldestEntry = utils.TimePtr(entry.insertedAt)
		}
		if stats.NewestEntry == nil || entry.insertedAt.After(*stats.NewestEntry) {
			stats.NewestEntry = utils.TimePtr(entry.insertedAt)
		}
	}
	return stats
}

func (c *memoryCache) expired(entry *cacheEntry) bool {
	return c.now().Sub(entry.insertedAt) > c.cfg.TTL
}

// evictOldest drops the oldest 10% by insertion time in one pass. Caller
// holds the lock.
func (c *memoryCache) evictOldest() {
	type keyedEntry struct {
		key        string
		insertedAt time.Time
	}
	entries := make([]keyedEntry, 0, len(c.entries))
	for key, entry := range c.entries {
		entries = append(entries, keyedEntry{key: key, insertedAt: entry.insertedAt})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].insertedAt.Before(entries[j].insertedAt)
	})

	toEvict := int(float64(c.cfg.MaxEntries) * evictionShare)
	if toEvict < 1 {
		toEvict = 1
	}
	for i := 0; i < toEvict && i < len(entries); i++ {
		delete(c.entries, entries[i].key)
	}
}
