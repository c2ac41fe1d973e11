package embedding_cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customeros/mailvector/dto"
)

func newTestCache(cfg Config) *memoryCache {
	return &memoryCache{
		cfg:     cfg.Configure(),
		entries: make(map[string]*cacheEntry),
		now:     time.Now,
	}
}

func TestMemoryCache_SetGetRoundTrip(t *testing.T) {
	// Arrange
	ctx := context.Background()
	cache := newTestCache(Config{})
	embedding := []float32{0.1, 0.2, 0.3}
	chunks := []dto.TextChunk{{Content: "hello world", Index: 0, IsFinal: true, EndOffset: 11}}

	// Act
	err := cache.Set(ctx, "hello world", embedding, chunks, map[string]interface{}{"model": "test"})
	require.NoError(t, err)
	entry, err := cache.Get(ctx, "hello world")

	// Assert
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, embedding, entry.Embedding)
	assert.Equal(t, chunks, entry.Chunks)
	assert.Equal(t, 1, entry.AccessCount)
}

func TestMemoryCache_MissOnUnknownText(t *testing.T) {
	// Arrange
	ctx := context.Background()
	cache := newTestCache(Config{})

	// Act
	entry, err := cache.Get(ctx, "never stored")

	// Assert
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.False(t, cache.Has(ctx, "never stored"))
}

func TestMemoryCache_ExpiredEntryBehavesAsAbsent(t *testing.T) {
	// Arrange
	ctx := context.Background()
	cache := newTestCache(Config{TTL: time.Hour})
	now := time.Now()
	cache.now = func() time.Time { return now }
	require.NoError(t, cache.Set(ctx, "stale", []float32{1}, nil, nil))

	// Act: advance past the TTL without running Cleanup
	now = now.Add(2 * time.Hour)

	// Assert
	assert.False(t, cache.Has(ctx, "stale"))
	entry, err := cache.Get(ctx, "stale")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestMemoryCache_CleanupReportsRemovedCount(t *testing.T) {
	// Arrange
	ctx := context.Background()
	cache := newTestCache(Config{TTL: time.Hour})
	now := time.Now()
	cache.now = func() time.Time { return now }
	require.NoError(t, cache.Set(ctx, "old one", []float32{1}, nil, nil))
	require.NoError(t, cache.Set(ctx, "old two", []float32{2}, nil, nil))
	now = now.Add(90 * time.Minute)
	require.NoError(t, cache.Set(ctx, "fresh", []float32{3}, nil, nil))

	// Act
	removed := cache.Cleanup(ctx)

	// Assert
	assert.Equal(t, 2, removed)
	assert.True(t, cache.Has(ctx, "fresh"))
}

func TestMemoryCache_EvictsOldestTenPercentOnOverflow(t *testing.T) {
	// Arrange
	ctx := context.Background()
	cache := newTestCache(Config{MaxEntries: 10})
	now := time.Now()
	cache.now = func() time.Time { return now }
	for i := 0; i < 10; i++ {
		require.NoError(t, cache.Set(ctx, fmt.Sprintf("text-%02d", i), []float32{float32(i)}, nil, nil))
		now = now.Add(time.Second)
	}

	// Act
	require.NoError(t, cache.Set(ctx, "overflow", []float32{99}, nil, nil))

	// Assert: oldest entry evicted, newest kept
	assert.False(t, cache.Has(ctx, "text-00"))
	assert.True(t, cache.Has(ctx, "text-09"))
	assert.True(t, cache.Has(ctx, "overflow"))
	assert.Equal(t, 10, cache.Stats(ctx).Size)
}

func TestMemoryCache_StatsTrackHitsAndMisses(t *testing.T) {
	// Arrange
	ctx := context.Background()
	cache := newTestCache(Config{})
	require.NoError(t, cache.Set(ctx, "known", []float32{1}, nil, nil))

	// Act
	_, _ = cache.Get(ctx, "known")
	_, _ = cache.Get(ctx, "known")
	_, _ = cache.Get(ctx, "unknown")
	stats := cache.Stats(ctx)

	// Assert
	assert.Equal(t, int64(2), stats.TotalHits)
	assert.Equal(t, int64(1), stats.TotalMisses)
	assert.Equal(t, 1, stats.Size)
	require.NotNil(t, stats.OldestEntry)
	require.NotNil(t, stats.NewestEntry)
	assert.InDelta(t, 66.6, stats.HitRate(), 0.1)
}

func TestConfig_ClampsOutOfRangeValues(t *testing.T) {
	// Arrange / Act
	tooSmall := Config{MaxEntries: 1, TTL: time.Second}.Configure()
	tooLarge := Config{MaxEntries: 1_000_000, TTL: 365 * 24 * time.Hour}.Configure()
	zero := Config{}.Configure()

	// Assert
	assert.Equal(t, minEntries, tooSmall.MaxEntries)
	assert.Equal(t, minTTL, tooSmall.TTL)
	assert.Equal(t, maxEntries, tooLarge.MaxEntries)
	assert.Equal(t, maxTTL, tooLarge.TTL)
	assert.Equal(t, DefaultMaxEntries, zero.MaxEntries)
	assert.Equal(t, DefaultTTL, zero.TTL)
}
