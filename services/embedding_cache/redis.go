package embedding_cache

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/customeros/mailvector/dto"
	"github.com/customeros/mailvector/interfaces"
	"github.com/customeros/mailvector/internal/logger"
	"github.com/customeros/mailvector/internal/utils"
)

const redisKeyPrefix = "mailvector:embedding:"

// redisCache shares cached embeddings across pipeline instances. Expiry is
// delegated to redis TTLs, so Cleanup is a no-op here.
type redisCache struct {
	client *redis.Client
	cfg    Config
	log    logger.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

func NewRedisCache(redisURL string, cfg Config, log logger.Logger) (interfaces.EmbeddingCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid redis url")
	}
	return &redisCache{
		client: redis.NewClient(opts),
		cfg:    cfg.Configure(),
		log:    log,
	}, nil
}

func (c *redisCache) Get(ctx context.Context, text string) (*dto.CacheEntry, error) {
	key := redisKeyPrefix + utils.HashContent(text)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		c.misses.Add(1)
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "redis get")
	}

	var entry dto.CacheEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		// A corrupt entry behaves like a miss; it will be overwritten
		c.log.Warnf("dropping corrupt cache entry %s: %v", key, err)
		c.client.Del(ctx, key)
		c.misses.Add(1)
		return nil, nil
	}

	entry.AccessCount++
	c.hits.Add(1)
	return &entry, nil
}

func (c *redisCache) Set(ctx context.Context, text string, embedding []float32, chunks []dto.TextChunk, metadata map[string]interface{}) error {
	key := redisKeyPrefix + utils.HashContent(text)

	payload, err := json.Marshal(dto.CacheEntry{
		Embedding:  embedding,
		Chunks:     chunks,
		Metadata:   metadata,
		InsertedAt: utils.Now(),
	})
	if err != nil {
		return errors.Wrap(err, "marshal cache entry")
	}

	if err := c.client.Set(ctx, key, payload, c.cfg.TTL).Err(); err != nil {
		return errors.Wrap(err, "redis set")
	}
	return nil
}

func (c *redisCache) Has(ctx context.Context, text string) bool {
	key := redisKeyPrefix + utils.HashContent(text)
	count, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false
	}
	return count > 0
}

func (c *redisCache) Cleanup(ctx context.Context) int {
	// redis expires keys on its own
	return 0
}

func (c *redisCache) Stats(ctx context.Context) dto.CacheStats {
	stats := dto.CacheStats{
		TotalHits:   c.hits.Load(),
		TotalMisses: c.misses.Load(),
	}

	// SCAN keeps the count incremental; KEYS would block redis on large
	// keyspaces
	iter := c.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	count := 0
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		c.log.Warnf("cache stats key scan failed: %v", err)
		return stats
	}
	stats.Size = count
	return stats
}
