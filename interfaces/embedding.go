package interfaces

import (
	"context"

	"github.com/customeros/mailvector/dto"
)

// EmbeddingClient calls the external embedding API. All methods reject
// empty/whitespace-only input before any network call and go through the
// client's retry policy.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) (*dto.EmbeddingResult, error)
	EmbedBatch(ctx context.Context, texts []string) (*dto.BatchEmbeddingResult, error)
	EmbedMany(ctx context.Context, texts []string) (*dto.BatchEmbeddingResult, error)
}

// EmbeddingCache is a content-hash-keyed store of previously computed
// embeddings. Expired entries are treated as absent and purged lazily.
type EmbeddingCache interface {
	Get(ctx context.Context, text string) (*dto.CacheEntry, error)
	Set(ctx context.Context, text string, embedding []float32, chunks []dto.TextChunk, metadata map[string]interface{}) error
	Has(ctx context.Context, text string) bool
	Cleanup(ctx context.Context) int
	Stats(ctx context.Context) dto.CacheStats
}
