package dto

import "time"

// EmbeddingResult is produced only by the embedding client and never mutated
// after creation.
type EmbeddingResult struct {
	Vector     []float32 `json:"vector"`
	TokenCount int       `json:"tokenCount"`
}

type BatchEmbeddingResult struct {
	Vectors     [][]float32 `json:"vectors"`
	TotalTokens int         `json:"totalTokens"`
}

// CacheEntry is a previously computed embedding keyed by a content hash of
// the normalized input text.
type CacheEntry struct {
	Embedding   []float32              `json:"embedding"`
	Chunks      []TextChunk            `json:"chunks"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	InsertedAt  time.Time              `json:"insertedAt"`
	AccessCount int                    `json:"accessCount"`
}

type CacheStats struct {
	TotalHits   int64      `json:"totalHits"`
	TotalMisses int64      `json:"totalMisses"`
	Size        int        `json:"size"`
	OldestEntry *time.Time `json:"oldestEntry,omitempty"`
	NewestEntry *time.Time `json:"newestEntry,omitempty"`
}

// HitRate returns the fraction of lookups served from cache, in percent.
func (s CacheStats) HitRate() float64 {
	total := s.TotalHits + s.TotalMisses
	if total == 0 {
		return 0
	}
	return float64(s.TotalHits) / float64(total) * 100
}

// SimilarEmail is one ranked result of a similarity search.
type SimilarEmail struct {
	ID         string  `json:"id"`
	MessageID  string  `json:"messageId"`
	Subject    string  `json:"subject"`
	Snippet    string  `json:"snippet"`
	Similarity float64 `json:"similarity"`
}

// EmbeddingUpsertItem is one staged embedding for batched persistence.
type EmbeddingUpsertItem struct {
	EmailID    string      `json:"emailId"`
	Embedding  []float32   `json:"embedding"`
	Chunks     []TextChunk `json:"chunks"`
	TokenCount int         `json:"tokenCount"`
}
