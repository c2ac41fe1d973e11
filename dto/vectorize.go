package dto

import "github.com/customeros/mailvector/internal/enum"

type VectorizeOptions struct {
	BatchSize          int    `json:"batchSize"`
	IncludeAttachments bool   `json:"includeAttachments"`
	UserID             string `json:"userId"`
}

type VectorizationError struct {
	MessageID string                          `json:"messageId"`
	Category  enum.VectorizationErrorCategory `json:"category"`
	Message   string                          `json:"message"`
}

// VectorizationOutcome aggregates one batch invocation. Built fresh per batch,
// logged and reported, never persisted.
type VectorizationOutcome struct {
	Processed  int                  `json:"processed"`
	Skipped    int                  `json:"skipped"`
	Errored    int                  `json:"errored"`
	Errors     []VectorizationError `json:"errors,omitempty"`
	CacheStats CacheStats           `json:"cacheStats"`
}

// CostSavingsPercent is the share of embedding requests served from cache
// instead of the external API.
func (o *VectorizationOutcome) CostSavingsPercent() float64 {
	return o.CacheStats.HitRate()
}
