package interfaces

import (
	"context"
	"time"

	"github.com/customeros/mailvector/dto"
	"github.com/customeros/mailvector/internal/models"
)

type SimilaritySearchOptions struct {
	Limit     int
	Threshold float64
	UserID    string
}

// EmailVectorRepository is the persistence gateway for stored email records
// and their embeddings.
type EmailVectorRepository interface {
	ExistingIDs(ctx context.Context, messageIDs []string) (map[string]bool, error)
	InsertBatch(ctx context.Context, emails []*models.Email) ([]*models.Email, error)
	UpsertEmbeddings(ctx context.Context, items []dto.EmbeddingUpsertItem) error
	FindSimilar(ctx context.Context, queryVector []float32, opts SimilaritySearchOptions) ([]dto.SimilarEmail, error)
	IsVectorized(ctx context.Context, emailID string) (bool, error)
	ClearEmbedding(ctx context.Context, emailID string) error
	ListPendingVectorization(ctx context.Context, userID string, limit int) ([]*models.Email, error)
	LastSyncTimestamp(ctx context.Context, userID string) (*time.Time, error)
}
