package interfaces

import (
	"context"

	"github.com/customeros/mailvector/dto"
	"github.com/customeros/mailvector/internal/models"
)

type VectorizationService interface {
	// FilterNewEmails drops candidates whose message id is already present in
	// the store, preserving input order.
	FilterNewEmails(ctx context.Context, emails []*models.Email) ([]*models.Email, error)

	// IngestEmails runs phase one of the pipeline: dedup, apply the user's
	// filter rules, and persist the records. Filtered-out emails are stored
	// with Indexable false so the vectorization phase skips them.
	IngestEmails(ctx context.Context, userID string, emails []*models.Email) ([]*models.Email, error)

	// VectorizeBatch embeds the given emails, skipping already-vectorized
	// records. Per-email failures are collected, never propagated.
	VectorizeBatch(ctx context.Context, emails []*models.Email, opts dto.VectorizeOptions) *dto.VectorizationOutcome

	// VectorizePending picks up records with a null embedding and runs them
	// through VectorizeBatch. Invoked by the sweep cron.
	VectorizePending(ctx context.Context, userID string, limit int) (*dto.VectorizationOutcome, error)
}
