package repository

import (
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pgvector/pgvector-go"
	"golang.org/x/net/context"
	"gorm.io/gorm"

	"github.com/customeros/mailvector/dto"
	"github.com/customeros/mailvector/interfaces"
	"github.com/customeros/mailvector/internal/models"
	"github.com/customeros/mailvector/internal/tracing"
	"github.com/customeros/mailvector/internal/utils"
)

type emailVectorRepository struct {
	db *gorm.DB
}

func NewEmailVectorRepository(db *gorm.DB) interfaces.EmailVectorRepository {
	return &emailVectorRepository{
		db: db,
	}
}

// ExistingIDs returns the subset of messageIDs already present in the store,
// used for dedup before ingestion.
func (r *emailVectorRepository) ExistingIDs(ctx context.Context, messageIDs []string) (map[string]bool, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailVectorRepository.ExistingIDs")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	existing := make(map[string]bool, len(messageIDs))
	if len(messageIDs) == 0 {
		return existing, nil
	}

	var found []string
	err := r.db.WithContext(ctx).
		Model(&models.Email{}).
		Where("message_id IN ?", messageIDs).
		Pluck("message_id", &found).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, newStoreError("existing ids lookup", err)
	}

	for _, id := range found {
		existing[id] = true
	}
	span.LogKV("candidates", len(messageIDs), "existing", len(found))
	return existing, nil
}

func (r *emailVectorRepository) InsertBatch(ctx context.Context, emails []*models.Email) ([]*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailVectorRepository.InsertBatch")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	if len(emails) == 0 {
		return nil, nil
	}

	if err := r.db.WithContext(ctx).CreateInBatches(emails, 100).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, newStoreError("insert batch", err)
	}
	return emails, nil
}

// UpsertEmbeddings writes staged embeddings keyed by email id. Idempotent:
// re-running with the same items rewrites identical values. Empty input is a
// no-op.
func (r *emailVectorRepository) UpsertEmbeddings(ctx context.Context, items []dto.EmbeddingUpsertItem) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailVectorRepository.UpsertEmbeddings")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	if len(items) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := utils.Now()
		for _, item := range items {
			vec := pgvector.NewVector(item.Embedding)
			chunkMeta := models.JSONMap{
				"chunkCount": len(item.Chunks),
			}
			if len(item.Chunks) > 0 {
				offsets := make([]map[string]interface{}, 0, len(item.Chunks))
				for _, c := range item.Chunks {
					offsets = append(offsets, map[string]interface{}{
						"index": c.Index,
						"start": c.StartOffset,
						"end":   c.EndOffset,
						"final": c.IsFinal,
					})
				}
				chunkMeta["chunks"] = offsets
			}

			result := tx.Model(&models.Email{}).
				Where("id = ?", item.EmailID).
				Updates(map[string]interface{}{
					"embedding":     &vec,
					"chunk_meta":    chunkMeta,
					"token_count":   item.TokenCount,
					"vectorized_at": &now,
					"updated_at":    now,
				})
			if result.Error != nil {
				return result.Error
			}
		}
		return nil
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return newStoreError("upsert embeddings", err)
	}

	span.LogKV("upserted", len(items))
	return nil
}

// FindSimilar runs a cosine similarity search over vectorized records,
// excluding filtered-out rows and rows without an embedding.
func (r *emailVectorRepository) FindSimilar(ctx context.Context, queryVector []float32, opts interfaces.SimilaritySearchOptions) ([]dto.SimilarEmail, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailVectorRepository.FindSimilar")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	vec := pgvector.NewVector(queryVector)

	query := `
		SELECT id, message_id, subject, left(body_text, 200) AS snippet,
		       1 - (embedding <=> ?) AS similarity
		FROM emails
		WHERE embedding IS NOT NULL
		  AND indexable = true
		  AND deleted_at IS NULL`
	args := []interface{}{vec}

	if opts.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, opts.UserID)
	}
	if opts.Threshold > 0 {
		query += " AND 1 - (embedding <=> ?) >= ?"
		args = append(args, vec, opts.Threshold)
	}
	query += " ORDER BY embedding <=> ? LIMIT ?"
	args = append(args, vec, limit)

	var results []dto.SimilarEmail
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&results).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, newStoreError("similarity search", err)
	}

	span.LogKV("results", len(results))
	return results, nil
}

func (r *emailVectorRepository) IsVectorized(ctx context.Context, emailID string) (bool, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailVectorRepository.IsVectorized")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagEntity(span, emailID)

	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Email{}).
		Where("id = ? AND embedding IS NOT NULL", emailID).
		Count(&count).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return false, newStoreError("vectorized check", err)
	}
	return count > 0, nil
}

// ClearEmbedding nulls the embedding fields so the record becomes eligible
// for re-vectorization on the next sweep.
func (r *emailVectorRepository) ClearEmbedding(ctx context.Context, emailID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailVectorRepository.ClearEmbedding")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagEntity(span, emailID)

	err := r.db.WithContext(ctx).
		Model(&models.Email{}).
		Where("id = ?", emailID).
		Updates(map[string]interface{}{
			"embedding":     nil,
			"chunk_meta":    nil,
			"token_count":   0,
			"vectorized_at": nil,
			"updated_at":    utils.Now(),
		}).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return newStoreError("clear embedding", err)
	}
	return nil
}

func (r *emailVectorRepository) ListPendingVectorization(ctx context.Context, userID string, limit int) ([]*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailVectorRepository.ListPendingVectorization")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	if limit <= 0 {
		limit = 100
	}

	query := r.db.WithContext(ctx).
		Where("embedding IS NULL AND indexable = true")
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}

	var emails []*models.Email
	if err := query.Order("created_at ASC").Limit(limit).Find(&emails).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, newStoreError("pending vectorization list", err)
	}
	return emails, nil
}

func (r *emailVectorRepository) LastSyncTimestamp(ctx context.Context, userID string) (*time.Time, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailVectorRepository.LastSyncTimestamp")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	var email models.Email
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&email).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, newStoreError("last sync timestamp", err)
	}
	return &email.CreatedAt, nil
}
