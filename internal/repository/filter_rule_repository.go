package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/customeros/mailvector/interfaces"
	"github.com/customeros/mailvector/internal/models"
	"github.com/customeros/mailvector/internal/tracing"
)

type filterRuleRepository struct {
	db *gorm.DB
}

func NewFilterRuleRepository(db *gorm.DB) interfaces.FilterRuleRepository {
	return &filterRuleRepository{
		db: db,
	}
}

func (r *filterRuleRepository) RulesForUser(ctx context.Context, userID string) ([]models.UserFilterRule, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "filterRuleRepository.RulesForUser")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagUserId(span, userID)

	var rules []models.UserFilterRule
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&rules).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, newStoreError("filter rules lookup", err)
	}
	return rules, nil
}
