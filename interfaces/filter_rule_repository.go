package interfaces

import (
	"context"

	"github.com/customeros/mailvector/internal/models"
)

type FilterRuleRepository interface {
	RulesForUser(ctx context.Context, userID string) ([]models.UserFilterRule, error)
}
