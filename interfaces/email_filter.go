package interfaces

import (
	"context"

	"github.com/customeros/mailvector/dto"
	"github.com/customeros/mailvector/internal/models"
)

type EmailFilterService interface {
	Decide(ctx context.Context, sender, subject, bodySnippet string, rules []models.UserFilterRule) dto.FilterDecision
}
