package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/customeros/mailvector/internal/enum"
	"github.com/customeros/mailvector/internal/utils"
)

// UserFilterRule is a user-configured allow/deny pattern applied before
// indexing. Deny rules win over allow rules; an empty rule set indexes
// everything.
type UserFilterRule struct {
	ID       string               `gorm:"column:id;type:varchar(50);primaryKey"`
	UserID   string               `gorm:"column:user_id;type:varchar(50);index;not null"`
	RuleType enum.FilterRuleType  `gorm:"column:rule_type;type:varchar(20);not null"`
	Field    enum.FilterRuleField `gorm:"column:field;type:varchar(20);not null"`
	Pattern  string               `gorm:"column:pattern;type:varchar(500);not null"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
}

func (UserFilterRule) TableName() string {
	return "user_filter_rules"
}

func (r *UserFilterRule) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = utils.GenerateNanoIdWithPrefix("rule", 16)
	}
	r.CreatedAt = utils.Now()
	return nil
}
