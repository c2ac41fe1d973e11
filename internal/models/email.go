package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/customeros/mailvector/dto"
	"github.com/customeros/mailvector/internal/enum"
	"github.com/customeros/mailvector/internal/utils"
)

// Email represents a stored email record owned by the vectorization pipeline.
// The embedding column stays null until the record is vectorized; it is never
// recomputed unless explicitly cleared.
type Email struct {
	ID        string `gorm:"column:id;type:varchar(50);primaryKey"`
	UserID    string `gorm:"column:user_id;type:varchar(50);index;not null"`
	MessageID string `gorm:"column:message_id;uniqueIndex;type:varchar(255);not null"`
	ThreadID  string `gorm:"column:thread_id;type:varchar(255);index"`

	// Core email metadata
	Subject     string         `gorm:"column:subject;type:varchar(1000)"`
	FromAddress string         `gorm:"column:from_address;type:varchar(255);index"`
	ToAddresses pq.StringArray `gorm:"column:to_addresses;type:text[]"`

	// Time information
	SentAt *time.Time `gorm:"column:sent_at;type:timestamp;index"`

	// Content
	BodyText      string         `gorm:"column:body_text;type:text"`
	HasAttachment bool           `gorm:"column:has_attachment;default:false"`
	Attachments   AttachmentList `gorm:"column:attachments;type:jsonb"`

	// Filter outcome
	Indexable    bool               `gorm:"column:indexable;default:true;index"`
	FilterReason enum.FilterOutcome `gorm:"column:filter_reason;type:varchar(50)"`

	// Vectorization state
	Embedding    *pgvector.Vector `gorm:"column:embedding;type:vector(1536)"`
	ChunkMeta    JSONMap          `gorm:"column:chunk_meta;type:jsonb"`
	TokenCount   int              `gorm:"column:token_count"`
	VectorizedAt *time.Time       `gorm:"column:vectorized_at;type:timestamp;index"`

	// Standard timestamps
	CreatedAt time.Time      `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt time.Time      `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (Email) TableName() string {
	return "emails"
}

func (e *Email) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = utils.GenerateNanoIdWithPrefix("email", 24)
	}
	e.CreatedAt = utils.Now()
	return nil
}

func (e *Email) IsVectorized() bool {
	return e.Embedding != nil && e.VectorizedAt != nil
}

// EmailFromRawMessage maps a fetched message onto a new storable record.
// Attachment descriptors are carried over so a later vectorization pass can
// fetch the bytes from the mail source.
func EmailFromRawMessage(userID string, msg dto.RawMessage) *Email {
	email := &Email{
		UserID:        userID,
		MessageID:     msg.MessageID,
		ThreadID:      msg.ThreadID,
		Subject:       msg.Subject,
		FromAddress:   msg.From,
		ToAddresses:   msg.To,
		SentAt:        msg.SentAt,
		BodyText:      msg.Body,
		HasAttachment: msg.HasAttachments,
		Indexable:     true,
	}
	for _, att := range msg.Attachments {
		email.Attachments = append(email.Attachments, StoredAttachment{
			ID:          att.ID,
			Filename:    att.Filename,
			MimeType:    att.MimeType,
			SizeBytes:   att.SizeBytes,
			ProviderRef: att.ProviderRef,
		})
	}
	return email
}
