package interfaces

import (
	"context"

	"github.com/customeros/mailvector/dto"
)

type AttachmentService interface {
	Classify(attachments []dto.AttachmentDescriptor) dto.AttachmentClassification
	Process(ctx context.Context, buffer []byte, descriptor dto.AttachmentDescriptor) (*dto.ExtractedAttachment, error)
	ProcessAll(ctx context.Context, items []dto.AttachmentBuffer) *dto.AttachmentBatchResult
}
