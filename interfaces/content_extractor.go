package interfaces

import (
	"github.com/customeros/mailvector/dto"
	"github.com/customeros/mailvector/internal/enum"
)

// ContentExtractor turns raw attachment bytes into normalized plain text.
// Validate is always run before Parse; Parse never panics past its boundary,
// returning a placeholder result on failure so the pipeline can continue.
type ContentExtractor interface {
	Format() enum.AttachmentFormat
	Validate(buffer []byte, filename string) *dto.ValidationResult
	Parse(buffer []byte, filename string) *dto.ExtractionResult
}
