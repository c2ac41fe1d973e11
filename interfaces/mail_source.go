package interfaces

import (
	"context"
	"time"

	"github.com/customeros/mailvector/dto"
)

// MailSourceClient is the external mail-provider client. Message identifiers
// are assumed stable and globally unique per user.
type MailSourceClient interface {
	FetchMessagesAfter(ctx context.Context, since time.Time, folders []string) ([]dto.RawMessage, error)
	FetchAttachmentBytes(ctx context.Context, messageID, attachmentID string) ([]byte, error)
}
