package interfaces

import "github.com/customeros/mailvector/dto"

// MailParserService converts a raw RFC822 message into a RawMessage, for
// callers that hold raw bytes instead of a provider API response.
type MailParserService interface {
	ParseRawMessage(raw []byte) (*dto.RawMessage, error)
}
