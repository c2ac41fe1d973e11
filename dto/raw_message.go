package dto

import "time"

// RawMessage is an email message as returned by the external mail source
// client. Immutable once fetched.
type RawMessage struct {
	MessageID      string                 `json:"messageId"`
	ThreadID       string                 `json:"threadId"`
	Subject        string                 `json:"subject"`
	From           string                 `json:"from"`
	To             []string               `json:"to"`
	Body           string                 `json:"body"`
	SentAt         *time.Time             `json:"sentAt"`
	Attachments    []AttachmentDescriptor `json:"attachments"`
	HasAttachments bool                   `json:"hasAttachments"`
}

// AttachmentDescriptor identifies an attachment within a message. The
// ProviderRef is whatever handle the mail source needs to fetch the bytes.
type AttachmentDescriptor struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	MimeType    string `json:"mimeType"`
	SizeBytes   int64  `json:"sizeBytes"`
	ProviderRef string `json:"providerRef"`
}
