package dto

// AttachmentClassification splits a message's attachments into those the
// pipeline can extract text from and those it cannot.
type AttachmentClassification struct {
	Supported      []AttachmentDescriptor `json:"supported"`
	Unsupported    []AttachmentDescriptor `json:"unsupported"`
	TotalSizeBytes int64                  `json:"totalSizeBytes"`
}

// AttachmentBuffer pairs a descriptor with its fetched bytes.
type AttachmentBuffer struct {
	Descriptor AttachmentDescriptor
	Buffer     []byte
}

// ExtractedAttachment is the text extracted from one attachment. It is merged
// into the message text and discarded, never persisted on its own.
type ExtractedAttachment struct {
	AttachmentID string `json:"attachmentId"`
	Filename     string `json:"filename"`
	MimeType     string `json:"mimeType"`
	SizeBytes    int64  `json:"sizeBytes"`
	Text         string `json:"text"`
}

type SkippedAttachment struct {
	AttachmentID string `json:"attachmentId"`
	Filename     string `json:"filename"`
	Reason       string `json:"reason"`
}

type AttachmentError struct {
	AttachmentID string `json:"attachmentId"`
	Filename     string `json:"filename"`
	Reason       string `json:"reason"`
}

type AttachmentBatchStats struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Errored   int `json:"errored"`
}

// AttachmentBatchResult aggregates per-item outcomes; a single bad attachment
// never aborts the batch.
type AttachmentBatchResult struct {
	Processed []ExtractedAttachment `json:"processed"`
	Skipped   []SkippedAttachment   `json:"skipped"`
	Errors    []AttachmentError     `json:"errors"`
	Stats     AttachmentBatchStats  `json:"stats"`
}
