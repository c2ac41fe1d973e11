package dto

import "github.com/customeros/mailvector/internal/enum"

// TextChunk is a bounded-length slice of cleaned text prepared for embedding.
// Chunks are ordered; concatenating the non-overlap regions reconstructs the
// cleaned text.
type TextChunk struct {
	Content     string `json:"content"`
	Index       int    `json:"index"`
	IsFinal     bool   `json:"isFinal"`
	StartOffset int    `json:"startOffset"`
	EndOffset   int    `json:"endOffset"`
}

type TextSizeValidation struct {
	IsValid         bool   `json:"isValid"`
	EstimatedTokens int    `json:"estimatedTokens"`
	Reason          string `json:"reason,omitempty"`
}

type FilterDecision struct {
	Indexable bool               `json:"indexable"`
	Outcome   enum.FilterOutcome `json:"outcome"`
	Reason    string             `json:"reason,omitempty"`
}
