package dto

import "time"

// EmailVectorized is published after a batch of embeddings is persisted.
type EmailVectorized struct {
	UserID       string    `json:"userId"`
	EmailIDs     []string  `json:"emailIds"`
	VectorizedAt time.Time `json:"vectorizedAt"`
}
