package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// common errors
	ErrNotFound          = errors.New("record not found")
	ErrConnectionTimeout = errors.New("connection timeout")

	// text validation errors
	ErrEmptyText    = errors.New("text is empty")
	ErrTextTooLarge = errors.New("text exceeds embedding model token limit")

	// attachment errors
	ErrAttachmentTooLarge    = errors.New("attachment exceeds maximum size")
	ErrAttachmentTooSmall    = errors.New("attachment too small for format signature check")
	ErrUnsupportedAttachment = errors.New("unsupported attachment type")
	ErrInvalidFormat         = errors.New("invalid format signature")
)

// EmbeddingErrorCode is the structured classification of an embedding API
// failure. Retry decisions are made from the code, never from the message.
type EmbeddingErrorCode string

const (
	EmbeddingErrorRateLimit       EmbeddingErrorCode = "rate_limit"
	EmbeddingErrorAuth            EmbeddingErrorCode = "auth"
	EmbeddingErrorInvalidRequest  EmbeddingErrorCode = "invalid_request"
	EmbeddingErrorContentTooLarge EmbeddingErrorCode = "content_too_large"
	EmbeddingErrorTimeout         EmbeddingErrorCode = "timeout"
	EmbeddingErrorServer          EmbeddingErrorCode = "server"
	EmbeddingErrorNetwork         EmbeddingErrorCode = "network"
	EmbeddingErrorUnknown         EmbeddingErrorCode = "unknown"
)

type EmbeddingAPIError struct {
	Code       EmbeddingErrorCode
	StatusCode int
	Message    string
}

func (e *EmbeddingAPIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("embedding api error (%s, status %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("embedding api error (%s): %s", e.Code, e.Message)
}

func (e *EmbeddingAPIError) Retryable() bool {
	switch e.Code {
	case EmbeddingErrorRateLimit, EmbeddingErrorTimeout, EmbeddingErrorServer, EmbeddingErrorNetwork:
		return true
	default:
		return false
	}
}

func NewEmbeddingAPIError(code EmbeddingErrorCode, statusCode int, message string) *EmbeddingAPIError {
	return &EmbeddingAPIError{
		Code:       code,
		StatusCode: statusCode,
		Message:    message,
	}
}

// ClassifyHTTPStatus maps an embedding API response status to an error code.
func ClassifyHTTPStatus(statusCode int) EmbeddingErrorCode {
	switch {
	case statusCode == 401 || statusCode == 403:
		return EmbeddingErrorAuth
	case statusCode == 408:
		return EmbeddingErrorTimeout
	case statusCode == 413:
		return EmbeddingErrorContentTooLarge
	case statusCode == 429:
		return EmbeddingErrorRateLimit
	case statusCode >= 500:
		return EmbeddingErrorServer
	case statusCode >= 400:
		return EmbeddingErrorInvalidRequest
	default:
		return EmbeddingErrorUnknown
	}
}

// AsEmbeddingAPIError unwraps err looking for an EmbeddingAPIError.
func AsEmbeddingAPIError(err error) (*EmbeddingAPIError, bool) {
	var apiErr *EmbeddingAPIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsRetryable reports whether err is classified as safe to retry.
func IsRetryable(err error) bool {
	if apiErr, ok := AsEmbeddingAPIError(err); ok {
		return apiErr.Retryable()
	}
	return errors.Is(err, ErrConnectionTimeout)
}
