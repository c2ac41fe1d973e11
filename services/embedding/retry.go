package embedding

import (
	"context"
	"time"

	"github.com/jpillora/backoff"

	er "github.com/customeros/mailvector/internal/errors"
	"github.com/customeros/mailvector/internal/logger"
)

// RetryPolicy retries an operation on transient embedding API failures.
// Non-retryable failures (auth, invalid request, content too large) surface
// immediately.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	log         logger.Logger
}

func NewRetryPolicy(maxAttempts int, baseDelay time.Duration, log logger.Logger) *RetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &RetryPolicy{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		MaxDelay:    30 * time.Second,
		log:         log,
	}
}

func (p *RetryPolicy) Do(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	b := &backoff.Backoff{
		Min:    p.BaseDelay,
		Max:    p.MaxDelay,
		Factor: 2,
		Jitter: true,
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !er.IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == p.MaxAttempts {
			break
		}

		delay := b.Duration()
		p.log.Warnf("%s attempt %d/%d failed, retrying in %s: %v", operation, attempt, p.MaxAttempts, delay, lastErr)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
