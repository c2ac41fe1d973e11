package interfaces

import (
	"context"

	"github.com/customeros/mailvector/dto"
)

type EventPublisher interface {
	PublishEmailVectorized(ctx context.Context, event dto.EmailVectorized) error
	Close() error
}
