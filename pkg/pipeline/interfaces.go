package pipeline

import (
	"context"
	"time"
)

//go:generate mockgen -source=interfaces.go -package=mock -destination=./mock/mock_pipeline.go

type Processing[Payload any] interface {
	Process(context.Context, Payload) error
}

type ErrorProcessing Processing[ErrProcessingError]

// Received is a decoded broker message along with the instant it was read.
type Received[Payload any] struct {
	Payload    Payload
	ReceivedAt time.Time
}

// ProcessingFunc adapts a function to the Processing interface.
type ProcessingFunc[Payload any] func(context.Context, Payload) error

func (f ProcessingFunc[Payload]) Process(ctx context.Context, payload Payload) error {
	return f(ctx, payload)
}
