package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/go-logr/logr"
)

// Runner drives a consumer group over a JSONHandler until its context is cancelled.
type Runner[Payload any] struct {
	consumer sarama.ConsumerGroup
	topics   []string

	handler JSONHandler[Payload]

	logger *logr.Logger
}

func NewRunner[Payload any](consumer sarama.ConsumerGroup, topics []string, handler JSONHandler[Payload]) Runner[Payload] {
	return Runner[Payload]{
		consumer: consumer,
		topics:   topics,
		handler:  handler,
	}
}

func (r Runner[Payload]) WithLogger(logger logr.Logger) Runner[Payload] {
	r.logger = &logger
	r.handler = r.handler.WithLogger(logger)

	return r
}

func (r Runner[Payload]) Start(ctx context.Context) error {
	go func() {
		for err := range r.consumer.Errors() {
			r.logError(err, "kafka consumer error")
		}
	}()

	for {
		err := r.consumer.Consume(ctx, r.topics, r.handler)
		if errors.Is(err, sarama.ErrClosedConsumerGroup) {
			r.logInfo(0, "Consumer group closed")

			return nil
		}

		if err != nil {
			r.logError(err, "Consumer failed")

			return fmt.Errorf("consumer failed: %w", err)
		}

		// If context is cancelled, no need to keep looping
		err = ctx.Err()
		if err != nil {
			r.logInfo(0, "Context expired")

			return err
		}
	}
}

func (r Runner[Payload]) Close() error {
	return r.consumer.Close()
}

func (r Runner[Payload]) logInfo(level int, msg string, keysAndValues ...any) {
	if r.logger == nil {
		return
	}

	r.logger.V(level).Info(msg, keysAndValues...)
}

func (r Runner[Payload]) logError(err error, msg string, keysAndValues ...any) {
	if r.logger == nil {
		return
	}

	r.logger.Error(err, msg, keysAndValues...)
}
