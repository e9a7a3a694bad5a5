package pipeline

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"github.com/go-logr/logr"
	"github.com/jonboulle/clockwork"
)

// JSONHandler decodes every claimed message into Payload and hands it to the processing.
// A message is always marked, failures go to the error processing: nothing is re-consumed.
type JSONHandler[Payload any] struct {
	logger *logr.Logger
	clock  clockwork.Clock

	processing      Processing[Received[Payload]]
	errorProcessing ErrorProcessing
}

func NewJSONHandler[Payload any](processing Processing[Received[Payload]], errProcessing ErrorProcessing) JSONHandler[Payload] {
	return JSONHandler[Payload]{
		clock:           clockwork.NewRealClock(),
		processing:      processing,
		errorProcessing: errProcessing,
	}
}

func (h JSONHandler[Payload]) WithLogger(logger logr.Logger) JSONHandler[Payload] {
	h.logger = &logger

	return h
}

func (h JSONHandler[Payload]) WithClock(clock clockwork.Clock) JSONHandler[Payload] {
	h.clock = clock

	return h
}

func (h JSONHandler[Payload]) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := session.Context()

	h.logInfo(0, "Start consuming",
		"topic", claim.Topic(),
		"partition", claim.Partition(),
		"initialOffset", claim.InitialOffset(),
	)

	for msg := range claim.Messages() {
		// If a re-balancing occurred, context will be canceled
		// Could also be a termination signal or anything
		if ctx.Err() != nil {
			break
		}

		if msg == nil {
			h.logInfo(1, "Nil message")

			continue
		}

		h.HandleMessage(ctx, msg)

		session.MarkMessage(msg, "")
	}

	return nil
}

// HandleMessage decodes and processes a single message.
func (h JSONHandler[Payload]) HandleMessage(ctx context.Context, msg *sarama.ConsumerMessage) {
	h.logInfo(3, "Processing message", "topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)

	received := Received[Payload]{ReceivedAt: h.clock.Now()}

	err := json.Unmarshal(msg.Value, &received.Payload)
	if err != nil { // Not retryable
		h.processError(ctx, msg, NewErrProcessingError(err, UnmarshalErrorCategory, nil))

		return
	}

	err = h.processing.Process(ctx, received)
	if err != nil {
		h.processError(ctx, msg, err)
	}
}

func (h JSONHandler[Payload]) processError(ctx context.Context, msg *sarama.ConsumerMessage, pipelineError error) {
	// If context has been cancelled, the process is stopping: only log
	err := ctx.Err()
	if err != nil {
		h.logInfo(1, "Not processing error, context has been cancelled")

		return
	}

	h.logError(pipelineError, "Processing failed", "topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)

	processingError := AsProcessingError(pipelineError)
	processingError.Event = msg

	err = h.errorProcessing.Process(ctx, processingError)
	if err != nil {
		h.logError(err, "Error pipeline failed")

		h.dumpErrorContext(msg, processingError)
	}
}

// Setup is run at the beginning of a new session, before ConsumeClaim.
func (h JSONHandler[Payload]) Setup(session sarama.ConsumerGroupSession) error {
	h.logInfo(0, "Setup to consume", "claims", session.Claims())

	return nil
}

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines have exited
// but before the offsets are committed for the very last time.
func (h JSONHandler[Payload]) Cleanup(session sarama.ConsumerGroupSession) error {
	h.logInfo(0, "Cleanup after consuming", "claims", session.Claims())

	return nil
}

func (h JSONHandler[Payload]) dumpErrorContext(msg *sarama.ConsumerMessage, err ErrProcessingError) {
	h.logError(err,
		"Failed to process message",
		"kafka.topic", msg.Topic,
		"kafka.partition", msg.Partition,
		"kafka.offset", msg.Offset,
		"kafka.payload", string(msg.Value),
		"additionalInputs", err.AdditionalInputs,
		"category", err.Category,
	)
}

func (h JSONHandler[Payload]) logInfo(level int, msg string, keysAndValues ...any) {
	if h.logger == nil {
		return
	}

	h.logger.V(level).Info(msg, keysAndValues...)
}

func (h JSONHandler[Payload]) logError(err error, msg string, keysAndValues ...any) {
	if h.logger == nil {
		return
	}

	h.logger.Error(err, msg, keysAndValues...)
}
