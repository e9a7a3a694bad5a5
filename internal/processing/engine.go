package processing

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/go-logr/logr"

	"github.com/fleetpulse/fleet-telemetry/internal/domain/entity"
	"github.com/fleetpulse/fleet-telemetry/pkg/broadcast"
	"github.com/fleetpulse/fleet-telemetry/pkg/pipeline"
)

// Engine consumes the event stream on a fixed set of workers.
// Events of one entity always land on the same worker so they are applied in order.
type Engine struct {
	events          *broadcast.Subscription[entity.Event]
	processing      pipeline.Processing[entity.Event]
	errorProcessing pipeline.ErrorProcessing

	workers int
	buffer  int

	logger logr.Logger
}

// NewEngine subscribes right away: no event published once it returns is missed.
func NewEngine(source Source, processing pipeline.Processing[entity.Event], errorProcessing pipeline.ErrorProcessing, workers, buffer int) Engine {
	if workers < 1 {
		workers = 1
	}

	return Engine{
		events:          source.OnEvent(buffer),
		processing:      processing,
		errorProcessing: errorProcessing,
		workers:         workers,
		buffer:          buffer,
		logger:          logr.Discard(),
	}
}

func (e Engine) WithLogger(logger logr.Logger) Engine {
	e.logger = logger

	return e
}

// Run blocks until ctx is cancelled or the source is closed.
func (e Engine) Run(ctx context.Context) error {
	sub := e.events
	defer sub.Unsubscribe()

	queues := make([]chan entity.Event, e.workers)

	var wg sync.WaitGroup

	for i := range queues {
		queues[i] = make(chan entity.Event, e.buffer/e.workers+1)

		wg.Add(1)

		go func(queue <-chan entity.Event) {
			defer wg.Done()

			for event := range queue {
				e.process(ctx, event)
			}
		}(queues[i])
	}

	defer func() {
		for _, queue := range queues {
			close(queue)
		}

		wg.Wait()

		e.logger.V(1).Info("Sync engine stopped")
	}()

	e.logger.V(1).Info("Sync engine started", "workers", e.workers)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-sub.C():
			if !ok {
				return nil
			}

			queue := queues[e.route(event.EntityID)]

			select {
			case queue <- event:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (e Engine) process(ctx context.Context, event entity.Event) {
	err := e.processing.Process(ctx, event)
	if err == nil {
		return
	}

	// Stopping: only log
	if ctx.Err() != nil {
		e.logger.V(1).Info("Not processing error, context has been cancelled", "kind", event.Kind, "entityID", event.EntityID)

		return
	}

	processingError := pipeline.AsProcessingError(err)

	err = e.errorProcessing.Process(ctx, processingError)
	if err != nil {
		e.logger.Error(err, "Error pipeline failed", "kind", event.Kind, "entityID", event.EntityID, "category", processingError.Category)
	}
}

func (e Engine) route(id string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))

	return int(h.Sum32() % uint32(e.workers))
}
