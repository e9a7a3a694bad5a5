package ingest

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fleetpulse/fleet-telemetry/internal/domain/entity"
	"github.com/fleetpulse/fleet-telemetry/pkg/broadcast"
	"github.com/fleetpulse/fleet-telemetry/pkg/pipeline"
)

// Runner consumes the broker until its context is cancelled.
type Runner interface {
	Start(ctx context.Context) error
}

// NewBroadcaster creates the event stream. A full subscriber queue drops its oldest event,
// each drop is logged and counted.
func NewBroadcaster(registry prometheus.Registerer, logger logr.Logger) (*broadcast.Broadcaster[entity.Event], error) {
	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ingest",
		Name:      "dropped_total",
		Help:      "Events dropped for a slow subscriber by kind.",
	}, []string{"kind"})

	err := registry.Register(dropped)
	if err != nil {
		return nil, fmt.Errorf("failed to register metric: %w", err)
	}

	ret := broadcast.New[entity.Event]().OnDrop(func(sub *broadcast.Subscription[entity.Event], event entity.Event) {
		dropped.WithLabelValues(string(event.Kind)).Inc()

		logger.Info("Subscriber queue full, dropping oldest event",
			"kind", event.Kind,
			"entityID", event.EntityID,
			"droppedForSubscriber", sub.Dropped(),
		)
	})

	return ret, nil
}

// Publisher hands every normalized event to the broadcaster.
type Publisher struct {
	broadcaster *broadcast.Broadcaster[entity.Event]
}

func NewPublisher(broadcaster *broadcast.Broadcaster[entity.Event]) Publisher {
	return Publisher{
		broadcaster: broadcaster,
	}
}

func (p Publisher) Process(_ context.Context, event entity.Event) error {
	p.broadcaster.Publish(event)

	return nil
}

// Normalize turns decoded broker messages into events for the next processing.
type Normalize struct {
	next pipeline.Processing[entity.Event]
}

func NewNormalize(next pipeline.Processing[entity.Event]) Normalize {
	return Normalize{
		next: next,
	}
}

func (p Normalize) Process(ctx context.Context, received pipeline.Received[Message]) error {
	event, err := Parse(received.Payload, received.ReceivedAt)
	if err != nil {
		return err
	}

	return p.next.Process(ctx, event)
}

// Service is the ingest entry point: it owns the broker runner and the event stream.
type Service struct {
	runner      Runner
	broadcaster *broadcast.Broadcaster[entity.Event]

	logger logr.Logger
}

func NewService(runner Runner, broadcaster *broadcast.Broadcaster[entity.Event]) Service {
	return Service{
		runner:      runner,
		broadcaster: broadcaster,
		logger:      logr.Discard(),
	}
}

func (s Service) WithLogger(logger logr.Logger) Service {
	s.logger = logger

	return s
}

// Start consumes until ctx is cancelled. The stream is closed on return so every subscriber ends.
func (s Service) Start(ctx context.Context) error {
	defer s.broadcaster.Close()

	s.logger.V(1).Info("Ingest started")

	err := s.runner.Start(ctx)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("ingest stopped: %w", err)
	}

	s.logger.V(1).Info("Ingest stopped")

	return nil
}

func (s Service) OnEvent(buffer int) *broadcast.Subscription[entity.Event] {
	return s.broadcaster.Subscribe(buffer)
}
