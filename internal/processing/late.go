package processing

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fleetpulse/fleet-telemetry/internal/domain/entity"
	"github.com/fleetpulse/fleet-telemetry/pkg/pipeline"
)

type CountLateData struct {
	counter  *prometheus.CounterVec
	clock    clockwork.Clock
	lateness time.Duration
	inner    pipeline.Processing[entity.Event]
}

func NewCountLateData(p pipeline.Processing[entity.Event], registry prometheus.Registerer, clock clockwork.Clock, lateness time.Duration, config pipeline.MetricsConfig) (pipeline.Processing[entity.Event], error) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: config.Namespace,
		Name:      "late_event_total",
		Help:      "Events older than the accepted lateness by kind.",
	}, []string{"kind"})

	err := registry.Register(counter)
	if err != nil {
		return nil, fmt.Errorf("failed to register metric: %w", err)
	}

	ret := CountLateData{
		counter:  counter,
		clock:    clock,
		lateness: lateness,
		inner:    p,
	}

	return ret, nil
}

func (p CountLateData) Process(ctx context.Context, event entity.Event) error {
	err := p.inner.Process(ctx, event)
	if err != nil {
		return err // Count only successfully processed data
	}

	if p.lateness <= 0 {
		return nil
	}

	if event.Timestamp.After(p.computeDeadline()) {
		return nil
	}

	p.counter.WithLabelValues(string(event.Kind)).Inc()

	return nil
}

// Late events are still applied: LWW keeps them from overriding newer values.
func (p CountLateData) computeDeadline() time.Time {
	return p.clock.Now().Add(-p.lateness)
}
