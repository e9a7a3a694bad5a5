package factory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/go-logr/logr"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetpulse/fleet-telemetry/internal/config"
	"github.com/fleetpulse/fleet-telemetry/internal/domain/entity"
	"github.com/fleetpulse/fleet-telemetry/internal/domain/repo/processingerror"
	"github.com/fleetpulse/fleet-telemetry/internal/factory"
	"github.com/fleetpulse/fleet-telemetry/internal/ingest"
	"github.com/fleetpulse/fleet-telemetry/pkg/pipeline"
)

func TestDecorateIngestProcessing(t *testing.T) {
	registry := prometheus.NewPedanticRegistry()

	var published []entity.Event

	publisher := pipeline.ProcessingFunc[entity.Event](func(_ context.Context, event entity.Event) error {
		published = append(published, event)

		return nil
	})

	proc, err := factory.DecorateIngestProcessing(publisher, registry, clockwork.NewFakeClock())
	require.NoError(t, err)

	err = proc.Process(context.Background(), pipeline.Received[ingest.Message]{
		Payload: ingest.Message{Type: "metric", Kind: "location", CarID: "car-1", Lat: ingest.NewNumber(1), Lng: ingest.NewNumber(2)},
	})
	require.NoError(t, err)
	require.Len(t, published, 1)

	err = proc.Process(context.Background(), pipeline.Received[ingest.Message]{Payload: ingest.Message{Type: "metric"}})
	assert.Equal(t, pipeline.ParseErrorCategory, pipeline.AsProcessingError(err).Category)
	assert.Len(t, published, 1)

	count, err := testutil.GatherAndCount(registry, "ingest_events_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDecorateSyncProcessingRecoversPanics(t *testing.T) {
	registry := prometheus.NewPedanticRegistry()

	sync := pipeline.ProcessingFunc[entity.Event](func(context.Context, entity.Event) error {
		panic("invariant broken")
	})

	proc, err := factory.DecorateSyncProcessing(sync, registry, clockwork.NewFakeClock(), config.Sync{})
	require.NoError(t, err)

	err = proc.Process(context.Background(), entity.Event{Kind: entity.KindAccident})
	assert.Equal(t, pipeline.PanicCategory, pipeline.AsProcessingError(err).Category)
}

func TestDecorateSyncProcessingRetries(t *testing.T) {
	registry := prometheus.NewPedanticRegistry()

	calls := 0

	sync := pipeline.ProcessingFunc[entity.Event](func(context.Context, entity.Event) error {
		calls++
		if calls < 3 {
			return pipeline.NewRetryableErrProcessingError(errors.New("connection reset"), pipeline.StoreErrorCategory, nil)
		}

		return nil
	})

	proc, err := factory.DecorateSyncProcessing(sync, registry, clockwork.NewFakeClock(), config.Sync{Retry: config.Retry{MaxAttempt: 3}})
	require.NoError(t, err)

	require.NoError(t, proc.Process(context.Background(), entity.Event{Kind: entity.KindAccident}))
	assert.Equal(t, 3, calls)
}

func TestDecorateErrorProcessing(t *testing.T) {
	registry := prometheus.NewPedanticRegistry()

	proc, err := factory.DecorateErrorProcessing(processingerror.NopWriter{}, registry, clockwork.NewFakeClock(), logr.Discard())
	require.NoError(t, err)

	err = proc.Process(context.Background(), pipeline.NewErrProcessingError(errors.New("bad"), pipeline.ParseErrorCategory, nil))
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(registry, "error_processing_error_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCreateDeadLetterWriterWithoutBucket(t *testing.T) {
	writer, err := factory.CreateDeadLetterWriter(context.Background(), config.S3{}, logr.Discard())
	require.NoError(t, err)

	assert.IsType(t, processingerror.NopWriter{}, writer)
}
