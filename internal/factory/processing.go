package factory

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fleetpulse/fleet-telemetry/internal/config"
	"github.com/fleetpulse/fleet-telemetry/internal/domain/entity"
	"github.com/fleetpulse/fleet-telemetry/internal/ingest"
	"github.com/fleetpulse/fleet-telemetry/internal/processing"
	"github.com/fleetpulse/fleet-telemetry/pkg/pipeline"
)

/*
 * DecorateIngestProcessing decorates the publisher as follow:
 *
 * panic --> duration --> normalize --> count --> publisher
 */
func DecorateIngestProcessing(publisher pipeline.Processing[entity.Event], registry prometheus.Registerer, clock clockwork.Clock) (pipeline.Processing[pipeline.Received[ingest.Message]], error) {
	counted, err := processing.NewCountData(publisher, registry, pipeline.MetricsConfig{Namespace: "ingest"})
	if err != nil {
		return nil, fmt.Errorf("failed to create count processing: %w", err)
	}

	var ret pipeline.Processing[pipeline.Received[ingest.Message]] = ingest.NewNormalize(counted)

	ret, err = pipeline.NewDurationMetricsDecoratorProcessing(ret, registry, clock, pipeline.MetricsConfig{Namespace: "ingest", Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10}})
	if err != nil {
		return nil, fmt.Errorf("failed to create duration metrics processor: %w", err)
	}

	ret = pipeline.NewPanicHandlerProcessing(ret)

	return ret, nil
}

/*
 * DecorateSyncProcessing decorates the sync as follow:
 *
 * panic --> duration --> count --> late --> retry --> sync
 */
func DecorateSyncProcessing(sync pipeline.Processing[entity.Event], registry prometheus.Registerer, clock clockwork.Clock, conf config.Sync) (pipeline.Processing[entity.Event], error) {
	ret := sync

	ret = pipeline.NewRetryProcessing(ret, pipeline.RetryConfig{MaxAttempt: conf.Retry.MaxAttempt, Delay: conf.Retry.Delay})

	ret, err := processing.NewCountLateData(ret, registry, clock, conf.Lateness, pipeline.MetricsConfig{Namespace: "sync"})
	if err != nil {
		return nil, fmt.Errorf("failed to create late count processing: %w", err)
	}

	ret, err = processing.NewCountData(ret, registry, pipeline.MetricsConfig{Namespace: "sync"})
	if err != nil {
		return nil, fmt.Errorf("failed to create count processing: %w", err)
	}

	ret, err = pipeline.NewDurationMetricsDecoratorProcessing(ret, registry, clock, pipeline.MetricsConfig{Namespace: "sync"})
	if err != nil {
		return nil, fmt.Errorf("failed to create duration metrics processor: %w", err)
	}

	ret = pipeline.NewPanicHandlerProcessing(ret)

	return ret, nil
}

/*
 * DecorateErrorProcessing decorates the error processing as follow:
 *
 *										---> retry --> main (dlq)
 *	panic --> duration --> parallel ---|---> error count
 *										---> log
 */
func DecorateErrorProcessing(mainProcessing pipeline.ErrorProcessing, registry prometheus.Registerer, clock clockwork.Clock, logger logr.Logger) (pipeline.ErrorProcessing, error) {
	var ret pipeline.Processing[pipeline.ErrProcessingError] = mainProcessing

	ret = pipeline.NewRetryProcessing(ret, pipeline.RetryConfig{MaxAttempt: 3})

	errorCount, err := pipeline.NewErrorCountProcessing(registry, pipeline.MetricsConfig{Namespace: "error"})
	if err != nil {
		return nil, fmt.Errorf("failed to create error count processing: %w", err)
	}

	ret = pipeline.NewParallelProcessing(ret, errorCount, pipeline.NewLogErrorProcessing(logger))

	ret, err = pipeline.NewDurationMetricsDecoratorProcessing(ret, registry, clock, pipeline.MetricsConfig{Namespace: "error"})
	if err != nil {
		return nil, fmt.Errorf("failed to create duration metrics processor: %w", err)
	}

	ret = pipeline.NewPanicHandlerProcessing(ret)

	return ret, nil
}
