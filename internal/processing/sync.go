package processing

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fleetpulse/fleet-telemetry/internal/common"
	"github.com/fleetpulse/fleet-telemetry/internal/domain/entity"
	"github.com/fleetpulse/fleet-telemetry/internal/domain/repo"
	"github.com/fleetpulse/fleet-telemetry/pkg/pipeline"
)

const categoryInvalidEvent = "invalid_event"

var errUnknownKind = errors.New("unknown kind")

// Sync applies one event to the cache and the store.
type Sync struct {
	cache    Cache
	store    repo.EntityWriter
	eventLog repo.EventLogWriter
	notifier Notifier
	throttle *Throttle

	throttled     *prometheus.CounterVec
	writeFailures *prometheus.CounterVec

	logger logr.Logger
}

func NewSync(
	cache Cache,
	store repo.EntityWriter,
	eventLog repo.EventLogWriter,
	notifier Notifier,
	throttle *Throttle,
	registry prometheus.Registerer,
) (Sync, error) {
	throttled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sync",
		Name:      "throttled_total",
		Help:      "Metrics kept in cache only because a write already happened in the window.",
	}, []string{"kind"})

	writeFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sync",
		Name:      "write_failures_total",
		Help:      "Failed throttled metric writes by kind.",
	}, []string{"kind"})

	for _, c := range []prometheus.Collector{throttled, writeFailures} {
		err := registry.Register(c)
		if err != nil {
			return Sync{}, fmt.Errorf("failed to register metric: %w", err)
		}
	}

	ret := Sync{
		cache:         cache,
		store:         store,
		eventLog:      eventLog,
		notifier:      notifier,
		throttle:      throttle,
		throttled:     throttled,
		writeFailures: writeFailures,
		logger:        logr.Discard(),
	}

	return ret, nil
}

func (s Sync) WithLogger(logger logr.Logger) Sync {
	s.logger = logger

	return s
}

func (s Sync) Process(ctx context.Context, event entity.Event) error {
	switch {
	case event.Kind.IsHeartbeat():
		return s.processHeartbeat(ctx, event)
	case event.Kind.IsThrottled():
		return s.processMetric(ctx, event)
	case event.Kind.IsDiscrete():
		return s.processDiscrete(ctx, event)
	default:
		return pipeline.NewErrProcessingError(fmt.Errorf("%w: %s", errUnknownKind, event.Kind), categoryInvalidEvent, nil)
	}
}

// Heartbeats are the liveness signal, they are never throttled.
func (s Sync) processHeartbeat(ctx context.Context, event entity.Event) error {
	s.cache.Put(event.Key(), entity.StatusEntry{
		Status:    entity.StatusActive,
		LastSeen:  event.Timestamp,
		Timestamp: event.Timestamp,
	})

	err := s.store.TouchHeartbeat(ctx, event.EntityType, event.EntityID, event.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to persist heartbeat of %s: %w", event.EntityID, err)
	}

	return nil
}

func (s Sync) processMetric(ctx context.Context, event entity.Event) error {
	entry, err := metricEntry(event)
	if err != nil {
		return common.NewErrProcessingError(err, categoryInvalidEvent, nil, "invalid %s event for %s", event.Kind, event.EntityID)
	}

	s.cache.Put(event.Key(), entry)

	ticket, ok := s.throttle.Acquire(event.EntityID, event.Kind)
	if !ok {
		s.throttled.WithLabelValues(string(event.Kind)).Inc()

		return nil
	}

	// Latest known value, which may be newer than this event
	current := entry

	snapshot, ok := s.cache.Get(event.Key())
	if ok {
		cached, found := snapshot.Entry(entry.EntryKind())
		if found {
			current = cached
		}
	}

	err = s.store.UpsertMetric(ctx, toPatch(event, current))
	if err != nil {
		s.throttle.Release(ticket)
		s.writeFailures.WithLabelValues(string(event.Kind)).Inc()
		s.logger.Error(err, "Failed to persist metric, next event will try again", "kind", event.Kind, "entityID", event.EntityID)

		return nil
	}

	s.throttle.Commit(ticket)

	return nil
}

// Discrete events are persisted then notified. Both steps are idempotent on the event key.
func (s Sync) processDiscrete(ctx context.Context, event entity.Event) error {
	log := entity.EventLog{
		Key:        computeEventID(event),
		Kind:       event.Kind,
		EntityID:   event.EntityID,
		EntityType: event.EntityType,
		CarID:      event.CarID,
		DriverID:   event.DriverID,
		Lat:        event.Lat,
		Lng:        event.Lng,
		Timestamp:  event.Timestamp,
	}

	err := s.eventLog.InsertEventLog(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to persist %s of %s: %w", event.Kind, event.EntityID, err)
	}

	_, err = s.notifier.Notify(ctx, notificationType(event.Kind), event)
	if err != nil {
		return fmt.Errorf("failed to notify %s of %s: %w", event.Kind, event.EntityID, err)
	}

	return nil
}

func metricEntry(event entity.Event) (entity.CacheEntry, error) {
	switch event.Kind {
	case entity.KindLocation:
		if event.Lat == nil || event.Lng == nil {
			return nil, errors.New("missing coordinates")
		}

		return entity.LocationEntry{Lat: *event.Lat, Lng: *event.Lng, Timestamp: event.Timestamp}, nil
	case entity.KindPassengers:
		if event.Passengers == nil {
			return nil, errors.New("missing passenger count")
		}

		return entity.PassengerEntry{Count: *event.Passengers, Timestamp: event.Timestamp}, nil
	case entity.KindDriverECR:
		if event.ECR == nil {
			return nil, errors.New("missing ecr")
		}

		return entity.ECREntry{ECR: *event.ECR, ResponseTime: event.ResponseTime, Timestamp: event.Timestamp}, nil
	default:
		return nil, errUnknownKind
	}
}

func toPatch(event entity.Event, entry entity.CacheEntry) repo.MetricPatch {
	ret := repo.MetricPatch{
		EntityType: event.EntityType,
		EntityID:   event.EntityID,
		Kind:       event.Kind,
	}

	switch e := entry.(type) {
	case entity.LocationEntry:
		ret.Location = &e
	case entity.PassengerEntry:
		ret.Passengers = &e
	case entity.ECREntry:
		ret.ECR = &e
	}

	return ret
}

func notificationType(kind entity.Kind) entity.NotificationType {
	if kind == entity.KindDrowsinessAlarm {
		return entity.NotificationTypeDrowsiness
	}

	return entity.NotificationTypeAccident
}

// computeEventID identifies a discrete event so that a redelivery maps to the same rows.
func computeEventID(event entity.Event) string {
	key := fmt.Sprintf("%s%s%s", event.Kind, event.EntityID, event.Timestamp.UTC().Format(time.RFC3339Nano))
	hash := md5.Sum([]byte(key))

	return hex.EncodeToString(hash[:])
}
