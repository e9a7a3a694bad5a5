package processing_test

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/mock/gomock"

	"github.com/fleetpulse/fleet-telemetry/internal/domain/entity"
	"github.com/fleetpulse/fleet-telemetry/internal/domain/repo"
	repomock "github.com/fleetpulse/fleet-telemetry/internal/domain/repo/mock"
	"github.com/fleetpulse/fleet-telemetry/internal/processing"
	"github.com/fleetpulse/fleet-telemetry/internal/processing/mock"
	"github.com/fleetpulse/fleet-telemetry/internal/statecache"
	"github.com/fleetpulse/fleet-telemetry/pkg/pipeline"
)

// Helper

var t0 = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func at(seconds int) time.Time {
	return t0.Add(time.Duration(seconds) * time.Second)
}

func pointer[T any](v T) *T {
	return &v
}

func location(id string, ts time.Time, lat, lng float64) entity.Event {
	return entity.Event{
		Type: entity.EventTypeMetric, Kind: entity.KindLocation,
		EntityID: id, EntityType: entity.EntityTypeCar, CarID: id,
		Lat: &lat, Lng: &lng, Timestamp: ts,
	}
}

func heartbeat(id string, ts time.Time) entity.Event {
	return entity.Event{
		Type: entity.EventTypeHeartbeat, Kind: entity.KindDriverHeartbeat,
		EntityID: id, EntityType: entity.EntityTypeDriver, DriverID: id, Timestamp: ts,
	}
}

func newHydratedCache(ctrl *gomock.Controller) *statecache.Cache {
	reader := repomock.NewMockEntityReader(ctrl)
	reader.EXPECT().FindEntities(gomock.Any(), gomock.Any()).Return(nil, nil)

	cache, err := statecache.New(reader, prometheus.NewPedanticRegistry())
	Expect(err).NotTo(HaveOccurred())
	Expect(cache.Hydrate(context.Background())).To(Succeed())

	return cache
}

// Test

var _ = Describe("Sync processing", func() {
	var (
		ctrl     *gomock.Controller
		clock    clockwork.FakeClock
		registry *prometheus.Registry

		cache    *statecache.Cache
		store    *repomock.MockEntityWriter
		eventLog *repomock.MockEventLogWriter
		notifier *mock.MockNotifier

		sync processing.Sync
	)

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())
		clock = clockwork.NewFakeClockAt(t0)
		registry = prometheus.NewPedanticRegistry()

		cache = newHydratedCache(ctrl)
		store = repomock.NewMockEntityWriter(ctrl)
		eventLog = repomock.NewMockEventLogWriter(ctrl)
		notifier = mock.NewMockNotifier(ctrl)

		var err error

		sync, err = processing.NewSync(cache, store, eventLog, notifier, processing.NewThrottle(30*time.Second, clock), registry)
		Expect(err).NotTo(HaveOccurred())
	})

	When("a heartbeat is received", func() {
		It("should mark the entity active in cache and store", func(ctx SpecContext) {
			store.EXPECT().TouchHeartbeat(gomock.Any(), entity.EntityTypeDriver, "driver-7", at(95)).Return(nil).Times(1)

			Expect(sync.Process(ctx, heartbeat("driver-7", at(95)))).To(Succeed())

			snapshot, ok := cache.Get(entity.DriverKey("driver-7"))
			Expect(ok).To(BeTrue())
			Expect(snapshot.Status.Status).To(Equal(entity.StatusActive))
			Expect(snapshot.Status.LastSeen).To(Equal(at(95)))
		})

		It("should never be throttled", func(ctx SpecContext) {
			store.EXPECT().TouchHeartbeat(gomock.Any(), entity.EntityTypeDriver, "driver-7", gomock.Any()).Return(nil).Times(3)

			for i := 0; i < 3; i++ {
				Expect(sync.Process(ctx, heartbeat("driver-7", at(i)))).To(Succeed())
				clock.Advance(time.Second)
			}
		})

		It("should leave a car with the same id alone", func(ctx SpecContext) {
			cache.Put(entity.CarKey("7"), entity.StatusEntry{Status: entity.StatusInactive, LastSeen: at(0), Timestamp: at(0)})
			store.EXPECT().TouchHeartbeat(gomock.Any(), entity.EntityTypeDriver, "7", at(95)).Return(nil)

			Expect(sync.Process(ctx, heartbeat("7", at(95)))).To(Succeed())

			car, _ := cache.Get(entity.CarKey("7"))
			Expect(car.Status.Status).To(Equal(entity.StatusInactive))

			driver, _ := cache.Get(entity.DriverKey("7"))
			Expect(driver.Status.Status).To(Equal(entity.StatusActive))
		})

		It("should return the store error", func(ctx SpecContext) {
			storeErr := pipeline.NewRetryableErrProcessingError(errors.New("conn refused"), pipeline.StoreErrorCategory, nil)
			store.EXPECT().TouchHeartbeat(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(storeErr)

			err := sync.Process(ctx, heartbeat("driver-7", at(0)))
			Expect(err).To(MatchError(pipeline.ErrRetryableError))
		})
	})

	When("car-1 reports its location twice within the throttle window", func() {
		It("should write once and cache the latest", func(ctx SpecContext) {
			store.EXPECT().UpsertMetric(gomock.Any(), repo.MetricPatch{
				EntityType: entity.EntityTypeCar,
				EntityID:   "car-1",
				Kind:       entity.KindLocation,
				Location:   &entity.LocationEntry{Lat: 1, Lng: 1, Timestamp: at(0)},
			}).Return(nil).Times(1)

			Expect(sync.Process(ctx, location("car-1", at(0), 1, 1))).To(Succeed())

			clock.Advance(5 * time.Second)
			Expect(sync.Process(ctx, location("car-1", at(5), 2, 2))).To(Succeed())

			snapshot, _ := cache.Get(entity.CarKey("car-1"))
			Expect(snapshot.Location.Timestamp).To(Equal(at(5)))
			Expect(snapshot.Location.Lat).To(Equal(2.0))

			Expect(counterValue(registry, "sync_throttled_total", "location")).To(Equal(1.0))
		})
	})

	When("the throttle window has elapsed", func() {
		It("should write the cached value, even when the event itself is older", func(ctx SpecContext) {
			gomock.InOrder(
				store.EXPECT().UpsertMetric(gomock.Any(), gomock.Any()).Return(nil),
				store.EXPECT().UpsertMetric(gomock.Any(), repo.MetricPatch{
					EntityType: entity.EntityTypeCar,
					EntityID:   "car-1",
					Kind:       entity.KindLocation,
					Location:   &entity.LocationEntry{Lat: 2, Lng: 2, Timestamp: at(10)},
				}).Return(nil),
			)

			Expect(sync.Process(ctx, location("car-1", at(10), 2, 2))).To(Succeed())

			clock.Advance(31 * time.Second)
			Expect(sync.Process(ctx, location("car-1", at(3), 9, 9))).To(Succeed())

			snapshot, _ := cache.Get(entity.CarKey("car-1"))
			Expect(snapshot.Location.Lat).To(Equal(2.0), "late event does not override the cache")
		})
	})

	When("a throttled write fails", func() {
		It("should not advance the window", func(ctx SpecContext) {
			gomock.InOrder(
				store.EXPECT().UpsertMetric(gomock.Any(), gomock.Any()).Return(errors.New("db down")),
				store.EXPECT().UpsertMetric(gomock.Any(), gomock.Any()).Return(nil),
			)

			Expect(sync.Process(ctx, location("car-1", at(0), 1, 1))).To(Succeed(), "failure is logged only")

			clock.Advance(time.Second)
			Expect(sync.Process(ctx, location("car-1", at(1), 1, 1))).To(Succeed())
		})
	})

	When("different kinds are reported by the same car", func() {
		It("should throttle each kind independently", func(ctx SpecContext) {
			store.EXPECT().UpsertMetric(gomock.Any(), gomock.Any()).Return(nil).Times(2)

			Expect(sync.Process(ctx, location("car-1", at(0), 1, 1))).To(Succeed())
			Expect(sync.Process(ctx, entity.Event{
				Type: entity.EventTypeMetric, Kind: entity.KindPassengers,
				EntityID: "car-1", EntityType: entity.EntityTypeCar, Passengers: pointer(2), Timestamp: at(0),
			})).To(Succeed())
		})
	})

	When("a metric misses its value", func() {
		It("should fail without touching the store", func(ctx SpecContext) {
			event := location("car-1", at(0), 1, 1)
			event.Lat = nil

			err := sync.Process(ctx, event)
			Expect(err).To(HaveOccurred())
			Expect(pipeline.AsProcessingError(err).Category).To(Equal("invalid_event"))
		})
	})

	When("car-9 reports an accident", func() {
		var accident entity.Event

		BeforeEach(func() {
			accident = entity.Event{
				Type: entity.EventTypeEvent, Kind: entity.KindAccident,
				EntityID: "car-9", EntityType: entity.EntityTypeCar, CarID: "car-9",
				Lat: pointer(48.85), Lng: pointer(2.35), Timestamp: at(12),
			}
		})

		It("should persist it and notify, alongside a throttled location", func(ctx SpecContext) {
			var key string

			gomock.InOrder(
				eventLog.EXPECT().InsertEventLog(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, log entity.EventLog) error {
					key = log.Key

					Expect(log.Kind).To(Equal(entity.KindAccident))
					Expect(log.EntityID).To(Equal("car-9"))
					Expect(log.Timestamp).To(Equal(at(12)))

					return nil
				}),
				notifier.EXPECT().Notify(gomock.Any(), entity.NotificationTypeAccident, accident).
					Return(entity.NotificationRecord{ID: 1, Recipients: []entity.Recipient{{UserID: "admin-1"}}}, nil),
			)
			store.EXPECT().UpsertMetric(gomock.Any(), gomock.Any()).Return(nil).Times(1)

			Expect(sync.Process(ctx, location("car-9", at(11), 1, 1))).To(Succeed())
			Expect(sync.Process(ctx, accident)).To(Succeed())

			Expect(key).To(HaveLen(32))
		})

		It("should use the same key on redelivery", func(ctx SpecContext) {
			var keys []string

			eventLog.EXPECT().InsertEventLog(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, log entity.EventLog) error {
				keys = append(keys, log.Key)

				return nil
			}).Times(2)
			notifier.EXPECT().Notify(gomock.Any(), gomock.Any(), gomock.Any()).Return(entity.NotificationRecord{}, nil).Times(2)

			Expect(sync.Process(ctx, accident)).To(Succeed())
			Expect(sync.Process(ctx, accident)).To(Succeed())

			Expect(keys[0]).To(Equal(keys[1]))
		})

		It("should not notify when the log cannot be persisted", func(ctx SpecContext) {
			eventLog.EXPECT().InsertEventLog(gomock.Any(), gomock.Any()).Return(errors.New("db down"))

			Expect(sync.Process(ctx, accident)).NotTo(Succeed())
		})
	})

	When("a drowsiness alarm is received", func() {
		It("should notify a drowsiness", func(ctx SpecContext) {
			alarm := entity.Event{
				Type: entity.EventTypeEvent, Kind: entity.KindDrowsinessAlarm,
				EntityID: "driver-3", EntityType: entity.EntityTypeDriver, DriverID: "driver-3", Timestamp: at(1),
			}

			eventLog.EXPECT().InsertEventLog(gomock.Any(), gomock.Any()).Return(nil)
			notifier.EXPECT().Notify(gomock.Any(), entity.NotificationTypeDrowsiness, alarm).Return(entity.NotificationRecord{}, nil)

			Expect(sync.Process(ctx, alarm)).To(Succeed())
		})
	})

	When("the kind is unknown", func() {
		It("should fail", func(ctx SpecContext) {
			err := sync.Process(ctx, entity.Event{Kind: "teleport", EntityID: "car-1"})
			Expect(err).To(HaveOccurred())
		})
	})
})

// counterValue returns the value of the counter series labelled with kind.
func counterValue(registry *prometheus.Registry, name, kind string) float64 {
	families, err := registry.Gather()
	Expect(err).NotTo(HaveOccurred())

	for _, family := range families {
		if family.GetName() != name {
			continue
		}

		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "kind" && label.GetValue() == kind {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}

	return 0
}
