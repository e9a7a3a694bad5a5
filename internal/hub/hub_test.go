package hub_test

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
	"github.com/fleetpulse/fleet-telemetry/internal/hub"
	"github.com/fleetpulse/fleet-telemetry/internal/hub/mock"
	"github.com/fleetpulse/fleet-telemetry/internal/polling"
	"github.com/fleetpulse/fleet-telemetry/pkg/broadcast"
)

type broadcastSource struct {
	*broadcast.Broadcaster[entity.Event]
}

func (s broadcastSource) OnEvent(buffer int) *broadcast.Subscription[entity.Event] {
	return s.Subscribe(buffer)
}

type loaderFunc func(ctx context.Context, key entity.Key) (entity.Snapshot, bool, error)

func (f loaderFunc) Load(ctx context.Context, key entity.Key) (entity.Snapshot, bool, error) {
	return f(ctx, key)
}

func carLocation(id string) entity.Event {
	return entity.Event{Kind: entity.KindLocation, EntityType: entity.EntityTypeCar, EntityID: id}
}

type push struct {
	name    string
	payload any
}

var _ = Describe("Testing hub", func() {
	var ctrl *gomock.Controller
	var conn *mock.MockConnection
	var pushes chan push
	var source broadcastSource
	var clock clockwork.FakeClock
	var h *hub.Hub

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())

		conn = mock.NewMockConnection(ctrl)
		conn.EXPECT().ID().Return("conn-1").AnyTimes()

		pushes = make(chan push, 16)

		source = broadcastSource{broadcast.New[entity.Event]()}
		clock = clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))

		registry := prometheus.NewPedanticRegistry()

		scheduler, err := polling.NewScheduler(loaderFunc(func(_ context.Context, key entity.Key) (entity.Snapshot, bool, error) {
			if key.ID == "404" {
				return entity.Snapshot{}, false, nil
			}

			return entity.Snapshot{EntityID: key.ID, EntityType: key.Type}, true, nil
		}), clock, registry)
		Expect(err).NotTo(HaveOccurred())

		h, err = hub.New(source, scheduler, clock, hub.Config{BufferSize: 8, MinPollInterval: time.Second}, registry)
		Expect(err).NotTo(HaveOccurred())

		h = h.WithLogger(GinkgoLogr)
	})

	AfterEach(func() {
		h.Close()
	})

	recordPushes := func() {
		conn.EXPECT().Push(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, name string, payload any) error {
				pushes <- push{name: name, payload: payload}

				return nil
			},
		).AnyTimes()
	}

	When("a live subscription filters on entities", func() {
		var id string

		BeforeEach(func() {
			recordPushes()

			var err error

			id, err = h.CreateLiveSubscription(conn, hub.Predicate{Entities: []entity.Key{entity.CarKey("1"), entity.CarKey("2")}})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should never push other entities", func() {
			source.Publish(carLocation("1"))
			source.Publish(carLocation("3"))
			// Same id, other entity type
			source.Publish(entity.Event{Kind: entity.KindDriverECR, EntityType: entity.EntityTypeDriver, EntityID: "2"})
			source.Publish(carLocation("2"))

			var first, second push
			Eventually(pushes).Should(Receive(&first))
			Eventually(pushes).Should(Receive(&second))
			Consistently(pushes, 100*time.Millisecond).ShouldNot(Receive())

			Expect(first.name).To(Equal(id))
			Expect(second.name).To(Equal(id))
			Expect(first.payload.(entity.Event).Key()).To(Equal(entity.CarKey("1")))
			Expect(second.payload.(entity.Event).Key()).To(Equal(entity.CarKey("2")))
		})

		It("should be listed", func() {
			infos := h.Subscriptions(conn)

			Expect(infos).To(HaveLen(1))
			Expect(infos[0].ID).To(Equal(id))
			Expect(infos[0].Source).To(Equal(hub.SourceTypeLive))
		})
	})

	When("a live subscription filters on entity types", func() {
		BeforeEach(func() {
			recordPushes()

			_, err := h.CreateLiveSubscription(conn, hub.Predicate{EntityTypes: []entity.EntityType{entity.EntityTypeDriver}})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should only push entities of that type", func() {
			source.Publish(carLocation("7"))
			source.Publish(entity.Event{Kind: entity.KindDriverHeartbeat, EntityType: entity.EntityTypeDriver, EntityID: "7"})

			var p push
			Eventually(pushes).Should(Receive(&p))
			Expect(p.payload.(entity.Event).Key()).To(Equal(entity.DriverKey("7")))
			Consistently(pushes, 100*time.Millisecond).ShouldNot(Receive())
		})
	})

	When("a live subscription filters on kinds", func() {
		BeforeEach(func() {
			recordPushes()

			_, err := h.CreateLiveSubscription(conn, hub.Predicate{Kinds: []entity.Kind{entity.KindAccident}})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should only push the matching kinds", func() {
			source.Publish(carLocation("1"))
			source.Publish(entity.Event{Kind: entity.KindAccident, EntityType: entity.EntityTypeCar, EntityID: "9"})

			var p push
			Eventually(pushes).Should(Receive(&p))
			Expect(p.payload.(entity.Event).EntityID).To(Equal("9"))
			Consistently(pushes, 100*time.Millisecond).ShouldNot(Receive())
		})
	})

	When("a subscription is stopped", func() {
		It("should not push anymore and tolerate a second stop", func() {
			id, err := h.CreateLiveSubscription(conn, hub.Predicate{})
			Expect(err).NotTo(HaveOccurred())

			h.Stop(conn, id)
			h.Stop(conn, id)
			h.Stop(conn, "unknown")

			source.Publish(carLocation("1"))

			Expect(h.Subscriptions(conn)).To(BeEmpty())
			Expect(source.Len()).To(Equal(0))
		})
	})

	When("the connection goes away", func() {
		var ids []string

		BeforeEach(func() {
			ids = nil

			for i := 0; i < 3; i++ {
				id, err := h.CreateLiveSubscription(conn, hub.Predicate{})
				Expect(err).NotTo(HaveOccurred())

				ids = append(ids, id)
			}

			conn.EXPECT().Push(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

			id, err := h.CreatePollSubscription(conn, entity.CarKey("1"), time.Minute)
			Expect(err).NotTo(HaveOccurred())

			ids = append(ids, id)
		})

		It("should cancel everything once", func() {
			Expect(h.Subscriptions(conn)).To(HaveLen(4))

			h.OnDisconnect(conn)
			h.OnDisconnect(conn)

			Expect(h.Subscriptions(conn)).To(BeEmpty())
			Expect(source.Len()).To(Equal(0))

			for _, id := range ids {
				h.Stop(conn, id)
			}
		})

		It("should refuse new subscriptions until released", func() {
			h.OnDisconnect(conn)

			_, err := h.CreateLiveSubscription(conn, hub.Predicate{})
			Expect(err).To(MatchError(hub.ErrConnectionClosed))

			_, err = h.CreatePollSubscription(conn, entity.CarKey("1"), time.Minute)
			Expect(err).To(MatchError(hub.ErrConnectionClosed))

			Expect(h.Subscriptions(conn)).To(BeEmpty())
			Expect(source.Len()).To(Equal(0))

			h.Release(conn)
			Expect(h.Subscriptions(conn)).To(BeNil())

			_, err = h.CreateLiveSubscription(conn, hub.Predicate{})
			Expect(err).NotTo(HaveOccurred())
		})
	})

	When("the transport releases a connection", func() {
		It("should cancel its subscriptions", func() {
			_, err := h.CreateLiveSubscription(conn, hub.Predicate{})
			Expect(err).NotTo(HaveOccurred())

			h.Release(conn)
			h.Release(conn)

			Expect(h.Subscriptions(conn)).To(BeNil())
			Expect(source.Len()).To(Equal(0))
		})
	})

	When("a push fails", func() {
		BeforeEach(func() {
			conn.EXPECT().Push(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("broken pipe")).Times(1)

			_, err := h.CreateLiveSubscription(conn, hub.Predicate{})
			Expect(err).NotTo(HaveOccurred())

			_, err = h.CreateLiveSubscription(conn, hub.Predicate{Entities: []entity.Key{entity.CarKey("2")}})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should tear the connection down", func() {
			source.Publish(carLocation("1"))

			Eventually(func() []hub.Info { return h.Subscriptions(conn) }).Should(BeEmpty())
			Eventually(source.Len).Should(Equal(0))

			// The read loop may still be running: the connection stays closed
			_, err := h.CreateLiveSubscription(conn, hub.Predicate{})
			Expect(err).To(MatchError(hub.ErrConnectionClosed))
			Expect(source.Len()).To(Equal(0))
		})
	})

	When("an entity is polled", func() {
		BeforeEach(func() {
			recordPushes()
		})

		It("should push its snapshot right away", func() {
			id, err := h.CreatePollSubscription(conn, entity.DriverKey("1"), 10*time.Millisecond)
			Expect(err).NotTo(HaveOccurred())

			var p push
			Eventually(pushes).Should(Receive(&p))
			Expect(p.name).To(Equal(id))
			Expect(p.payload).To(Equal(entity.Snapshot{EntityID: "1", EntityType: entity.EntityTypeDriver}))

			infos := h.Subscriptions(conn)
			Expect(infos).To(HaveLen(1))
			Expect(infos[0].Interval).To(Equal(time.Second))
			Expect(infos[0].Source).To(Equal(hub.SourceTypePoll))
		})

		It("should push nothing for an unknown entity", func() {
			_, err := h.CreatePollSubscription(conn, entity.CarKey("404"), time.Second)
			Expect(err).NotTo(HaveOccurred())

			Consistently(pushes, 100*time.Millisecond).ShouldNot(Receive())
		})

		It("should reject invalid requests", func() {
			_, err := h.CreatePollSubscription(conn, entity.CarKey("1"), 0)
			Expect(err).To(MatchError(hub.ErrInvalidInterval))

			_, err = h.CreatePollSubscription(conn, entity.CarKey(""), time.Second)
			Expect(err).To(MatchError(hub.ErrMissingEntityID))

			_, err = h.CreatePollSubscription(conn, entity.Key{Type: "truck", ID: "1"}, time.Second)
			Expect(err).To(MatchError(hub.ErrInvalidEntityType))
		})
	})
})
