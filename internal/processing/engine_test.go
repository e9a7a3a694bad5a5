package processing_test

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/fleetpulse/fleet-telemetry/internal/domain/entity"
	"github.com/fleetpulse/fleet-telemetry/internal/processing"
	"github.com/fleetpulse/fleet-telemetry/pkg/broadcast"
	"github.com/fleetpulse/fleet-telemetry/pkg/pipeline"
	pipelinemock "github.com/fleetpulse/fleet-telemetry/pkg/pipeline/mock"
)

type broadcastSource struct {
	b *broadcast.Broadcaster[entity.Event]
}

func (s broadcastSource) OnEvent(buffer int) *broadcast.Subscription[entity.Event] {
	return s.b.Subscribe(buffer)
}

type recorder struct {
	mu     gosync.Mutex
	events map[string][]time.Time
	total  int
}

func (r *recorder) Process(_ context.Context, event entity.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events[event.EntityID] = append(r.events[event.EntityID], event.Timestamp)
	r.total++

	return nil
}

func (r *recorder) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.total
}

var _ = Describe("Sync engine", func() {
	var (
		ctrl          *gomock.Controller
		b             *broadcast.Broadcaster[entity.Event]
		errProcessing *pipelinemock.MockProcessing[pipeline.ErrProcessingError]

		ctx    context.Context
		cancel context.CancelFunc
		done   chan error
	)

	start := func(p pipeline.Processing[entity.Event]) {
		engine := processing.NewEngine(broadcastSource{b}, p, errProcessing, 4, 1024)

		go func() {
			done <- engine.Run(ctx)
		}()

		Eventually(b.Len).Should(Equal(1), "engine subscribed")
	}

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())
		b = broadcast.New[entity.Event]()
		errProcessing = pipelinemock.NewMockProcessing[pipeline.ErrProcessingError](ctrl)

		ctx, cancel = context.WithCancel(context.Background())
		done = make(chan error, 1)

		DeferCleanup(func() {
			cancel()
			Eventually(done).Should(Receive(BeNil()))
		})
	})

	It("should apply the events of an entity in order", func() {
		rec := &recorder{events: make(map[string][]time.Time)}
		start(rec)

		for i := 0; i < 50; i++ {
			for e := 0; e < 5; e++ {
				b.Publish(entity.Event{
					Kind:      entity.KindLocation,
					EntityID:  fmt.Sprintf("car-%d", e),
					Timestamp: t0.Add(time.Duration(i) * time.Second),
				})
			}
		}

		Eventually(rec.Total).Should(Equal(250))

		rec.mu.Lock()
		defer rec.mu.Unlock()

		for id, timestamps := range rec.events {
			Expect(timestamps).To(HaveLen(50), id)

			for i := 1; i < len(timestamps); i++ {
				Expect(timestamps[i].After(timestamps[i-1])).To(BeTrue(), "%s out of order at %d", id, i)
			}
		}
	})

	It("should forward errors and keep going", func() {
		processed := make(chan string, 2)
		forwarded := make(chan string, 1)

		p := pipeline.ProcessingFunc[entity.Event](func(_ context.Context, event entity.Event) error {
			processed <- event.EntityID

			if event.EntityID == "car-9" {
				return pipeline.NewErrProcessingError(errors.New("db down"), pipeline.StoreErrorCategory, nil)
			}

			return nil
		})

		errProcessing.EXPECT().Process(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, pErr pipeline.ErrProcessingError) error {
			forwarded <- pErr.Category

			return nil
		}).Times(1)

		start(p)

		b.Publish(entity.Event{Kind: entity.KindAccident, EntityID: "car-9"})
		Eventually(processed).Should(Receive(Equal("car-9")))
		Eventually(forwarded).Should(Receive(Equal(pipeline.StoreErrorCategory)))

		b.Publish(entity.Event{Kind: entity.KindLocation, EntityID: "car-1"})
		Eventually(processed).Should(Receive(Equal("car-1")))
	})

	It("should stop when the source is closed", func() {
		start(pipeline.ProcessingFunc[entity.Event](func(context.Context, entity.Event) error { return nil }))

		b.Close()

		Eventually(done).Should(Receive(BeNil()))

		// Cleanup expects a result
		done <- nil
	})
})
