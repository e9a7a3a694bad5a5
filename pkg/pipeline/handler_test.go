package pipeline_test

import (
	"errors"
	"time"

	"github.com/IBM/sarama"
	"github.com/jonboulle/clockwork"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/fleetpulse/fleet-telemetry/pkg/pipeline"
	"github.com/fleetpulse/fleet-telemetry/pkg/pipeline/mock"
)

var errOneError = errors.New("error for testing purpose")

type Message struct {
	Kind string `json:"kind"`
}

var _ = Describe("Testing JSONHandler", func() {
	var ctrl *gomock.Controller

	var handler pipeline.JSONHandler[Message]
	var proc *mock.MockProcessing[pipeline.Received[Message]]
	var errProc *mock.MockProcessing[pipeline.ErrProcessingError]
	var now time.Time

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())

		proc = mock.NewMockProcessing[pipeline.Received[Message]](ctrl)
		errProc = mock.NewMockProcessing[pipeline.ErrProcessingError](ctrl)

		now = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

		handler = pipeline.NewJSONHandler[Message](proc, errProc).
			WithClock(clockwork.NewFakeClockAt(now)).
			WithLogger(GinkgoLogr)
	})

	When("the message is valid json", func() {
		BeforeEach(func() {
			proc.EXPECT().Process(gomock.Any(), pipeline.Received[Message]{
				Payload:    Message{Kind: "location"},
				ReceivedAt: now,
			}).Return(nil).Times(1)
		})

		It("should process the decoded payload with its arrival time", func(ctx SpecContext) {
			handler.HandleMessage(ctx, &sarama.ConsumerMessage{Topic: "t", Value: []byte(`{"kind":"location"}`)})
		})
	})

	When("the message is not json", func() {
		var msg *sarama.ConsumerMessage

		BeforeEach(func() {
			msg = &sarama.ConsumerMessage{Topic: "t", Partition: 2, Offset: 42, Value: []byte(`not json`)}

			errProc.EXPECT().Process(gomock.Any(), gomock.Any()).DoAndReturn(
				func(_ any, pErr pipeline.ErrProcessingError) error {
					Expect(pErr.Category).To(Equal(pipeline.UnmarshalErrorCategory))
					Expect(pErr.Event).To(Equal(msg))

					return nil
				},
			).Times(1)
		})

		It("should only call the error processing", func(ctx SpecContext) {
			handler.HandleMessage(ctx, msg)
		})
	})

	When("the processing fails with a categorized error", func() {
		BeforeEach(func() {
			proc.EXPECT().Process(gomock.Any(), gomock.Any()).
				Return(pipeline.NewErrProcessingError(errOneError, pipeline.ParseErrorCategory, nil)).Times(1)

			errProc.EXPECT().Process(gomock.Any(), gomock.Any()).DoAndReturn(
				func(_ any, pErr pipeline.ErrProcessingError) error {
					Expect(pErr.Category).To(Equal(pipeline.ParseErrorCategory))
					Expect(pErr).To(MatchError(errOneError))

					return nil
				},
			).Times(1)
		})

		It("should keep the category", func(ctx SpecContext) {
			handler.HandleMessage(ctx, &sarama.ConsumerMessage{Value: []byte(`{}`)})
		})
	})
})
