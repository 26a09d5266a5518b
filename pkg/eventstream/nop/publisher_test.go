package nop_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/papercomputeco/lincode/pkg/eventstream"
	"github.com/papercomputeco/lincode/pkg/eventstream/nop"
)

var _ = Describe("Publisher", func() {
	It("returns ErrNilTurnEvent for nil events", func() {
		p := nop.NewPublisher(nil)
		err := p.PublishTurn(context.Background(), nil)
		Expect(err).To(MatchError(eventstream.ErrNilTurnEvent))
	})

	It("drops non-nil events with a debug trace", func() {
		core, logs := observer.New(zap.DebugLevel)
		p := nop.NewPublisher(zap.New(core))

		event := &eventstream.TurnCompletedEvent{EventID: "evt-1"}
		Expect(p.PublishTurn(context.Background(), event)).To(Succeed())
		Expect(logs.FilterMessage("dropping turn event").Len()).To(Equal(1))
		Expect(logs.All()[0].ContextMap()).To(HaveKeyWithValue("event_id", "evt-1"))
	})

	It("closes successfully", func() {
		Expect(nop.NewPublisher(nil).Close()).To(Succeed())
	})
})
