// Package nop provides the publisher used when turn events are disabled.
package nop

import (
	"context"

	"go.uber.org/zap"

	"github.com/papercomputeco/lincode/pkg/eventstream"
)

// Publisher validates and discards turn events.
type Publisher struct {
	logger *zap.Logger
}

// NewPublisher creates a new no-op eventstream publisher. A nil logger
// disables the debug trace of dropped events.
func NewPublisher(logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{logger: logger}
}

// PublishTurn validates input and otherwise drops the event.
func (p *Publisher) PublishTurn(_ context.Context, event *eventstream.TurnCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilTurnEvent
	}

	p.logger.Debug("dropping turn event",
		zap.String("event_id", event.EventID),
		zap.String("session_id", event.RequestMeta.SessionID),
		zap.String("outcome", event.RequestMeta.Outcome),
	)
	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
