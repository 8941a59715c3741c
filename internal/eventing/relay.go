package eventing

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Relay publishes committed events to an outbox and dispatches them at once.
type Relay struct {
	publisher  *Publisher
	dispatcher *Dispatcher
	logger     *zap.Logger
}

// NewRelay wires an outbox publisher to its dispatcher.
func NewRelay(publisher *Publisher, dispatcher *Dispatcher, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{publisher: publisher, dispatcher: dispatcher, logger: logger}
}

// Deliver writes events in order and dispatches them. Handler failures end up
// in the dead letter store and are logged, not returned.
func (r *Relay) Deliver(ctx context.Context, events []any) error {
	if r == nil || len(events) == 0 {
		return nil
	}
	var errs []error
	for _, event := range events {
		if err := r.publisher.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	if r.dispatcher != nil {
		result, err := r.dispatcher.Dispatch(ctx, len(events))
		if err != nil {
			errs = append(errs, err)
		}
		if result.Failed > 0 {
			r.logger.Warn("event dispatch failures",
				zap.Int("failed", result.Failed),
				zap.Int("dlq", result.DLQ),
			)
		}
	}
	return errors.Join(errs...)
}
