package messaging

import (
	"context"

	"go.uber.org/zap"

	"blog/domain/shared"
	"blog/pkg/logger"
)

// LoggingEventBus records every published event and performs no side effects.
// Used in environments without a broker (local development).
type LoggingEventBus struct{}

func NewLoggingEventBus() *LoggingEventBus { return &LoggingEventBus{} }

func (b *LoggingEventBus) Publish(ctx context.Context, event shared.DomainEvent) error {
	if err := shared.ValidateEvent(event); err != nil {
		return err
	}
	logger.Info("domain event published",
		zap.String("event_type", event.EventName()),
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.Time("occurred_on", event.OccurredOn()),
	)
	return nil
}

func (b *LoggingEventBus) PublishMany(ctx context.Context, events []shared.DomainEvent) error {
	for _, event := range events {
		if err := b.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

var _ shared.EventBus = (*LoggingEventBus)(nil)
