package mysql

import (
	"context"
	"fmt"

	"blog/domain/shared"
)

// OutboxEventBus satisfies shared.EventBus by writing events to the outbox
// table instead of a broker. When the caller carries a transaction in its
// context, the event row commits atomically with the aggregate change,
// closing the persist-then-publish window the direct broker buses leave open.
type OutboxEventBus struct {
	repo *OutboxRepository
}

func NewOutboxEventBus(repo *OutboxRepository) *OutboxEventBus {
	return &OutboxEventBus{repo: repo}
}

func (b *OutboxEventBus) Publish(ctx context.Context, event shared.DomainEvent) error {
	if err := b.repo.SaveEvent(ctx, event); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrDeliveryUnavailable, err)
	}
	return nil
}

func (b *OutboxEventBus) PublishMany(ctx context.Context, events []shared.DomainEvent) error {
	for _, event := range events {
		if err := b.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

var _ shared.EventBus = (*OutboxEventBus)(nil)
