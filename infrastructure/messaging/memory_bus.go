package messaging

import (
	"context"
	"sync"

	"blog/domain/shared"
)

// MemoryEventBus is a thread-safe in-process capture bus.
// Tests use it to assert on emitted events without any I/O.
type MemoryEventBus struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func NewMemoryEventBus() *MemoryEventBus { return &MemoryEventBus{} }

func (b *MemoryEventBus) Publish(ctx context.Context, event shared.DomainEvent) error {
	if err := shared.ValidateEvent(event); err != nil {
		return err
	}
	b.mu.Lock()
	b.events = append(b.events, event)
	b.mu.Unlock()
	return nil
}

func (b *MemoryEventBus) PublishMany(ctx context.Context, events []shared.DomainEvent) error {
	for _, event := range events {
		if err := b.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// Events returns a snapshot of everything published so far.
func (b *MemoryEventBus) Events() []shared.DomainEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]shared.DomainEvent, len(b.events))
	copy(out, b.events)
	return out
}

// Reset clears the captured events.
func (b *MemoryEventBus) Reset() {
	b.mu.Lock()
	b.events = nil
	b.mu.Unlock()
}

var _ shared.EventBus = (*MemoryEventBus)(nil)
