package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DomainEvent is an immutable record of a fact that already occurred inside an
// aggregate. Events are never mutated or retracted after construction.
type DomainEvent interface {
	EventID() uuid.UUID
	EventName() string
	OccurredOn() time.Time
	AggregateID() uuid.UUID
}

// ErrDeliveryUnavailable is returned by an EventBus when the transport cannot
// accept the event for delivery (broker unreachable, serialization failed).
// Handler-side failures never surface here; the asynchronous pipeline owns them.
var ErrDeliveryUnavailable = errors.New("event delivery unavailable")

// EventBus is the outbound port for publishing domain events.
// Publish is fire-and-forget from the caller's perspective: it fails only when
// the event cannot be accepted for delivery. Callers drain an aggregate's
// pending events after a successful persist and hand them to the bus.
type EventBus interface {
	Publish(ctx context.Context, event DomainEvent) error
	PublishMany(ctx context.Context, events []DomainEvent) error
}

// ValidateEvent checks the invariants every domain event must satisfy before
// a bus or an outbox accepts it.
func ValidateEvent(event DomainEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}

	if event.EventName() == "" {
		return fmt.Errorf("event name cannot be empty")
	}

	if event.EventID() == uuid.Nil {
		return fmt.Errorf("event ID cannot be empty")
	}

	if event.AggregateID() == uuid.Nil {
		return fmt.Errorf("aggregate ID cannot be empty")
	}

	if event.OccurredOn().IsZero() {
		return fmt.Errorf("occurred on time cannot be zero")
	}

	return nil
}
