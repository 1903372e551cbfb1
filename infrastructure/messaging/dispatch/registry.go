/*
Package dispatch - asynchronous domain-event dispatch pipeline

Consumes envelopes from a broker-backed queue, reconstructs typed events,
resolves the registered reaction handler by event-type name, and invokes it
under a fixed retry budget. Delivery is at-least-once: handlers must be
idempotent, acknowledgment is deferred until processing completes, and
envelopes that exhaust the retry budget go to the dead-letter sink.
*/
package dispatch

import (
	"context"
	"fmt"
	"sort"

	"blog/domain/shared"
	"blog/infrastructure/messaging"
)

// Handler reacts to one event type. The typed event is nil when the envelope
// could not be reconstructed; the handler then works from the raw envelope on
// a best-effort basis. Returned errors trigger the dispatcher's retry logic.
type Handler interface {
	Name() string
	Handle(ctx context.Context, event shared.DomainEvent, env *messaging.Envelope) error
}

// Factory builds a fresh handler per invocation, resolving its collaborators
// each time. No handler state is shared across invocations.
type Factory func() Handler

// Registry maps an event-type name to the factory for its reaction handler.
// Populated once at startup, then read-only; Validate is the fail-fast gate
// before any worker starts consuming.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register binds an event type to a handler factory.
// A nil factory or a duplicate event type is a configuration error.
func (r *Registry) Register(eventType string, factory Factory) error {
	if eventType == "" {
		return fmt.Errorf("registry: event type cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("registry: nil factory for event type %q", eventType)
	}
	if _, exists := r.factories[eventType]; exists {
		return fmt.Errorf("registry: duplicate registration for event type %q", eventType)
	}
	r.factories[eventType] = factory
	return nil
}

// Resolve returns the factory for an event type.
// An unknown event type is not an error; the caller reports it as skipped.
func (r *Registry) Resolve(eventType string) (Factory, bool) {
	factory, ok := r.factories[eventType]
	return factory, ok
}

// Validate eagerly builds every registered handler once and checks it is
// usable. Called at startup; any failure here is fatal configuration, never a
// per-event retryable condition.
func (r *Registry) Validate() error {
	for _, eventType := range r.EventTypes() {
		handler := r.factories[eventType]()
		if handler == nil {
			return fmt.Errorf("registry: factory for %q produced a nil handler", eventType)
		}
		if handler.Name() == "" {
			return fmt.Errorf("registry: handler for %q has no name", eventType)
		}
	}
	return nil
}

// EventTypes lists the registered event types in stable order.
func (r *Registry) EventTypes() []string {
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
