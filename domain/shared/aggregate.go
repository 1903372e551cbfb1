package shared

import "github.com/google/uuid"

// AggregateRoot is the entry point of an aggregate. It maintains the
// consistency boundary of its entity cluster: all modifications go through the
// root, and the root records the domain events those modifications produce.
type AggregateRoot interface {
	// ID returns the aggregate's globally unique identifier
	ID() uuid.UUID

	// PullEvents returns the buffered domain events in emission order and
	// clears the buffer. This is the single hand-off point between aggregate
	// mutation and event publication: the caller drains it exactly once per
	// persistence cycle, after a successful save.
	PullEvents() []DomainEvent
}

// Entity distinguishes objects by identity rather than by attribute values.
// Two entities with equal IDs are the same entity even when their attributes
// differ.
type Entity interface {
	ID() uuid.UUID
}
