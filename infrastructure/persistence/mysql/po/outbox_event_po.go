package po

import (
	"time"

	"blog/domain/shared"
	"blog/infrastructure/messaging"
)

// OutboxEventPO Outbox event persistence object
// Implements the transactional outbox pattern: the serialized envelope is
// committed in the same transaction as the aggregate, and a relay worker
// forwards it to the broker afterwards.
type OutboxEventPO struct {
	ID          string    `gorm:"primaryKey;size:36"` // envelope event_id
	AggregateID string    `gorm:"size:36;index;not null"`
	EventType   string    `gorm:"size:100;index;not null"`
	Payload     string    `gorm:"type:json;not null"` // serialized envelope
	Status      string    `gorm:"size:20;default:PENDING;not null"`
	RetryCount  int       `gorm:"default:0;not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (OutboxEventPO) TableName() string {
	return "outbox_events"
}

// EventStatus Outbox event status enum
type EventStatus string

const (
	EventStatusPending    EventStatus = "PENDING"
	EventStatusProcessing EventStatus = "PROCESSING"
	EventStatusPublished  EventStatus = "PUBLISHED"
	EventStatusFailed     EventStatus = "FAILED"
)

// FromDomainEvent Convert a domain event to its outbox row.
// The payload is the exact wire envelope the broker consumers expect.
func FromDomainEvent(event shared.DomainEvent) (*OutboxEventPO, error) {
	env, err := messaging.Encode(event)
	if err != nil {
		return nil, err
	}
	payload, err := env.Marshal()
	if err != nil {
		return nil, err
	}

	return &OutboxEventPO{
		ID:          event.EventID().String(),
		AggregateID: event.AggregateID().String(),
		EventType:   event.EventName(),
		Payload:     string(payload),
		Status:      string(EventStatusPending),
		RetryCount:  0,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}, nil
}

// ToEnvelope rebuilds the wire envelope from the stored payload.
func (p *OutboxEventPO) ToEnvelope() (*messaging.Envelope, error) {
	return messaging.UnmarshalEnvelope([]byte(p.Payload))
}
