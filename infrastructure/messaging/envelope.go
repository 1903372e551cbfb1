/*
Package messaging - event transport layer

Carries domain events across process boundaries. The Envelope is the wire
format; encoding is total for the known event types, decoding is partial:
unknown types yield ErrNotReconstructable and malformed identifier strings
degrade to uuid.Nil without failing the decode (the raw payload stays
available on the envelope for best-effort handling).
*/
package messaging

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"blog/domain/blog"
	"blog/domain/shared"
)

// ErrNotReconstructable marks an envelope whose event type is not part of the
// known event set. Not a dispatch failure: the dispatcher degrades gracefully.
var ErrNotReconstructable = errors.New("event is not reconstructable")

// Envelope is the serialized form of a domain event:
// {event_type, event_id, occurred_at, data}. Identifier fields inside data are
// canonical uuid strings; occurred_at is RFC3339.
type Envelope struct {
	EventType  string                 `json:"event_type"`
	EventID    string                 `json:"event_id"`
	OccurredAt string                 `json:"occurred_at"`
	Data       map[string]interface{} `json:"data"`
}

// Encode wraps a domain event into its wire envelope.
func Encode(event shared.DomainEvent) (*Envelope, error) {
	if event == nil {
		return nil, errors.New("cannot encode nil event")
	}

	data := make(map[string]interface{})
	switch e := event.(type) {
	case *blog.PostCreatedEvent:
		data["post_id"] = e.PostID().String()
		data["author_id"] = e.AuthorID().String()
		data["title"] = e.Title()
	case *blog.PostPublishedEvent:
		data["post_id"] = e.PostID().String()
		data["slug"] = e.Slug()
	case *blog.PostArchivedEvent:
		data["post_id"] = e.PostID().String()
	case *blog.CommentAddedEvent:
		data["post_id"] = e.PostID().String()
		data["comment_id"] = e.CommentID().String()
		data["author_id"] = e.AuthorID().String()
	case *blog.PostUpdatedEvent:
		data["post_id"] = e.PostID().String()
		data["new_title"] = e.NewTitle()
	default:
		return nil, fmt.Errorf("%w: unknown event type %q", ErrNotReconstructable, event.EventName())
	}

	return &Envelope{
		EventType:  event.EventName(),
		EventID:    event.EventID().String(),
		OccurredAt: event.OccurredOn().UTC().Format(time.RFC3339Nano),
		Data:       data,
	}, nil
}

// Decode rebuilds a typed domain event from an envelope. Unknown event types
// return ErrNotReconstructable. Malformed uuid strings do not fail the decode;
// the affected field comes back as uuid.Nil and the raw value stays in Data.
func (env *Envelope) Decode() (shared.DomainEvent, error) {
	eventID := parseUUID(env.EventID)
	occurredOn := parseTime(env.OccurredAt)

	// event_id and occurred_at inside data are envelope metadata leaking from
	// older producers; strip them before reading payload fields.
	data := make(map[string]interface{}, len(env.Data))
	for k, v := range env.Data {
		if k == "event_id" || k == "occurred_at" {
			continue
		}
		data[k] = v
	}

	switch env.EventType {
	case blog.EventPostCreated:
		return blog.RebuildPostCreatedEvent(eventID, occurredOn,
			uuidField(data, "post_id"), uuidField(data, "author_id"), stringField(data, "title")), nil
	case blog.EventPostPublished:
		return blog.RebuildPostPublishedEvent(eventID, occurredOn,
			uuidField(data, "post_id"), stringField(data, "slug")), nil
	case blog.EventPostArchived:
		return blog.RebuildPostArchivedEvent(eventID, occurredOn,
			uuidField(data, "post_id")), nil
	case blog.EventCommentAdded:
		return blog.RebuildCommentAddedEvent(eventID, occurredOn,
			uuidField(data, "post_id"), uuidField(data, "comment_id"), uuidField(data, "author_id")), nil
	case blog.EventPostUpdated:
		return blog.RebuildPostUpdatedEvent(eventID, occurredOn,
			uuidField(data, "post_id"), stringField(data, "new_title")), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrNotReconstructable, env.EventType)
	}
}

// Marshal serializes the envelope to its JSON wire form.
func (env *Envelope) Marshal() ([]byte, error) {
	return json.Marshal(env)
}

// UnmarshalEnvelope parses raw wire bytes into an Envelope.
func UnmarshalEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("malformed envelope: %w", err)
	}
	if env.EventType == "" {
		return nil, errors.New("malformed envelope: missing event_type")
	}
	return &env, nil
}

func parseUUID(raw string) uuid.UUID {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func stringField(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

func uuidField(data map[string]interface{}, key string) uuid.UUID {
	return parseUUID(stringField(data, key))
}
