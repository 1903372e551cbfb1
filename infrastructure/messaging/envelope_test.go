package messaging

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"blog/domain/blog"
	"blog/domain/shared"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	postID := uuid.New()
	authorID := uuid.New()
	commentID := uuid.New()

	events := []shared.DomainEvent{
		blog.NewPostCreatedEvent(postID, authorID, "A Title"),
		blog.NewPostPublishedEvent(postID, "a-title"),
		blog.NewPostArchivedEvent(postID),
		blog.NewCommentAddedEvent(postID, commentID, authorID),
		blog.NewPostUpdatedEvent(postID, "New Title"),
	}

	for _, original := range events {
		env, err := Encode(original)
		if err != nil {
			t.Fatalf("Encode(%s) failed: %v", original.EventName(), err)
		}

		raw, err := env.Marshal()
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		parsed, err := UnmarshalEnvelope(raw)
		if err != nil {
			t.Fatalf("UnmarshalEnvelope failed: %v", err)
		}

		decoded, err := parsed.Decode()
		if err != nil {
			t.Fatalf("Decode(%s) failed: %v", original.EventName(), err)
		}

		if decoded.EventName() != original.EventName() {
			t.Errorf("event name %s != %s", decoded.EventName(), original.EventName())
		}
		if decoded.EventID() != original.EventID() {
			t.Errorf("%s: event ID not preserved", original.EventName())
		}
		if decoded.AggregateID() != original.AggregateID() {
			t.Errorf("%s: aggregate ID not preserved", original.EventName())
		}
		if !decoded.OccurredOn().Equal(original.OccurredOn()) {
			t.Errorf("%s: occurred-on not preserved", original.EventName())
		}
	}
}

func TestEnvelopePayloadFields(t *testing.T) {
	postID := uuid.New()
	authorID := uuid.New()

	env, err := Encode(blog.NewPostCreatedEvent(postID, authorID, "Payload Check"))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if env.Data["post_id"] != postID.String() {
		t.Error("post_id not canonical uuid string")
	}
	if env.Data["author_id"] != authorID.String() {
		t.Error("author_id not canonical uuid string")
	}
	if env.Data["title"] != "Payload Check" {
		t.Error("title missing from payload")
	}
	if _, err := time.Parse(time.RFC3339Nano, env.OccurredAt); err != nil {
		t.Errorf("occurred_at not RFC3339: %v", err)
	}

	decoded, err := env.Decode()
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	created := decoded.(*blog.PostCreatedEvent)
	if created.PostID() != postID || created.AuthorID() != authorID || created.Title() != "Payload Check" {
		t.Error("payload fields not reproduced")
	}
}

func TestDecodeUnknownEventType(t *testing.T) {
	env := &Envelope{
		EventType:  "SomethingElseHappened",
		EventID:    uuid.New().String(),
		OccurredAt: time.Now().UTC().Format(time.RFC3339Nano),
		Data:       map[string]interface{}{"post_id": uuid.New().String()},
	}

	_, err := env.Decode()
	if !errors.Is(err, ErrNotReconstructable) {
		t.Fatalf("expected ErrNotReconstructable, got %v", err)
	}
}

func TestDecodeMalformedUUIDDegrades(t *testing.T) {
	env := &Envelope{
		EventType:  blog.EventPostPublished,
		EventID:    "not-a-uuid",
		OccurredAt: "not-a-time",
		Data: map[string]interface{}{
			"post_id": "also-not-a-uuid",
			"slug":    "still-works",
		},
	}

	decoded, err := env.Decode()
	if err != nil {
		t.Fatalf("malformed identifiers must not fail decode: %v", err)
	}
	published := decoded.(*blog.PostPublishedEvent)
	if published.PostID() != uuid.Nil {
		t.Error("malformed post_id should degrade to uuid.Nil")
	}
	if published.Slug() != "still-works" {
		t.Error("remaining fields must survive a degraded decode")
	}
	// Raw values stay on the envelope for best-effort handling
	if env.Data["post_id"] != "also-not-a-uuid" {
		t.Error("raw payload must be preserved on the envelope")
	}
}

func TestDecodeStripsEnvelopeMetadataFromData(t *testing.T) {
	postID := uuid.New()
	eventID := uuid.New()
	occurred := time.Now().UTC().Truncate(time.Second)

	env := &Envelope{
		EventType:  blog.EventPostArchived,
		EventID:    eventID.String(),
		OccurredAt: occurred.Format(time.RFC3339Nano),
		Data: map[string]interface{}{
			"post_id":     postID.String(),
			"event_id":    uuid.New().String(),
			"occurred_at": "2001-01-01T00:00:00Z",
		},
	}

	decoded, err := env.Decode()
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.EventID() != eventID {
		t.Error("event_id must come from the envelope, not from data")
	}
	if !decoded.OccurredOn().Equal(occurred) {
		t.Error("occurred_at must come from the envelope, not from data")
	}
}

func TestUnmarshalEnvelopeRejectsGarbage(t *testing.T) {
	if _, err := UnmarshalEnvelope([]byte("{not json")); err == nil {
		t.Error("invalid JSON must be rejected")
	}
	if _, err := UnmarshalEnvelope([]byte(`{"data":{}}`)); err == nil {
		t.Error("missing event_type must be rejected")
	}
}
