package blog

import (
	"time"

	"github.com/google/uuid"

	"blog/domain/shared"
)

// Domain events of the blog subdomain. Naming convention: noun + past
// participle (PostPublished, CommentAdded) - they record facts, not intents.
// The set is closed; extend it by adding variants, not by subclassing.

// Event type tags as they appear on the wire.
const (
	EventPostCreated   = "PostCreated"
	EventPostPublished = "PostPublished"
	EventPostArchived  = "PostArchived"
	EventCommentAdded  = "CommentAdded"
	EventPostUpdated   = "PostUpdated"
)

// PostCreatedEvent is emitted when a post is first created (as a draft).
type PostCreatedEvent struct {
	eventID    uuid.UUID
	occurredOn time.Time
	postID     uuid.UUID
	authorID   uuid.UUID
	title      string
}

func NewPostCreatedEvent(postID, authorID uuid.UUID, title string) *PostCreatedEvent {
	return &PostCreatedEvent{
		eventID:    uuid.New(),
		occurredOn: time.Now().UTC(),
		postID:     postID,
		authorID:   authorID,
		title:      title,
	}
}

func (e *PostCreatedEvent) EventID() uuid.UUID     { return e.eventID }
func (e *PostCreatedEvent) EventName() string      { return EventPostCreated }
func (e *PostCreatedEvent) OccurredOn() time.Time  { return e.occurredOn }
func (e *PostCreatedEvent) AggregateID() uuid.UUID { return e.postID }
func (e *PostCreatedEvent) PostID() uuid.UUID      { return e.postID }
func (e *PostCreatedEvent) AuthorID() uuid.UUID    { return e.authorID }
func (e *PostCreatedEvent) Title() string          { return e.title }

// PostPublishedEvent is emitted when a post transitions from draft to published.
type PostPublishedEvent struct {
	eventID    uuid.UUID
	occurredOn time.Time
	postID     uuid.UUID
	slug       string
}

func NewPostPublishedEvent(postID uuid.UUID, slug string) *PostPublishedEvent {
	return &PostPublishedEvent{
		eventID:    uuid.New(),
		occurredOn: time.Now().UTC(),
		postID:     postID,
		slug:       slug,
	}
}

func (e *PostPublishedEvent) EventID() uuid.UUID     { return e.eventID }
func (e *PostPublishedEvent) EventName() string      { return EventPostPublished }
func (e *PostPublishedEvent) OccurredOn() time.Time  { return e.occurredOn }
func (e *PostPublishedEvent) AggregateID() uuid.UUID { return e.postID }
func (e *PostPublishedEvent) PostID() uuid.UUID      { return e.postID }
func (e *PostPublishedEvent) Slug() string           { return e.slug }

// PostArchivedEvent is emitted when a post is archived.
type PostArchivedEvent struct {
	eventID    uuid.UUID
	occurredOn time.Time
	postID     uuid.UUID
}

func NewPostArchivedEvent(postID uuid.UUID) *PostArchivedEvent {
	return &PostArchivedEvent{
		eventID:    uuid.New(),
		occurredOn: time.Now().UTC(),
		postID:     postID,
	}
}

func (e *PostArchivedEvent) EventID() uuid.UUID     { return e.eventID }
func (e *PostArchivedEvent) EventName() string      { return EventPostArchived }
func (e *PostArchivedEvent) OccurredOn() time.Time  { return e.occurredOn }
func (e *PostArchivedEvent) AggregateID() uuid.UUID { return e.postID }
func (e *PostArchivedEvent) PostID() uuid.UUID      { return e.postID }

// CommentAddedEvent is emitted when a comment is added to a post.
type CommentAddedEvent struct {
	eventID    uuid.UUID
	occurredOn time.Time
	postID     uuid.UUID
	commentID  uuid.UUID
	authorID   uuid.UUID
}

func NewCommentAddedEvent(postID, commentID, authorID uuid.UUID) *CommentAddedEvent {
	return &CommentAddedEvent{
		eventID:    uuid.New(),
		occurredOn: time.Now().UTC(),
		postID:     postID,
		commentID:  commentID,
		authorID:   authorID,
	}
}

func (e *CommentAddedEvent) EventID() uuid.UUID     { return e.eventID }
func (e *CommentAddedEvent) EventName() string      { return EventCommentAdded }
func (e *CommentAddedEvent) OccurredOn() time.Time  { return e.occurredOn }
func (e *CommentAddedEvent) AggregateID() uuid.UUID { return e.postID }
func (e *CommentAddedEvent) PostID() uuid.UUID      { return e.postID }
func (e *CommentAddedEvent) CommentID() uuid.UUID   { return e.commentID }
func (e *CommentAddedEvent) AuthorID() uuid.UUID    { return e.authorID }

// PostUpdatedEvent is emitted when a post's title or content is updated.
type PostUpdatedEvent struct {
	eventID    uuid.UUID
	occurredOn time.Time
	postID     uuid.UUID
	newTitle   string
}

func NewPostUpdatedEvent(postID uuid.UUID, newTitle string) *PostUpdatedEvent {
	return &PostUpdatedEvent{
		eventID:    uuid.New(),
		occurredOn: time.Now().UTC(),
		postID:     postID,
		newTitle:   newTitle,
	}
}

func (e *PostUpdatedEvent) EventID() uuid.UUID     { return e.eventID }
func (e *PostUpdatedEvent) EventName() string      { return EventPostUpdated }
func (e *PostUpdatedEvent) OccurredOn() time.Time  { return e.occurredOn }
func (e *PostUpdatedEvent) AggregateID() uuid.UUID { return e.postID }
func (e *PostUpdatedEvent) PostID() uuid.UUID      { return e.postID }
func (e *PostUpdatedEvent) NewTitle() string       { return e.newTitle }

// Compile-time interface checks
var (
	_ shared.DomainEvent = (*PostCreatedEvent)(nil)
	_ shared.DomainEvent = (*PostPublishedEvent)(nil)
	_ shared.DomainEvent = (*PostArchivedEvent)(nil)
	_ shared.DomainEvent = (*CommentAddedEvent)(nil)
	_ shared.DomainEvent = (*PostUpdatedEvent)(nil)
)

// ============================================================================
// Reconstruction - messaging layer use only
// ============================================================================
//
// Rebuild* restore an event received over the wire, preserving its original
// event ID and occurrence time. They never mint new identity.

func RebuildPostCreatedEvent(eventID uuid.UUID, occurredOn time.Time, postID, authorID uuid.UUID, title string) *PostCreatedEvent {
	return &PostCreatedEvent{eventID: eventID, occurredOn: occurredOn, postID: postID, authorID: authorID, title: title}
}

func RebuildPostPublishedEvent(eventID uuid.UUID, occurredOn time.Time, postID uuid.UUID, slug string) *PostPublishedEvent {
	return &PostPublishedEvent{eventID: eventID, occurredOn: occurredOn, postID: postID, slug: slug}
}

func RebuildPostArchivedEvent(eventID uuid.UUID, occurredOn time.Time, postID uuid.UUID) *PostArchivedEvent {
	return &PostArchivedEvent{eventID: eventID, occurredOn: occurredOn, postID: postID}
}

func RebuildCommentAddedEvent(eventID uuid.UUID, occurredOn time.Time, postID, commentID, authorID uuid.UUID) *CommentAddedEvent {
	return &CommentAddedEvent{eventID: eventID, occurredOn: occurredOn, postID: postID, commentID: commentID, authorID: authorID}
}

func RebuildPostUpdatedEvent(eventID uuid.UUID, occurredOn time.Time, postID uuid.UUID, newTitle string) *PostUpdatedEvent {
	return &PostUpdatedEvent{eventID: eventID, occurredOn: occurredOn, postID: postID, newTitle: newTitle}
}
