/*
Package blog - blog subdomain, core layer of the DDD architecture

The PostAggregate is the aggregate root. It owns the post's state and its
comments, guarding every invariant across the cluster:
  - Status transitions: draft -> published, draft|published -> archived; archived
    is terminal and a published post cannot be published again
  - Publishing requires content of at least 100 trimmed characters
  - No comments on archived posts
  - Only the recorded author may archive or edit the post
  - Tags are case-insensitively unique, in insertion order

State changes never touch fields directly from outside: all mutations go
through aggregate methods, which validate preconditions, mutate state, and
record domain events into an internal buffer. The caller persists the
aggregate, then drains the buffer with PullEvents and hands the events to the
event bus.
*/
package blog

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"blog/domain/shared"
)

// Status post lifecycle state
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// PostAggregate aggregate root coordinating a post and its comments.
// All modifications to the post or a comment must go through this root.
type PostAggregate struct {
	id          uuid.UUID
	title       Title
	slug        Slug
	content     Content
	authorID    uuid.UUID
	categoryID  *uuid.UUID
	status      Status
	tags        []string
	createdAt   time.Time
	updatedAt   time.Time
	publishedAt *time.Time
	comments    []*Comment

	// Domain event buffer, drained exactly once per persistence cycle
	events []shared.DomainEvent

	// True if this aggregate was newly created (not loaded from storage)
	isNew bool
}

// ============================================================================
// Factory
// ============================================================================

// NewPostAggregate creates a new post in draft status and records PostCreated.
// This is the only entry point for creating a post.
func NewPostAggregate(title Title, content Content, authorID uuid.UUID, categoryID *uuid.UUID) (*PostAggregate, error) {
	if authorID == uuid.Nil {
		return nil, shared.NewValidationError("post", "author_id", "author ID is required")
	}

	now := time.Now().UTC()
	post := &PostAggregate{
		id:         uuid.New(),
		title:      title,
		slug:       title.Slug(),
		content:    content,
		authorID:   authorID,
		categoryID: categoryID,
		status:     StatusDraft,
		tags:       make([]string, 0),
		createdAt:  now,
		updatedAt:  now,
		comments:   make([]*Comment, 0),
		events:     make([]shared.DomainEvent, 0),
		isNew:      true,
	}

	post.events = append(post.events, NewPostCreatedEvent(post.id, authorID, title.Value()))

	return post, nil
}

// ============================================================================
// Behavior
// ============================================================================

// Publish transitions the post from draft to published.
// Fails with ErrAlreadyPublished, ErrPostArchived or ErrContentTooShort.
func (p *PostAggregate) Publish() error {
	if p.status == StatusPublished {
		return NewAlreadyPublishedError(p.id)
	}
	if p.status == StatusArchived {
		return NewPostArchivedError("publish")
	}
	if !p.content.IsPublishable() {
		return NewContentTooShortError(p.content.PublishableLength())
	}

	now := time.Now().UTC()
	p.status = StatusPublished
	p.publishedAt = &now
	p.updatedAt = now

	p.events = append(p.events, NewPostPublishedEvent(p.id, p.slug.Value()))

	return nil
}

// Archive marks the post archived. Only the author may archive,
// and archiving is terminal.
func (p *PostAggregate) Archive(requestingAuthorID uuid.UUID) error {
	if requestingAuthorID != p.authorID {
		return NewUnauthorizedPostActionError("archive this post")
	}
	if p.status == StatusArchived {
		return NewPostArchivedError("archive again")
	}

	p.status = StatusArchived
	p.updatedAt = time.Now().UTC()

	p.events = append(p.events, NewPostArchivedEvent(p.id))

	return nil
}

// Update replaces title, slug and content. Only the author may edit,
// and archived posts cannot be edited.
func (p *PostAggregate) Update(newTitle Title, newContent Content, requestingAuthorID uuid.UUID) error {
	if requestingAuthorID != p.authorID {
		return NewUnauthorizedPostActionError("edit this post")
	}
	if p.status == StatusArchived {
		return NewPostArchivedError("edit")
	}

	p.title = newTitle
	p.slug = newTitle.Slug()
	p.content = newContent
	p.updatedAt = time.Now().UTC()

	p.events = append(p.events, NewPostUpdatedEvent(p.id, newTitle.Value()))

	return nil
}

// AddComment appends a validated comment and records CommentAdded.
// Archived posts reject comments.
func (p *PostAggregate) AddComment(body string, commenterID uuid.UUID) (*Comment, error) {
	if p.status == StatusArchived {
		return nil, NewCommentNotAllowedError("the post is archived")
	}

	comment, err := newComment(body, commenterID)
	if err != nil {
		return nil, err
	}

	p.comments = append(p.comments, comment)
	p.events = append(p.events, NewCommentAddedEvent(p.id, comment.ID(), commenterID))

	return comment, nil
}

// RemoveComment soft-deletes a comment. Only the comment's author may do so.
func (p *PostAggregate) RemoveComment(commentID, requestingUserID uuid.UUID) error {
	for _, c := range p.comments {
		if c.ID() == commentID {
			return c.softDelete(requestingUserID)
		}
	}
	return NewCommentNotFoundError(commentID)
}

// AddTags normalizes tags to lowercase, trims them, and appends the ones not
// already present. Empty and duplicate entries are silently ignored.
func (p *PostAggregate) AddTags(tags []string) {
	for _, tag := range tags {
		normalized := strings.ToLower(strings.TrimSpace(tag))
		if normalized == "" {
			continue
		}
		exists := false
		for _, t := range p.tags {
			if t == normalized {
				exists = true
				break
			}
		}
		if !exists {
			p.tags = append(p.tags, normalized)
		}
	}
}

// SetCategory assigns or clears the post's category
func (p *PostAggregate) SetCategory(categoryID *uuid.UUID) {
	p.categoryID = categoryID
	p.updatedAt = time.Now().UTC()
}

// ============================================================================
// Getters - read-only accessors
// ============================================================================

func (p *PostAggregate) ID() uuid.UUID        { return p.id }
func (p *PostAggregate) Title() Title         { return p.title }
func (p *PostAggregate) Slug() Slug           { return p.slug }
func (p *PostAggregate) Content() Content     { return p.content }
func (p *PostAggregate) AuthorID() uuid.UUID  { return p.authorID }
func (p *PostAggregate) Status() Status       { return p.status }
func (p *PostAggregate) CreatedAt() time.Time { return p.createdAt }
func (p *PostAggregate) UpdatedAt() time.Time { return p.updatedAt }
func (p *PostAggregate) IsNew() bool          { return p.isNew }

// CategoryID returns the optional category; nil when unset
func (p *PostAggregate) CategoryID() *uuid.UUID {
	if p.categoryID == nil {
		return nil
	}
	id := *p.categoryID
	return &id
}

// PublishedAt returns the publication time; nil while unpublished
func (p *PostAggregate) PublishedAt() *time.Time {
	if p.publishedAt == nil {
		return nil
	}
	t := *p.publishedAt
	return &t
}

// Tags returns a copy of the tag list in insertion order
func (p *PostAggregate) Tags() []string {
	tags := make([]string, len(p.tags))
	copy(tags, p.tags)
	return tags
}

// Comments returns the visible (non-deleted) comments
func (p *PostAggregate) Comments() []*Comment {
	visible := make([]*Comment, 0, len(p.comments))
	for _, c := range p.comments {
		if !c.IsDeleted() {
			visible = append(visible, c)
		}
	}
	return visible
}

// AllComments includes soft-deleted comments (for persistence and audit)
func (p *PostAggregate) AllComments() []*Comment {
	all := make([]*Comment, len(p.comments))
	copy(all, p.comments)
	return all
}

// ============================================================================
// Domain event management
// ============================================================================

// PullEvents returns the buffered events in emission order and clears the
// buffer. Safe to call on an empty buffer. The caller drains it exactly once
// per persistence cycle, after a successful save.
func (p *PostAggregate) PullEvents() []shared.DomainEvent {
	events := p.events
	p.events = make([]shared.DomainEvent, 0)
	return events
}

// ClearNew marks the aggregate as persisted.
// Repository use only, after a successful save.
func (p *PostAggregate) ClearNew() { p.isNew = false }

// ============================================================================
// Reconstruction - repository layer use only
// ============================================================================

// ReconstructionDTO carries persisted state back into the domain.
// Should only be used in repository implementations.
type ReconstructionDTO struct {
	ID          uuid.UUID
	Title       Title
	Content     Content
	AuthorID    uuid.UUID
	CategoryID  *uuid.UUID
	Status      Status
	Tags        []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	PublishedAt *time.Time
	Comments    []*Comment
}

// Reconstitute rebuilds an aggregate from persisted state.
// No events are emitted: they already happened. The event buffer starts empty.
func Reconstitute(dto ReconstructionDTO) *PostAggregate {
	tags := dto.Tags
	if tags == nil {
		tags = make([]string, 0)
	}
	comments := dto.Comments
	if comments == nil {
		comments = make([]*Comment, 0)
	}

	return &PostAggregate{
		id:          dto.ID,
		title:       dto.Title,
		slug:        dto.Title.Slug(),
		content:     dto.Content,
		authorID:    dto.AuthorID,
		categoryID:  dto.CategoryID,
		status:      dto.Status,
		tags:        tags,
		createdAt:   dto.CreatedAt,
		updatedAt:   dto.UpdatedAt,
		publishedAt: dto.PublishedAt,
		comments:    comments,
		events:      nil,
		isNew:       false,
	}
}

// Compile-time check that PostAggregate implements AggregateRoot
var _ shared.AggregateRoot = (*PostAggregate)(nil)
