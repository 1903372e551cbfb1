package blog

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"blog/domain/shared"
)

// MaxCommentLength is the upper bound for a comment body.
const MaxCommentLength = 1000

// deletedCommentBody replaces the body of a soft-deleted comment.
const deletedCommentBody = "[comment deleted]"

// Comment entity living inside a PostAggregate.
// Comments have no independent persistence path: they are created, read and
// soft-deleted only through their owning aggregate.
type Comment struct {
	id        uuid.UUID
	body      string
	authorID  uuid.UUID
	createdAt time.Time
	deleted   bool
}

// newComment creates a validated comment. Only the aggregate calls this.
func newComment(body string, authorID uuid.UUID) (*Comment, error) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return nil, shared.NewValidationError("comment", "body", "comment body cannot be empty")
	}
	if n := utf8.RuneCountInString(trimmed); n > MaxCommentLength {
		return nil, shared.NewValidationError("comment", "body",
			fmt.Sprintf("comment exceeds %d characters (current: %d)", MaxCommentLength, n))
	}

	return &Comment{
		id:        uuid.New(),
		body:      trimmed,
		authorID:  authorID,
		createdAt: time.Now().UTC(),
	}, nil
}

func (c *Comment) ID() uuid.UUID        { return c.id }
func (c *Comment) Body() string         { return c.body }
func (c *Comment) AuthorID() uuid.UUID  { return c.authorID }
func (c *Comment) CreatedAt() time.Time { return c.createdAt }
func (c *Comment) IsDeleted() bool      { return c.deleted }

// softDelete marks the comment deleted and replaces its body with a tombstone.
// Only the original author may delete their comment.
func (c *Comment) softDelete(requestingUserID uuid.UUID) error {
	if requestingUserID != c.authorID {
		return NewUnauthorizedPostActionError("delete comment")
	}
	c.deleted = true
	c.body = deletedCommentBody
	return nil
}

// CommentReconstructionDTO rebuilds a Comment from persisted state.
// Repository layer use only.
type CommentReconstructionDTO struct {
	ID        uuid.UUID
	Body      string
	AuthorID  uuid.UUID
	CreatedAt time.Time
	Deleted   bool
}

// RebuildCommentFromDTO reconstructs a Comment without validation or events
func RebuildCommentFromDTO(dto CommentReconstructionDTO) *Comment {
	return &Comment{
		id:        dto.ID,
		body:      dto.Body,
		authorID:  dto.AuthorID,
		createdAt: dto.CreatedAt,
		deleted:   dto.Deleted,
	}
}

// Compile-time check that Comment implements the Entity interface
var _ shared.Entity = (*Comment)(nil)
