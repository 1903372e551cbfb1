/*
Package blog - blog domain error definitions

Design principles:
1. Sentinel errors support type-safe errors.Is() checks
2. Constructors capture the stack at creation time for later diagnosis
3. Every error supports the error chain, so root causes stay traceable
4. No HTTP status codes or other non-domain concepts
*/
package blog

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"blog/domain/shared"
)

// ============================================================================
// Blog domain sentinel errors
// ============================================================================

var (
	// ErrPostNotFound the requested post does not exist
	ErrPostNotFound = errors.New("post not found")

	// ErrAlreadyPublished attempt to publish a post that is already published
	ErrAlreadyPublished = errors.New("post is already published")

	// ErrPostArchived operation not permitted on an archived post
	ErrPostArchived = errors.New("post is archived")

	// ErrContentTooShort the content does not meet the publish minimum
	ErrContentTooShort = errors.New("content is too short to publish")

	// ErrUnauthorizedPostAction the caller is not permitted to act on this post
	ErrUnauthorizedPostAction = errors.New("not authorized to perform this action")

	// ErrCommentNotAllowed the post does not accept comments
	ErrCommentNotAllowed = errors.New("comment not allowed")

	// ErrCommentNotFound no comment with that ID exists on this post
	ErrCommentNotFound = errors.New("comment not found")

	// ErrDuplicateSlug a post with that slug already exists
	ErrDuplicateSlug = errors.New("slug already exists")
)

// ============================================================================
// Constructors
// ============================================================================

// NewPostNotFoundError creates a post-not-found error (with stack)
func NewPostNotFoundError(identifier string) error {
	return &blogDomainError{
		sentinel: ErrPostNotFound,
		entity:   "post",
		message:  "post not found: " + identifier,
		stack:    shared.CaptureStack(3),
	}
}

// NewAlreadyPublishedError creates an already-published error
func NewAlreadyPublishedError(postID uuid.UUID) error {
	return &blogDomainError{
		sentinel: ErrAlreadyPublished,
		entity:   "post",
		message:  "post " + postID.String() + " is already published",
		stack:    shared.CaptureStack(3),
	}
}

// NewPostArchivedError creates an archived-post error.
// operation names the rejected action ("publish", "update", "archive again").
func NewPostArchivedError(operation string) error {
	return &blogDomainError{
		sentinel: ErrPostArchived,
		entity:   "post",
		message:  "cannot " + operation + " an archived post",
		stack:    shared.CaptureStack(3),
	}
}

// NewUnauthorizedPostActionError creates an authorization error for a post action
func NewUnauthorizedPostActionError(action string) error {
	return &blogDomainError{
		sentinel: ErrUnauthorizedPostAction,
		entity:   "post",
		message:  "not authorized to " + action,
		stack:    shared.CaptureStack(3),
	}
}

// NewCommentNotAllowedError creates a comment-rejected error
func NewCommentNotAllowedError(reason string) error {
	return &blogDomainError{
		sentinel: ErrCommentNotAllowed,
		entity:   "comment",
		message:  "cannot add comment: " + reason,
		stack:    shared.CaptureStack(3),
	}
}

// NewCommentNotFoundError creates a comment-not-found error
func NewCommentNotFoundError(commentID uuid.UUID) error {
	return &blogDomainError{
		sentinel: ErrCommentNotFound,
		entity:   "comment",
		message:  "comment not found: " + commentID.String(),
		stack:    shared.CaptureStack(3),
	}
}

// NewDuplicateSlugError creates a duplicate-slug error
func NewDuplicateSlugError(slug string) error {
	return &blogDomainError{
		sentinel: ErrDuplicateSlug,
		entity:   "post",
		field:    "slug",
		message:  "a post with slug '" + slug + "' already exists",
		stack:    shared.CaptureStack(3),
	}
}

// ============================================================================
// ContentTooShortError
// Carries the measured and required lengths so callers can report both
// ============================================================================

// ContentTooShortError is the publish rejection for content below the minimum.
type ContentTooShortError struct {
	Current int
	Min     int
	stack   []uintptr
}

// NewContentTooShortError creates a content-too-short error with the measured length
func NewContentTooShortError(current int) error {
	return &ContentTooShortError{
		Current: current,
		Min:     MinContentLengthToPublish,
		stack:   shared.CaptureStack(3),
	}
}

func (e *ContentTooShortError) Error() string {
	return fmt.Sprintf("content is too short to publish (%d chars, minimum %d)", e.Current, e.Min)
}

func (e *ContentTooShortError) Unwrap() error { return ErrContentTooShort }

// Stack implements shared.Stacker
func (e *ContentTooShortError) Stack() []string {
	return shared.FormatStack(e.stack)
}

// ============================================================================
// blogDomainError (internal)
// Implements error, Unwrap and shared.Stacker
// ============================================================================

type blogDomainError struct {
	sentinel error     // sentinel for errors.Is()
	entity   string    // entity name
	field    string    // field name (optional)
	message  string    // error message
	stack    []uintptr // call stack
}

func (e *blogDomainError) Error() string {
	return e.message
}

func (e *blogDomainError) Unwrap() error {
	return e.sentinel
}

// Stack implements shared.Stacker
func (e *blogDomainError) Stack() []string {
	if len(e.stack) == 0 {
		return nil
	}
	return shared.FormatStack(e.stack)
}
