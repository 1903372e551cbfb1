/*
Package handlers - reaction handlers for blog domain events

One handler per event type, executed asynchronously by the dispatch worker.
Every collaborator is optional: a nil collaborator means the corresponding
side effect is skipped silently, never an error. Handlers are invoked
at-least-once and must be idempotent; errors they return feed the
dispatcher's retry logic.
*/
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"blog/domain/blog"
	"blog/domain/shared"
	"blog/infrastructure/messaging"
	"blog/infrastructure/messaging/dispatch"
	"blog/pkg/logger"
)

// ============================================================================
// Collaborator ports - implemented outside this module
// ============================================================================

// CacheInvalidator drops cached entries by exact key or trailing-* pattern.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, keyOrPattern string) error
}

// Notifier delivers user-facing notifications.
type Notifier interface {
	SendPostPublishedNotification(ctx context.Context, postID uuid.UUID, slug string) error
	NotifyNewComment(ctx context.Context, postID, commentID uuid.UUID) error
}

// ModerationService screens new comments for spam.
type ModerationService interface {
	// CheckComment reports whether the comment passes moderation.
	CheckComment(ctx context.Context, postID, commentID uuid.UUID) (bool, error)
}

// AnalyticsSink records product analytics events.
type AnalyticsSink interface {
	TrackPostCreated(ctx context.Context, postID, authorID uuid.UUID) error
}

// AuditLog appends operator-facing audit records.
type AuditLog interface {
	Record(ctx context.Context, action string, entityID uuid.UUID, occurredAt time.Time) error
}

// Collaborators bundles the optional side-effect dependencies.
// Any field may be nil.
type Collaborators struct {
	Cache      CacheInvalidator
	Notifier   Notifier
	Moderation ModerationService
	Analytics  AnalyticsSink
	Audit      AuditLog
}

// NewRegistry wires every event type to its handler factory. Collaborators
// are captured by the factories and resolved fresh per invocation.
func NewRegistry(c Collaborators) (*dispatch.Registry, error) {
	registry := dispatch.NewRegistry()

	bindings := map[string]dispatch.Factory{
		blog.EventPostPublished: func() dispatch.Handler { return &OnPostPublished{Cache: c.Cache, Notifier: c.Notifier} },
		blog.EventCommentAdded:  func() dispatch.Handler { return &OnCommentAdded{Moderation: c.Moderation, Notifier: c.Notifier} },
		blog.EventPostArchived:  func() dispatch.Handler { return &OnPostArchived{Cache: c.Cache, Audit: c.Audit} },
		blog.EventPostCreated:   func() dispatch.Handler { return &OnPostCreated{Analytics: c.Analytics} },
		blog.EventPostUpdated:   func() dispatch.Handler { return &OnPostUpdated{Cache: c.Cache} },
	}
	for eventType, factory := range bindings {
		if err := registry.Register(eventType, factory); err != nil {
			return nil, err
		}
	}
	if err := registry.Validate(); err != nil {
		return nil, err
	}
	return registry, nil
}

// ============================================================================
// Handlers
// ============================================================================

// OnPostPublished invalidates the published-list and slug caches, then
// notifies the author. Both effects tolerate re-invocation.
type OnPostPublished struct {
	Cache    CacheInvalidator
	Notifier Notifier
}

func (h *OnPostPublished) Name() string { return "on_post_published" }

func (h *OnPostPublished) Handle(ctx context.Context, event shared.DomainEvent, env *messaging.Envelope) error {
	published, ok := event.(*blog.PostPublishedEvent)
	if !ok {
		return handleDegraded(h.Name(), env)
	}

	if h.Cache != nil {
		if err := h.Cache.Invalidate(ctx, "posts:published:*"); err != nil {
			return fmt.Errorf("invalidate published list: %w", err)
		}
		if err := h.Cache.Invalidate(ctx, "posts:slug:"+published.Slug()); err != nil {
			return fmt.Errorf("invalidate slug cache: %w", err)
		}
	}
	if h.Notifier != nil {
		if err := h.Notifier.SendPostPublishedNotification(ctx, published.PostID(), published.Slug()); err != nil {
			return fmt.Errorf("publish notification: %w", err)
		}
	}
	return nil
}

// OnCommentAdded runs the spam-moderation check, then notifies the post
// author. A comment flagged by moderation is logged and not notified.
type OnCommentAdded struct {
	Moderation ModerationService
	Notifier   Notifier
}

func (h *OnCommentAdded) Name() string { return "on_comment_added" }

func (h *OnCommentAdded) Handle(ctx context.Context, event shared.DomainEvent, env *messaging.Envelope) error {
	added, ok := event.(*blog.CommentAddedEvent)
	if !ok {
		return handleDegraded(h.Name(), env)
	}

	if h.Moderation != nil {
		approved, err := h.Moderation.CheckComment(ctx, added.PostID(), added.CommentID())
		if err != nil {
			return fmt.Errorf("moderation check: %w", err)
		}
		if !approved {
			logger.Warn("comment flagged by moderation",
				zap.String("post_id", added.PostID().String()),
				zap.String("comment_id", added.CommentID().String()),
			)
			return nil
		}
	}
	if h.Notifier != nil {
		if err := h.Notifier.NotifyNewComment(ctx, added.PostID(), added.CommentID()); err != nil {
			return fmt.Errorf("comment notification: %w", err)
		}
	}
	return nil
}

// OnPostArchived invalidates the single-post and published-list caches, then
// appends an audit record.
type OnPostArchived struct {
	Cache CacheInvalidator
	Audit AuditLog
}

func (h *OnPostArchived) Name() string { return "on_post_archived" }

func (h *OnPostArchived) Handle(ctx context.Context, event shared.DomainEvent, env *messaging.Envelope) error {
	archived, ok := event.(*blog.PostArchivedEvent)
	if !ok {
		return handleDegraded(h.Name(), env)
	}

	if h.Cache != nil {
		if err := h.Cache.Invalidate(ctx, "posts:id:"+archived.PostID().String()); err != nil {
			return fmt.Errorf("invalidate post cache: %w", err)
		}
		if err := h.Cache.Invalidate(ctx, "posts:published:*"); err != nil {
			return fmt.Errorf("invalidate published list: %w", err)
		}
	}
	if h.Audit != nil {
		if err := h.Audit.Record(ctx, "post_archived", archived.PostID(), archived.OccurredOn()); err != nil {
			return fmt.Errorf("audit record: %w", err)
		}
	}
	return nil
}

// OnPostCreated records the analytics event for a new draft.
type OnPostCreated struct {
	Analytics AnalyticsSink
}

func (h *OnPostCreated) Name() string { return "on_post_created" }

func (h *OnPostCreated) Handle(ctx context.Context, event shared.DomainEvent, env *messaging.Envelope) error {
	created, ok := event.(*blog.PostCreatedEvent)
	if !ok {
		return handleDegraded(h.Name(), env)
	}

	if h.Analytics != nil {
		if err := h.Analytics.TrackPostCreated(ctx, created.PostID(), created.AuthorID()); err != nil {
			return fmt.Errorf("analytics track: %w", err)
		}
	}
	return nil
}

// OnPostUpdated invalidates the single-post and published-list caches.
// The event carries the new title only; the old slug's cache entry expires on
// its own TTL.
type OnPostUpdated struct {
	Cache CacheInvalidator
}

func (h *OnPostUpdated) Name() string { return "on_post_updated" }

func (h *OnPostUpdated) Handle(ctx context.Context, event shared.DomainEvent, env *messaging.Envelope) error {
	updated, ok := event.(*blog.PostUpdatedEvent)
	if !ok {
		return handleDegraded(h.Name(), env)
	}

	if h.Cache != nil {
		if err := h.Cache.Invalidate(ctx, "posts:id:"+updated.PostID().String()); err != nil {
			return fmt.Errorf("invalidate post cache: %w", err)
		}
		if err := h.Cache.Invalidate(ctx, "posts:published:*"); err != nil {
			return fmt.Errorf("invalidate published list: %w", err)
		}
	}
	return nil
}

// handleDegraded is the best-effort path when the typed event could not be
// reconstructed. The raw payload is logged for operators; no side effects run
// because their inputs cannot be trusted.
func handleDegraded(handler string, env *messaging.Envelope) error {
	logger.Warn("degraded processing without a typed event",
		zap.String("handler", handler),
		zap.String("event_type", env.EventType),
		zap.String("event_id", env.EventID),
		zap.Any("data", env.Data),
	)
	return nil
}
