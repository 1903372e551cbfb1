package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"blog/domain/blog"
	"blog/infrastructure/messaging"
)

type fakeCache struct {
	keys []string
	err  error
}

func (c *fakeCache) Invalidate(ctx context.Context, keyOrPattern string) error {
	if c.err != nil {
		return c.err
	}
	c.keys = append(c.keys, keyOrPattern)
	return nil
}

type fakeNotifier struct {
	published []string
	comments  []uuid.UUID
	err       error
}

func (n *fakeNotifier) SendPostPublishedNotification(ctx context.Context, postID uuid.UUID, slug string) error {
	if n.err != nil {
		return n.err
	}
	n.published = append(n.published, slug)
	return nil
}

func (n *fakeNotifier) NotifyNewComment(ctx context.Context, postID, commentID uuid.UUID) error {
	if n.err != nil {
		return n.err
	}
	n.comments = append(n.comments, commentID)
	return nil
}

type fakeModeration struct {
	approved bool
	err      error
}

func (m *fakeModeration) CheckComment(ctx context.Context, postID, commentID uuid.UUID) (bool, error) {
	return m.approved, m.err
}

type fakeAnalytics struct {
	tracked []uuid.UUID
}

func (a *fakeAnalytics) TrackPostCreated(ctx context.Context, postID, authorID uuid.UUID) error {
	a.tracked = append(a.tracked, postID)
	return nil
}

type fakeAudit struct {
	actions []string
}

func (a *fakeAudit) Record(ctx context.Context, action string, entityID uuid.UUID, occurredAt time.Time) error {
	a.actions = append(a.actions, action)
	return nil
}

func TestOnPostPublished(t *testing.T) {
	cache := &fakeCache{}
	notifier := &fakeNotifier{}
	handler := &OnPostPublished{Cache: cache, Notifier: notifier}

	event := blog.NewPostPublishedEvent(uuid.New(), "my-post")
	if err := handler.Handle(context.Background(), event, nil); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	wantKeys := []string{"posts:published:*", "posts:slug:my-post"}
	if len(cache.keys) != len(wantKeys) {
		t.Fatalf("invalidated %v, want %v", cache.keys, wantKeys)
	}
	for i, want := range wantKeys {
		if cache.keys[i] != want {
			t.Errorf("key %d = %q, want %q", i, cache.keys[i], want)
		}
	}
	if len(notifier.published) != 1 || notifier.published[0] != "my-post" {
		t.Errorf("notification not sent: %v", notifier.published)
	}
}

func TestOnPostPublishedNilCollaborators(t *testing.T) {
	handler := &OnPostPublished{}
	event := blog.NewPostPublishedEvent(uuid.New(), "my-post")
	if err := handler.Handle(context.Background(), event, nil); err != nil {
		t.Errorf("nil collaborators must be skipped silently: %v", err)
	}
}

func TestOnPostPublishedCollaboratorErrorPropagates(t *testing.T) {
	wantErr := errors.New("cache down")
	handler := &OnPostPublished{Cache: &fakeCache{err: wantErr}}
	event := blog.NewPostPublishedEvent(uuid.New(), "my-post")
	if err := handler.Handle(context.Background(), event, nil); !errors.Is(err, wantErr) {
		t.Errorf("collaborator error must propagate for retry, got %v", err)
	}
}

func TestOnCommentAdded(t *testing.T) {
	commentID := uuid.New()
	event := blog.NewCommentAddedEvent(uuid.New(), commentID, uuid.New())

	t.Run("approved", func(t *testing.T) {
		notifier := &fakeNotifier{}
		handler := &OnCommentAdded{Moderation: &fakeModeration{approved: true}, Notifier: notifier}
		if err := handler.Handle(context.Background(), event, nil); err != nil {
			t.Fatalf("Handle failed: %v", err)
		}
		if len(notifier.comments) != 1 || notifier.comments[0] != commentID {
			t.Error("approved comment must trigger notification")
		}
	})

	t.Run("flagged", func(t *testing.T) {
		notifier := &fakeNotifier{}
		handler := &OnCommentAdded{Moderation: &fakeModeration{approved: false}, Notifier: notifier}
		if err := handler.Handle(context.Background(), event, nil); err != nil {
			t.Fatalf("flagged comment must not fail dispatch: %v", err)
		}
		if len(notifier.comments) != 0 {
			t.Error("flagged comment must not be notified")
		}
	})

	t.Run("moderation error retries", func(t *testing.T) {
		wantErr := errors.New("moderation timeout")
		handler := &OnCommentAdded{Moderation: &fakeModeration{err: wantErr}, Notifier: &fakeNotifier{}}
		if err := handler.Handle(context.Background(), event, nil); !errors.Is(err, wantErr) {
			t.Errorf("moderation error must propagate, got %v", err)
		}
	})

	t.Run("no moderation notifies directly", func(t *testing.T) {
		notifier := &fakeNotifier{}
		handler := &OnCommentAdded{Notifier: notifier}
		if err := handler.Handle(context.Background(), event, nil); err != nil {
			t.Fatalf("Handle failed: %v", err)
		}
		if len(notifier.comments) != 1 {
			t.Error("missing moderation collaborator must not block notification")
		}
	})
}

func TestOnPostArchived(t *testing.T) {
	postID := uuid.New()
	cache := &fakeCache{}
	audit := &fakeAudit{}
	handler := &OnPostArchived{Cache: cache, Audit: audit}

	if err := handler.Handle(context.Background(), blog.NewPostArchivedEvent(postID), nil); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	wantKeys := []string{"posts:id:" + postID.String(), "posts:published:*"}
	for i, want := range wantKeys {
		if cache.keys[i] != want {
			t.Errorf("key %d = %q, want %q", i, cache.keys[i], want)
		}
	}
	if len(audit.actions) != 1 || audit.actions[0] != "post_archived" {
		t.Errorf("audit record missing: %v", audit.actions)
	}
}

func TestOnPostCreated(t *testing.T) {
	postID := uuid.New()
	analytics := &fakeAnalytics{}
	handler := &OnPostCreated{Analytics: analytics}

	if err := handler.Handle(context.Background(), blog.NewPostCreatedEvent(postID, uuid.New(), "T"), nil); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if len(analytics.tracked) != 1 || analytics.tracked[0] != postID {
		t.Error("analytics event not recorded")
	}
}

func TestOnPostUpdated(t *testing.T) {
	postID := uuid.New()
	cache := &fakeCache{}
	handler := &OnPostUpdated{Cache: cache}

	if err := handler.Handle(context.Background(), blog.NewPostUpdatedEvent(postID, "New"), nil); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if len(cache.keys) != 2 || cache.keys[0] != "posts:id:"+postID.String() {
		t.Errorf("unexpected invalidations: %v", cache.keys)
	}
}

func TestHandlersDegradeWithoutTypedEvent(t *testing.T) {
	env := &messaging.Envelope{
		EventType: "PostPublished",
		EventID:   uuid.New().String(),
		Data:      map[string]interface{}{"post_id": "garbage"},
	}
	cache := &fakeCache{}
	handler := &OnPostPublished{Cache: cache}

	if err := handler.Handle(context.Background(), nil, env); err != nil {
		t.Fatalf("degraded invocation must not fail: %v", err)
	}
	if len(cache.keys) != 0 {
		t.Error("degraded invocation must not run side effects")
	}
}

func TestNewRegistryCoversAllEventTypes(t *testing.T) {
	registry, err := NewRegistry(Collaborators{})
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	want := []string{
		blog.EventCommentAdded,
		blog.EventPostArchived,
		blog.EventPostCreated,
		blog.EventPostPublished,
		blog.EventPostUpdated,
	}
	got := registry.EventTypes()
	if len(got) != len(want) {
		t.Fatalf("registered %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("types[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
