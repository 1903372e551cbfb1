package blog

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	domainblog "blog/domain/blog"
	"blog/domain/shared"
	"blog/infrastructure/messaging"
	"blog/infrastructure/persistence/memory"
)

func newService() (*ApplicationService, *memory.PostRepository, *messaging.MemoryEventBus) {
	repo := memory.NewPostRepository()
	bus := messaging.NewMemoryEventBus()
	return NewApplicationService(repo, repo, bus, nil), repo, bus
}

// txMarker tags contexts handed out by the fake unit of work so the fakes
// below can tell whether a call ran inside the transaction boundary.
type txMarker struct{}

type fakeUnitOfWork struct {
	calls      int
	rolledBack bool
}

func (u *fakeUnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	u.calls++
	if err := fn(context.WithValue(ctx, txMarker{}, true)); err != nil {
		u.rolledBack = true
		return err
	}
	return nil
}

type txAwareRepo struct {
	*memory.PostRepository
	savedInTx bool
}

func (r *txAwareRepo) Save(ctx context.Context, post *domainblog.PostAggregate) error {
	r.savedInTx = ctx.Value(txMarker{}) != nil
	return r.PostRepository.Save(ctx, post)
}

type txAwareBus struct {
	*messaging.MemoryEventBus
	publishedInTx bool
	fail          error
}

func (b *txAwareBus) PublishMany(ctx context.Context, events []shared.DomainEvent) error {
	b.publishedInTx = ctx.Value(txMarker{}) != nil
	if b.fail != nil {
		return b.fail
	}
	return b.MemoryEventBus.PublishMany(ctx, events)
}

func TestPersistAndPublishShareTransaction(t *testing.T) {
	uow := &fakeUnitOfWork{}
	repo := &txAwareRepo{PostRepository: memory.NewPostRepository()}
	bus := &txAwareBus{MemoryEventBus: messaging.NewMemoryEventBus()}
	svc := NewApplicationService(repo, repo.PostRepository, bus, uow)

	if _, err := svc.CreatePost(context.Background(), createRequest("Atomic Write")); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	if uow.calls != 1 {
		t.Errorf("unit of work ran %d times, want 1", uow.calls)
	}
	if !repo.savedInTx {
		t.Error("Save ran outside the transaction context")
	}
	if !bus.publishedInTx {
		t.Error("PublishMany ran outside the transaction context")
	}
	if len(bus.Events()) != 1 {
		t.Errorf("expected 1 event, got %d", len(bus.Events()))
	}
}

func TestPublishFailureRollsBackTransaction(t *testing.T) {
	uow := &fakeUnitOfWork{}
	repo := &txAwareRepo{PostRepository: memory.NewPostRepository()}
	bus := &txAwareBus{MemoryEventBus: messaging.NewMemoryEventBus(), fail: errors.New("broker down")}
	svc := NewApplicationService(repo, repo.PostRepository, bus, uow)

	_, err := svc.CreatePost(context.Background(), createRequest("Doomed Write"))
	if err == nil {
		t.Fatal("expected publish failure to surface")
	}
	if !uow.rolledBack {
		t.Error("failed publish must roll the transaction back")
	}
}

func createRequest(title string) CreatePostRequest {
	return CreatePostRequest{
		Title:    title,
		Content:  strings.Repeat("content ", 20),
		AuthorID: uuid.New().String(),
		Tags:     []string{"go", "DDD"},
	}
}

func TestCreatePost(t *testing.T) {
	svc, _, bus := newService()

	resp, err := svc.CreatePost(context.Background(), createRequest("Hello World"))
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	if resp.Status != "draft" {
		t.Errorf("status = %s, want draft", resp.Status)
	}
	if resp.Slug != "hello-world" {
		t.Errorf("slug = %s", resp.Slug)
	}
	if len(resp.Tags) != 2 || resp.Tags[1] != "ddd" {
		t.Errorf("tags = %v", resp.Tags)
	}

	events := bus.Events()
	if len(events) != 1 || events[0].EventName() != domainblog.EventPostCreated {
		t.Fatalf("expected one PostCreated on the bus, got %v", events)
	}
}

func TestCreatePostRejectsDuplicateSlug(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	if _, err := svc.CreatePost(ctx, createRequest("Same Title")); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	_, err := svc.CreatePost(ctx, createRequest("Same Title"))
	if !errors.Is(err, domainblog.ErrDuplicateSlug) {
		t.Errorf("expected ErrDuplicateSlug, got %v", err)
	}
}

func TestPublishPostFlow(t *testing.T) {
	svc, _, bus := newService()
	ctx := context.Background()

	created, err := svc.CreatePost(ctx, createRequest("Publish Me"))
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	bus.Reset()

	resp, err := svc.PublishPost(ctx, created.ID)
	if err != nil {
		t.Fatalf("PublishPost failed: %v", err)
	}
	if resp.Status != "published" {
		t.Errorf("status = %s, want published", resp.Status)
	}
	if resp.PublishedAt == nil {
		t.Error("published_at missing")
	}

	events := bus.Events()
	if len(events) != 1 || events[0].EventName() != domainblog.EventPostPublished {
		t.Fatalf("expected one PostPublished on the bus, got %v", events)
	}

	// Second publish: domain error, nothing new on the bus
	if _, err := svc.PublishPost(ctx, created.ID); !errors.Is(err, domainblog.ErrAlreadyPublished) {
		t.Errorf("expected ErrAlreadyPublished, got %v", err)
	}
	if len(bus.Events()) != 1 {
		t.Error("failed publish must not emit events")
	}
}

func TestPublishShortContent(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	req := createRequest("Too Short")
	req.Content = strings.Repeat("x", 50)
	created, err := svc.CreatePost(ctx, req)
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	_, err = svc.PublishPost(ctx, created.ID)
	var tooShort *domainblog.ContentTooShortError
	if !errors.As(err, &tooShort) {
		t.Fatalf("expected ContentTooShortError, got %v", err)
	}
	if tooShort.Current != 50 || tooShort.Min != 100 {
		t.Errorf("lengths current=%d min=%d", tooShort.Current, tooShort.Min)
	}
}

func TestArchiveAuthorization(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	req := createRequest("Archive Rules")
	created, err := svc.CreatePost(ctx, req)
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	if _, err := svc.ArchivePost(ctx, created.ID, uuid.New().String()); !errors.Is(err, domainblog.ErrUnauthorizedPostAction) {
		t.Errorf("wrong author must be rejected, got %v", err)
	}

	resp, err := svc.ArchivePost(ctx, created.ID, req.AuthorID)
	if err != nil {
		t.Fatalf("ArchivePost failed: %v", err)
	}
	if resp.Status != "archived" {
		t.Errorf("status = %s", resp.Status)
	}

	// Comments are rejected after archiving
	_, err = svc.AddComment(ctx, created.ID, AddCommentRequest{Body: "late", AuthorID: uuid.New().String()})
	if !errors.Is(err, domainblog.ErrCommentNotAllowed) {
		t.Errorf("expected ErrCommentNotAllowed, got %v", err)
	}
}

func TestCommentRoundTrip(t *testing.T) {
	svc, _, bus := newService()
	ctx := context.Background()

	created, err := svc.CreatePost(ctx, createRequest("Discussion"))
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	bus.Reset()

	commenterID := uuid.New().String()
	resp, err := svc.AddComment(ctx, created.ID, AddCommentRequest{Body: "First!", AuthorID: commenterID})
	if err != nil {
		t.Fatalf("AddComment failed: %v", err)
	}
	if len(resp.Comments) != 1 {
		t.Fatalf("expected 1 comment, got %d", len(resp.Comments))
	}
	commentID := resp.Comments[0].ID

	events := bus.Events()
	if len(events) != 1 || events[0].EventName() != domainblog.EventCommentAdded {
		t.Fatalf("expected CommentAdded on the bus, got %v", events)
	}

	// Removal by someone else fails, by the author hides it
	if _, err := svc.RemoveComment(ctx, created.ID, commentID, uuid.New().String()); !errors.Is(err, domainblog.ErrUnauthorizedPostAction) {
		t.Errorf("expected ErrUnauthorizedPostAction, got %v", err)
	}
	resp, err = svc.RemoveComment(ctx, created.ID, commentID, commenterID)
	if err != nil {
		t.Fatalf("RemoveComment failed: %v", err)
	}
	if len(resp.Comments) != 0 {
		t.Error("removed comment still visible")
	}
}

func TestUpdatePost(t *testing.T) {
	svc, _, bus := newService()
	ctx := context.Background()

	req := createRequest("Original")
	created, err := svc.CreatePost(ctx, req)
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	bus.Reset()

	resp, err := svc.UpdatePost(ctx, created.ID, UpdatePostRequest{
		Title:    "Rewritten",
		Content:  strings.Repeat("new content ", 15),
		AuthorID: req.AuthorID,
	})
	if err != nil {
		t.Fatalf("UpdatePost failed: %v", err)
	}
	if resp.Title != "Rewritten" || resp.Slug != "rewritten" {
		t.Errorf("title/slug = %s/%s", resp.Title, resp.Slug)
	}
	events := bus.Events()
	if len(events) != 1 || events[0].EventName() != domainblog.EventPostUpdated {
		t.Fatalf("expected PostUpdated on the bus, got %v", events)
	}
}

func TestListPublishedPosts(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	authorID := uuid.New().String()
	for _, title := range []string{"First Post", "Second Post", "Third Post"} {
		req := createRequest(title)
		req.AuthorID = authorID
		created, err := svc.CreatePost(ctx, req)
		if err != nil {
			t.Fatalf("CreatePost failed: %v", err)
		}
		if title != "Third Post" {
			if _, err := svc.PublishPost(ctx, created.ID); err != nil {
				t.Fatalf("PublishPost failed: %v", err)
			}
		}
	}

	list, err := svc.ListPublishedPosts(ctx, 1, 10, "")
	if err != nil {
		t.Fatalf("ListPublishedPosts failed: %v", err)
	}
	if list.Total != 2 || len(list.Items) != 2 {
		t.Errorf("published total = %d, items = %d", list.Total, len(list.Items))
	}

	tagged, err := svc.ListPublishedPosts(ctx, 1, 10, "GO")
	if err != nil {
		t.Fatalf("ListPublishedPosts by tag failed: %v", err)
	}
	if tagged.Total != 2 {
		t.Errorf("tag filter must be case-insensitive, total = %d", tagged.Total)
	}

	byAuthor, err := svc.ListPostsByAuthor(ctx, authorID, 1, 10)
	if err != nil {
		t.Fatalf("ListPostsByAuthor failed: %v", err)
	}
	if byAuthor.Total != 3 {
		t.Errorf("author listing must include drafts, total = %d", byAuthor.Total)
	}
}

func TestGetPostBySlug(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	if _, err := svc.CreatePost(ctx, createRequest("Find Me By Slug")); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	resp, err := svc.GetPostBySlug(ctx, "find-me-by-slug")
	if err != nil {
		t.Fatalf("GetPostBySlug failed: %v", err)
	}
	if resp.Title != "Find Me By Slug" {
		t.Errorf("title = %s", resp.Title)
	}

	if _, err := svc.GetPostBySlug(ctx, "no-such-slug"); !errors.Is(err, domainblog.ErrPostNotFound) {
		t.Errorf("expected ErrPostNotFound, got %v", err)
	}
}

func TestGetPostInvalidID(t *testing.T) {
	svc, _, _ := newService()
	if _, err := svc.GetPostByID(context.Background(), "not-a-uuid"); err == nil {
		t.Error("invalid uuid must be rejected")
	}
}
