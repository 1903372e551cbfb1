package blog

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"blog/domain/shared"
)

func mustTitle(t *testing.T, raw string) Title {
	t.Helper()
	title, err := NewTitle(raw)
	if err != nil {
		t.Fatalf("NewTitle(%q) failed: %v", raw, err)
	}
	return title
}

func mustContent(t *testing.T, raw string) Content {
	t.Helper()
	content, err := NewContent(raw)
	if err != nil {
		t.Fatalf("NewContent failed: %v", err)
	}
	return content
}

func publishableContent(t *testing.T) Content {
	t.Helper()
	return mustContent(t, strings.Repeat("lorem ipsum ", 20))
}

func newDraft(t *testing.T, authorID uuid.UUID) *PostAggregate {
	t.Helper()
	post, err := NewPostAggregate(mustTitle(t, "Test Post"), publishableContent(t), authorID, nil)
	if err != nil {
		t.Fatalf("NewPostAggregate failed: %v", err)
	}
	return post
}

func TestNewPostAggregate(t *testing.T) {
	authorID := uuid.New()
	post := newDraft(t, authorID)

	if post.Status() != StatusDraft {
		t.Errorf("new post status = %s, want draft", post.Status())
	}
	if post.AuthorID() != authorID {
		t.Error("author ID mismatch")
	}
	if post.Slug().Value() != "test-post" {
		t.Errorf("slug = %q, want test-post", post.Slug().Value())
	}
	if !post.IsNew() {
		t.Error("freshly created post should be marked new")
	}

	events := post.PullEvents()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	created, ok := events[0].(*PostCreatedEvent)
	if !ok {
		t.Fatalf("expected PostCreatedEvent, got %T", events[0])
	}
	if created.PostID() != post.ID() || created.AuthorID() != authorID {
		t.Error("PostCreated payload mismatch")
	}
	if created.EventID() == uuid.Nil {
		t.Error("event ID must be set")
	}
}

func TestNewPostAggregateRequiresAuthor(t *testing.T) {
	_, err := NewPostAggregate(mustTitle(t, "No Author"), publishableContent(t), uuid.Nil, nil)
	if !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestPublish(t *testing.T) {
	post := newDraft(t, uuid.New())
	post.PullEvents()

	if err := post.Publish(); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if post.Status() != StatusPublished {
		t.Errorf("status = %s, want published", post.Status())
	}
	if post.PublishedAt() == nil {
		t.Error("publishedAt must be set after publishing")
	}

	events := post.PullEvents()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	published, ok := events[0].(*PostPublishedEvent)
	if !ok {
		t.Fatalf("expected PostPublishedEvent, got %T", events[0])
	}
	if published.Slug() != post.Slug().Value() {
		t.Error("published event slug mismatch")
	}

	// Publishing twice must fail and emit nothing
	if err := post.Publish(); !errors.Is(err, ErrAlreadyPublished) {
		t.Errorf("second Publish: expected ErrAlreadyPublished, got %v", err)
	}
	if got := len(post.PullEvents()); got != 0 {
		t.Errorf("failed publish emitted %d events", got)
	}
}

func TestPublishRejectsShortContent(t *testing.T) {
	post, err := NewPostAggregate(mustTitle(t, "Short"), mustContent(t, "tiny"), uuid.New(), nil)
	if err != nil {
		t.Fatalf("NewPostAggregate failed: %v", err)
	}
	post.PullEvents()

	err = post.Publish()
	if !errors.Is(err, ErrContentTooShort) {
		t.Fatalf("expected ErrContentTooShort, got %v", err)
	}
	if post.Status() != StatusDraft {
		t.Error("failed publish must not change status")
	}
	if got := len(post.PullEvents()); got != 0 {
		t.Errorf("failed publish emitted %d events", got)
	}
}

func TestPublishMeasuresContentInCharacters(t *testing.T) {
	// 40 characters is 120 bytes; the minimum applies to characters.
	post, err := NewPostAggregate(mustTitle(t, "Short"), mustContent(t, strings.Repeat("あ", 40)), uuid.New(), nil)
	if err != nil {
		t.Fatalf("NewPostAggregate failed: %v", err)
	}
	post.PullEvents()

	err = post.Publish()
	if !errors.Is(err, ErrContentTooShort) {
		t.Fatalf("expected ErrContentTooShort, got %v", err)
	}
	var tooShort *ContentTooShortError
	if !errors.As(err, &tooShort) {
		t.Fatal("expected *ContentTooShortError")
	}
	if tooShort.Current != 40 {
		t.Errorf("measured length %d, want 40", tooShort.Current)
	}
}

func TestArchive(t *testing.T) {
	authorID := uuid.New()
	post := newDraft(t, authorID)
	post.PullEvents()

	if err := post.Archive(uuid.New()); !errors.Is(err, ErrUnauthorizedPostAction) {
		t.Errorf("non-author archive: expected ErrUnauthorizedPostAction, got %v", err)
	}

	if err := post.Archive(authorID); err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if post.Status() != StatusArchived {
		t.Errorf("status = %s, want archived", post.Status())
	}
	events := post.PullEvents()
	if len(events) != 1 || events[0].EventName() != EventPostArchived {
		t.Fatalf("expected single PostArchived event, got %v", events)
	}

	// Archived is terminal
	if err := post.Archive(authorID); !errors.Is(err, ErrPostArchived) {
		t.Errorf("re-archive: expected ErrPostArchived, got %v", err)
	}
	if err := post.Publish(); !errors.Is(err, ErrPostArchived) {
		t.Errorf("publish after archive: expected ErrPostArchived, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	authorID := uuid.New()
	post := newDraft(t, authorID)
	post.PullEvents()

	newTitle := mustTitle(t, "Updated Title")
	newContent := publishableContent(t)

	if err := post.Update(newTitle, newContent, uuid.New()); !errors.Is(err, ErrUnauthorizedPostAction) {
		t.Errorf("non-author update: expected ErrUnauthorizedPostAction, got %v", err)
	}

	if err := post.Update(newTitle, newContent, authorID); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if post.Title().Value() != "Updated Title" {
		t.Error("title not updated")
	}
	if post.Slug().Value() != "updated-title" {
		t.Errorf("slug not re-derived, got %q", post.Slug().Value())
	}

	events := post.PullEvents()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	updated, ok := events[0].(*PostUpdatedEvent)
	if !ok {
		t.Fatalf("expected PostUpdatedEvent, got %T", events[0])
	}
	if updated.NewTitle() != "Updated Title" {
		t.Error("PostUpdated payload mismatch")
	}

	if err := post.Archive(authorID); err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if err := post.Update(newTitle, newContent, authorID); !errors.Is(err, ErrPostArchived) {
		t.Errorf("update after archive: expected ErrPostArchived, got %v", err)
	}
}

func TestAddComment(t *testing.T) {
	post := newDraft(t, uuid.New())
	post.PullEvents()

	commenterID := uuid.New()
	comment, err := post.AddComment("  Nice post!  ", commenterID)
	if err != nil {
		t.Fatalf("AddComment failed: %v", err)
	}
	if comment.Body() != "Nice post!" {
		t.Errorf("comment body = %q, want trimmed", comment.Body())
	}
	if len(post.Comments()) != 1 {
		t.Fatalf("expected 1 visible comment, got %d", len(post.Comments()))
	}

	events := post.PullEvents()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	added, ok := events[0].(*CommentAddedEvent)
	if !ok {
		t.Fatalf("expected CommentAddedEvent, got %T", events[0])
	}
	if added.CommentID() != comment.ID() || added.AuthorID() != commenterID {
		t.Error("CommentAdded payload mismatch")
	}

	if _, err := post.AddComment("   ", commenterID); err == nil {
		t.Error("blank comment should be rejected")
	}
	if _, err := post.AddComment(strings.Repeat("a", MaxCommentLength+1), commenterID); err == nil {
		t.Error("over-long comment should be rejected")
	}
}

func TestAddCommentCountsCharacters(t *testing.T) {
	post := newDraft(t, uuid.New())
	post.PullEvents()

	if _, err := post.AddComment(strings.Repeat("あ", MaxCommentLength), uuid.New()); err != nil {
		t.Errorf("multibyte comment at max length rejected: %v", err)
	}
	if _, err := post.AddComment(strings.Repeat("あ", MaxCommentLength+1), uuid.New()); err == nil {
		t.Error("multibyte comment over max length should be rejected")
	}
}

func TestAddCommentOnArchivedPost(t *testing.T) {
	authorID := uuid.New()
	post := newDraft(t, authorID)
	if err := post.Archive(authorID); err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	post.PullEvents()

	if _, err := post.AddComment("too late", uuid.New()); !errors.Is(err, ErrCommentNotAllowed) {
		t.Errorf("expected ErrCommentNotAllowed, got %v", err)
	}
	if got := len(post.PullEvents()); got != 0 {
		t.Errorf("rejected comment emitted %d events", got)
	}
}

func TestRemoveComment(t *testing.T) {
	post := newDraft(t, uuid.New())
	commenterID := uuid.New()
	comment, err := post.AddComment("to be removed", commenterID)
	if err != nil {
		t.Fatalf("AddComment failed: %v", err)
	}
	post.PullEvents()

	if err := post.RemoveComment(comment.ID(), uuid.New()); !errors.Is(err, ErrUnauthorizedPostAction) {
		t.Errorf("non-author removal: expected ErrUnauthorizedPostAction, got %v", err)
	}

	if err := post.RemoveComment(comment.ID(), commenterID); err != nil {
		t.Fatalf("RemoveComment failed: %v", err)
	}
	if len(post.Comments()) != 0 {
		t.Error("deleted comment still visible")
	}
	if len(post.AllComments()) != 1 {
		t.Error("soft-deleted comment should remain in AllComments")
	}
	if body := post.AllComments()[0].Body(); body != "[comment deleted]" {
		t.Errorf("tombstone body = %q", body)
	}
	if got := len(post.PullEvents()); got != 0 {
		t.Errorf("comment removal emitted %d events", got)
	}

	if err := post.RemoveComment(uuid.New(), commenterID); !errors.Is(err, ErrCommentNotFound) {
		t.Errorf("expected ErrCommentNotFound, got %v", err)
	}
}

func TestAddTags(t *testing.T) {
	post := newDraft(t, uuid.New())

	post.AddTags([]string{" Go ", "ddd", "GO", "", "Events"})
	post.AddTags([]string{"DDD", "architecture"})

	want := []string{"go", "ddd", "events", "architecture"}
	got := post.Tags()
	if len(got) != len(want) {
		t.Fatalf("tags = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tags = %v, want %v", got, want)
		}
	}

	// Returned slice is a copy
	got[0] = "mutated"
	if post.Tags()[0] != "go" {
		t.Error("Tags() must return a defensive copy")
	}
}

func TestPullEventsDrainsBuffer(t *testing.T) {
	authorID := uuid.New()
	post := newDraft(t, authorID)
	if err := post.Publish(); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	first := post.PullEvents()
	if len(first) != 2 {
		t.Fatalf("expected 2 buffered events, got %d", len(first))
	}
	if first[0].EventName() != EventPostCreated || first[1].EventName() != EventPostPublished {
		t.Error("events out of emission order")
	}

	if got := len(post.PullEvents()); got != 0 {
		t.Errorf("second drain returned %d events", got)
	}
}

func TestReconstitute(t *testing.T) {
	id := uuid.New()
	authorID := uuid.New()
	post := Reconstitute(ReconstructionDTO{
		ID:       id,
		Title:    mustTitle(t, "Restored Post"),
		Content:  publishableContent(t),
		AuthorID: authorID,
		Status:   StatusPublished,
		Tags:     []string{"go"},
	})

	if post.ID() != id {
		t.Error("ID mismatch after reconstitution")
	}
	if post.IsNew() {
		t.Error("reconstituted aggregate must not be marked new")
	}
	if got := len(post.PullEvents()); got != 0 {
		t.Errorf("reconstitution emitted %d events", got)
	}

	// Behavior still works on a reconstituted aggregate
	if err := post.Archive(authorID); err != nil {
		t.Fatalf("Archive on reconstituted post failed: %v", err)
	}
	if got := len(post.PullEvents()); got != 1 {
		t.Errorf("expected 1 event after archive, got %d", got)
	}
}

// Full lifecycle: create, tag, publish, comment, archive.
func TestPostLifecycle(t *testing.T) {
	authorID := uuid.New()
	post, err := NewPostAggregate(mustTitle(t, "Event Driven Design in Go"), publishableContent(t), authorID, nil)
	if err != nil {
		t.Fatalf("NewPostAggregate failed: %v", err)
	}
	post.AddTags([]string{"go", "events"})

	if err := post.Publish(); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if _, err := post.AddComment("Great read", uuid.New()); err != nil {
		t.Fatalf("AddComment failed: %v", err)
	}
	if err := post.Archive(authorID); err != nil {
		t.Fatalf("Archive failed: %v", err)
	}

	events := post.PullEvents()
	wantNames := []string{EventPostCreated, EventPostPublished, EventCommentAdded, EventPostArchived}
	if len(events) != len(wantNames) {
		t.Fatalf("expected %d events, got %d", len(wantNames), len(events))
	}
	for i, want := range wantNames {
		if events[i].EventName() != want {
			t.Errorf("event %d = %s, want %s", i, events[i].EventName(), want)
		}
		if events[i].AggregateID() != post.ID() {
			t.Errorf("event %d aggregate ID mismatch", i)
		}
	}
}
