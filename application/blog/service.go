/*
Package blog Application Layer - Post Business Process Orchestration

Responsibilities:
1. Receive external requests (usually from a Controller)
2. Load the aggregate through the repository port
3. Call aggregate root methods to execute business operations
4. Persist the aggregate, then drain its pending events and publish them

Event ordering contract: events are drained with PullEvents only after a
successful persist, then handed to the EventBus. When a UnitOfWork is wired,
persist and publish run inside one transaction, so a transaction-aware bus
(outbox) commits the event rows atomically with the aggregate change and a
publish failure rolls the state change back.
*/
package blog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"blog/domain/blog"
	"blog/domain/shared"
	"blog/pkg/logger"
)

// ApplicationService coordinates post-related business processes.
type ApplicationService struct {
	repo     blog.Repository
	readRepo blog.ReadRepository
	eventBus shared.EventBus
	uow      shared.UnitOfWork
}

// NewApplicationService wires the service. uow may be nil (in-memory setups);
// persist and publish then run without a shared transaction boundary.
func NewApplicationService(repo blog.Repository, readRepo blog.ReadRepository, eventBus shared.EventBus, uow shared.UnitOfWork) *ApplicationService {
	return &ApplicationService{repo: repo, readRepo: readRepo, eventBus: eventBus, uow: uow}
}

// ============================================================================
// Commands
// ============================================================================

// CreatePost creates a draft, optionally tagged and categorized.
func (s *ApplicationService) CreatePost(ctx context.Context, req CreatePostRequest) (*PostResponse, error) {
	title, err := blog.NewTitle(req.Title)
	if err != nil {
		return nil, err
	}
	content, err := blog.NewContent(req.Content)
	if err != nil {
		return nil, err
	}
	authorID, err := parseID(req.AuthorID, "author_id")
	if err != nil {
		return nil, err
	}

	var categoryID *uuid.UUID
	if req.CategoryID != "" {
		id, err := parseID(req.CategoryID, "category_id")
		if err != nil {
			return nil, err
		}
		categoryID = &id
	}

	taken, err := s.readRepo.SlugExists(ctx, title.Slug().Value(), uuid.Nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, blog.NewDuplicateSlugError(title.Slug().Value())
	}

	post, err := blog.NewPostAggregate(title, content, authorID, categoryID)
	if err != nil {
		return nil, err
	}
	post.AddTags(req.Tags)

	return s.persistAndPublish(ctx, post)
}

// PublishPost transitions a draft to published.
func (s *ApplicationService) PublishPost(ctx context.Context, postID string) (*PostResponse, error) {
	return s.mutate(ctx, postID, func(post *blog.PostAggregate) error {
		return post.Publish()
	})
}

// ArchivePost archives a post on behalf of its author.
func (s *ApplicationService) ArchivePost(ctx context.Context, postID, authorID string) (*PostResponse, error) {
	requester, err := parseID(authorID, "author_id")
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, postID, func(post *blog.PostAggregate) error {
		return post.Archive(requester)
	})
}

// UpdatePost replaces a post's title and content.
func (s *ApplicationService) UpdatePost(ctx context.Context, postID string, req UpdatePostRequest) (*PostResponse, error) {
	title, err := blog.NewTitle(req.Title)
	if err != nil {
		return nil, err
	}
	content, err := blog.NewContent(req.Content)
	if err != nil {
		return nil, err
	}
	requester, err := parseID(req.AuthorID, "author_id")
	if err != nil {
		return nil, err
	}

	id, err := parseID(postID, "post_id")
	if err != nil {
		return nil, err
	}
	taken, err := s.readRepo.SlugExists(ctx, title.Slug().Value(), id)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, blog.NewDuplicateSlugError(title.Slug().Value())
	}

	return s.mutate(ctx, postID, func(post *blog.PostAggregate) error {
		return post.Update(title, content, requester)
	})
}

// AddComment appends a comment to a post.
func (s *ApplicationService) AddComment(ctx context.Context, postID string, req AddCommentRequest) (*PostResponse, error) {
	commenter, err := parseID(req.AuthorID, "author_id")
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, postID, func(post *blog.PostAggregate) error {
		_, err := post.AddComment(req.Body, commenter)
		return err
	})
}

// RemoveComment soft-deletes a comment on behalf of its author.
func (s *ApplicationService) RemoveComment(ctx context.Context, postID, commentID, userID string) (*PostResponse, error) {
	cid, err := parseID(commentID, "comment_id")
	if err != nil {
		return nil, err
	}
	requester, err := parseID(userID, "user_id")
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, postID, func(post *blog.PostAggregate) error {
		return post.RemoveComment(cid, requester)
	})
}

// AddTags tags a post; duplicates and blanks are ignored.
func (s *ApplicationService) AddTags(ctx context.Context, postID string, req AddTagsRequest) (*PostResponse, error) {
	return s.mutate(ctx, postID, func(post *blog.PostAggregate) error {
		post.AddTags(req.Tags)
		return nil
	})
}

// ============================================================================
// Queries
// ============================================================================

func (s *ApplicationService) GetPostByID(ctx context.Context, postID string) (*PostResponse, error) {
	id, err := parseID(postID, "post_id")
	if err != nil {
		return nil, err
	}
	post, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toPostResponse(post), nil
}

func (s *ApplicationService) GetPostBySlug(ctx context.Context, slug string) (*PostResponse, error) {
	post, err := s.readRepo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return toPostResponse(post), nil
}

// ListPublishedPosts pages through published posts, optionally filtered by tag.
func (s *ApplicationService) ListPublishedPosts(ctx context.Context, page, pageSize int, tag string) (*PostListResponse, error) {
	page, pageSize = normalizePaging(page, pageSize)
	posts, total, err := s.readRepo.FindPublished(ctx, page, pageSize, tag)
	if err != nil {
		return nil, err
	}
	return toListResponse(posts, total, page, pageSize), nil
}

// ListPostsByAuthor pages through one author's posts regardless of status.
func (s *ApplicationService) ListPostsByAuthor(ctx context.Context, authorID string, page, pageSize int) (*PostListResponse, error) {
	id, err := parseID(authorID, "author_id")
	if err != nil {
		return nil, err
	}
	page, pageSize = normalizePaging(page, pageSize)
	posts, total, err := s.readRepo.FindByAuthor(ctx, id, page, pageSize)
	if err != nil {
		return nil, err
	}
	return toListResponse(posts, total, page, pageSize), nil
}

// ============================================================================
// Internals
// ============================================================================

// mutate loads an aggregate, applies the operation, persists, and publishes
// the drained events.
func (s *ApplicationService) mutate(ctx context.Context, postID string, op func(*blog.PostAggregate) error) (*PostResponse, error) {
	id, err := parseID(postID, "post_id")
	if err != nil {
		return nil, err
	}
	post, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := op(post); err != nil {
		return nil, err
	}
	return s.persistAndPublish(ctx, post)
}

func (s *ApplicationService) persistAndPublish(ctx context.Context, post *blog.PostAggregate) (*PostResponse, error) {
	// Drain exactly once, after the first successful persist; the buffer
	// must survive transaction retries.
	var events []shared.DomainEvent
	drained := false

	err := s.withinTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Save(txCtx, post); err != nil {
			return err
		}
		if !drained {
			events = post.PullEvents()
			drained = true
		}
		if len(events) == 0 {
			return nil
		}
		if err := s.eventBus.PublishMany(txCtx, events); err != nil {
			logger.Error("event publish failed after persist",
				zap.String("post_id", post.ID().String()),
				zap.Int("events", len(events)),
				zap.Error(err),
			)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return toPostResponse(post), nil
}

// withinTx runs fn inside the unit of work when one is configured. Without
// one, fn runs directly and persist/publish are not atomic.
func (s *ApplicationService) withinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.uow == nil {
		return fn(ctx)
	}
	return s.uow.WithinTx(ctx, fn)
}

func parseID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, shared.NewValidationError("post", field, fmt.Sprintf("invalid uuid %q", raw))
	}
	return id, nil
}

func normalizePaging(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

func toListResponse(posts []*blog.PostAggregate, total int64, page, pageSize int) *PostListResponse {
	items := make([]*PostResponse, len(posts))
	for i, p := range posts {
		items[i] = toPostResponse(p)
	}
	return &PostListResponse{Items: items, Total: total, Page: page, PageSize: pageSize}
}
