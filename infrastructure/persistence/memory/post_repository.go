/*
Package memory - in-process post repository

Test double and local-development storage. Aggregates are copied through
their reconstruction DTOs on the way in and out, so callers never share
mutable state with the store.
*/
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"blog/domain/blog"
)

type record struct {
	dto  blog.ReconstructionDTO
	seq  int
	slug string
}

// PostRepository satisfies both blog.Repository and blog.ReadRepository.
type PostRepository struct {
	mu    sync.RWMutex
	posts map[uuid.UUID]*record
	seq   int
}

func NewPostRepository() *PostRepository {
	return &PostRepository{posts: make(map[uuid.UUID]*record)}
}

func (r *PostRepository) Save(ctx context.Context, post *blog.PostAggregate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.posts[post.ID()]
	seq := r.seq
	if ok {
		seq = existing.seq
	} else {
		r.seq++
	}
	r.posts[post.ID()] = &record{dto: snapshot(post), seq: seq, slug: post.Slug().Value()}
	post.ClearNew()
	return nil
}

func (r *PostRepository) GetByID(ctx context.Context, id uuid.UUID) (*blog.PostAggregate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.posts[id]
	if !ok {
		return nil, blog.NewPostNotFoundError(id.String())
	}
	return restore(rec.dto), nil
}

func (r *PostRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.posts[id]; !ok {
		return blog.NewPostNotFoundError(id.String())
	}
	delete(r.posts, id)
	return nil
}

func (r *PostRepository) FindBySlug(ctx context.Context, slug string) (*blog.PostAggregate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.posts {
		if rec.slug == slug {
			return restore(rec.dto), nil
		}
	}
	return nil, blog.NewPostNotFoundError(slug)
}

func (r *PostRepository) FindPublished(ctx context.Context, page, pageSize int, tag string) ([]*blog.PostAggregate, int64, error) {
	return r.find(func(rec *record) bool {
		if rec.dto.Status != blog.StatusPublished {
			return false
		}
		if tag == "" {
			return true
		}
		needle := strings.ToLower(tag)
		for _, t := range rec.dto.Tags {
			if t == needle {
				return true
			}
		}
		return false
	}, page, pageSize)
}

func (r *PostRepository) FindByAuthor(ctx context.Context, authorID uuid.UUID, page, pageSize int) ([]*blog.PostAggregate, int64, error) {
	return r.find(func(rec *record) bool {
		return rec.dto.AuthorID == authorID
	}, page, pageSize)
}

func (r *PostRepository) SlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, rec := range r.posts {
		if rec.slug == slug && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *PostRepository) find(match func(*record) bool, page, pageSize int) ([]*blog.PostAggregate, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*record, 0)
	for _, rec := range r.posts {
		if match(rec) {
			matched = append(matched, rec)
		}
	}
	// Newest first, stable across calls
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].dto.CreatedAt.Equal(matched[j].dto.CreatedAt) {
			return matched[i].dto.CreatedAt.After(matched[j].dto.CreatedAt)
		}
		return matched[i].seq > matched[j].seq
	})

	total := int64(len(matched))
	start := (page - 1) * pageSize
	if start >= len(matched) {
		return []*blog.PostAggregate{}, total, nil
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}

	out := make([]*blog.PostAggregate, 0, end-start)
	for _, rec := range matched[start:end] {
		out = append(out, restore(rec.dto))
	}
	return out, total, nil
}

func snapshot(post *blog.PostAggregate) blog.ReconstructionDTO {
	comments := post.AllComments()
	commentDTOs := make([]blog.CommentReconstructionDTO, len(comments))
	for i, c := range comments {
		commentDTOs[i] = blog.CommentReconstructionDTO{
			ID:        c.ID(),
			Body:      c.Body(),
			AuthorID:  c.AuthorID(),
			CreatedAt: c.CreatedAt(),
			Deleted:   c.IsDeleted(),
		}
	}

	dto := blog.ReconstructionDTO{
		ID:          post.ID(),
		Title:       post.Title(),
		Content:     post.Content(),
		AuthorID:    post.AuthorID(),
		CategoryID:  post.CategoryID(),
		Status:      post.Status(),
		Tags:        post.Tags(),
		CreatedAt:   post.CreatedAt(),
		UpdatedAt:   post.UpdatedAt(),
		PublishedAt: post.PublishedAt(),
	}
	dto.Comments = make([]*blog.Comment, len(commentDTOs))
	for i, c := range commentDTOs {
		dto.Comments[i] = blog.RebuildCommentFromDTO(c)
	}
	return dto
}

func restore(dto blog.ReconstructionDTO) *blog.PostAggregate {
	// Copy the mutable slices so stored state stays isolated
	copied := dto
	copied.Tags = append([]string(nil), dto.Tags...)
	copied.Comments = make([]*blog.Comment, len(dto.Comments))
	for i, c := range dto.Comments {
		copied.Comments[i] = blog.RebuildCommentFromDTO(blog.CommentReconstructionDTO{
			ID:        c.ID(),
			Body:      c.Body(),
			AuthorID:  c.AuthorID(),
			CreatedAt: c.CreatedAt(),
			Deleted:   c.IsDeleted(),
		})
	}
	return blog.Reconstitute(copied)
}

var (
	_ blog.Repository     = (*PostRepository)(nil)
	_ blog.ReadRepository = (*PostRepository)(nil)
)
