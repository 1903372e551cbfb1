package blog

import (
	"context"

	"github.com/google/uuid"
)

// Repository persistence port for the post aggregate.
// Implementations live in the infrastructure layer.
type Repository interface {
	// Save persists the aggregate (insert or update) including its comments
	Save(ctx context.Context, post *PostAggregate) error

	// GetByID loads the full aggregate; returns ErrPostNotFound when absent
	GetByID(ctx context.Context, id uuid.UUID) (*PostAggregate, error)

	// Delete removes the aggregate and its comments
	Delete(ctx context.Context, id uuid.UUID) error
}

// ReadRepository query port for read-side access.
// Kept separate from Repository so queries never round-trip aggregates.
type ReadRepository interface {
	// FindBySlug loads a post by its slug; returns ErrPostNotFound when absent
	FindBySlug(ctx context.Context, slug string) (*PostAggregate, error)

	// FindPublished lists published posts, newest first, with the total count.
	// An empty tag means no tag filter.
	FindPublished(ctx context.Context, page, pageSize int, tag string) ([]*PostAggregate, int64, error)

	// FindByAuthor lists an author's posts regardless of status, newest first
	FindByAuthor(ctx context.Context, authorID uuid.UUID, page, pageSize int) ([]*PostAggregate, int64, error)

	// SlugExists reports whether a slug is taken by a post other than excludeID
	SlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error)
}
