package mysql

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"blog/domain/blog"
	"blog/infrastructure/persistence"
	"blog/infrastructure/persistence/mysql/po"
	"blog/infrastructure/persistence/retry"
)

// PostRepository MySQL/GORM implementation of the post repository.
// Repository is only responsible for persistence of the aggregate root;
// GORM association features are not used, to keep aggregate boundaries clear.
type PostRepository struct {
	db       *gorm.DB
	retryCfg retry.Config
}

func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{db: db, retryCfg: retry.DefaultConfig}
}

// WithRetry overrides the transient-failure retry policy for writes.
func (r *PostRepository) WithRetry(cfg retry.Config) *PostRepository {
	r.retryCfg = cfg
	return r
}

// getDB returns the transaction from context if available, otherwise the default db
func (r *PostRepository) getDB(ctx context.Context) *gorm.DB {
	if tx := persistence.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.db.WithContext(ctx)
}

// Save persists the post and its comments (create or update).
// Comments use a delete-then-insert strategy instead of GORM associations.
func (r *PostRepository) Save(ctx context.Context, post *blog.PostAggregate) error {
	postPO, commentPOs, err := po.FromPostDomain(post)
	if err != nil {
		return err
	}

	save := func(tx *gorm.DB) error {
		if err := tx.Save(postPO).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", postPO.ID).Delete(&po.CommentPO{}).Error; err != nil {
			return err
		}
		if len(commentPOs) > 0 {
			if err := tx.Create(&commentPOs).Error; err != nil {
				return err
			}
		}
		return nil
	}

	// Inside a caller-owned transaction the caller also owns retries;
	// deadlock retry only applies to standalone saves.
	if tx := persistence.TxFromContext(ctx); tx != nil {
		if err := save(tx); err != nil {
			return err
		}
	} else {
		err := retry.ExecuteWithRetry(ctx, r.retryCfg, func(ctx context.Context) error {
			return r.db.WithContext(ctx).Transaction(save)
		})
		if err != nil {
			return err
		}
	}

	post.ClearNew()
	return nil
}

func (r *PostRepository) GetByID(ctx context.Context, id uuid.UUID) (*blog.PostAggregate, error) {
	db := r.getDB(ctx)

	var postPO po.PostPO
	if err := db.First(&postPO, "id = ?", id.String()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, blog.NewPostNotFoundError(id.String())
		}
		return nil, err
	}
	return r.loadAggregate(db, &postPO)
}

func (r *PostRepository) Delete(ctx context.Context, id uuid.UUID) error {
	del := func(tx *gorm.DB) error {
		result := tx.Where("id = ?", id.String()).Delete(&po.PostPO{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return blog.NewPostNotFoundError(id.String())
		}
		return tx.Where("post_id = ?", id.String()).Delete(&po.CommentPO{}).Error
	}

	if tx := persistence.TxFromContext(ctx); tx != nil {
		return del(tx)
	}
	return r.db.WithContext(ctx).Transaction(del)
}

func (r *PostRepository) FindBySlug(ctx context.Context, slug string) (*blog.PostAggregate, error) {
	db := r.getDB(ctx)

	var postPO po.PostPO
	if err := db.First(&postPO, "slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, blog.NewPostNotFoundError(slug)
		}
		return nil, err
	}
	return r.loadAggregate(db, &postPO)
}

func (r *PostRepository) FindPublished(ctx context.Context, page, pageSize int, tag string) ([]*blog.PostAggregate, int64, error) {
	db := r.getDB(ctx)

	query := db.Model(&po.PostPO{}).Where("status = ?", string(blog.StatusPublished))
	if tag != "" {
		// Tags are stored lowercase in a JSON array column
		query = query.Where("JSON_CONTAINS(tags, JSON_QUOTE(LOWER(?)))", tag)
	}

	return r.page(db, query, page, pageSize)
}

func (r *PostRepository) FindByAuthor(ctx context.Context, authorID uuid.UUID, page, pageSize int) ([]*blog.PostAggregate, int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&po.PostPO{}).Where("author_id = ?", authorID.String())
	return r.page(db, query, page, pageSize)
}

func (r *PostRepository) SlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error) {
	db := r.getDB(ctx)

	var count int64
	query := db.Model(&po.PostPO{}).Where("slug = ?", slug)
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID.String())
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PostRepository) page(db, query *gorm.DB, page, pageSize int) ([]*blog.PostAggregate, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var postPOs []po.PostPO
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&postPOs).Error; err != nil {
		return nil, 0, err
	}

	posts := make([]*blog.PostAggregate, len(postPOs))
	for i := range postPOs {
		post, err := r.loadAggregate(db, &postPOs[i])
		if err != nil {
			return nil, 0, err
		}
		posts[i] = post
	}
	return posts, total, nil
}

// loadAggregate fetches the comments separately (no Preload) and rebuilds the
// aggregate.
func (r *PostRepository) loadAggregate(db *gorm.DB, postPO *po.PostPO) (*blog.PostAggregate, error) {
	var commentPOs []po.CommentPO
	if err := db.Where("post_id = ?", postPO.ID).
		Order("created_at ASC").
		Find(&commentPOs).Error; err != nil {
		return nil, err
	}
	return postPO.ToDomain(commentPOs)
}

// AutoMigrate creates or updates the blog tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&po.PostPO{}, &po.CommentPO{}, &po.OutboxEventPO{})
}

var (
	_ blog.Repository     = (*PostRepository)(nil)
	_ blog.ReadRepository = (*PostRepository)(nil)
)
