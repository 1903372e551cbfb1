package po

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"blog/domain/blog"
)

// PostPO Post persistence object
// Note: Only used for database mapping, does not contain any business logic
// Defining GORM associations is prohibited here
type PostPO struct {
	ID          string     `gorm:"primaryKey;size:36"`
	Title       string     `gorm:"size:200;not null"`
	Slug        string     `gorm:"size:220;uniqueIndex;not null"`
	Content     string     `gorm:"type:longtext;not null"`
	AuthorID    string     `gorm:"size:36;index;not null"` // Only store ID, no association
	CategoryID  *string    `gorm:"size:36;index"`
	Status      string     `gorm:"size:20;index;not null"`
	Tags        string     `gorm:"type:json;not null"` // JSON array, insertion order preserved
	CreatedAt   time.Time  `gorm:"index;not null"`
	UpdatedAt   time.Time  `gorm:"not null"`
	PublishedAt *time.Time `gorm:""`
}

func (PostPO) TableName() string {
	return "posts"
}

// CommentPO Comment persistence object
type CommentPO struct {
	ID        string    `gorm:"primaryKey;size:36"`
	PostID    string    `gorm:"size:36;index;not null"` // Only store ID, no GORM association
	Body      string    `gorm:"size:1000;not null"`
	AuthorID  string    `gorm:"size:36;index;not null"`
	Deleted   bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"not null"`
}

func (CommentPO) TableName() string {
	return "post_comments"
}

// FromPostDomain Convert domain aggregate to persistence objects
func FromPostDomain(post *blog.PostAggregate) (*PostPO, []CommentPO, error) {
	tags, err := json.Marshal(post.Tags())
	if err != nil {
		return nil, nil, err
	}

	var categoryID *string
	if post.CategoryID() != nil {
		s := post.CategoryID().String()
		categoryID = &s
	}

	postPO := &PostPO{
		ID:          post.ID().String(),
		Title:       post.Title().Value(),
		Slug:        post.Slug().Value(),
		Content:     post.Content().Value(),
		AuthorID:    post.AuthorID().String(),
		CategoryID:  categoryID,
		Status:      string(post.Status()),
		Tags:        string(tags),
		CreatedAt:   post.CreatedAt(),
		UpdatedAt:   post.UpdatedAt(),
		PublishedAt: post.PublishedAt(),
	}

	comments := post.AllComments()
	commentPOs := make([]CommentPO, len(comments))
	for i, c := range comments {
		commentPOs[i] = CommentPO{
			ID:        c.ID().String(),
			PostID:    post.ID().String(),
			Body:      c.Body(),
			AuthorID:  c.AuthorID().String(),
			Deleted:   c.IsDeleted(),
			CreatedAt: c.CreatedAt(),
		}
	}

	return postPO, commentPOs, nil
}

// ToDomain Convert persistence objects back to the domain aggregate
func (p *PostPO) ToDomain(commentPOs []CommentPO) (*blog.PostAggregate, error) {
	title, err := blog.NewTitle(p.Title)
	if err != nil {
		return nil, err
	}
	content, err := blog.NewContent(p.Content)
	if err != nil {
		return nil, err
	}

	var tags []string
	if p.Tags != "" {
		if err := json.Unmarshal([]byte(p.Tags), &tags); err != nil {
			return nil, err
		}
	}

	var categoryID *uuid.UUID
	if p.CategoryID != nil {
		id, err := uuid.Parse(*p.CategoryID)
		if err != nil {
			return nil, err
		}
		categoryID = &id
	}

	id, err := uuid.Parse(p.ID)
	if err != nil {
		return nil, err
	}
	authorID, err := uuid.Parse(p.AuthorID)
	if err != nil {
		return nil, err
	}

	comments := make([]*blog.Comment, len(commentPOs))
	for i, c := range commentPOs {
		commentID, err := uuid.Parse(c.ID)
		if err != nil {
			return nil, err
		}
		commentAuthorID, err := uuid.Parse(c.AuthorID)
		if err != nil {
			return nil, err
		}
		comments[i] = blog.RebuildCommentFromDTO(blog.CommentReconstructionDTO{
			ID:        commentID,
			Body:      c.Body,
			AuthorID:  commentAuthorID,
			CreatedAt: c.CreatedAt,
			Deleted:   c.Deleted,
		})
	}

	return blog.Reconstitute(blog.ReconstructionDTO{
		ID:          id,
		Title:       title,
		Content:     content,
		AuthorID:    authorID,
		CategoryID:  categoryID,
		Status:      blog.Status(p.Status),
		Tags:        tags,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		PublishedAt: p.PublishedAt,
		Comments:    comments,
	}), nil
}
