package blog

import (
	"time"

	"blog/domain/blog"
)

// ============================================================================
// Request DTOs
// ============================================================================

// CreatePostRequest payload for creating a draft post
type CreatePostRequest struct {
	Title      string   `json:"title" binding:"required"`
	Content    string   `json:"content" binding:"required"`
	AuthorID   string   `json:"author_id" binding:"required,uuid"`
	CategoryID string   `json:"category_id" binding:"omitempty,uuid"`
	Tags       []string `json:"tags"`
}

// UpdatePostRequest payload for editing title and content
type UpdatePostRequest struct {
	Title    string `json:"title" binding:"required"`
	Content  string `json:"content" binding:"required"`
	AuthorID string `json:"author_id" binding:"required,uuid"`
}

// AddCommentRequest payload for commenting on a post
type AddCommentRequest struct {
	Body     string `json:"body" binding:"required"`
	AuthorID string `json:"author_id" binding:"required,uuid"`
}

// AddTagsRequest payload for tagging a post
type AddTagsRequest struct {
	Tags []string `json:"tags" binding:"required,min=1"`
}

// ============================================================================
// Response DTOs
// ============================================================================

// PostResponse full post representation
type PostResponse struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Slug        string            `json:"slug"`
	Content     string            `json:"content"`
	Excerpt     string            `json:"excerpt"`
	AuthorID    string            `json:"author_id"`
	CategoryID  string            `json:"category_id,omitempty"`
	Status      string            `json:"status"`
	Tags        []string          `json:"tags"`
	Comments    []CommentResponse `json:"comments"`
	WordCount   int               `json:"word_count"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	PublishedAt *time.Time        `json:"published_at,omitempty"`
}

// CommentResponse visible comment representation
type CommentResponse struct {
	ID        string    `json:"id"`
	Body      string    `json:"body"`
	AuthorID  string    `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}

// PostListResponse paginated listing
type PostListResponse struct {
	Items    []*PostResponse `json:"items"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

const excerptLength = 200

// toPostResponse converts an aggregate to its response DTO.
// Only visible (non-deleted) comments are exposed.
func toPostResponse(post *blog.PostAggregate) *PostResponse {
	comments := post.Comments()
	commentDTOs := make([]CommentResponse, len(comments))
	for i, c := range comments {
		commentDTOs[i] = CommentResponse{
			ID:        c.ID().String(),
			Body:      c.Body(),
			AuthorID:  c.AuthorID().String(),
			CreatedAt: c.CreatedAt(),
		}
	}

	categoryID := ""
	if post.CategoryID() != nil {
		categoryID = post.CategoryID().String()
	}

	return &PostResponse{
		ID:          post.ID().String(),
		Title:       post.Title().Value(),
		Slug:        post.Slug().Value(),
		Content:     post.Content().Value(),
		Excerpt:     post.Content().Excerpt(excerptLength),
		AuthorID:    post.AuthorID().String(),
		CategoryID:  categoryID,
		Status:      string(post.Status()),
		Tags:        post.Tags(),
		Comments:    commentDTOs,
		WordCount:   post.Content().WordCount(),
		CreatedAt:   post.CreatedAt(),
		UpdatedAt:   post.UpdatedAt(),
		PublishedAt: post.PublishedAt(),
	}
}
