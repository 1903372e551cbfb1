/*
Package blog - post API controller.

Responsibilities:
1. Parse and validate HTTP parameters
2. Delegate business logic to the application service
3. Render responses through the response package

Error handling:
1. Binding errors: response.HandleError with 400
2. Business errors: response.HandleAppError maps the code to a status
*/
package blog

import (
	"net/http"
	"strconv"

	"blog/api/response"
	blogapp "blog/application/blog"
	"blog/pkg/errors"

	"github.com/gin-gonic/gin"
)

// Controller handles post and comment endpoints.
type Controller struct {
	postService *blogapp.ApplicationService
}

// NewController creates the post controller.
func NewController(postService *blogapp.ApplicationService) *Controller {
	return &Controller{
		postService: postService,
	}
}

// RegisterRoutes registers post routes.
func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	posts := router.Group("/posts")
	{
		posts.POST("", c.CreatePost)
		posts.GET("", c.ListPublishedPosts)
		posts.GET("/:id", c.GetPost)
		posts.PUT("/:id", c.UpdatePost)
		posts.POST("/:id/publish", c.PublishPost)
		posts.POST("/:id/archive", c.ArchivePost)
		posts.POST("/:id/comments", c.AddComment)
		posts.DELETE("/:id/comments/:commentId", c.RemoveComment)
		posts.POST("/:id/tags", c.AddTags)
		posts.GET("/slug/:slug", c.GetPostBySlug)
		posts.GET("/author/:authorId", c.ListPostsByAuthor)
	}
}

// CreatePost creates a draft post.
// POST /api/v1/posts
func (c *Controller) CreatePost(ctx *gin.Context) {
	var req blogapp.CreatePostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.HandleError(ctx, err, "invalid request parameters", http.StatusBadRequest)
		return
	}

	post, err := c.postService.CreatePost(ctx.Request.Context(), req)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}

	response.HandleCreated(ctx, post, "post created successfully")
}

// GetPost returns a post by ID.
// GET /api/v1/posts/:id
func (c *Controller) GetPost(ctx *gin.Context) {
	postID := ctx.Param("id")
	if postID == "" {
		response.HandleError(ctx, errors.BadRequest("post ID is required"), "post ID is required", http.StatusBadRequest)
		return
	}

	post, err := c.postService.GetPostByID(ctx.Request.Context(), postID)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}

	response.HandleSuccess(ctx, post, "post retrieved successfully")
}

// GetPostBySlug returns a post by its slug.
// GET /api/v1/posts/slug/:slug
func (c *Controller) GetPostBySlug(ctx *gin.Context) {
	slug := ctx.Param("slug")
	if slug == "" {
		response.HandleError(ctx, errors.BadRequest("slug is required"), "slug is required", http.StatusBadRequest)
		return
	}

	post, err := c.postService.GetPostBySlug(ctx.Request.Context(), slug)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}

	response.HandleSuccess(ctx, post, "post retrieved successfully")
}

// ListPublishedPosts lists published posts, optionally filtered by tag.
// GET /api/v1/posts?page=1&page_size=20&tag=go
func (c *Controller) ListPublishedPosts(ctx *gin.Context) {
	page, pageSize := pagingParams(ctx)
	tag := ctx.Query("tag")

	list, err := c.postService.ListPublishedPosts(ctx.Request.Context(), page, pageSize, tag)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}

	response.HandlePaginated(ctx, list.Items, paginationOf(list), "posts retrieved successfully")
}

// ListPostsByAuthor lists all posts of one author, drafts included.
// GET /api/v1/posts/author/:authorId
func (c *Controller) ListPostsByAuthor(ctx *gin.Context) {
	authorID := ctx.Param("authorId")
	if authorID == "" {
		response.HandleError(ctx, errors.BadRequest("author ID is required"), "author ID is required", http.StatusBadRequest)
		return
	}
	page, pageSize := pagingParams(ctx)

	list, err := c.postService.ListPostsByAuthor(ctx.Request.Context(), authorID, page, pageSize)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}

	response.HandlePaginated(ctx, list.Items, paginationOf(list), "posts retrieved successfully")
}

// PublishPost publishes a draft.
// POST /api/v1/posts/:id/publish
func (c *Controller) PublishPost(ctx *gin.Context) {
	postID := ctx.Param("id")
	if postID == "" {
		response.HandleError(ctx, errors.BadRequest("post ID is required"), "post ID is required", http.StatusBadRequest)
		return
	}

	post, err := c.postService.PublishPost(ctx.Request.Context(), postID)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}

	response.HandleSuccess(ctx, post, "post published successfully")
}

// ArchivePostRequest identifies the author requesting archival.
type ArchivePostRequest struct {
	AuthorID string `json:"author_id" binding:"required,uuid"`
}

// ArchivePost archives a post. Author only.
// POST /api/v1/posts/:id/archive
func (c *Controller) ArchivePost(ctx *gin.Context) {
	postID := ctx.Param("id")
	if postID == "" {
		response.HandleError(ctx, errors.BadRequest("post ID is required"), "post ID is required", http.StatusBadRequest)
		return
	}

	var req ArchivePostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.HandleError(ctx, err, "invalid request parameters", http.StatusBadRequest)
		return
	}

	post, err := c.postService.ArchivePost(ctx.Request.Context(), postID, req.AuthorID)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}

	response.HandleSuccess(ctx, post, "post archived successfully")
}

// UpdatePost updates title and content of a post.
// PUT /api/v1/posts/:id
func (c *Controller) UpdatePost(ctx *gin.Context) {
	postID := ctx.Param("id")
	if postID == "" {
		response.HandleError(ctx, errors.BadRequest("post ID is required"), "post ID is required", http.StatusBadRequest)
		return
	}

	var req blogapp.UpdatePostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.HandleError(ctx, err, "invalid request parameters", http.StatusBadRequest)
		return
	}

	post, err := c.postService.UpdatePost(ctx.Request.Context(), postID, req)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}

	response.HandleSuccess(ctx, post, "post updated successfully")
}

// AddComment adds a comment to a post.
// POST /api/v1/posts/:id/comments
func (c *Controller) AddComment(ctx *gin.Context) {
	postID := ctx.Param("id")
	if postID == "" {
		response.HandleError(ctx, errors.BadRequest("post ID is required"), "post ID is required", http.StatusBadRequest)
		return
	}

	var req blogapp.AddCommentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.HandleError(ctx, err, "invalid request parameters", http.StatusBadRequest)
		return
	}

	post, err := c.postService.AddComment(ctx.Request.Context(), postID, req)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}

	response.HandleCreated(ctx, post, "comment added successfully")
}

// RemoveComment soft-deletes a comment. The requesting user is passed
// as the user_id query parameter since DELETE bodies are not portable.
// DELETE /api/v1/posts/:id/comments/:commentId?user_id=...
func (c *Controller) RemoveComment(ctx *gin.Context) {
	postID := ctx.Param("id")
	commentID := ctx.Param("commentId")
	userID := ctx.Query("user_id")
	if postID == "" || commentID == "" {
		response.HandleError(ctx, errors.BadRequest("post ID and comment ID are required"), "post ID and comment ID are required", http.StatusBadRequest)
		return
	}
	if userID == "" {
		response.HandleError(ctx, errors.BadRequest("user_id query parameter is required"), "user_id query parameter is required", http.StatusBadRequest)
		return
	}

	if _, err := c.postService.RemoveComment(ctx.Request.Context(), postID, commentID, userID); err != nil {
		response.HandleAppError(ctx, err)
		return
	}

	response.HandleNoContent(ctx)
}

// AddTags attaches tags to a post.
// POST /api/v1/posts/:id/tags
func (c *Controller) AddTags(ctx *gin.Context) {
	postID := ctx.Param("id")
	if postID == "" {
		response.HandleError(ctx, errors.BadRequest("post ID is required"), "post ID is required", http.StatusBadRequest)
		return
	}

	var req blogapp.AddTagsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.HandleError(ctx, err, "invalid request parameters", http.StatusBadRequest)
		return
	}

	post, err := c.postService.AddTags(ctx.Request.Context(), postID, req)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}

	response.HandleSuccess(ctx, post, "tags added successfully")
}

func pagingParams(ctx *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(ctx.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(ctx.DefaultQuery("page_size", "20"))
	return page, pageSize
}

func paginationOf(list *blogapp.PostListResponse) response.Pagination {
	totalPages := 0
	if list.PageSize > 0 {
		totalPages = int((list.Total + int64(list.PageSize) - 1) / int64(list.PageSize))
	}
	return response.Pagination{
		Page:       list.Page,
		PageSize:   list.PageSize,
		TotalItems: list.Total,
		TotalPages: totalPages,
	}
}
