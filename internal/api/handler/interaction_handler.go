package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/social-feed/internal/api/middleware"
	"github.com/d60-Lab/social-feed/internal/interaction"
	"github.com/d60-Lab/social-feed/pkg/response"
)

type createPostRequest struct {
	Content  string  `json:"content" binding:"required,notblank"`
	ImageURL *string `json:"image_url" binding:"omitempty,url"`
}

type createCommentRequest struct {
	Content  string  `json:"content" binding:"required,notblank"`
	ParentID *string `json:"parent_id"`
}

// CreatePost 发帖
// @Summary 发帖
// @Tags 互动
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createPostRequest true "帖子内容"
// @Success 201 {object} response.Response{data=model.Post}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/posts [post]
func (h *Handler) CreatePost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	p, err := h.interactionService.CreatePost(c.Request.Context(), middleware.Viewer(c), req.Content, req.ImageURL)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, p)
}

// CreateComment 评论或回复
// @Summary 评论帖子（parent_id 非空时为回复）
// @Tags 互动
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "帖子ID"
// @Param request body createCommentRequest true "评论内容"
// @Success 201 {object} response.Response{data=model.Comment}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{id}/comments [post]
func (h *Handler) CreateComment(c *gin.Context) {
	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	cm, err := h.interactionService.CreateComment(c.Request.Context(), interaction.NewComment{
		PostID:   c.Param("id"),
		ParentID: req.ParentID,
		UserID:   middleware.Viewer(c),
		Content:  req.Content,
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, cm)
}

// LikePost 点赞帖子（幂等）
// @Summary 点赞帖子
// @Tags 互动
// @Security BearerAuth
// @Param id path string true "帖子ID"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{id}/like [put]
func (h *Handler) LikePost(c *gin.Context) {
	h.like(c, h.interactionService.LikePost, true)
}

// UnlikePost 取消点赞帖子
// @Summary 取消点赞帖子
// @Tags 互动
// @Security BearerAuth
// @Param id path string true "帖子ID"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/posts/{id}/like [delete]
func (h *Handler) UnlikePost(c *gin.Context) {
	h.like(c, h.interactionService.UnlikePost, false)
}

// LikeComment 点赞评论
// @Summary 点赞评论
// @Tags 互动
// @Security BearerAuth
// @Param id path string true "评论ID"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/comments/{id}/like [put]
func (h *Handler) LikeComment(c *gin.Context) {
	h.like(c, h.interactionService.LikeComment, true)
}

// UnlikeComment 取消点赞评论
// @Summary 取消点赞评论
// @Tags 互动
// @Security BearerAuth
// @Param id path string true "评论ID"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/comments/{id}/like [delete]
func (h *Handler) UnlikeComment(c *gin.Context) {
	h.like(c, h.interactionService.UnlikeComment, false)
}

type likeFunc func(ctx context.Context, viewerID, id string) error

func (h *Handler) like(c *gin.Context, fn likeFunc, liked bool) {
	id := c.Param("id")
	if err := fn(c.Request.Context(), middleware.Viewer(c), id); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"id": id, "liked": liked})
}
