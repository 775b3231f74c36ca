package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/social-feed/internal/api/middleware"
	"github.com/d60-Lab/social-feed/pkg/response"
)

// GetFeed 首页信息流
// @Summary 首页信息流（最新帖子，含评论树与点赞状态）
// @Tags 信息流
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]feed.PostView}
// @Failure 500 {object} response.Response
// @Router /api/v1/feed [get]
func (h *Handler) GetFeed(c *gin.Context) {
	views, err := h.feedService.Home(c.Request.Context(), middleware.Viewer(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, views)
}

// GetPost 帖子详情
// @Summary 帖子详情
// @Tags 信息流
// @Produce json
// @Security BearerAuth
// @Param id path string true "帖子ID"
// @Success 200 {object} response.Response{data=feed.PostView}
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{id} [get]
func (h *Handler) GetPost(c *gin.Context) {
	v, err := h.feedService.Post(c.Request.Context(), c.Param("id"), middleware.Viewer(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, v)
}

// GetProfile 个人主页
// @Summary 个人主页（发布 / 评论过 / 点赞过 三个标签页）
// @Tags 用户
// @Produce json
// @Security BearerAuth
// @Param username path string true "用户名"
// @Success 200 {object} response.Response{data=feed.ProfileView}
// @Failure 404 {object} response.Response
// @Router /api/v1/profiles/{username} [get]
func (h *Handler) GetProfile(c *gin.Context) {
	v, err := h.feedService.Profile(c.Request.Context(), c.Param("username"), middleware.Viewer(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, v)
}
