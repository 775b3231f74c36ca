package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/social-feed/internal/api/middleware"
	"github.com/d60-Lab/social-feed/pkg/response"
)

// ListNotifications 最近通知
// @Summary 最近通知（按时间倒序）
// @Tags 通知
// @Produce json
// @Security BearerAuth
// @Param limit query int false "数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 401 {object} response.Response
// @Router /api/v1/notifications [get]
func (h *Handler) ListNotifications(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(h.feedCfg.NotificationLimit)))
	if limit < 1 || limit > 100 {
		limit = h.feedCfg.NotificationLimit
	}
	list, err := h.notificationService.ListRecent(c.Request.Context(), middleware.Viewer(c), limit)
	if err != nil {
		fail(c, err)
		return
	}
	unread := 0
	for _, n := range list {
		if !n.Read {
			unread++
		}
	}
	response.Success(c, gin.H{"list": list, "unread": unread})
}

// MarkNotificationRead 标记已读
// @Summary 标记通知已读（重复调用无副作用）
// @Tags 通知
// @Security BearerAuth
// @Param id path string true "通知ID"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/notifications/{id}/read [post]
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	if err := h.notificationService.MarkRead(c.Request.Context(), middleware.Viewer(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}
