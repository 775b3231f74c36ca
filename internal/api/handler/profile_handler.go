package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/social-feed/internal/api/middleware"
	"github.com/d60-Lab/social-feed/pkg/response"
)

type updateProfileRequest struct {
	AvatarURL *string `json:"avatar_url" binding:"omitempty,url"`
	BannerURL *string `json:"banner_url" binding:"omitempty,url"`
}

// UpdateProfile 修改自己的头像 / 横幅
// @Summary 修改头像或横幅（URL 由上传服务返回）
// @Tags 用户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body updateProfileRequest true "图片地址"
// @Success 200 {object} response.Response{data=model.Profile}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/profiles/me [patch]
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	p, err := h.profileService.UpdateImages(c.Request.Context(), middleware.Viewer(c), req.AvatarURL, req.BannerURL)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, p)
}
