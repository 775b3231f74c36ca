package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/social-feed/internal/apperr"
	"github.com/d60-Lab/social-feed/pkg/response"
)

// fail 按错误分类映射 HTTP 状态
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrAuthRequired):
		response.Unauthorized(c, err.Error())
	case errors.Is(err, apperr.ErrMalformedInput):
		response.BadRequest(c, err.Error())
	case errors.Is(err, apperr.ErrNotFound):
		response.NotFound(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}
