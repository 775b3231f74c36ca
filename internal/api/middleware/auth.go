package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/d60-Lab/social-feed/config"
	"github.com/d60-Lab/social-feed/pkg/response"
)

const viewerKey = "viewer_id"

// Auth 解析 Bearer token 得到查看者 id（sub claim）。
// 无 token 视为匿名放行；token 无效直接 401。
// WebSocket 无法自定义请求头，允许 access_token 查询参数。
func Auth(cfg config.AuthConfig) gin.HandlerFunc {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	parser := jwt.NewParser(opts...)
	secret := []byte(cfg.JWTSecret)

	return func(c *gin.Context) {
		raw := bearer(c)
		if raw == "" {
			c.Next()
			return
		}
		token, err := parser.Parse(raw, func(*jwt.Token) (any, error) { return secret, nil })
		if err != nil || !token.Valid {
			response.Unauthorized(c, "invalid token")
			return
		}
		sub, err := token.Claims.GetSubject()
		if err != nil || sub == "" {
			response.Unauthorized(c, "token has no subject")
			return
		}
		c.Set(viewerKey, sub)
		c.Next()
	}
}

func bearer(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if h != "" {
		if t, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(t)
		}
		return ""
	}
	return c.Query("access_token")
}

// RequireViewer 拒绝匿名请求
func RequireViewer() gin.HandlerFunc {
	return func(c *gin.Context) {
		if Viewer(c) == "" {
			response.Unauthorized(c, "authentication required")
			return
		}
		c.Next()
	}
}

// Viewer 返回当前查看者 id，匿名时为空
func Viewer(c *gin.Context) string {
	return c.GetString(viewerKey)
}

// IssueToken 签发 HS256 token，供压测与测试使用
func IssueToken(cfg config.AuthConfig, viewerID string) (string, error) {
	if viewerID == "" {
		return "", errors.New("empty viewer id")
	}
	claims := jwt.RegisteredClaims{Subject: viewerID}
	if cfg.Issuer != "" {
		claims.Issuer = cfg.Issuer
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
}
