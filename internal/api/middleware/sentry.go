package middleware

import (
	"net/http"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
)

// Sentry 上报 panic（交由外层 Recovery 兜底）以及 5xx 请求上记录的错误
func Sentry() []gin.HandlerFunc {
	return []gin.HandlerFunc{
		sentrygin.New(sentrygin.Options{Repanic: true}),
		func(c *gin.Context) {
			c.Next()
			if c.Writer.Status() < http.StatusInternalServerError || len(c.Errors) == 0 {
				return
			}
			hub := sentrygin.GetHubFromContext(c)
			if hub == nil {
				return
			}
			for _, e := range c.Errors {
				hub.CaptureException(e.Err)
			}
		},
	}
}
