package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/d60-Lab/social-feed/config"
	"github.com/d60-Lab/social-feed/pkg/response"
)

type visitor struct {
	limiter *rate.Limiter
	seen    time.Time
}

// RateLimit 按查看者（匿名按 IP）令牌桶限流
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	var (
		mu       sync.Mutex
		visitors = make(map[string]*visitor)
		sweptAt  = time.Now()
	)
	limit := rate.Limit(cfg.RPS)
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	get := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		now := time.Now()
		// 每分钟清理一次闲置条目
		if now.Sub(sweptAt) > time.Minute {
			for k, v := range visitors {
				if now.Sub(v.seen) > 3*time.Minute {
					delete(visitors, k)
				}
			}
			sweptAt = now
		}
		v, ok := visitors[key]
		if !ok {
			v = &visitor{limiter: rate.NewLimiter(limit, burst)}
			visitors[key] = v
		}
		v.seen = now
		return v.limiter
	}

	return func(c *gin.Context) {
		key := Viewer(c)
		if key == "" {
			key = "ip:" + c.ClientIP()
		}
		if !get(key).Allow() {
			response.TooManyRequests(c)
			return
		}
		c.Next()
	}
}
