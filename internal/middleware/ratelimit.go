package middleware

import (
	"net/http"
	"strings"
	"time"

	"billing_system/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// LoginRateLimit limits token requests per username, or per client IP when the body
// carries none. Without Redis it is a no-op, and it fails open on Redis errors.
// The body is read with ShouldBindBodyWith so the handler can bind it again.
func LoginRateLimit(rdb *redis.Client, maxPerMin int) gin.HandlerFunc {
	if maxPerMin <= 0 {
		maxPerMin = 5
	}
	return func(c *gin.Context) {
		if rdb == nil {
			c.Next()
			return
		}
		var req struct {
			Username string `json:"username"`
		}
		_ = c.ShouldBindBodyWith(&req, binding.JSON)
		subject := strings.TrimSpace(req.Username)
		if subject == "" {
			subject = c.ClientIP()
		}
		ctx := c.Request.Context()
		key := "rl:login:" + subject
		cnt, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			logrus.WithField("error", err.Error()).Warn("Login rate limit unavailable")
			c.Next()
			return
		}
		if cnt == 1 {
			rdb.Expire(ctx, key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			abort(c, http.StatusTooManyRequests, domain.KindThrottled, "too many login attempts, try again later")
			return
		}
		c.Next()
	}
}
