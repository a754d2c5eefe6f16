package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/surgefund/backend/internal/auth"
)

// RateLimitByPrincipal caps authenticated requests per address using a
// fixed one-minute window in redis. With no redis client configured the
// limiter is a no-op; on redis errors requests are allowed through rather
// than failing the API on a cache outage.
func RateLimitByPrincipal(rdb *redis.Client, requestsPerMinute int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil {
			c.Next()
			return
		}

		principal, ok := auth.Principal(c)
		if !ok {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		window := time.Now().Unix() / 60
		key := fmt.Sprintf("rate_limit:%s:%d", principal, window)

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			logrus.WithError(err).Warn("Rate limit check failed")
			c.Next()
			return
		}
		if count == 1 {
			rdb.Expire(ctx, key, time.Minute)
		}

		if count > int64(requestsPerMinute) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded",
				"code":  "RATE_LIMITED",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
