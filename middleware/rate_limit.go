package middleware

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/NomadCrew/ap-workbench/errors"
	"github.com/NomadCrew/ap-workbench/logger"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// SessionRateLimiter caps requests per workbench session within a fixed
// window, using Redis INCR and EXPIRE. Requests without a session are keyed by
// client IP. A nil client disables limiting, which is the single-process mode.
// Redis failures let the request through.
func SessionRateLimiter(redisClient *redis.Client, scope string, limit int, window time.Duration) gin.HandlerFunc {
	if redisClient == nil || limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	log := logger.GetLogger().Named("ratelimit")

	return func(c *gin.Context) {
		subject := c.Param("sid")
		if subject == "" {
			subject = getClientIP(c)
		}
		key := fmt.Sprintf("ratelimit:%s:%s", scope, subject)
		ctx := c.Request.Context()

		pipe := redisClient.TxPipeline()
		incr := pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, window)
		if _, err := pipe.Exec(ctx); err != nil {
			log.Warnw("Rate limit check failed, allowing request", "scope", scope, "error", err)
			c.Next()
			return
		}

		count := incr.Val()
		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", limit))

		if count > int64(limit) {
			ttl, err := redisClient.TTL(ctx, key).Result()
			if err != nil || ttl <= 0 {
				ttl = window
			}
			retry := int(ttl.Seconds())

			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", fmt.Sprintf("%d", retry))
			_ = c.Error(apperrors.RateLimitExceeded(fmt.Sprintf("Too many %s requests. Please try again later.", scope), retry))
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", int64(limit)-count))
		c.Next()
	}
}

// getClientIP extracts the real client IP from the request.
// It checks X-Forwarded-For and X-Real-IP headers first (for proxies/load balancers),
// then falls back to RemoteAddr.
func getClientIP(c *gin.Context) string {
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		ips := strings.Split(forwarded, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if realIP := c.GetHeader("X-Real-IP"); realIP != "" {
		return realIP
	}

	return c.ClientIP()
}
