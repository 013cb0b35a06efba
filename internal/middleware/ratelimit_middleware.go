package middleware

import (
	"net/http"
	"strconv"

	"gatekeeper/internal/redis"
	"gatekeeper/internal/transport/httpdto"
	"gatekeeper/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthRateLimitMiddleware throttles credential submissions per client IP.
// Mount it on the POST login and register routes only.
func AuthRateLimitMiddleware(limiter *redis.RateLimiter, l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := limiter.AllowAuth(c.Request.Context(), c.ClientIP())
		if err != nil {
			if l != nil {
				l.ErrorCtx(c.Request.Context(), "rate limit check failed", zap.Error(err))
			}
			c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("rate limit error", "INTERNAL_ERROR"))
			c.Abort()
			return
		}

		setRateLimitHeaders(c, result)

		if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse("rate limit exceeded", "RATE_LIMITED"))
			c.Abort()
			return
		}

		c.Next()
	}
}

// AuthRateLimitStatusMiddleware reports the remaining auth budget on the form
// pages without consuming it. A failed lookup only skips the headers.
func AuthRateLimitStatusMiddleware(limiter *redis.RateLimiter, l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := limiter.GetAuthStatus(c.Request.Context(), c.ClientIP())
		if err != nil {
			if l != nil {
				l.WarnCtx(c.Request.Context(), "rate limit status failed", zap.Error(err))
			}
			c.Next()
			return
		}
		setRateLimitHeaders(c, result)
		c.Next()
	}
}

// setRateLimitHeaders sets standard rate limit response headers
func setRateLimitHeaders(c *gin.Context, result *redis.RateLimitResult) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(result.ResetIn.Seconds()), 10))
}
