package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/playvault/bonus-service/pkg/common"
	"github.com/playvault/bonus-service/pkg/logger"
	"github.com/playvault/bonus-service/pkg/ratelimit"
)

// RateLimit throttles requests per authenticated user, falling back to the
// client IP for unauthenticated traffic. A Redis outage fails open.
func RateLimit(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		identity := c.ClientIP()
		if userID, err := GetUserID(c); err == nil {
			identity = userID.String()
		}

		result, err := limiter.Allow(c.Request.Context(), identity)
		if err != nil {
			logger.WarnContext(c.Request.Context(), "rate limiter unavailable, allowing request",
				zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			retryAfter := int(result.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			common.ErrorResponse(c, http.StatusTooManyRequests, "too many requests")
			c.Abort()
			return
		}

		c.Next()
	}
}
