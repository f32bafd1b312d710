package server

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dfund/marketplace/internal/observability/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const rateLimitReasonUserRate = "user-rate"

// ApplicationWriteRateLimit throttles mutating application routes per caller.
// It must run after AuthRequired.
func (s *Server) ApplicationWriteRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.writeLimiter.Enabled() {
			c.Next()
			return
		}

		userID, ok := userIDFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := c.Request.Context()
		endpoint := normalizeRateLimitEndpoint(c)

		res, err := s.writeLimiter.Allow(ctx, userID)
		if err != nil {
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !res.Allowed {
			logger.FromContext(ctx).Warn("application write rate limit exceeded",
				zap.String("reason", rateLimitReasonUserRate),
				zap.String("endpoint", endpoint),
			)
			s.obsMetrics.RecordRateLimitDenied(ctx, endpoint, rateLimitReasonUserRate)

			c.Header("Retry-After", retryAfterSeconds(res.RetryAfter))
			c.Header("X-Rate-Limited-Reason", rateLimitReasonUserRate)
			AbortWithError(c, ErrTooManyRequests)
			return
		}

		s.obsMetrics.RecordRateLimitAllowed(ctx, endpoint)
		c.Next()
	}
}

func retryAfterSeconds(d time.Duration) string {
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
