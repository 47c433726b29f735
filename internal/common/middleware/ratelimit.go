package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/anonymousgrouphp-collab/skillbun/internal/common/errors"
	"github.com/anonymousgrouphp-collab/skillbun/internal/common/logger"
	"github.com/anonymousgrouphp-collab/skillbun/internal/common/ratelimit"
)

// RateLimit gates requests through one admission tier, keyed by client IP.
// Rejections are uniform: the same message and status for every caller, no
// counts revealed beyond a Retry-After hint. A store failure (e.g. the shared
// Redis being down) admits the request — throttling here is best-effort abuse
// control, not quota enforcement.
func RateLimit(limiter *ratelimit.Limiter, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.Warn().Err(err).Msg("rate limit store unavailable, admitting request")
			c.Next()
			return
		}
		if !allowed {
			seconds := int64(retryAfter.Seconds())
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.FormatInt(seconds, 10))
			AbortWithError(c, apperrors.New(apperrors.CodeTooManyRequests, message))
			return
		}
		c.Next()
	}
}
