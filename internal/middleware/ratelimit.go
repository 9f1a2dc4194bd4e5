package middleware

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/hms-api/pkg/errors"
	"github.com/noah-isme/hms-api/pkg/ratelimit"
	"github.com/noah-isme/hms-api/pkg/response"
)

// RateLimitKey picks the bucket a request is charged to.
type RateLimitKey func(c *gin.Context) string

// ByClientIP charges requests to the client address.
func ByClientIP(c *gin.Context) string {
	return c.ClientIP()
}

// BySubject charges authenticated requests to the caller and falls back to the client address.
func BySubject(c *gin.Context) string {
	if claims, ok := ClaimsFrom(c); ok {
		return "sub:" + claims.SubjectID()
	}
	return c.ClientIP()
}

// RateLimit refuses requests once the caller's bucket is empty.
func RateLimit(limiter *ratelimit.Keyed, key RateLimitKey) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(key(c)) {
			c.Header("Retry-After", "60")
			response.Error(c, appErrors.ErrTooManyRequests)
			c.Abort()
			return
		}
		c.Next()
	}
}
