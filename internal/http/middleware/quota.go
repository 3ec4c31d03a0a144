package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-summarizer-backend/internal/quota"
	"github.com/tbourn/go-summarizer-backend/internal/session"
)

// Quota enforces per-caller upload quotas using the supplied ledger.
//
// The quota key is the caller's established session ID (the session
// middleware must run earlier in the chain). Sessions minted on this very
// request fall back to the client IP, so discarding cookies between requests
// does not grant a fresh budget.
//
// Rejected requests receive 429 with a Retry-After header (seconds, rounded
// up) and a JSON envelope; admitted requests pass through untouched.
func Quota(ledger *quota.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, ok := session.FromContext(c)
		if !ok || session.IsNew(c) {
			key = c.ClientIP()
		}

		d := ledger.Admit(key)
		if d.OK {
			c.Next()
			return
		}

		retry := int(math.Ceil(d.RetryAfter.Seconds()))
		if retry < 1 {
			retry = 1
		}
		c.Header("Retry-After", strconv.Itoa(retry))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id":          c.Writer.Header().Get("X-Request-ID"),
			"code":                "quota_exceeded",
			"message":             "upload quota exceeded, retry later",
			"retry_after_seconds": retry,
		})
	}
}
