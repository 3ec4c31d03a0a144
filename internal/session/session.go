// Package session issues and resolves the opaque per-client identity used to
// scope "my uploads" queries and, optionally, quota keys. A session id is a
// grouping key with a fixed expiry; it is never an authentication credential
// and carries no other semantic weight.
package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultCookieName is the cookie carrying the session id.
	DefaultCookieName = "summarizer_session"

	// ctxKeySession is the Gin context key under which the resolved id is stored.
	ctxKeySession = "sessionID"

	// ctxKeyMinted marks requests whose session id was created on this request
	// rather than presented by the client.
	ctxKeyMinted = "sessionMinted"
)

// Tracker mints and resolves session identities. The expiry is fixed at mint
// time and deliberately not extended on use.
type Tracker struct {
	// Lifetime is how long a freshly minted session cookie lives.
	Lifetime time.Duration
	// CookieName overrides DefaultCookieName when non-empty.
	CookieName string
	// Secure marks issued cookies as HTTPS-only.
	Secure bool
}

// NewTracker constructs a Tracker with the given session lifetime.
func NewTracker(lifetime time.Duration) *Tracker {
	return &Tracker{Lifetime: lifetime, CookieName: DefaultCookieName}
}

func (t *Tracker) cookieName() string {
	if strings.TrimSpace(t.CookieName) != "" {
		return t.CookieName
	}
	return DefaultCookieName
}

// Middleware resolves the caller's session id: an existing cookie value is
// reused, otherwise a new opaque id is minted and set with a fixed expiry.
// The id is stashed in the Gin context for handlers (see FromContext).
func (t *Tracker) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(t.cookieName())
		if err != nil || !valid(id) {
			id = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(t.cookieName(), id, int(t.Lifetime.Seconds()), "/", "", t.Secure, true)
			c.Set(ctxKeyMinted, true)
			log.Debug().Str("session_id", id[:8]).Msg("new session created")
		}
		c.Set(ctxKeySession, id)
		c.Next()
	}
}

// FromContext returns the session id resolved by Middleware. The second
// return value indicates presence; it is false only when the middleware is
// not installed on the route.
func FromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeySession)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsNew reports whether the session id was minted on this request. Quota
// keying falls back to the client IP for new sessions so that discarding
// cookies does not reset a caller's budget.
func IsNew(c *gin.Context) bool {
	return c.GetBool(ctxKeyMinted)
}

// valid reports whether a cookie value parses as one of our minted ids.
// Anything else (tampered or foreign values) is replaced with a fresh id.
func valid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
