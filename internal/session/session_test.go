package session

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func newRouter(t *testing.T, tr *Tracker) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(tr.Middleware())
	r.GET("/whoami", func(c *gin.Context) {
		id, ok := FromContext(c)
		if !ok {
			c.String(http.StatusInternalServerError, "no session")
			return
		}
		c.String(http.StatusOK, id)
	})
	return r
}

func TestMiddleware_MintsSessionAndSetsCookie(t *testing.T) {
	r := newRouter(t, NewTracker(30*24*time.Hour))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	id := w.Body.String()
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("resolved session id %q is not a UUID: %v", id, err)
	}

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == DefaultCookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatalf("no session cookie set")
	}
	if cookie.Value != id {
		t.Fatalf("cookie %q != resolved id %q", cookie.Value, id)
	}
	if !cookie.HttpOnly {
		t.Fatalf("session cookie must be HttpOnly")
	}
	if cookie.MaxAge != int((30 * 24 * time.Hour).Seconds()) {
		t.Fatalf("cookie MaxAge = %d", cookie.MaxAge)
	}
}

func TestMiddleware_ReusesExistingSession(t *testing.T) {
	r := newRouter(t, NewTracker(time.Hour))

	existing := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: existing})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Body.String(); got != existing {
		t.Fatalf("resolved %q, want existing %q", got, existing)
	}
	// Expiry is fixed at mint time: reuse must not rewrite the cookie.
	for _, c := range w.Result().Cookies() {
		if c.Name == DefaultCookieName {
			t.Fatalf("cookie was re-issued on reuse")
		}
	}
}

func TestMiddleware_ReplacesTamperedCookie(t *testing.T) {
	r := newRouter(t, NewTracker(time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "not-a-uuid"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	id := w.Body.String()
	if id == "not-a-uuid" {
		t.Fatalf("tampered cookie value must not be accepted")
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("replacement id %q not a UUID: %v", id, err)
	}
}

func TestMiddleware_DistinctCallersGetDistinctIDs(t *testing.T) {
	r := newRouter(t, NewTracker(time.Hour))

	ids := map[string]bool{}
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
		ids[strings.TrimSpace(w.Body.String())] = true
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 distinct session ids, got %d", len(ids))
	}
}
