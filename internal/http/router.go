// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, sessions,
// quotas, CORS, and security headers.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbourn/go-summarizer-backend/internal/config"
	"github.com/tbourn/go-summarizer-backend/internal/http/handlers"
	"github.com/tbourn/go-summarizer-backend/internal/http/middleware"
	"github.com/tbourn/go-summarizer-backend/internal/quota"
	"github.com/tbourn/go-summarizer-backend/internal/session"
)

// Deps bundles the application services and stateful middleware dependencies
// the router needs. Everything is injected so tests can swap pieces out.
type Deps struct {
	Uploads  handlers.UploadService
	Prompts  handlers.PromptService
	Quota    *quota.Ledger
	Sessions *session.Tracker
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), sessions and upload
// quotas, CORS and security headers, health and metrics endpoints, and then
// mounts the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured request logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter (upload cap plus form overhead)
//  6. Metrics
//  7. Gzip (JSON lists and text downloads compress well)
//  8. Session cookie tracking
//  9. CORS and security headers
//
// The upload quota applies only to POST /uploads, after the session
// middleware has established the caller's identity.
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured request logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Body size limit: the document cap plus slack for multipart framing
	// and the extracted text field.
	r.Use(limitBody(cfg.MaxUploadBytes * 2))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Compress responses; documents are served as attachments anyway.
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 8) Session cookie (anonymous, fixed lifetime)
	r.Use(deps.Sessions.Middleware())

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "Content-Disposition"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Cookies require echoing a concrete origin, not "*".
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	uh := handlers.NewUploadHandlers(deps.Uploads)
	ph := handlers.NewPromptHandlers(deps.Prompts)

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Uploads and summaries
		api.POST("/uploads", middleware.Quota(deps.Quota), uh.Create)
		api.GET("/uploads", uh.ListMine)
		api.GET("/uploads/:id", uh.Get)
		api.GET("/summaries", uh.ListSummaries)
		api.GET("/summaries/:id/download", uh.Download)

		// Prompt templates
		api.GET("/prompts", ph.List)
		api.POST("/prompts", ph.Create)
		api.GET("/prompts/:id", ph.Get)
		api.PUT("/prompts/:id", ph.Update)
		api.PUT("/prompts/:id/default", ph.SetDefault)
		api.DELETE("/prompts/:id", ph.Delete)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
