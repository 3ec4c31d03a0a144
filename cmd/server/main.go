// Command server runs the document summarization backend: an HTTP API that
// stores uploaded documents, summarizes them through an external gateway with
// content-hash deduplication, enforces per-caller quotas, and reaps expired
// uploads on a daily schedule.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-summarizer-backend/internal/blob"
	"github.com/tbourn/go-summarizer-backend/internal/config"
	httpapi "github.com/tbourn/go-summarizer-backend/internal/http"
	"github.com/tbourn/go-summarizer-backend/internal/observability"
	"github.com/tbourn/go-summarizer-backend/internal/quota"
	"github.com/tbourn/go-summarizer-backend/internal/repo"
	"github.com/tbourn/go-summarizer-backend/internal/retention"
	"github.com/tbourn/go-summarizer-backend/internal/services"
	"github.com/tbourn/go-summarizer-backend/internal/session"
	"github.com/tbourn/go-summarizer-backend/internal/summarizer"
	"github.com/tbourn/go-summarizer-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	// Local development convenience; the file is optional.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Tracing (no-op unless OTEL_ENABLED).
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(c); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	// Storage.
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}
	if cfg.OTEL.Enabled {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			log.Fatal().Err(err).Msg("gorm tracing plugin failed")
		}
	}
	blobs, err := blob.NewStore(cfg.UploadDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.UploadDir).Msg("upload store failed")
	}

	// Summarization gateway.
	gateway, err := summarizer.NewAnthropicClient(summarizer.AnthropicConfig{
		APIKey:       cfg.Anthropic.APIKey,
		Model:        cfg.Anthropic.Model,
		MaxTokens:    cfg.Anthropic.MaxTokens,
		MaxTextBytes: cfg.Anthropic.MaxTextBytes,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("gateway setup failed")
	}
	if !cfg.Anthropic.SkipValidation {
		pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		if err := gateway.Ping(pingCtx); err != nil {
			cancel()
			log.Fatal().Err(err).Str("model", cfg.Anthropic.Model).Msg("model validation failed")
		}
		cancel()
		log.Info().Str("model", cfg.Anthropic.Model).Msg("model validated")
	}

	// Services.
	promptSvc := services.NewPromptService(db)
	if err := promptSvc.Seed(ctx); err != nil {
		log.Fatal().Err(err).Msg("prompt seed failed")
	}
	uploadSvc := services.NewUploadService(db, blobs, gateway, cfg.MaxUploadBytes)

	// Daily retention sweep.
	reaper := &retention.Reaper{
		DB:     db,
		Blobs:  blobs,
		Window: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		Hour:   cfg.CleanupHour,
		Minute: cfg.CleanupMinute,
	}
	reaper.Start(ctx)

	// Session cookies and upload quotas.
	sessions := session.NewTracker(cfg.SessionLifetime)
	sessions.Secure = cfg.SessionSecure
	ledger := quota.NewLedger(quota.Limits{
		HourlyBurst: cfg.QuotaHourlyBurst,
		Daily:       cfg.QuotaDaily,
	}, time.Now)

	// HTTP transport.
	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{
		Uploads:  uploadSvc,
		Prompts:  promptSvc,
		Quota:    ledger,
		Sessions: sessions,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
