// Package retention deletes uploads (rows, summaries, and blobs) past the
// configured retention window. A sweep walks expired rows in batches; for
// each row the blob is deleted first, and only then the metadata row. A
// failed blob delete leaves both halves intact for the next run to redrive,
// so no file is ever orphaned without a row pointing at it.
//
// The reaper runs on a daily schedule (configurable hour/minute) and can be
// invoked on demand, which tests use. Per-row failures are logged and
// skipped; only a store-level failure aborts a sweep.
package retention

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-summarizer-backend/internal/blob"
	"github.com/tbourn/go-summarizer-backend/internal/repo"
)

var (
	// sweepDeleted counts uploads fully removed (blob + row).
	sweepDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "retention_deleted_total",
		Help: "Total number of uploads removed by the retention sweep.",
	})

	// sweepBytesFreed counts blob bytes reclaimed.
	sweepBytesFreed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "retention_bytes_freed_total",
		Help: "Total number of blob bytes reclaimed by the retention sweep.",
	})

	// sweepSkipped counts rows left in place because their blob could not be
	// deleted. They are retried on the next run.
	sweepSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "retention_skipped_total",
		Help: "Total number of expired uploads skipped due to blob deletion errors.",
	})

	// sweepDuration observes full sweep durations.
	sweepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "retention_sweep_duration_seconds",
		Help:    "Duration of retention sweeps in seconds.",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(sweepDeleted, sweepBytesFreed, sweepSkipped, sweepDuration)
}

// defaultBatchSize bounds memory and keeps each batch's deletions in small
// independent chunks.
const defaultBatchSize = 100

// Stats summarizes one sweep.
type Stats struct {
	Deleted    int
	BytesFreed int64
	Skipped    int
	Duration   time.Duration
}

// BlobDeleter removes a stored blob by path. *blob.Store satisfies it; a
// Delete on a missing file must return blob.ErrNotFound.
type BlobDeleter interface {
	Delete(path string) error
}

// Reaper owns the retention sweep over the metadata and blob stores.
type Reaper struct {
	DB    *gorm.DB
	Blobs BlobDeleter

	// Window is the retention window; uploads older than now-Window are
	// eligible for deletion.
	Window time.Duration

	// Hour and Minute schedule the daily run (UTC).
	Hour   int
	Minute int

	// BatchSize overrides defaultBatchSize when > 0.
	BatchSize int

	// Now is the injectable clock; nil means time.Now.
	Now func() time.Time
}

func (r *Reaper) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Reaper) batchSize() int {
	if r.BatchSize > 0 {
		return r.BatchSize
	}
	return defaultBatchSize
}

// Sweep runs one full retention pass and returns its stats. A store-level
// failure aborts the sweep and is returned as a single error; per-row
// failures only increment the skip counter.
func (r *Reaper) Sweep(ctx context.Context) (Stats, error) {
	start := r.now()
	cutoff := start.Add(-r.Window)
	var st Stats
	var skippedIDs []string

	for {
		batch, err := repo.ListExpiredUploads(ctx, r.DB, cutoff, skippedIDs, r.batchSize())
		if err != nil {
			// Store unreachable: abort the whole sweep, one error.
			log.Error().Err(err).Msg("retention sweep aborted: metadata store unavailable")
			return st, err
		}
		if len(batch) == 0 {
			break
		}

		for _, u := range batch {
			if ctx.Err() != nil {
				return st, ctx.Err()
			}

			// Blob first. A missing file is fine (idempotent delete); any
			// other failure leaves the row for the next run.
			if err := r.Blobs.Delete(u.BlobPath); err != nil && !errors.Is(err, blob.ErrNotFound) {
				st.Skipped++
				sweepSkipped.Inc()
				skippedIDs = append(skippedIDs, u.ID)
				log.Warn().Err(err).Str("upload_id", u.ID).Str("blob_path", u.BlobPath).
					Msg("retention: blob delete failed, keeping row")
				continue
			}

			// Row second; cascades to summaries.
			if err := repo.DeleteUpload(ctx, r.DB, u.ID); err != nil && !errors.Is(err, repo.ErrNotFound) {
				st.Skipped++
				sweepSkipped.Inc()
				skippedIDs = append(skippedIDs, u.ID)
				log.Warn().Err(err).Str("upload_id", u.ID).Msg("retention: row delete failed")
				continue
			}

			st.Deleted++
			st.BytesFreed += u.SizeBytes
			sweepDeleted.Inc()
			sweepBytesFreed.Add(float64(u.SizeBytes))
		}

		// Each batch commits independently; a later failure never rolls back
		// deletions already made.
		if len(batch) < r.batchSize() {
			break
		}
	}

	st.Duration = r.now().Sub(start)
	sweepDuration.Observe(st.Duration.Seconds())
	log.Info().
		Int("deleted", st.Deleted).
		Int64("bytes_freed", st.BytesFreed).
		Int("skipped", st.Skipped).
		Dur("duration", st.Duration).
		Msg("retention sweep completed")
	return st, nil
}

// Start runs the daily schedule until ctx is cancelled. Sweep errors are
// logged and never crash the scheduler.
func (r *Reaper) Start(ctx context.Context) {
	go func() {
		for {
			next := nextRunAt(r.now(), r.Hour, r.Minute)
			timer := time.NewTimer(next.Sub(r.now()))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				if _, err := r.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error().Err(err).Msg("scheduled retention sweep failed")
				}
			}
		}
	}()
	log.Info().Int("hour", r.Hour).Int("minute", r.Minute).Dur("window", r.Window).
		Msg("retention reaper scheduled")
}

// nextRunAt returns the next occurrence of hour:minute (UTC) strictly after now.
func nextRunAt(now time.Time, hour, minute int) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
