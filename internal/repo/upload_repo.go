// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Upload model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When an upload is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-summarizer-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateUpload inserts the given Upload row, assigning a UUID primary key and
// a UTC creation timestamp when they are unset. The caller fills in all
// content fields (hash, blob path, session, size, cache flag).
func CreateUpload(ctx context.Context, db *gorm.DB, u *domain.Upload) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(u).Error
}

// GetUpload fetches a single upload by its ID and owning session, with its
// summaries preloaded. If the record does not exist (or belongs to another
// session), it returns ErrNotFound.
func GetUpload(ctx context.Context, db *gorm.DB, id, sessionID string) (*domain.Upload, error) {
	var u domain.Upload
	err := db.WithContext(ctx).
		Preload("Summaries").
		Where("id = ? AND session_id = ?", id, sessionID).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CountUploadsBySession returns the total number of uploads owned by sessionID.
func CountUploadsBySession(ctx context.Context, db *gorm.DB, sessionID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Upload{}).
		Where("session_id = ?", sessionID).
		Count(&total).Error
	return total, err
}

// ListUploadsBySession returns a page of uploads for sessionID, most recent
// first, with summaries preloaded. Use CountUploadsBySession for pagination
// metadata.
func ListUploadsBySession(ctx context.Context, db *gorm.DB, sessionID string, offset, limit int) ([]domain.Upload, error) {
	var out []domain.Upload
	err := db.WithContext(ctx).
		Preload("Summaries").
		Where("session_id = ?", sessionID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListExpiredUploads returns up to limit uploads created strictly before
// cutoff, oldest first. IDs listed in exclude are skipped; the retention
// sweep uses this to step past rows whose blob deletion failed, so a batch
// loop cannot spin on the same row.
func ListExpiredUploads(ctx context.Context, db *gorm.DB, cutoff time.Time, exclude []string, limit int) ([]domain.Upload, error) {
	q := db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Order("created_at asc").
		Limit(limit)
	if len(exclude) > 0 {
		q = q.Where("id NOT IN ?", exclude)
	}
	var out []domain.Upload
	err := q.Find(&out).Error
	return out, err
}

// DeleteUpload hard-deletes an upload row. The summaries table is wired with
// ON DELETE CASCADE, so the owning row's summaries disappear in the same
// statement. Returns ErrNotFound when no row was affected.
func DeleteUpload(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Upload{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
