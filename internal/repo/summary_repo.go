// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Summary
// model, including the cache-index lookup used for deduplication.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-summarizer-backend/internal/domain"
)

// CreateSummary inserts the given Summary row, assigning a UUID primary key
// and a UTC creation timestamp when they are unset.
func CreateSummary(ctx context.Context, db *gorm.DB, s *domain.Summary) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(s).Error
}

// GetSummary fetches a summary by ID with its owning upload preloaded.
// Returns ErrNotFound when the record does not exist.
func GetSummary(ctx context.Context, db *gorm.DB, id string) (*domain.Summary, error) {
	var s domain.Summary
	err := db.WithContext(ctx).
		Preload("Upload").
		Where("id = ?", id).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// FindCachedSummary is the cache-index lookup: it returns the most recent
// live summary stored for the (contentHash, promptTemplateID) deduplication
// key, or ErrNotFound. A nil promptTemplateID matches legacy summaries stored
// without a template reference.
//
// Reaped uploads hard-delete their summaries (cascade), so anything this
// query returns belongs to a live upload.
func FindCachedSummary(ctx context.Context, db *gorm.DB, contentHash string, promptTemplateID *string) (*domain.Summary, error) {
	q := db.WithContext(ctx).Where("content_hash = ?", contentHash)
	if promptTemplateID == nil {
		q = q.Where("prompt_template_id IS NULL")
	} else {
		q = q.Where("prompt_template_id = ?", *promptTemplateID)
	}
	var s domain.Summary
	err := q.Order("created_at desc").First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CountSummaries returns the total number of stored summaries.
func CountSummaries(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Summary{}).Count(&total).Error
	return total, err
}

// ListSummariesPage returns a page of summaries across all sessions, most
// recent first, with owning uploads preloaded.
func ListSummariesPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Summary, error) {
	var out []domain.Summary
	err := db.WithContext(ctx).
		Preload("Upload").
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountSummariesForPrompt returns how many summaries reference the given
// prompt template. Used to guard template deletion.
func CountSummariesForPrompt(ctx context.Context, db *gorm.DB, promptTemplateID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Summary{}).
		Where("prompt_template_id = ?", promptTemplateID).
		Count(&total).Error
	return total, err
}
