// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// PromptTemplate model, including single-default enforcement and first-run
// seeding.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-summarizer-backend/internal/domain"
)

// ErrDuplicate indicates a unique-constraint violation, e.g. a prompt
// template name that is already taken.
var ErrDuplicate = errors.New("duplicate")

// isUniqueViolation reports whether err is a unique-constraint failure.
// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}

// CreatePrompt inserts a new prompt template. Returns ErrDuplicate when the
// name is already taken.
func CreatePrompt(ctx context.Context, db *gorm.DB, p *domain.PromptTemplate) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetPrompt fetches a prompt template by ID, or ErrNotFound.
func GetPrompt(ctx context.Context, db *gorm.DB, id string) (*domain.PromptTemplate, error) {
	var p domain.PromptTemplate
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPrompts returns all prompt templates, most recent first. When
// activeOnly is set, inactive templates are filtered out.
func ListPrompts(ctx context.Context, db *gorm.DB, activeOnly bool) ([]domain.PromptTemplate, error) {
	q := db.WithContext(ctx).Order("created_at desc")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	var out []domain.PromptTemplate
	err := q.Find(&out).Error
	return out, err
}

// UpdatePrompt persists name/text/active changes for an existing template.
// Returns ErrNotFound when the row is missing and ErrDuplicate when the new
// name collides with another template.
func UpdatePrompt(ctx context.Context, db *gorm.DB, id, name, text string, active bool) error {
	res := db.WithContext(ctx).
		Model(&domain.PromptTemplate{}).
		Where("id = ?", id).
		Updates(map[string]any{"name": name, "text": text, "active": active})
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return ErrDuplicate
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetDefaultPrompt returns the template marked as the system default, or
// ErrNotFound when none is marked.
func GetDefaultPrompt(ctx context.Context, db *gorm.DB) (*domain.PromptTemplate, error) {
	var p domain.PromptTemplate
	if err := db.WithContext(ctx).Where("is_default = ?", true).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// MarkPromptDefault makes the given template the single system default.
// The previous default (if any) is cleared in the same transaction, so at
// most one row ever carries the flag. Returns ErrNotFound when id is missing.
func MarkPromptDefault(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.PromptTemplate{}).
			Where("id = ?", id).
			Updates(map[string]any{"is_default": true, "active": true})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Model(&domain.PromptTemplate{}).
			Where("id <> ? AND is_default = ?", id, true).
			Update("is_default", false).Error
	})
}

// DeletePrompt hard-deletes a prompt template. The caller is responsible for
// checking that no summary references it.
func DeletePrompt(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.PromptTemplate{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SeedDefaultPrompt inserts a single active default template when the
// registry is empty. Calling it against a non-empty registry is a no-op, so
// it is safe to run on every startup.
func SeedDefaultPrompt(ctx context.Context, db *gorm.DB, name, text string) (*domain.PromptTemplate, error) {
	var total int64
	if err := db.WithContext(ctx).Model(&domain.PromptTemplate{}).Count(&total).Error; err != nil {
		return nil, err
	}
	if total > 0 {
		return nil, nil
	}
	p := &domain.PromptTemplate{
		Name:      name,
		Text:      text,
		Active:    true,
		IsDefault: true,
	}
	if err := CreatePrompt(ctx, db, p); err != nil {
		return nil, err
	}
	return p, nil
}
