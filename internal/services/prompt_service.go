// Package services – PromptService
//
// This file implements the prompt-template registry: create, list, get,
// update, activate, single-default selection, guarded deletion, and first-run
// seeding. Templates are the second half of the deduplication key, so the
// registry never mutates a template's identity: edits change text under the
// same id and deliberately do not invalidate summaries produced earlier.
package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-summarizer-backend/internal/domain"
	"github.com/tbourn/go-summarizer-backend/internal/repo"
)

const (
	// maxPromptTextRunes caps the stored prompt text length.
	maxPromptTextRunes = 5000

	// DefaultPromptName and DefaultPromptText seed an empty registry.
	DefaultPromptName = "Basic Summary"
	DefaultPromptText = "Please provide a concise summary of the following document. " +
		"Focus on the main points, key findings, and important details:"
)

// PromptService manages the prompt-template registry.
type PromptService struct {
	DB *gorm.DB
}

// NewPromptService constructs a PromptService.
func NewPromptService(db *gorm.DB) *PromptService {
	return &PromptService{DB: db}
}

// Create validates and stores a new template.
func (s *PromptService) Create(ctx context.Context, name, text string, active bool) (*domain.PromptTemplate, error) {
	name, text, err := validatePrompt(name, text)
	if err != nil {
		return nil, err
	}
	p := &domain.PromptTemplate{Name: name, Text: text, Active: active}
	if err := repo.CreatePrompt(ctx, s.DB, p); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrPromptNameTaken
		}
		return nil, err
	}
	log.Info().Str("prompt_id", p.ID).Str("name", p.Name).Msg("prompt template created")
	return p, nil
}

// List returns templates, optionally restricted to active ones.
func (s *PromptService) List(ctx context.Context, activeOnly bool) ([]domain.PromptTemplate, error) {
	return repo.ListPrompts(ctx, s.DB, activeOnly)
}

// Get returns one template by id.
func (s *PromptService) Get(ctx context.Context, id string) (*domain.PromptTemplate, error) {
	p, err := repo.GetPrompt(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrPromptNotFound
	}
	return p, err
}

// Update changes a template's name, text, and active flag. The id stays
// untouched, so cache keys of summaries already stored under this template
// keep resolving.
func (s *PromptService) Update(ctx context.Context, id, name, text string, active bool) error {
	name, text, err := validatePrompt(name, text)
	if err != nil {
		return err
	}
	err = repo.UpdatePrompt(ctx, s.DB, id, name, text, active)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return ErrPromptNotFound
	case errors.Is(err, repo.ErrDuplicate):
		return ErrPromptNameTaken
	}
	return err
}

// SetDefault marks the template as the single system default (and active).
// Changing the default never alters cache keys of already-stored summaries.
func (s *PromptService) SetDefault(ctx context.Context, id string) error {
	err := repo.MarkPromptDefault(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrPromptNotFound
	}
	return err
}

// Delete removes a template that no summary references; otherwise it fails
// with ErrPromptInUse so historical summaries keep a resolvable reference.
func (s *PromptService) Delete(ctx context.Context, id string) error {
	n, err := repo.CountSummariesForPrompt(ctx, s.DB, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrPromptInUse
	}
	err = repo.DeletePrompt(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrPromptNotFound
	}
	if err == nil {
		log.Info().Str("prompt_id", id).Msg("prompt template deleted")
	}
	return err
}

// Seed inserts the default template when the registry is empty. Safe to call
// on every startup.
func (s *PromptService) Seed(ctx context.Context) error {
	p, err := repo.SeedDefaultPrompt(ctx, s.DB, DefaultPromptName, DefaultPromptText)
	if err != nil {
		return err
	}
	if p != nil {
		log.Info().Str("prompt_id", p.ID).Str("name", p.Name).Msg("seeded default prompt template")
	}
	return nil
}

// validatePrompt trims and checks template fields.
func validatePrompt(name, text string) (string, string, error) {
	name = strings.TrimSpace(name)
	text = strings.TrimSpace(text)
	if name == "" || text == "" {
		return "", "", ErrPromptInvalid
	}
	if utf8.RuneCountInString(text) > maxPromptTextRunes {
		return "", "", ErrPromptInvalid
	}
	return name, text, nil
}
