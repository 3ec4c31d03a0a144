// Prompt template HTTP handlers.
//
// This file exposes REST endpoints for managing the prompt templates used
// when summarizing uploads:
//   - GET    /prompts              (list, optional active=true filter)
//   - POST   /prompts              (create)
//   - GET    /prompts/{id}         (get)
//   - PUT    /prompts/{id}         (update name/text/active)
//   - PUT    /prompts/{id}/default (mark as the default template)
//   - DELETE /prompts/{id}         (delete, rejected while summaries reference it)
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-summarizer-backend/internal/domain"
	"github.com/tbourn/go-summarizer-backend/internal/services"
)

// PromptService defines prompt template management operations consumed by
// HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type PromptService interface {
	Create(ctx context.Context, name, text string, active bool) (*domain.PromptTemplate, error)
	List(ctx context.Context, activeOnly bool) ([]domain.PromptTemplate, error)
	Get(ctx context.Context, id string) (*domain.PromptTemplate, error)
	Update(ctx context.Context, id, name, text string, active bool) error
	SetDefault(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// PromptHandlers groups the HTTP endpoints for prompt templates.
type PromptHandlers struct {
	svc PromptService
}

// NewPromptHandlers constructs handlers bound to the given service.
func NewPromptHandlers(svc PromptService) *PromptHandlers {
	return &PromptHandlers{svc: svc}
}

// PromptRequest is the JSON payload for creating or updating a prompt template.
type PromptRequest struct {
	// Name uniquely identifies the template (1-100 chars).
	Name string `json:"name" binding:"required,min=1,max=100"`
	// Text is the instruction prepended to document text (max 5000 chars).
	Text string `json:"text" binding:"required,min=1"`
	// Active controls whether the template can be used for new uploads.
	Active bool `json:"active"`
}

// Create registers a new prompt template.
func (h *PromptHandlers) Create(c *gin.Context) {
	var req PromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	p, err := h.svc.Create(c.Request.Context(), strings.TrimSpace(req.Name), req.Text, req.Active)
	if err != nil {
		failPrompt(c, err)
		return
	}
	ok(c, http.StatusCreated, p)
}

// List returns prompt templates, optionally only active ones (?active=true).
func (h *PromptHandlers) List(c *gin.Context) {
	activeOnly := strings.EqualFold(c.Query("active"), "true")
	items, err := h.svc.List(c.Request.Context(), activeOnly)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, items)
}

// Get returns one prompt template by id.
func (h *PromptHandlers) Get(c *gin.Context) {
	id, okID := promptID(c)
	if !okID {
		return
	}
	p, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		failPrompt(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// Update replaces a template's name, text, and active flag.
func (h *PromptHandlers) Update(c *gin.Context) {
	id, okID := promptID(c)
	if !okID {
		return
	}
	var req PromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if err := h.svc.Update(c.Request.Context(), id, strings.TrimSpace(req.Name), req.Text, req.Active); err != nil {
		failPrompt(c, err)
		return
	}
	noContent(c)
}

// SetDefault marks a template as the default for uploads without an explicit
// prompt_template_id.
func (h *PromptHandlers) SetDefault(c *gin.Context) {
	id, okID := promptID(c)
	if !okID {
		return
	}
	if err := h.svc.SetDefault(c.Request.Context(), id); err != nil {
		failPrompt(c, err)
		return
	}
	noContent(c)
}

// Delete removes a template. Templates referenced by existing summaries are
// kept and the request is rejected with 409.
func (h *PromptHandlers) Delete(c *gin.Context) {
	id, okID := promptID(c)
	if !okID {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		failPrompt(c, err)
		return
	}
	noContent(c)
}

// promptID validates the :id path param, writing a 400 when it is not a UUID.
func promptID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "prompt id must be a UUID")
		return "", false
	}
	return id, true
}

// failPrompt maps prompt service errors to HTTP responses.
func failPrompt(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrPromptNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "prompt template not found")
	case errors.Is(err, services.ErrPromptNameTaken):
		fail(c, http.StatusConflict, ErrCodeConflict, "prompt name already exists")
	case errors.Is(err, services.ErrPromptInUse):
		fail(c, http.StatusConflict, ErrCodePromptInUse, "prompt template is referenced by existing summaries")
	case errors.Is(err, services.ErrPromptInvalid):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
