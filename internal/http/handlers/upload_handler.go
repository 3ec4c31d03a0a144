// Upload and summary HTTP handlers.
//
// This file exposes REST endpoints for document uploads and their summaries:
//   - POST   /uploads                    (upload a document, summarize or reuse cache)
//   - GET    /uploads                    (list the caller's uploads, paginated)
//   - GET    /uploads/{id}              (fetch one upload with its summary)
//   - GET    /summaries                 (list all summaries, paginated)
//   - GET    /summaries/{id}/download   (plain-text report download)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-summarizer-backend/internal/domain"
	"github.com/tbourn/go-summarizer-backend/internal/services"
	"github.com/tbourn/go-summarizer-backend/internal/session"
	"github.com/tbourn/go-summarizer-backend/internal/summarizer"
	"github.com/tbourn/go-summarizer-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// UploadService defines the upload lifecycle operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type UploadService interface {
	// Process stores a document and returns its summary, reusing a cached
	// summary when an identical document was already summarized with the
	// same prompt template.
	Process(ctx context.Context, in services.ProcessInput) (*domain.Upload, *domain.Summary, error)
	// ListMine returns a page of uploads belonging to sessionID and the total count.
	ListMine(ctx context.Context, sessionID string, page, pageSize int) ([]domain.Upload, int64, error)
	// Get returns one upload owned by sessionID, with its summaries preloaded.
	Get(ctx context.Context, id, sessionID string) (*domain.Upload, error)
	// ListAllSummaries returns a page across all sessions and the total count.
	ListAllSummaries(ctx context.Context, page, pageSize int) ([]domain.Summary, int64, error)
	// BuildDownload renders a summary as a plain-text report and suggests a filename.
	BuildDownload(ctx context.Context, summaryID string) (string, []byte, error)
}

//
// Handler wiring
//

// UploadHandlers groups the HTTP endpoints for uploads and summaries.
type UploadHandlers struct {
	svc UploadService
}

// NewUploadHandlers constructs handlers bound to the given service.
func NewUploadHandlers(svc UploadService) *UploadHandlers {
	return &UploadHandlers{svc: svc}
}

//
// DTOs
//

// UploadResponse pairs a stored upload with the summary that answers it.
type UploadResponse struct {
	Upload  *domain.Upload  `json:"upload"`
	Summary *domain.Summary `json:"summary"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListUploadsResponse wraps a page of uploads and pagination information.
type ListUploadsResponse struct {
	Uploads    []domain.Upload `json:"uploads"`
	Pagination Pagination      `json:"pagination"`
}

// ListSummariesResponse wraps a page of summaries and pagination information.
type ListSummariesResponse struct {
	Summaries  []domain.Summary `json:"summaries"`
	Pagination Pagination       `json:"pagination"`
}

//
// Helpers
//

// sessionID extracts the caller's session id resolved by the session
// middleware. Routes registered without it see an empty id, which repository
// filters treat as matching nothing.
func sessionID(c *gin.Context) string {
	s, _ := session.FromContext(c)
	return s
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.ClampInt(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}

func paginate(page, pageSize int, total int64) Pagination {
	_, totalPages := utils.PageWindow(page, pageSize, total)
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

//
// Handlers
//

// Create accepts a multipart document upload and returns the stored upload
// together with its summary.
//
// Expected form fields:
//   - file:               the document (required, .pdf)
//   - text:               extracted document text to summarize (required)
//   - page_count:         number of pages in the document (optional)
//   - prompt_template_id: prompt template to use (optional, default template when empty)
func (h *UploadHandlers) Create(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "file field is required")
		return
	}

	f, err := fh.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable file upload")
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		status, code, msg := statusForReadErr(err)
		fail(c, status, code, msg)
		return
	}

	in := services.ProcessInput{
		SessionID:        sessionID(c),
		OriginalFilename: fh.Filename,
		Content:          content,
		Text:             c.PostForm("text"),
		PageCount:        utils.AtoiDefault(c.PostForm("page_count"), 0),
		PromptTemplateID: strings.TrimSpace(c.PostForm("prompt_template_id")),
	}

	up, sum, err := h.svc.Process(c.Request.Context(), in)
	if err != nil {
		failProcess(c, err)
		return
	}
	ok(c, http.StatusCreated, UploadResponse{Upload: up, Summary: sum})
}

// statusForReadErr maps a failure reading the uploaded part. Only the body
// size limit warrants 413; any other read error is a truncated or broken
// client body.
func statusForReadErr(err error) (status int, code, msg string) {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, "upload exceeds size limit"
	}
	return http.StatusBadRequest, ErrCodeBadRequest, "unreadable file upload"
}

// failProcess maps upload processing errors to HTTP responses.
func failProcess(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrEmptyDocument), errors.Is(err, services.ErrEmptyText):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrUnsupportedFile):
		fail(c, http.StatusUnsupportedMediaType, ErrCodeUnsupportedFile, err.Error())
	case errors.Is(err, services.ErrDocumentTooLarge):
		fail(c, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, err.Error())
	case errors.Is(err, services.ErrPromptNotFound), errors.Is(err, services.ErrPromptInactive),
		errors.Is(err, services.ErrNoActivePrompt):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case summarizer.IsGatewayError(err):
		fail(c, http.StatusBadGateway, ErrCodeSummarizeFailed, "summarization failed, upload was not stored")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

// ListMine returns the caller's uploads, newest first.
func (h *UploadHandlers) ListMine(c *gin.Context) {
	page, pageSize := clampPagination(c)
	items, total, err := h.svc.ListMine(c.Request.Context(), sessionID(c), page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListUploadsResponse{Uploads: items, Pagination: paginate(page, pageSize, total)})
}

// Get returns one upload owned by the caller, with its summary.
func (h *UploadHandlers) Get(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "upload id must be a UUID")
		return
	}

	up, err := h.svc.Get(c.Request.Context(), id, sessionID(c))
	if err != nil {
		if errors.Is(err, services.ErrUploadNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "upload not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, up)
}

// ListSummaries returns summaries across all sessions, newest first.
func (h *UploadHandlers) ListSummaries(c *gin.Context) {
	page, pageSize := clampPagination(c)
	items, total, err := h.svc.ListAllSummaries(c.Request.Context(), page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListSummariesResponse{Summaries: items, Pagination: paginate(page, pageSize, total)})
}

// Download streams a summary as a plain-text attachment.
func (h *UploadHandlers) Download(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "summary id must be a UUID")
		return
	}

	name, body, err := h.svc.BuildDownload(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrSummaryNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "summary not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", body)
}
