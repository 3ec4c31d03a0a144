// Package services – UploadService
//
// This file implements UploadService, the application-level component that
// owns the upload pipeline: validation, content hashing, cache lookup,
// summarization on miss, and atomic persistence of the upload/summary pair
// alongside the blob.
//
// Ordering contract for the dual store (DB row + filesystem blob): the blob
// is written before the metadata transaction commits, and the blob is removed
// when that transaction fails, so a committed row always points at an
// existing file.
//
// Requests for the same (contentHash, promptTemplateID) key are serialized
// through a per-key lock around lookup + compute + store; concurrent
// identical uploads therefore trigger at most one gateway call.
package services

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-summarizer-backend/internal/blob"
	"github.com/tbourn/go-summarizer-backend/internal/dedup"
	"github.com/tbourn/go-summarizer-backend/internal/domain"
	"github.com/tbourn/go-summarizer-backend/internal/repo"
	"github.com/tbourn/go-summarizer-backend/internal/summarizer"
)

// UploadService coordinates the upload pipeline against the metadata store,
// the blob store, and the summarization gateway.
type UploadService struct {
	DB      *gorm.DB
	Blobs   *blob.Store
	Gateway summarizer.Gateway
	Locks   *dedup.KeyLock

	// MaxUploadBytes rejects documents above this size. Zero disables the check.
	MaxUploadBytes int64
}

// NewUploadService constructs an UploadService with its own key-lock table.
func NewUploadService(db *gorm.DB, blobs *blob.Store, gw summarizer.Gateway, maxUploadBytes int64) *UploadService {
	return &UploadService{
		DB:             db,
		Blobs:          blobs,
		Gateway:        gw,
		Locks:          dedup.NewKeyLock(),
		MaxUploadBytes: maxUploadBytes,
	}
}

// ProcessInput carries one upload request through the pipeline.
type ProcessInput struct {
	SessionID        string
	OriginalFilename string
	// Content is the raw uploaded document.
	Content []byte
	// Text is the extracted document text handed to the gateway on a miss.
	// Text extraction happens outside this service.
	Text string
	// PageCount, when known, is recorded on freshly computed summaries.
	PageCount int
	// PromptTemplateID selects the template; empty means the system default.
	PromptTemplateID string
}

// Process runs one upload end to end and returns the stored upload with its
// summary. On a cache hit the existing summary text is copied into a fresh
// Summary row (audit trail per upload) and no gateway call is made. On a
// gateway failure nothing is persisted.
func (s *UploadService) Process(ctx context.Context, in ProcessInput) (*domain.Upload, *domain.Summary, error) {
	if err := validateInput(in); err != nil {
		return nil, nil, err
	}
	if err := s.checkSize(int64(len(in.Content))); err != nil {
		return nil, nil, err
	}

	prompt, err := s.resolvePrompt(ctx, in.PromptTemplateID)
	if err != nil {
		return nil, nil, err
	}

	hash := dedup.HashBytes(in.Content)
	key := dedup.NewKey(hash, &prompt.ID)

	// Serialize lookup + compute + store for this key. Concurrent uploads of
	// the same document under the same template wait here; the winner stores
	// the summary and the rest take the hit path.
	unlock := s.Locks.Lock(key.String())
	defer unlock()

	cached, err := repo.FindCachedSummary(ctx, s.DB, hash, &prompt.ID)
	switch {
	case err == nil:
		log.Info().Str("content_hash", hash[:12]).Str("prompt_id", prompt.ID).Msg("cache hit")
		return s.storeHit(ctx, in, hash, prompt.ID, cached)
	case errors.Is(err, repo.ErrNotFound):
		log.Info().Str("content_hash", hash[:12]).Str("prompt_id", prompt.ID).Msg("cache miss")
		return s.storeMiss(ctx, in, hash, prompt)
	default:
		return nil, nil, err
	}
}

// storeHit records a new upload event that reuses an existing summary: the
// blob is saved (every upload keeps its own file), and the summary text is
// duplicated into a row owned by the new upload.
func (s *UploadService) storeHit(ctx context.Context, in ProcessInput, hash, promptID string, cached *domain.Summary) (*domain.Upload, *domain.Summary, error) {
	upload, summary, err := s.persist(ctx, in, hash, promptID, cached.Text, cached.PageCount, cached.CharCount, true)
	if err != nil {
		return nil, nil, err
	}
	return upload, summary, nil
}

// storeMiss invokes the gateway, then persists blob + rows. Gateway failures
// surface to the caller with no partial state: the upload row is rolled back
// entirely rather than kept for audit (documented choice).
func (s *UploadService) storeMiss(ctx context.Context, in ProcessInput, hash string, prompt *domain.PromptTemplate) (*domain.Upload, *domain.Summary, error) {
	if strings.TrimSpace(in.Text) == "" {
		return nil, nil, ErrEmptyText
	}

	res, err := s.Gateway.Summarize(ctx, in.Text, prompt.Text)
	if err != nil {
		return nil, nil, err
	}

	return s.persist(ctx, in, hash, prompt.ID, res.Text, in.PageCount, len(in.Text), false)
}

// persist writes the blob first, then commits upload + summary in one
// transaction. The blob is removed again when the transaction fails.
func (s *UploadService) persist(ctx context.Context, in ProcessInput, hash, promptID, summaryText string, pageCount, charCount int, cacheHit bool) (*domain.Upload, *domain.Summary, error) {
	path, filename, err := s.Blobs.Save(in.OriginalFilename, in.Content)
	if err != nil {
		return nil, nil, err
	}

	upload := &domain.Upload{
		Filename:         filename,
		OriginalFilename: in.OriginalFilename,
		ContentHash:      hash,
		PromptTemplateID: &promptID,
		SessionID:        in.SessionID,
		BlobPath:         path,
		SizeBytes:        int64(len(in.Content)),
		CacheHit:         cacheHit,
	}
	summary := &domain.Summary{
		PromptTemplateID: &promptID,
		ContentHash:      hash,
		Text:             summaryText,
		PageCount:        pageCount,
		CharCount:        charCount,
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.CreateUpload(ctx, tx, upload); err != nil {
			return err
		}
		summary.UploadID = upload.ID
		return repo.CreateSummary(ctx, tx, summary)
	})
	if err != nil {
		if derr := s.Blobs.Delete(path); derr != nil && !errors.Is(derr, blob.ErrNotFound) {
			log.Warn().Err(derr).Str("blob_path", path).Msg("orphaned blob after failed transaction")
		}
		return nil, nil, err
	}

	log.Info().
		Str("upload_id", upload.ID).
		Str("filename", in.OriginalFilename).
		Int64("size_bytes", upload.SizeBytes).
		Bool("cache_hit", cacheHit).
		Str("session_id", shortID(in.SessionID)).
		Msg("upload stored")
	return upload, summary, nil
}

// resolvePrompt loads the selected template, or the system default when none
// is selected. Inactive templates cannot be selected for new uploads.
func (s *UploadService) resolvePrompt(ctx context.Context, id string) (*domain.PromptTemplate, error) {
	if strings.TrimSpace(id) == "" {
		p, err := repo.GetDefaultPrompt(ctx, s.DB)
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNoActivePrompt
		}
		return p, err
	}
	p, err := repo.GetPrompt(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrPromptNotFound
	}
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, ErrPromptInactive
	}
	return p, nil
}

// ListMine returns a page of the session's own uploads plus the total count.
func (s *UploadService) ListMine(ctx context.Context, sessionID string, page, pageSize int) ([]domain.Upload, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	total, err := repo.CountUploadsBySession(ctx, s.DB, sessionID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Upload{}, 0, nil
	}
	items, err := repo.ListUploadsBySession(ctx, s.DB, sessionID, (page-1)*pageSize, pageSize)
	return items, total, err
}

// Get returns one upload (with summaries) scoped to the owning session.
func (s *UploadService) Get(ctx context.Context, id, sessionID string) (*domain.Upload, error) {
	u, err := repo.GetUpload(ctx, s.DB, id, sessionID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUploadNotFound
	}
	return u, err
}

// ListAllSummaries returns a page across all sessions plus the total count.
func (s *UploadService) ListAllSummaries(ctx context.Context, page, pageSize int) ([]domain.Summary, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	total, err := repo.CountSummaries(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Summary{}, 0, nil
	}
	items, err := repo.ListSummariesPage(ctx, s.DB, (page-1)*pageSize, pageSize)
	return items, total, err
}

// BuildDownload renders a summary as a plain-text attachment: a small header
// describing the source document followed by the summary body. It returns the
// suggested download name and the file contents.
func (s *UploadService) BuildDownload(ctx context.Context, summaryID string) (string, []byte, error) {
	sum, err := repo.GetSummary(ctx, s.DB, summaryID)
	if errors.Is(err, repo.ErrNotFound) {
		return "", nil, ErrSummaryNotFound
	}
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.WriteString("Summary of: " + sum.Upload.OriginalFilename + "\n")
	b.WriteString("Generated: " + sum.CreatedAt.UTC().Format("2006-01-02 15:04:05") + "\n")
	b.WriteString("Pages: " + strconv.Itoa(sum.PageCount) + "\n")
	b.WriteString("Original document characters: " + strconv.Itoa(sum.CharCount) + "\n")
	if sum.Upload.CacheHit {
		b.WriteString("Source: Cached summary\n")
	}
	b.WriteString("\n" + strings.Repeat("=", 80) + "\n\n")
	b.WriteString(sum.Text)

	base := strings.TrimSuffix(sum.Upload.OriginalFilename, ".pdf")
	name := "summary_" + base + ".txt"
	return name, []byte(b.String()), nil
}

func validateInput(in ProcessInput) error {
	if len(in.Content) == 0 {
		return ErrEmptyDocument
	}
	if !strings.HasSuffix(strings.ToLower(in.OriginalFilename), ".pdf") {
		return ErrUnsupportedFile
	}
	return nil
}

// checkSize enforces the configured size ceiling. The HTTP layer also caps
// bodies via http.MaxBytesReader; this is the service-level backstop.
func (s *UploadService) checkSize(n int64) error {
	if s.MaxUploadBytes > 0 && n > s.MaxUploadBytes {
		return ErrDocumentTooLarge
	}
	return nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return page, pageSize
}

// shortID truncates opaque ids for log lines.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
