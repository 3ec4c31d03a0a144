// Package domain defines the persistence models for uploads, summaries, and
// prompt templates. These types are mapped with GORM and form the core data
// layer of the summarizer backend.
package domain

import (
	"time"
)

// Upload represents a single uploaded document. Every upload keeps its own
// blob on disk, even when its summary was served from the cache: a cache hit
// still records a new upload event, it just skips the external call.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Filename: unique on-disk name assigned at save time.
//   - OriginalFilename: name the client supplied, kept for display/download.
//   - ContentHash: SHA-256 hex digest of the raw bytes; indexed but NOT
//     unique; multiple uploads may share the same content.
//   - PromptTemplateID: template the caller selected; nullable so legacy
//     rows (pre-templates) remain loadable.
//   - SessionID: opaque client token scoping "my uploads" queries; indexed.
//   - BlobPath: location of the stored bytes in the blob store. Resolves to
//     exactly one file for the lifetime of the row.
//   - SizeBytes: size of the stored blob.
//   - CacheHit: true when the summary was reused rather than freshly computed.
type Upload struct {
	ID               string    `json:"id"                 gorm:"type:char(36);primaryKey"`
	Filename         string    `json:"filename"           gorm:"type:varchar(255);not null"`
	OriginalFilename string    `json:"original_filename"  gorm:"type:varchar(255);not null"`
	ContentHash      string    `json:"content_hash"       gorm:"type:char(64);not null;index:idx_upload_hash"`
	PromptTemplateID *string   `json:"prompt_template_id" gorm:"type:char(36);index"`
	SessionID        string    `json:"session_id"         gorm:"type:varchar(64);not null;index:idx_session_uploads"`
	BlobPath         string    `json:"-"                  gorm:"type:varchar(500);not null"`
	SizeBytes        int64     `json:"size_bytes"`
	CacheHit         bool      `json:"cache_hit"`
	CreatedAt        time.Time `json:"created_at"         gorm:"index"`
	UpdatedAt        time.Time `json:"updated_at"`

	// Summaries are cascade-deleted when the upload is removed.
	Summaries []Summary `json:"summaries,omitempty" gorm:"foreignKey:UploadID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Upload.
func (Upload) TableName() string { return "uploads" }

// Summary represents a generated (or cache-copied) summary for an upload.
// Rows are immutable after creation and live exactly as long as their owning
// upload: deleting the upload cascades to its summaries, and a summary is
// never deleted on its own.
//
// ContentHash and PromptTemplateID are denormalized onto the summary so the
// cache index can answer "does a summary already exist for this
// (hash, template) pair" with a single indexed query.
type Summary struct {
	ID               string    `json:"id"                 gorm:"type:char(36);primaryKey"`
	UploadID         string    `json:"upload_id"          gorm:"type:char(36);not null;index"`
	PromptTemplateID *string   `json:"prompt_template_id" gorm:"type:char(36);index:idx_summary_cache_key,priority:2"`
	ContentHash      string    `json:"-"                  gorm:"type:char(64);not null;index:idx_summary_cache_key,priority:1"`
	Text             string    `json:"text"               gorm:"type:text;not null"`
	PageCount        int       `json:"page_count"`
	CharCount        int       `json:"char_count"`
	CreatedAt        time.Time `json:"created_at"`

	// Upload is the owning upload record.
	Upload Upload `json:"-" gorm:"foreignKey:UploadID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Summary.
func (Summary) TableName() string { return "summaries" }

// PromptTemplate is a reusable summarization prompt. Templates are referenced
// by id everywhere (cache keys, summaries) and never embedded by value, so
// editing a template's text does not retroactively reinterpret summaries
// produced under the old text.
//
// At most one template is the system default (IsDefault). Active templates
// are the only ones selectable for new uploads.
type PromptTemplate struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Name      string    `json:"name"       gorm:"type:varchar(100);not null;uniqueIndex:ux_prompt_name"`
	Text      string    `json:"text"       gorm:"type:text;not null"`
	Active    bool      `json:"active"     gorm:"not null;index"`
	IsDefault bool      `json:"is_default" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for PromptTemplate.
func (PromptTemplate) TableName() string { return "prompt_templates" }
