// Package services defines the business logic for uploads, summaries, and
// prompt templates. This file centralizes common service-level error values
// so that they can be consistently returned by service methods and checked
// by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import "errors"

// Upload-related errors.
var (
	// ErrEmptyDocument is returned when an upload carries no content bytes.
	ErrEmptyDocument = errors.New("document is empty")

	// ErrEmptyText is returned on a cache miss when no extracted text was
	// provided, so there is nothing to send to the summarization gateway.
	ErrEmptyText = errors.New("document text is empty")

	// ErrUnsupportedFile is returned when the upload is not a PDF.
	ErrUnsupportedFile = errors.New("only PDF files are allowed")

	// ErrDocumentTooLarge is returned when the upload exceeds the configured
	// size ceiling.
	ErrDocumentTooLarge = errors.New("document exceeds the size limit")

	// ErrUploadNotFound indicates that the requested upload does not exist
	// or belongs to another session.
	ErrUploadNotFound = errors.New("upload not found")

	// ErrSummaryNotFound indicates that the requested summary does not exist.
	ErrSummaryNotFound = errors.New("summary not found")
)

// Prompt-template errors.
var (
	// ErrPromptNotFound indicates that the referenced template does not exist.
	ErrPromptNotFound = errors.New("prompt template not found")

	// ErrPromptInactive is returned when an upload selects a template that
	// exists but is not active.
	ErrPromptInactive = errors.New("prompt template is not active")

	// ErrNoActivePrompt is returned when no template could be resolved for
	// an upload (no explicit selection and no default).
	ErrNoActivePrompt = errors.New("no active prompt template available")

	// ErrPromptNameTaken is returned when a template name collides with an
	// existing one.
	ErrPromptNameTaken = errors.New("prompt template name already exists")

	// ErrPromptInvalid is returned when template fields fail validation
	// (blank name/text, or text over the length cap).
	ErrPromptInvalid = errors.New("prompt template is invalid")

	// ErrPromptInUse is returned when deleting a template that summaries
	// still reference.
	ErrPromptInUse = errors.New("prompt template is referenced by summaries")
)
