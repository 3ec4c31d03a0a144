// Package summarizer defines the external summarization gateway consumed by
// the upload pipeline, plus its Anthropic-backed implementation. The gateway
// is invoked only on cache miss; the core performs no retries; a failed call
// surfaces to the caller as a failed request.
package summarizer

import (
	"context"
	"errors"
	"fmt"
)

// Result is the outcome of a successful summarization call.
type Result struct {
	Text         string
	InputTokens  int64
	OutputTokens int64
}

// Gateway is the external collaborator that turns document text into a
// summary under a given prompt. Implementations must be safe for concurrent
// use and honor the context for cancellation.
type Gateway interface {
	Summarize(ctx context.Context, text, promptText string) (Result, error)
}

// GatewayError wraps any failure of the external call: timeouts, upstream
// quota exhaustion, or a malformed response. Callers detect it with
// errors.As / IsGatewayError and map it to a request failure.
type GatewayError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	return fmt.Sprintf("summarization gateway: %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *GatewayError) Unwrap() error { return e.Err }

// IsGatewayError reports whether err is (or wraps) a GatewayError.
func IsGatewayError(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge)
}
