package extraction

import (
	"errors"
	"fmt"
)

// Common extraction errors
var (
	// ErrEmptyDocument is returned when there are no bytes to extract from.
	ErrEmptyDocument = errors.New("empty document")

	// ErrUnsupportedMedia is returned for documents that are neither PDF nor image.
	ErrUnsupportedMedia = errors.New("unsupported media type")

	// ErrCanceled is returned when the caller's context ends mid-extraction.
	ErrCanceled = errors.New("extraction was canceled")
)

// ExtractionError wraps errors with the operation that produced them.
type ExtractionError struct {
	// Op is the operation that failed (e.g., "ExtractPDF").
	Op string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

func canceled(op string, cause error) error {
	return &ExtractionError{Op: op, Err: errors.Join(ErrCanceled, cause)}
}
