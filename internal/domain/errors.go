package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("resource not found")
	ErrFileNotFound        = errors.New("file does not exist")
	ErrFileUnreadable      = errors.New("file is not readable")
	ErrEmptyFile           = errors.New("file is empty")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrInvalidPortID       = errors.New("invalid port id")
	ErrEmptyText           = errors.New("text is required")
	ErrUploadFailed        = errors.New("file upload to storage failed")
	ErrDocumentExists      = errors.New("document already ingested for this port")
	ErrStorageDisabled     = errors.New("object storage is not configured")
	ErrNothingToApprove    = errors.New("document has no tariffs awaiting review")
)

// ValidationError reports a pre-flight rejection of an input document.
// It is the only hard error the extraction pipeline surfaces to callers.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a ValidationError wrapping one of the sentinel errors above.
func NewValidationError(field, reason string, err error) *ValidationError {
	return &ValidationError{Field: field, Reason: reason, Err: err}
}
