package port

import (
	"context"

	"porttariff/internal/domain"
)

// TextResult is the raw output of a text extraction backend.
type TextResult struct {
	Text  string
	Pages int
}

// PrimaryExtractor reads the text layer of a document. Malformed input should
// yield empty text; returned errors are treated the same way by callers.
type PrimaryExtractor interface {
	ExtractText(ctx context.Context, content []byte) (TextResult, error)
}

// OCRExtractor recognises text from rendered page images.
type OCRExtractor interface {
	ExtractText(ctx context.Context, content []byte) (TextResult, error)
}

// MetadataReader reads best-effort document metadata. It never fails; an
// unreadable document yields a zero DocumentMetadata.
type MetadataReader interface {
	ReadMetadata(content []byte) domain.DocumentMetadata
}
