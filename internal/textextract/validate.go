package textextract

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"porttariff/internal/domain"
)

// ValidateUpload checks the declared name and size of a document before any
// extraction work. maxBytes <= 0 selects domain.MaxDocumentSizeBytes.
func ValidateUpload(name string, size, maxBytes int64) (domain.FileType, error) {
	if maxBytes <= 0 {
		maxBytes = domain.MaxDocumentSizeBytes
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	fileType, ok := domain.AllowedExtensions[ext]
	if !ok {
		return "", domain.NewValidationError("extension", fmt.Sprintf("%q is not a supported document type", ext), domain.ErrUnsupportedFileType)
	}
	if size == 0 {
		return "", domain.NewValidationError("size", "file is empty", domain.ErrEmptyFile)
	}
	if size > maxBytes {
		return "", domain.NewValidationError("size", fmt.Sprintf("%d bytes exceeds the %d byte limit", size, maxBytes), domain.ErrFileTooLarge)
	}
	return fileType, nil
}

// ValidateContent checks the magic bytes of content against the declared type.
func ValidateContent(content []byte, fileType domain.FileType) error {
	n := len(content)
	if n > 512 {
		n = 512
	}
	detected := http.DetectContentType(content[:n])
	if fileType == domain.FileTypePDF && detected != "application/pdf" {
		return domain.NewValidationError("content", fmt.Sprintf("content detected as %s", detected), domain.ErrUnsupportedFileType)
	}
	return nil
}

// NewRawDocument validates an in-memory upload and wraps it as a RawDocument.
func NewRawDocument(name string, content []byte, maxBytes int64) (domain.RawDocument, error) {
	fileType, err := ValidateUpload(name, int64(len(content)), maxBytes)
	if err != nil {
		return domain.RawDocument{}, err
	}
	if err := ValidateContent(content, fileType); err != nil {
		return domain.RawDocument{}, err
	}
	return domain.RawDocument{
		Name:     filepath.Base(name),
		FileType: fileType,
		Content:  content,
		Size:     int64(len(content)),
	}, nil
}

// LoadFile validates a document on disk (existence, readability, extension,
// size) and reads it.
func LoadFile(path string, maxBytes int64) (domain.RawDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.RawDocument{}, domain.NewValidationError("path", path+" does not exist", domain.ErrFileNotFound)
		}
		return domain.RawDocument{}, domain.NewValidationError("path", err.Error(), domain.ErrFileUnreadable)
	}
	if info.IsDir() {
		return domain.RawDocument{}, domain.NewValidationError("path", path+" is a directory", domain.ErrFileUnreadable)
	}
	if _, err := ValidateUpload(path, info.Size(), maxBytes); err != nil {
		return domain.RawDocument{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return domain.RawDocument{}, domain.NewValidationError("path", err.Error(), domain.ErrFileUnreadable)
	}
	defer func() { _ = f.Close() }()

	content, err := io.ReadAll(f)
	if err != nil {
		return domain.RawDocument{}, domain.NewValidationError("path", err.Error(), domain.ErrFileUnreadable)
	}
	return NewRawDocument(path, content, maxBytes)
}
