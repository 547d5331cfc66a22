// Package pdftext reads the embedded text layer and document information of
// digital PDFs.
package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"porttariff/internal/domain"
	"porttariff/internal/logger"
	"porttariff/internal/port"
)

// Reader implements port.PrimaryExtractor and port.MetadataReader.
type Reader struct {
	logger *zap.Logger
}

// NewReader creates a PDF text layer reader.
func NewReader(log *zap.Logger) *Reader {
	return &Reader{logger: logger.OrNop(log).Named("pdftext")}
}

// ExtractText returns the plain text of every page, one page per block.
// Scanned documents without a text layer yield empty text and the page count.
func (r *Reader) ExtractText(ctx context.Context, content []byte) (res port.TextResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			res, err = port.TextResult{}, fmt.Errorf("pdftext.ExtractText: malformed pdf: %v", rec)
		}
	}()

	doc, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return port.TextResult{}, fmt.Errorf("pdftext.ExtractText: %w", err)
	}

	pages := doc.NumPage()
	var b strings.Builder
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return port.TextResult{}, fmt.Errorf("pdftext.ExtractText: %w", err)
		}
		page := doc.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			r.logger.Debug("failed to extract page text", zap.Int("page", i), zap.Error(err))
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	return port.TextResult{Text: b.String(), Pages: pages}, nil
}

// ReadMetadata reads the Info dictionary. Any failure yields {Pages: 0}.
func (r *Reader) ReadMetadata(content []byte) (meta domain.DocumentMetadata) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Debug("metadata read panicked", zap.Any("panic", rec))
			meta = domain.DocumentMetadata{}
		}
	}()

	doc, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return domain.DocumentMetadata{}
	}

	meta.Pages = doc.NumPage()
	info := doc.Trailer().Key("Info")
	if info.IsNull() {
		return meta
	}
	meta.Title = strings.TrimSpace(info.Key("Title").Text())
	meta.Author = strings.TrimSpace(info.Key("Author").Text())
	if t, ok := ParseDate(info.Key("CreationDate").Text()); ok {
		meta.CreationDate = &t
	}
	return meta
}

var dateLayouts = []string{
	"20060102150405Z07:00",
	"20060102150405Z07",
	"20060102150405",
	"200601021504",
	"2006010215",
	"20060102",
	"200601",
	"2006",
}

// ParseDate parses a PDF date string such as "D:20240315103000+05'30'".
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "D:")
	if s == "" {
		return time.Time{}, false
	}
	if i := strings.IndexByte(s, 'Z'); i >= 0 {
		s = s[:i+1]
	}
	s = strings.ReplaceAll(strings.TrimSuffix(s, "'"), "'", ":")
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
