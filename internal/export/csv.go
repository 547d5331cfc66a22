// Package export renders tariffs as CSV or XLSX for download.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"porttariff/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// Columns is the header row shared by the CSV and XLSX exports.
var Columns = []string{
	"Port",
	"Charge Type",
	"Charge Name",
	"Amount",
	"Currency",
	"Unit",
	"Size Min",
	"Size Max",
	"Conditions",
	"Confidence",
	"Status",
	"Issues",
	"Source Text",
	"Created At",
}

// Writer wraps csv.Writer for exporting tariffs as CSV.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the header row.
func (w *Writer) WriteHeader() error {
	return w.csv.Write(Columns)
}

// WriteTariffs writes one row per persisted tariff.
func (w *Writer) WriteTariffs(tariffs []domain.PortTariff) error {
	for i := range tariffs {
		if err := w.csv.Write(TariffRow(&tariffs[i])); err != nil {
			return err
		}
	}
	return nil
}

// WriteStructured writes one row per structured tariff of a single document.
func (w *Writer) WriteStructured(tariffs []domain.StructuredTariff) error {
	for i := range tariffs {
		if err := w.csv.Write(StructuredRow(&tariffs[i])); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

// TariffRow converts a persisted tariff into a row matching Columns.
func TariffRow(t *domain.PortTariff) []string {
	return []string{
		t.PortID,
		string(t.ChargeType),
		t.ChargeName,
		t.Amount.String(),
		t.Currency,
		string(t.Unit),
		formatBound(t.SizeRangeMin),
		formatBound(t.SizeRangeMax),
		t.Conditions,
		formatConfidence(t.Confidence),
		string(t.Status),
		t.Issues,
		t.SourceText,
		formatTime(t.CreatedAt),
	}
}

// StructuredRow converts a structured tariff into a row matching Columns.
// Port, status and creation time are left empty.
func StructuredRow(t *domain.StructuredTariff) []string {
	return []string{
		"",
		string(t.ChargeType),
		t.ChargeName,
		t.Amount.String(),
		t.Currency,
		string(t.Unit),
		formatBound(t.SizeRangeMin),
		formatBound(t.SizeRangeMax),
		strings.Join(t.Conditions, "; "),
		formatConfidence(t.Confidence),
		"",
		strings.Join(t.Issues, "; "),
		t.SourceText,
		"",
	}
}

func formatBound(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func formatConfidence(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a name for use in Content-Disposition.
// Replaces non-alphanumeric chars (except - _) with _, collapses consecutive
// underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns a sanitized filename for Content-Disposition header.
// Format: {sanitized_port}_tariffs_{YYYY-MM-DD}.{ext}
func BuildFilename(portID, ext string) string {
	date := time.Now().Format("2006-01-02")
	return fmt.Sprintf("%s_tariffs_%s.%s", SanitizeFilename(portID), date, ext)
}
