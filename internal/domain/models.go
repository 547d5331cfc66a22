package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RawDocument is an immutable extraction input. It is consumed once and never mutated.
type RawDocument struct {
	Name     string
	FileType FileType
	Content  []byte
	Size     int64
}

// DocumentMetadata is best-effort information read from the document itself.
type DocumentMetadata struct {
	Title        string     `json:"title,omitempty"`
	Author       string     `json:"author,omitempty"`
	CreationDate *time.Time `json:"creation_date,omitempty"`
	Pages        int        `json:"pages"`
}

// ExtractionResult is the output of the text extraction stage.
type ExtractionResult struct {
	Text        string           `json:"text"`
	Method      ExtractionMethod `json:"method"`
	Confidence  float64          `json:"confidence"`
	PageCount   int              `json:"page_count"`
	ElapsedMs   int64            `json:"elapsed_ms"`
	QualityTier QualityTier      `json:"quality_tier"`
}

// QualityAssessment scores extracted text for readability and structure.
type QualityAssessment struct {
	ReadableCount    int         `json:"readable_count"`
	TotalCount       int         `json:"total_count"`
	ReadabilityScore float64     `json:"readability_score"`
	HasStructure     bool        `json:"has_structure"`
	HasTableLikeRows bool        `json:"has_table_like_rows"`
	Tier             QualityTier `json:"tier"`
}

// TariffCandidate is a single tariff line item recognised in text.
type TariffCandidate struct {
	ChargeType   ChargeType      `json:"charge_type"`
	ChargeName   string          `json:"charge_name"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Unit         TariffUnit      `json:"unit"`
	SizeRangeMin *int64          `json:"size_range_min,omitempty"`
	SizeRangeMax *int64          `json:"size_range_max,omitempty"`
	Conditions   []string        `json:"conditions"`
	SourceText   string          `json:"source_text"`
	Confidence   float64         `json:"confidence"`
}

// StructuredTariff is a TariffCandidate plus the reasons its confidence was reduced.
type StructuredTariff struct {
	TariffCandidate
	Issues []string `json:"issues"`
}

// StructuringResult is the output of the structuring stage for one document.
type StructuringResult struct {
	Tariffs           []StructuredTariff `json:"tariffs"`
	OverallConfidence float64            `json:"overall_confidence"`
	ElapsedMs         int64              `json:"elapsed_ms"`
	Source            StructuringSource  `json:"source"`
}

// NewStructuringResult builds a result whose overall confidence is the mean of the
// tariff confidences, or exactly 0 for an empty list.
func NewStructuringResult(tariffs []StructuredTariff, source StructuringSource, elapsed time.Duration) StructuringResult {
	if tariffs == nil {
		tariffs = []StructuredTariff{}
	}
	return StructuringResult{
		Tariffs:           tariffs,
		OverallConfidence: MeanConfidence(tariffs),
		ElapsedMs:         elapsed.Milliseconds(),
		Source:            source,
	}
}

// EmptyStructuringResult is the zero-confidence result used for isolated failures.
func EmptyStructuringResult() StructuringResult {
	return StructuringResult{Tariffs: []StructuredTariff{}, Source: SourceNone}
}

// MeanConfidence returns the arithmetic mean of tariff confidences (0 when empty).
func MeanConfidence(tariffs []StructuredTariff) float64 {
	if len(tariffs) == 0 {
		return 0
	}
	var sum float64
	for i := range tariffs {
		sum += tariffs[i].Confidence
	}
	return sum / float64(len(tariffs))
}

// BatchDocument is one entry of a structuring batch.
type BatchDocument struct {
	ID   string `json:"id" binding:"required"`
	Text string `json:"text"`
}

// BatchResult maps document identifiers to their structuring result.
type BatchResult map[string]StructuringResult

// ValidationResult is the outcome of business validation of a structured tariff.
type ValidationResult struct {
	IsValid    bool             `json:"is_valid"`
	Confidence float64          `json:"confidence"`
	Issues     []string         `json:"issues"`
	Warnings   []string         `json:"warnings"`
	Action     ValidationAction `json:"action"`
}

// TariffDocument records one ingested source document for a port.
type TariffDocument struct {
	ID                uuid.UUID        `db:"id" json:"id"`
	PortID            string           `db:"port_id" json:"port_id"`
	FileName          string           `db:"file_name" json:"file_name"`
	DocumentHash      string           `db:"document_hash" json:"document_hash"`
	ExtractionMethod  ExtractionMethod `db:"extraction_method" json:"extraction_method"`
	QualityTier       QualityTier      `db:"quality_tier" json:"quality_tier"`
	PageCount         int              `db:"page_count" json:"page_count"`
	Title             string           `db:"title" json:"title"`
	OverallConfidence float64          `db:"overall_confidence" json:"overall_confidence"`
	TariffCount       int              `db:"tariff_count" json:"tariff_count"`
	StorageKey        string           `db:"storage_key" json:"storage_key,omitempty"`
	CreatedAt         time.Time        `db:"created_at" json:"created_at"`
}

// PortTariff is a persisted tariff row.
type PortTariff struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	DocumentID   uuid.UUID       `db:"document_id" json:"document_id"`
	PortID       string          `db:"port_id" json:"port_id"`
	ChargeType   ChargeType      `db:"charge_type" json:"charge_type"`
	ChargeName   string          `db:"charge_name" json:"charge_name"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	Currency     string          `db:"currency" json:"currency"`
	Unit         TariffUnit      `db:"unit" json:"unit"`
	SizeRangeMin *int64          `db:"size_range_min" json:"size_range_min,omitempty"`
	SizeRangeMax *int64          `db:"size_range_max" json:"size_range_max,omitempty"`
	Conditions   string          `db:"conditions" json:"conditions"`
	SourceText   string          `db:"source_text" json:"source_text"`
	Confidence   float64         `db:"confidence" json:"confidence"`
	Issues       string          `db:"issues" json:"issues"`
	Status       TariffStatus    `db:"status" json:"status"`
	EffectiveTo  *time.Time      `db:"effective_to" json:"effective_to,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// IngestionReport summarises one ingestion run.
type IngestionReport struct {
	DocumentID        uuid.UUID         `json:"document_id"`
	PortID            string            `json:"port_id"`
	FileName          string            `json:"file_name"`
	DocumentHash      string            `json:"document_hash"`
	Skipped           bool              `json:"skipped"`
	Extraction        ExtractionResult  `json:"extraction"`
	Metadata          DocumentMetadata  `json:"metadata"`
	StructuringSource StructuringSource `json:"structuring_source"`
	OverallConfidence float64           `json:"overall_confidence"`
	TariffsExtracted  int               `json:"tariffs_extracted"`
	TariffsImported   int               `json:"tariffs_imported"`
	TariffsForReview  int               `json:"tariffs_for_review"`
	TariffsRejected   int               `json:"tariffs_rejected"`
	TariffsExpired    int64             `json:"tariffs_expired"`
	Statistics        IngestionStats    `json:"statistics"`
	Changes           *TariffChanges    `json:"changes,omitempty"`
	Warnings          []string          `json:"warnings"`
}

// IngestionStats summarises the validation outcomes of one document.
type IngestionStats struct {
	AverageConfidence float64 `json:"average_confidence"`
	AutoImportRate    float64 `json:"auto_import_rate"`
	ValidationRate    float64 `json:"validation_rate"`
}

// NewIngestionStats computes the mean validated confidence, the share of
// tariffs routed to auto import and the share that passed validation.
func NewIngestionStats(results []ValidationResult) IngestionStats {
	if len(results) == 0 {
		return IngestionStats{}
	}
	var conf float64
	var auto, valid int
	for _, r := range results {
		conf += r.Confidence
		if r.Action == ActionAutoImport {
			auto++
		}
		if r.IsValid {
			valid++
		}
	}
	n := float64(len(results))
	return IngestionStats{
		AverageConfidence: conf / n,
		AutoImportRate:    float64(auto) / n,
		ValidationRate:    float64(valid) / n,
	}
}

// TariffRef identifies a tariff in a change report.
type TariffRef struct {
	ChargeType   ChargeType      `json:"charge_type"`
	ChargeName   string          `json:"charge_name,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Unit         TariffUnit      `json:"unit"`
	SizeRangeMin *int64          `json:"size_range_min,omitempty"`
	SizeRangeMax *int64          `json:"size_range_max,omitempty"`
}

// PriceChange is a tariff whose amount differs from the active one it replaces.
type PriceChange struct {
	TariffRef
	OldAmount     decimal.Decimal `json:"old_amount"`
	PercentChange float64         `json:"percent_change"`
}

// TariffChanges compares a newly structured document with the port's active
// tariffs. Tariffs are matched on charge type and size range.
type TariffChanges struct {
	Added    []TariffRef   `json:"added"`
	Modified []PriceChange `json:"modified"`
	Removed  []TariffRef   `json:"removed"`
}

// HasChanges reports whether anything was added, modified or removed.
func (c *TariffChanges) HasChanges() bool {
	return len(c.Added)+len(c.Modified)+len(c.Removed) > 0
}

// ApprovalResult reports the outcome of approving a document under review.
type ApprovalResult struct {
	DocumentID uuid.UUID `json:"document_id"`
	PortID     string    `json:"port_id"`
	Approved   int64     `json:"approved"`
	Expired    int64     `json:"expired"`
}
