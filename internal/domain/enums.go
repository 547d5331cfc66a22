package domain

// FileType represents the document types accepted for extraction.
type FileType string

const (
	FileTypePDF FileType = "pdf"
)

// AllowedExtensions maps file extensions (without dot) to FileType.
var AllowedExtensions = map[string]FileType{
	"pdf": FileTypePDF,
}

// MaxDocumentSizeBytes is the default upload ceiling (50MB).
const MaxDocumentSizeBytes int64 = 50 * 1024 * 1024

// ExtractionMethod records which extractor produced the returned text.
type ExtractionMethod string

const (
	MethodPrimary ExtractionMethod = "primary"
	MethodOCR     ExtractionMethod = "ocr"
)

// QualityTier is a coarse readability bucket.
type QualityTier string

const (
	TierPoor      QualityTier = "poor"
	TierFair      QualityTier = "fair"
	TierGood      QualityTier = "good"
	TierExcellent QualityTier = "excellent"
)

// ChargeType is the normalized category of a tariff line item.
type ChargeType string

const (
	ChargePortDues        ChargeType = "port_dues"
	ChargePilotage        ChargeType = "pilotage"
	ChargeTowage          ChargeType = "towage"
	ChargeBerthHire       ChargeType = "berth_hire"
	ChargeMooring         ChargeType = "mooring"
	ChargeAnchorage       ChargeType = "anchorage"
	ChargeLightDues       ChargeType = "light_dues"
	ChargeWharfage        ChargeType = "wharfage"
	ChargeCanalDues       ChargeType = "canal_dues"
	ChargeAgencyFee       ChargeType = "agency_fee"
	ChargeGarbageDisposal ChargeType = "garbage_disposal"
	ChargeFreshWater      ChargeType = "fresh_water"
	ChargeOther           ChargeType = "other"
)

// TariffUnit is the normalized billing basis of a tariff.
type TariffUnit string

const (
	UnitPerGRT      TariffUnit = "per_grt"
	UnitPerNRT      TariffUnit = "per_nrt"
	UnitPerDay      TariffUnit = "per_day"
	UnitPerHour     TariffUnit = "per_hour"
	UnitPerMovement TariffUnit = "per_movement"
	UnitPerTon      TariffUnit = "per_ton"
	UnitLumpsum     TariffUnit = "lumpsum"
)

// DefaultCurrency is assumed when a tariff line carries no currency marker.
const DefaultCurrency = "USD"

// SupportedCurrencies lists the ISO-4217 codes the pipeline recognises.
var SupportedCurrencies = []string{"USD", "EUR", "GBP", "INR", "SGD", "AED", "JPY", "CNY"}

// StructuringSource records which path produced a StructuringResult.
type StructuringSource string

const (
	SourceLLM             StructuringSource = "llm"
	SourcePatternFallback StructuringSource = "pattern_fallback"
	SourceNone            StructuringSource = "none"
)

// ValidationAction is the routing decision for a validated tariff.
type ValidationAction string

const (
	ActionAutoImport ValidationAction = "auto_import"
	ActionReview     ValidationAction = "review"
	ActionReject     ValidationAction = "reject"
)

// TariffStatus is the lifecycle of a persisted tariff.
type TariffStatus string

const (
	TariffStatusActive  TariffStatus = "active"
	TariffStatusReview  TariffStatus = "review"
	TariffStatusExpired TariffStatus = "expired"
)
