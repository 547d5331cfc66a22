// Package validator checks structured tariffs against schema and business
// rules and decides how each one is routed.
package validator

import (
	"porttariff/internal/domain"
)

// Severity decides whether a failed check is an issue or a warning.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is one failed check.
type Finding struct {
	Message  string
	Severity Severity
	Penalty  float64
}

// Rule is a single tariff validation rule.
type Rule interface {
	Check(t *domain.StructuredTariff) []Finding
	RuleKey() string
	Layer() int
}

// Routing thresholds.
const (
	DefaultValidThreshold      = 0.7
	DefaultAutoImportThreshold = 0.8
)

// Validator runs every registered rule over a tariff.
type Validator struct {
	registry            *Registry
	validThreshold      float64
	autoImportThreshold float64
}

// New creates a Validator over the built-in rules. A non-positive
// autoImportThreshold uses DefaultAutoImportThreshold.
func New(autoImportThreshold float64) *Validator {
	return NewWithRegistry(BuiltinRegistry(), autoImportThreshold)
}

// NewWithRegistry creates a Validator over a custom rule set.
func NewWithRegistry(registry *Registry, autoImportThreshold float64) *Validator {
	if autoImportThreshold <= 0 {
		autoImportThreshold = DefaultAutoImportThreshold
	}
	return &Validator{
		registry:            registry,
		validThreshold:      DefaultValidThreshold,
		autoImportThreshold: autoImportThreshold,
	}
}

// AutoImportThreshold returns the confidence needed for automatic import.
func (v *Validator) AutoImportThreshold() float64 {
	return v.autoImportThreshold
}

// Validate applies the rules layer by layer. Each finding lowers the
// tariff's confidence by its penalty. A tariff is valid when it has no issues
// and its adjusted confidence is at least 0.7.
func (v *Validator) Validate(t *domain.StructuredTariff) domain.ValidationResult {
	res := domain.ValidationResult{Issues: []string{}, Warnings: []string{}}
	conf := t.Confidence

	for _, rule := range v.registry.All() {
		for _, f := range rule.Check(t) {
			conf -= f.Penalty
			if f.Severity == SeverityWarning {
				res.Warnings = append(res.Warnings, f.Message)
			} else {
				res.Issues = append(res.Issues, f.Message)
			}
		}
	}

	res.IsValid = len(res.Issues) == 0 && conf >= v.validThreshold
	res.Confidence = clamp(conf)
	res.Action = v.route(res)
	return res
}

func (v *Validator) route(res domain.ValidationResult) domain.ValidationAction {
	switch {
	case len(res.Issues) > 0:
		return domain.ActionReject
	case res.IsValid && len(res.Warnings) == 0 && res.Confidence >= v.autoImportThreshold:
		return domain.ActionAutoImport
	case res.IsValid || len(res.Warnings) > 0:
		return domain.ActionReview
	default:
		return domain.ActionReject
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
