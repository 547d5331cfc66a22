package validator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"porttariff/internal/domain"
)

// MaxTypicalAmount is the amount above which a tariff is flagged.
var MaxTypicalAmount = decimal.NewFromInt(1_000_000)

// Amounts are stored as NUMERIC(18,4): four decimal places and at most
// fourteen integer digits.
const amountScale = 4

var amountCeiling = decimal.New(1, 14)

// Storable reports whether amount survives rounding to the stored scale as a
// positive value below the column ceiling.
func Storable(amount decimal.Decimal) bool {
	r := amount.Round(amountScale)
	return r.IsPositive() && r.LessThan(amountCeiling)
}

// checkRule adapts a function into a Rule.
type checkRule struct {
	key   string
	layer int
	check func(t *domain.StructuredTariff) []Finding
}

func (r *checkRule) RuleKey() string                            { return r.key }
func (r *checkRule) Layer() int                                 { return r.layer }
func (r *checkRule) Check(t *domain.StructuredTariff) []Finding { return r.check(t) }

// requiredRule reports an issue when a required field is empty.
func requiredRule(key, message string, penalty float64, empty func(t *domain.StructuredTariff) bool) Rule {
	return &checkRule{key: key, layer: 1, check: func(t *domain.StructuredTariff) []Finding {
		if !empty(t) {
			return nil
		}
		return []Finding{{Message: message, Severity: SeverityError, Penalty: penalty}}
	}}
}

// BuiltinRegistry returns the schema (layer 1) and business (layer 2) rules.
func BuiltinRegistry() *Registry {
	r := NewRegistry()

	r.Register(requiredRule("schema.charge_type", "Missing charge type", 0.2, func(t *domain.StructuredTariff) bool {
		return t.ChargeType == ""
	}))
	r.Register(requiredRule("schema.amount", "Invalid amount", 0.3, func(t *domain.StructuredTariff) bool {
		return !t.Amount.IsPositive()
	}))
	r.Register(&checkRule{key: "schema.amount_storable", layer: 1, check: func(t *domain.StructuredTariff) []Finding {
		if !t.Amount.IsPositive() || Storable(t.Amount) {
			return nil
		}
		return []Finding{{
			Message:  fmt.Sprintf("Amount %s cannot be stored", t.Amount.String()),
			Severity: SeverityError,
			Penalty:  0.3,
		}}
	}})
	r.Register(requiredRule("schema.currency", "Missing currency", 0.1, func(t *domain.StructuredTariff) bool {
		return t.Currency == ""
	}))
	r.Register(requiredRule("schema.unit", "Missing unit", 0.1, func(t *domain.StructuredTariff) bool {
		return t.Unit == ""
	}))

	r.Register(&checkRule{key: "business.amount_range", layer: 2, check: func(t *domain.StructuredTariff) []Finding {
		if !t.Amount.GreaterThan(MaxTypicalAmount) {
			return nil
		}
		return []Finding{{
			Message:  fmt.Sprintf("Amount %s exceeds typical range", t.Amount.String()),
			Severity: SeverityWarning,
			Penalty:  0.1,
		}}
	}})
	r.Register(&checkRule{key: "business.currency", layer: 2, check: func(t *domain.StructuredTariff) []Finding {
		if t.Currency == "" || isSupportedCurrency(t.Currency) {
			return nil
		}
		return []Finding{{
			Message:  fmt.Sprintf("Invalid currency: %s", t.Currency),
			Severity: SeverityError,
			Penalty:  0.2,
		}}
	}})
	r.Register(&checkRule{key: "business.size_range", layer: 2, check: func(t *domain.StructuredTariff) []Finding {
		if t.SizeRangeMin == nil || t.SizeRangeMax == nil || *t.SizeRangeMin <= *t.SizeRangeMax {
			return nil
		}
		return []Finding{{Message: "Invalid size range: min > max", Severity: SeverityError, Penalty: 0.2}}
	}})

	return r
}

func isSupportedCurrency(code string) bool {
	for _, c := range domain.SupportedCurrencies {
		if c == code {
			return true
		}
	}
	return false
}
