// Package pattern extracts tariff line items from text with ordered regex
// tables and normalizes charge types, currencies and units.
package pattern

import (
	"strings"

	"github.com/shopspring/decimal"

	"porttariff/internal/domain"
)

const (
	baseConfidence     = 0.5
	chargeTypeBonus    = 0.2
	amountBonus        = 0.2
	explicitFieldBonus = 0.05
)

// Extractor is the deterministic, line-oriented tariff extractor. It has no
// state and is safe for concurrent use.
type Extractor struct{}

// NewExtractor creates an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractTariffs evaluates every non-blank line independently and returns at
// most one candidate per line.
func (e *Extractor) ExtractTariffs(text string) []domain.TariffCandidate {
	out := []domain.TariffCandidate{}
	for _, line := range strings.Split(text, "\n") {
		if c, ok := extractLine(line); ok {
			out = append(out, c)
		}
	}
	return out
}

func extractLine(raw string) (domain.TariffCandidate, bool) {
	line := strings.TrimSpace(raw)
	if line == "" {
		return domain.TariffCandidate{}, false
	}

	chargeType, matched, ok := matchCharge(line)
	if !ok {
		return domain.TariffCandidate{}, false
	}

	amount, ok := matchAmount(line)
	if !ok {
		return domain.TariffCandidate{}, false
	}

	currency, currencyFound := LookupCurrency(line)
	if !currencyFound {
		currency = domain.DefaultCurrency
	}
	unit, unitFound := matchUnit(line)
	if !unitFound {
		unit = domain.UnitLumpsum
	}
	sizeMin, sizeMax := ParseSizeRange(line)

	return domain.TariffCandidate{
		ChargeType:   chargeType,
		ChargeName:   chargeName(line, matched),
		Amount:       amount,
		Currency:     currency,
		Unit:         unit,
		SizeRangeMin: sizeMin,
		SizeRangeMax: sizeMax,
		Conditions:   conditions(line),
		SourceText:   line,
		Confidence:   score(line, currency, unit),
	}, true
}

func matchCharge(line string) (domain.ChargeType, string, bool) {
	for _, rule := range chargeRules {
		for _, re := range rule.patterns {
			if m := re.FindString(line); m != "" {
				return rule.code, m, true
			}
		}
	}
	return "", "", false
}

func matchAmount(line string) (decimal.Decimal, bool) {
	for _, re := range amountPatterns {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		d, ok := ParseAmount(m[1])
		if !ok || !d.IsPositive() {
			return decimal.Zero, false
		}
		return d, true
	}
	return decimal.Zero, false
}

// score builds confidence up from the base. Currency and unit only earn
// their bonus when they resolve to something other than the defaults.
func score(line, currency string, unit domain.TariffUnit) float64 {
	c := baseConfidence + chargeTypeBonus + amountBonus
	if currency != domain.DefaultCurrency {
		c += explicitFieldBonus
	}
	if unit != domain.UnitLumpsum {
		c += explicitFieldBonus
	}
	if c > 1 {
		c = 1
	}
	for _, p := range hedgePenalties {
		if p.re.MatchString(line) {
			c -= p.amount
		}
	}
	return clamp(c)
}

func clamp(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}

func chargeName(line, matched string) string {
	if i := strings.Index(line, ":"); i > 0 {
		if name := strings.TrimSpace(line[:i]); name != "" {
			return name
		}
	}
	return matched
}

func conditions(line string) []string {
	out := []string{}
	seen := map[string]bool{}
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, m := range parenthetical.FindAllStringSubmatch(line, -1) {
		add(m[1])
	}
	for _, m := range conditionClause.FindAllString(line, -1) {
		add(m)
	}
	return out
}
