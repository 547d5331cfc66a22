package pattern

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"porttariff/internal/domain"
)

var (
	canonicalCharges = func() map[domain.ChargeType]bool {
		m := map[domain.ChargeType]bool{domain.ChargeOther: true}
		for _, r := range chargeRules {
			m[r.code] = true
		}
		return m
	}()
	canonicalUnits = func() map[domain.TariffUnit]bool {
		m := map[domain.TariffUnit]bool{}
		for _, r := range unitRules {
			m[r.code] = true
		}
		return m
	}()
	supportedCurrencies = func() map[string]bool {
		m := map[string]bool{}
		for _, c := range domain.SupportedCurrencies {
			m[c] = true
		}
		return m
	}()
)

func asCode(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

// LookupChargeType resolves a canonical code or free text against the charge table.
func LookupChargeType(s string) (domain.ChargeType, bool) {
	if ct := domain.ChargeType(asCode(s)); canonicalCharges[ct] {
		return ct, true
	}
	for _, rule := range chargeRules {
		for _, re := range rule.patterns {
			if re.MatchString(s) {
				return rule.code, true
			}
		}
	}
	return "", false
}

// NormalizeChargeType maps s onto the charge vocabulary, or "other". It is idempotent.
func NormalizeChargeType(s string) domain.ChargeType {
	if ct, ok := LookupChargeType(s); ok {
		return ct
	}
	return domain.ChargeOther
}

// LookupUnit resolves a canonical code or free text against the unit table.
// Bare bases such as "GRT" or "day" are read as "per GRT", "per day".
func LookupUnit(s string) (domain.TariffUnit, bool) {
	if u := domain.TariffUnit(asCode(s)); canonicalUnits[u] {
		return u, true
	}
	if u, ok := matchUnit(s); ok {
		return u, true
	}
	return matchUnit("per " + strings.TrimSpace(s))
}

func matchUnit(s string) (domain.TariffUnit, bool) {
	for _, rule := range unitRules {
		for _, re := range rule.patterns {
			if re.MatchString(s) {
				return rule.code, true
			}
		}
	}
	return "", false
}

// NormalizeUnit maps s onto the unit vocabulary, or "lumpsum". It is idempotent.
func NormalizeUnit(s string) domain.TariffUnit {
	if u, ok := LookupUnit(s); ok {
		return u
	}
	return domain.UnitLumpsum
}

// LookupCurrency resolves an ISO code, symbol or currency word.
func LookupCurrency(s string) (string, bool) {
	if code := strings.ToUpper(strings.TrimSpace(s)); supportedCurrencies[code] {
		return code, true
	}
	for _, rule := range currencyRules {
		for _, re := range rule.patterns {
			if re.MatchString(s) {
				return rule.code, true
			}
		}
	}
	return "", false
}

// NormalizeCurrency maps s onto an ISO-4217 code. Unrecognised three-letter
// codes are upper-cased and kept so validation can report them; anything else
// becomes USD. It is idempotent.
func NormalizeCurrency(s string) string {
	if code, ok := LookupCurrency(s); ok {
		return code
	}
	if t := strings.TrimSpace(s); len(t) == 3 && isASCIILetters(t) {
		return strings.ToUpper(t)
	}
	return domain.DefaultCurrency
}

func isASCIILetters(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i] | 0x20
		if c < 'a' || c > 'z' {
			return false
		}
	}
	return true
}

// ParseAmount parses a numeric amount after stripping thousands separators.
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = strings.NewReplacer(",", "", " ", "").Replace(strings.TrimSpace(s))
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseSizeRange detects "X - Y GRT", "up to X GRT" and "over X GRT" ranges.
// Open-ended ranges set only one bound.
func ParseSizeRange(text string) (lo, hi *int64) {
	if m := boundedRange.FindStringSubmatch(text); m != nil {
		l, okLo := parseInt(m[1])
		h, okHi := parseInt(m[2])
		if okLo && okHi {
			return &l, &h
		}
	}
	if m := upperBound.FindStringSubmatch(text); m != nil {
		if v, ok := parseInt(m[1]); ok {
			return nil, &v
		}
	}
	if m := lowerBound.FindStringSubmatch(text); m != nil {
		if v, ok := parseInt(m[1]); ok {
			return &v, nil
		}
	}
	return nil, nil
}

var maxInt64 = decimal.NewFromInt(math.MaxInt64)

func parseInt(s string) (int64, bool) {
	d, ok := ParseAmount(s)
	if !ok || !d.IsInteger() || !d.LessThan(maxInt64) {
		return 0, false
	}
	return d.IntPart(), true
}
