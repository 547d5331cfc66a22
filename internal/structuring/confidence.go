package structuring

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"porttariff/internal/domain"
	"porttariff/internal/pattern"
)

// Scoring policy for LLM-structured tariffs. Confidence starts high and is
// reduced for every signal of an unreliable item.
const (
	BaseConfidence           = 0.95
	MissingFieldPenalty      = 0.10
	UntraceableAmountPenalty = 0.15
	UnknownUnitPenalty       = 0.10
	OtherChargePenalty       = 0.20
	UnverifiedSourcePenalty  = 0.20
	HighAmountPenalty        = 0.10
)

// HighAmountLimit is the amount above which a tariff is treated as implausible.
var HighAmountLimit = decimal.NewFromInt(1_000_000)

var numberInText = regexp.MustCompile(`\d+(?:\.\d+)?`)

// score computes the confidence and issues of one LLM tariff against the
// document text it was structured from.
func score(t llmTariff, text string) domain.StructuredTariff {
	c := t.candidate
	conf := BaseConfidence
	issues := []string{}
	penalize := func(amount float64, issue string) {
		conf -= amount
		issues = append(issues, issue)
	}

	if c.ChargeName == "" {
		penalize(MissingFieldPenalty, "missing charge name")
	}
	if c.SourceText == "" {
		penalize(MissingFieldPenalty, "missing source text")
	} else if !amountInText(c.Amount, c.SourceText) {
		penalize(UntraceableAmountPenalty, fmt.Sprintf("amount %s not found in source text", c.Amount.String()))
	}
	if _, ok := pattern.LookupUnit(t.rawUnit); !ok {
		penalize(UnknownUnitPenalty, fmt.Sprintf("unrecognised unit %q, defaulted to %s", t.rawUnit, domain.UnitLumpsum))
	}
	if c.ChargeType == domain.ChargeOther {
		penalize(OtherChargePenalty, "charge type not recognised, classified as other")
	}
	if c.SourceText != "" && !strings.Contains(text, c.SourceText) {
		penalize(UnverifiedSourcePenalty, "source text not found in document")
	}
	if c.Amount.GreaterThan(HighAmountLimit) {
		penalize(HighAmountPenalty, fmt.Sprintf("amount %s is unusually high", c.Amount.String()))
	}

	c.Confidence = clamp(conf)
	return domain.StructuredTariff{TariffCandidate: c, Issues: issues}
}

// amountInText reports whether any number written in s equals amount.
func amountInText(amount decimal.Decimal, s string) bool {
	for _, m := range numberInText.FindAllString(strings.ReplaceAll(s, ",", ""), -1) {
		if d, err := decimal.NewFromString(m); err == nil && d.Equal(amount) {
			return true
		}
	}
	return false
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
