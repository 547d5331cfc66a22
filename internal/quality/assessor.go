// Package quality scores extracted text for readability and layout structure.
package quality

import (
	"regexp"
	"strings"
	"unicode"

	"porttariff/internal/domain"
)

// Default tier boundaries. Each is an inclusive lower bound.
const (
	FairThreshold      = 0.70
	GoodThreshold      = 0.85
	ExcellentThreshold = 0.95
)

// tableRowRatio is the share of non-empty lines that must look like table rows.
const tableRowRatio = 0.10

// punctuation is the non-alphanumeric allow-list, currency symbols included.
const punctuation = ".,;:!?'\"()[]{}-_/\\@#%&*+=<>|~^`$€£¥₹"

var (
	structurePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?m)^\s*\d+[.)]\s+\S`),
		regexp.MustCompile(`(?m)^\s*[A-Z][A-Za-z0-9 /&()-]{1,60}:\s*`),
		regexp.MustCompile(`(?m)^\s*[-*•●▪]\s+\S`),
		regexp.MustCompile(`(?i)\b(SECTION|CHAPTER|ARTICLE)\b`),
	}
	columnGap = regexp.MustCompile(`\s{2,}`)
)

// Thresholds holds the three ascending tier boundaries.
type Thresholds struct {
	Fair      float64
	Good      float64
	Excellent float64
}

// DefaultThresholds returns the 0.70 / 0.85 / 0.95 boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{Fair: FairThreshold, Good: GoodThreshold, Excellent: ExcellentThreshold}
}

// Tier maps a readability score to its quality tier.
func (t Thresholds) Tier(score float64) domain.QualityTier {
	switch {
	case score >= t.Excellent:
		return domain.TierExcellent
	case score >= t.Good:
		return domain.TierGood
	case score >= t.Fair:
		return domain.TierFair
	default:
		return domain.TierPoor
	}
}

// Assessor scores text. It holds no mutable state and is safe for concurrent use.
type Assessor struct {
	thresholds Thresholds
}

// NewAssessor creates an Assessor with the given thresholds.
func NewAssessor(t Thresholds) *Assessor {
	return &Assessor{thresholds: t}
}

// Thresholds returns the boundaries this assessor grades against.
func (a *Assessor) Thresholds() Thresholds {
	return a.thresholds
}

// Assess computes the readability and structure signals of text.
func (a *Assessor) Assess(text string) domain.QualityAssessment {
	if text == "" {
		return domain.QualityAssessment{Tier: domain.TierPoor}
	}

	var readable, total int
	for _, r := range text {
		total++
		if IsReadable(r) {
			readable++
		}
	}

	score := float64(readable) / float64(total)
	return domain.QualityAssessment{
		ReadableCount:    readable,
		TotalCount:       total,
		ReadabilityScore: score,
		HasStructure:     hasStructure(text),
		HasTableLikeRows: hasTableLikeRows(text),
		Tier:             a.thresholds.Tier(score),
	}
}

// IsReadable reports whether r is in the readable allow-list: Latin letters,
// ASCII digits, whitespace and a fixed punctuation and currency set.
func IsReadable(r rune) bool {
	switch {
	case r >= '0' && r <= '9':
		return true
	case unicode.IsLetter(r):
		return unicode.Is(unicode.Latin, r)
	case r == ' ' || r == '\t' || r == '\n' || r == '\r':
		return true
	}
	return strings.ContainsRune(punctuation, r)
}

func hasStructure(text string) bool {
	for _, re := range structurePatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func hasTableLikeRows(text string) bool {
	var nonEmpty, rows int
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		nonEmpty++
		if len(columnGap.Split(line, -1)) >= 3 {
			rows++
		}
	}
	if nonEmpty == 0 {
		return false
	}
	return float64(rows)/float64(nonEmpty) > tableRowRatio
}
