// Package textextract selects between the primary text layer and OCR by
// measured readability, escalating to OCR only when quality is insufficient.
package textextract

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"porttariff/internal/domain"
	"porttariff/internal/logger"
	"porttariff/internal/port"
	"porttariff/internal/quality"
)

// Default policy values.
const (
	DefaultOCRConfidenceFactor = 0.9
	DefaultPrimaryTimeout      = 60 * time.Second
	DefaultOCRTimeout          = 5 * time.Minute
)

// Config tunes the escalation policy.
type Config struct {
	PrimaryTimeout      time.Duration
	OCRTimeout          time.Duration
	OCRConfidenceFactor float64
}

func (c Config) withDefaults() Config {
	if c.PrimaryTimeout <= 0 {
		c.PrimaryTimeout = DefaultPrimaryTimeout
	}
	if c.OCRTimeout <= 0 {
		c.OCRTimeout = DefaultOCRTimeout
	}
	if c.OCRConfidenceFactor <= 0 || c.OCRConfidenceFactor > 1 {
		c.OCRConfidenceFactor = DefaultOCRConfidenceFactor
	}
	return c
}

// Extractor runs the primary extractor first and OCR only when the primary
// text scores below the fair threshold. It never returns an error.
type Extractor struct {
	primary  port.PrimaryExtractor
	ocr      port.OCRExtractor
	assessor *quality.Assessor
	cfg      Config
	logger   *zap.Logger
}

// NewExtractor creates an Extractor. ocr may be nil, in which case low-quality
// primary results are returned flagged as poor.
func NewExtractor(primary port.PrimaryExtractor, ocr port.OCRExtractor, assessor *quality.Assessor, cfg Config, log *zap.Logger) *Extractor {
	if assessor == nil {
		assessor = quality.NewAssessor(quality.DefaultThresholds())
	}
	return &Extractor{
		primary:  primary,
		ocr:      ocr,
		assessor: assessor,
		cfg:      cfg.withDefaults(),
		logger:   logger.OrNop(log).Named("textextract"),
	}
}

type outcomeKind int

const (
	outcomeOK outcomeKind = iota
	outcomeDegraded
)

// outcome is the tagged result of one extraction attempt. A degraded outcome
// carries empty text and the reason the backend produced nothing usable.
type outcome struct {
	kind       outcomeKind
	method     domain.ExtractionMethod
	text       string
	pages      int
	assessment domain.QualityAssessment
	reason     string
}

func (o outcome) score() float64 {
	return o.assessment.ReadabilityScore
}

type textBackend interface {
	ExtractText(ctx context.Context, content []byte) (port.TextResult, error)
}

// Extract returns the best available text for doc.
func (e *Extractor) Extract(ctx context.Context, doc domain.RawDocument) domain.ExtractionResult {
	start := time.Now()
	fair := e.assessor.Thresholds().Fair

	primary := e.attempt(ctx, domain.MethodPrimary, e.primary, e.cfg.PrimaryTimeout, doc.Content)
	if primary.kind == outcomeOK && primary.score() >= fair {
		return e.result(primary, primary.pages, 1, start)
	}

	ocr := e.attempt(ctx, domain.MethodOCR, e.ocr, e.cfg.OCRTimeout, doc.Content)
	if ocr.kind == outcomeOK && ocr.score() > primary.score() {
		pages := ocr.pages
		if pages == 0 {
			pages = primary.pages
		}
		return e.result(ocr, pages, e.cfg.OCRConfidenceFactor, start)
	}

	e.logger.Warn("extraction below quality bar, flagging for review",
		zap.String("document", doc.Name),
		zap.Float64("primary_score", primary.score()),
		zap.Float64("ocr_score", ocr.score()),
		zap.String("ocr_reason", ocr.reason),
	)
	res := e.result(primary, primary.pages, 1, start)
	res.QualityTier = domain.TierPoor
	return res
}

func (e *Extractor) result(o outcome, pages int, factor float64, start time.Time) domain.ExtractionResult {
	if pages < 0 {
		pages = 0
	}
	return domain.ExtractionResult{
		Text:        o.text,
		Method:      o.method,
		Confidence:  clamp(o.score() * factor),
		PageCount:   pages,
		ElapsedMs:   time.Since(start).Milliseconds(),
		QualityTier: o.assessment.Tier,
	}
}

// attempt runs one backend under its own timeout. Errors, timeouts and panics
// all become a degraded outcome with empty text.
func (e *Extractor) attempt(ctx context.Context, method domain.ExtractionMethod, backend textBackend, timeout time.Duration, content []byte) (out outcome) {
	if backend == nil {
		return e.degraded(method, "backend unavailable")
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			out = e.degraded(method, fmt.Sprintf("panic: %v", r))
		}
	}()

	res, err := backend.ExtractText(ctx, content)
	if err != nil {
		return e.degraded(method, err.Error())
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return e.degraded(method, ctxErr.Error())
	}

	assessment := e.assessor.Assess(res.Text)
	e.logger.Debug("extraction attempt",
		zap.String("method", string(method)),
		zap.Int("pages", res.Pages),
		zap.Float64("readability", assessment.ReadabilityScore),
		zap.String("tier", string(assessment.Tier)),
	)
	return outcome{
		kind:       outcomeOK,
		method:     method,
		text:       res.Text,
		pages:      res.Pages,
		assessment: assessment,
	}
}

func (e *Extractor) degraded(method domain.ExtractionMethod, reason string) outcome {
	e.logger.Warn("extraction backend degraded",
		zap.String("method", string(method)),
		zap.String("reason", reason),
	)
	return outcome{
		kind:       outcomeDegraded,
		method:     method,
		assessment: e.assessor.Assess(""),
		reason:     reason,
	}
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
