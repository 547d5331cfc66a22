// Package structuring turns extracted tariff text into structured tariffs,
// through an LLM when one is configured and the pattern extractor otherwise.
package structuring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"porttariff/internal/domain"
	"porttariff/internal/logger"
	"porttariff/internal/pattern"
	"porttariff/internal/port"
)

// FallbackIssue tags every tariff produced by the pattern fallback.
const FallbackIssue = "structured by pattern fallback; LLM structuring unavailable"

// Default LLM request settings.
const (
	DefaultTemperature = 0.1
	DefaultMaxTokens   = 4096
	DefaultTimeout     = 120 * time.Second
)

// ErrNoCompleter is returned by Structure when no LLM backend is configured.
var ErrNoCompleter = errors.New("no llm backend configured")

// Config holds the LLM request bounds.
type Config struct {
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

func (c Config) withDefaults() Config {
	if c.Temperature < 0 {
		c.Temperature = DefaultTemperature
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// DefaultConfig returns temperature 0.1, 4096 tokens and a 120s timeout.
func DefaultConfig() Config {
	return Config{Temperature: DefaultTemperature, MaxTokens: DefaultMaxTokens, Timeout: DefaultTimeout}
}

// Engine structures tariff text. It is safe for concurrent use.
type Engine struct {
	llm      port.Completer
	patterns *pattern.Extractor
	cfg      Config
	logger   *zap.Logger
}

// NewEngine creates an Engine. llm may be nil; every call then takes the
// pattern fallback.
func NewEngine(llm port.Completer, patterns *pattern.Extractor, cfg Config, log *zap.Logger) *Engine {
	if patterns == nil {
		patterns = pattern.NewExtractor()
	}
	return &Engine{
		llm:      llm,
		patterns: patterns,
		cfg:      cfg.withDefaults(),
		logger:   logger.OrNop(log).Named("structuring"),
	}
}

// Structure runs the LLM path. Backend failures and responses without a JSON
// array return an empty result and an error.
func (e *Engine) Structure(ctx context.Context, text string) (domain.StructuringResult, error) {
	start := time.Now()
	if e.llm == nil {
		return domain.EmptyStructuringResult(), ErrNoCompleter
	}
	if strings.TrimSpace(text) == "" {
		return domain.NewStructuringResult(nil, domain.SourceLLM, time.Since(start)), nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	resp, err := e.llm.Complete(ctx, port.CompletionRequest{
		Prompt:      BuildPrompt(text),
		Temperature: e.cfg.Temperature,
		MaxTokens:   e.cfg.MaxTokens,
	})
	if err != nil {
		return domain.EmptyStructuringResult(), fmt.Errorf("structuring.Structure: %w", err)
	}

	items, err := parseResponse(resp)
	if err != nil {
		return domain.EmptyStructuringResult(), fmt.Errorf("structuring.Structure: %w", err)
	}

	tariffs := make([]domain.StructuredTariff, 0, len(items))
	rejected := 0
	for _, item := range items {
		t, ok := toTariff(item)
		if !ok {
			rejected++
			continue
		}
		tariffs = append(tariffs, score(t, text))
	}
	if rejected > 0 {
		e.logger.Debug("rejected llm items missing required fields", zap.Int("rejected", rejected))
	}

	return domain.NewStructuringResult(tariffs, domain.SourceLLM, time.Since(start)), nil
}

// StructureWithFallback runs the LLM path and, on any failure, the pattern
// extractor over the same text. It never fails; at worst it returns an
// empty, zero-confidence result.
func (e *Engine) StructureWithFallback(ctx context.Context, text string) domain.StructuringResult {
	start := time.Now()

	res, err := e.safeStructure(ctx, text)
	if err == nil {
		return res
	}
	if !errors.Is(err, ErrNoCompleter) {
		e.logger.Warn("llm structuring failed, using pattern fallback", zap.Error(err))
	}

	return e.fallback(text, start)
}

func (e *Engine) safeStructure(ctx context.Context, text string) (res domain.StructuringResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = domain.EmptyStructuringResult(), fmt.Errorf("structuring.Structure: panic: %v", r)
		}
	}()
	return e.Structure(ctx, text)
}

func (e *Engine) fallback(text string, start time.Time) (res domain.StructuringResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("pattern fallback panicked", zap.Any("panic", r))
			res = domain.EmptyStructuringResult()
		}
	}()

	candidates := e.patterns.ExtractTariffs(text)
	tariffs := make([]domain.StructuredTariff, len(candidates))
	for i, c := range candidates {
		tariffs[i] = domain.StructuredTariff{TariffCandidate: c, Issues: []string{FallbackIssue}}
	}
	return domain.NewStructuringResult(tariffs, domain.SourcePatternFallback, time.Since(start))
}
