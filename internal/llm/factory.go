// Package llm builds the completion backends used for tariff structuring:
// a provider registry, an ordered fallback chain and a request rate limiter.
package llm

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"porttariff/internal/config"
	"porttariff/internal/port"
)

// ProviderFactory is a function that creates a Completer from a provider config.
type ProviderFactory func(cfg *config.LLMProviderConfig) (port.Completer, error)

// registry of provider factories, populated by init() in each provider package
// or explicitly via RegisterProvider.
var (
	providersMu sync.RWMutex
	providers   = map[string]ProviderFactory{}
)

// RegisterProvider registers a provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providersMu.Lock()
	defer providersMu.Unlock()
	providers[name] = factory
}

// Providers lists the registered provider names.
func Providers() []string {
	providersMu.RLock()
	defer providersMu.RUnlock()
	names := make([]string, 0, len(providers))
	for n := range providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewCompleter creates a Completer from a provider config using the registered factory.
func NewCompleter(cfg *config.LLMProviderConfig) (port.Completer, error) {
	providersMu.RLock()
	factory, ok := providers[cfg.Provider]
	providersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
	return factory(cfg)
}

// NewFromConfig builds the configured completion chain: the primary provider,
// then secondary and tertiary when set, wrapped in a FallbackCompleter when
// more than one is configured and throttled when RequestsPerSecond > 0.
// It returns nil, nil when no API key is configured.
func NewFromConfig(cfg *config.LLMConfig, log *zap.Logger) (port.Completer, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	var (
		completers []port.Completer
		names      []string
	)
	for _, pc := range []*config.LLMProviderConfig{cfg.PrimaryConfig(), cfg.SecondaryConfig(), cfg.TertiaryConfig()} {
		if pc == nil {
			continue
		}
		c, err := NewCompleter(pc)
		if err != nil {
			return nil, fmt.Errorf("llm.NewFromConfig: %w", err)
		}
		completers = append(completers, c)
		names = append(names, pc.Provider)
	}

	var out port.Completer = completers[0]
	if len(completers) > 1 {
		out = NewFallbackCompleter(completers, names, log)
	}
	if cfg.RequestsPerSecond > 0 {
		out = NewRateLimitedCompleter(out, cfg.RequestsPerSecond, cfg.Burst)
	}
	return out, nil
}
