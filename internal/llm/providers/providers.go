// Package providers links the bundled completion backends into the llm
// registry. Binaries build their completion chain through NewFromConfig so
// every provider named in configuration resolves.
package providers

import (
	"go.uber.org/zap"

	"porttariff/internal/config"
	"porttariff/internal/llm"
	"porttariff/internal/llm/claude"
	"porttariff/internal/llm/gemini"
	"porttariff/internal/llm/openai"
	"porttariff/internal/port"
)

// Names lists the bundled providers.
var Names = []string{claude.ProviderName, gemini.ProviderName, openai.ProviderName}

// NewFromConfig builds the configured completion chain. It returns nil, nil
// when no API key is configured.
func NewFromConfig(cfg *config.LLMConfig, log *zap.Logger) (port.Completer, error) {
	return llm.NewFromConfig(cfg, log)
}
