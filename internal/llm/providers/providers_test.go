package providers_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"porttariff/internal/config"
	"porttariff/internal/llm"
	"porttariff/internal/llm/claude"
	"porttariff/internal/llm/providers"
)

func TestNewFromConfig_BundledProvidersResolve(t *testing.T) {
	for _, name := range providers.Names {
		t.Run(name, func(t *testing.T) {
			c, err := providers.NewFromConfig(&config.LLMConfig{Provider: name, APIKey: "sk-test"}, nil)
			require.NoError(t, err)
			assert.NotNil(t, c)
		})
	}
	assert.Subset(t, llm.Providers(), providers.Names)
}

func TestNewFromConfig_LegacyClaude(t *testing.T) {
	c, err := providers.NewFromConfig(&config.LLMConfig{Provider: "claude", APIKey: "x"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &claude.Completer{}, c)
}

func TestNewFromConfig_Chain(t *testing.T) {
	c, err := providers.NewFromConfig(&config.LLMConfig{
		Primary:   config.LLMProviderConfig{Provider: "claude", APIKey: "a"},
		Secondary: config.LLMProviderConfig{Provider: "openai", APIKey: "b"},
		Tertiary:  config.LLMProviderConfig{Provider: "gemini", APIKey: "c"},
	}, nil)
	require.NoError(t, err)
	assert.IsType(t, &llm.FallbackCompleter{}, c)

	c, err = providers.NewFromConfig(&config.LLMConfig{Provider: "claude", APIKey: "x", RequestsPerSecond: 2, Burst: 2}, nil)
	require.NoError(t, err)
	assert.IsType(t, &llm.RateLimitedCompleter{}, c)
}

func TestNewFromConfig_NoKeyDisablesLLM(t *testing.T) {
	c, err := providers.NewFromConfig(&config.LLMConfig{Provider: "claude"}, nil)
	require.NoError(t, err)
	assert.Nil(t, c)
}
