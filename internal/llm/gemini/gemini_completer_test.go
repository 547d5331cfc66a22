package gemini_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"porttariff/internal/config"
	"porttariff/internal/llm"
	"porttariff/internal/llm/gemini"
	"porttariff/internal/port"
)

func newTestCompleter(serverURL string) *gemini.Completer {
	return gemini.NewCompleterWithEndpoint(&config.LLMProviderConfig{
		Provider: "gemini",
		APIKey:   "g-test",
	}, serverURL)
}

var req = port.CompletionRequest{Prompt: "structure this", Temperature: 0.1, MaxTokens: 4096}

func TestGeminiCompleter_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "g-test", r.Header.Get("x-goog-api-key"))

		var reqBody map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		genCfg := reqBody["generationConfig"].(map[string]interface{})
		assert.Equal(t, float64(4096), genCfg["maxOutputTokens"])

		contents := reqBody["contents"].([]interface{})
		parts := contents[0].(map[string]interface{})["parts"].([]interface{})
		assert.Equal(t, "structure this", parts[0].(map[string]interface{})["text"])

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{
				{"content": map[string]interface{}{"parts": []map[string]interface{}{{"text": "[]"}}}, "finishReason": "STOP"},
			},
		})
	}))
	defer server.Close()

	out, err := newTestCompleter(server.URL).Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

func TestGeminiCompleter_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestCompleter(server.URL).Complete(context.Background(), req)
	var rlErr *llm.RateLimitError
	require.True(t, errors.As(err, &rlErr))
	assert.Equal(t, "gemini", rlErr.Provider)
}

func TestGeminiCompleter_NoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	_, err := newTestCompleter(server.URL).Complete(context.Background(), req)
	assert.Error(t, err)
}
