package port

import "context"

// CompletionRequest carries a fully built prompt and its sampling bounds.
type CompletionRequest struct {
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Completer is a text-in, text-out LLM backend. Prompt construction and
// response parsing belong to the caller.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
