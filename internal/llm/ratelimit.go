package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"porttariff/internal/port"
)

// RateLimitedCompleter throttles calls to the wrapped completer.
type RateLimitedCompleter struct {
	next    port.Completer
	limiter *rate.Limiter
}

// NewRateLimitedCompleter allows rps requests per second with the given burst.
func NewRateLimitedCompleter(next port.Completer, rps float64, burst int) *RateLimitedCompleter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedCompleter{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (r *RateLimitedCompleter) Complete(ctx context.Context, req port.CompletionRequest) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("llm.RateLimitedCompleter: %w", err)
	}
	return r.next.Complete(ctx, req)
}
