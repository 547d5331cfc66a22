package llm

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultRetryAfter is the backoff assumed when a 429 response carries no
// usable Retry-After header.
const DefaultRetryAfter = time.Minute

// maxErrorBody bounds the response excerpt quoted in provider errors.
const maxErrorBody = 500

// RateLimitError reports a throttled completion request. FallbackCompleter
// opens the provider's circuit for RetryAfter.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited (retry after %s): %v", e.Provider, e.RetryAfter, e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// NewRateLimitError creates a RateLimitError. A non-positive retryAfter uses
// DefaultRetryAfter.
func NewRateLimitError(provider string, err error, retryAfter time.Duration) *RateLimitError {
	if retryAfter <= 0 {
		retryAfter = DefaultRetryAfter
	}
	return &RateLimitError{Provider: provider, RetryAfter: retryAfter, Err: err}
}

// StatusError converts a non-200 completion response into an error quoting
// the start of body. 429 responses become *RateLimitError.
func StatusError(provider string, resp *http.Response, body []byte) error {
	err := fmt.Errorf("%s API error (status %d): %s", provider, resp.StatusCode, excerpt(body, maxErrorBody))
	if resp.StatusCode == http.StatusTooManyRequests {
		return NewRateLimitError(provider, err, RetryAfter(resp.Header.Get("Retry-After"), time.Now()))
	}
	return err
}

// RetryAfter parses a Retry-After value given either as delay seconds or as
// an HTTP date. It returns 0 for empty, malformed or past values.
func RetryAfter(val string, now time.Time) time.Duration {
	val = strings.TrimSpace(val)
	if val == "" {
		return 0
	}
	if secs, err := strconv.Atoi(val); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	at, err := http.ParseTime(val)
	if err != nil || !at.After(now) {
		return 0
	}
	return at.Sub(now).Round(time.Second)
}

// excerpt cuts body to at most n bytes without splitting a UTF-8 sequence.
func excerpt(body []byte, n int) string {
	if len(body) <= n {
		return string(body)
	}
	for n > 0 && !utf8.RuneStart(body[n]) {
		n--
	}
	return string(body[:n]) + "..."
}
