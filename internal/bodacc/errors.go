package bodacc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// ErrCanceled is returned when the caller cancels a request. It is never
// retryable and is distinct from a timeout.
var ErrCanceled = errors.New("request canceled")

// UpstreamHTTPError is a non-2xx response from the API.
type UpstreamHTTPError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamHTTPError) Error() string {
	if e.StatusCode == http.StatusTooManyRequests {
		return "too many requests: slow down and retry in a few moments"
	}
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("upstream HTTP %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("upstream HTTP %d: %s", e.StatusCode, body)
}

// TimeoutError is returned when a request exceeds its time budget.
type TimeoutError struct {
	Op     string
	Budget time.Duration
}

func (e *TimeoutError) Error() string {
	if e.Budget > 0 {
		return fmt.Sprintf("%s: request took longer than %s, try again", e.Op, e.Budget)
	}
	return fmt.Sprintf("%s: request timed out, try again", e.Op)
}

// MalformedResponseError is returned when a response body does not match
// any recognised shape.
type MalformedResponseError struct {
	Endpoint string
	Reason   string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response from %s: %s", e.Endpoint, e.Reason)
}

// IsRetryable reports whether a caller may reasonably retry after err:
// timeouts, rate limiting and server errors. Cancellation is not.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, ErrCanceled) {
		return false
	}
	var te *TimeoutError
	if errors.As(err, &te) {
		return true
	}
	var he *UpstreamHTTPError
	if errors.As(err, &he) {
		return he.StatusCode == http.StatusTooManyRequests || he.StatusCode >= 500
	}
	return false
}

// classify maps a transport or context error onto the error taxonomy.
func classify(ctx context.Context, op string, budget time.Duration, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.Canceled), errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w", op, ErrCanceled)
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return &TimeoutError{Op: op, Budget: budget}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &TimeoutError{Op: op, Budget: budget}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// opName is the short endpoint name used in error messages.
func opName(endpoint string) string {
	if i := strings.LastIndex(endpoint, "/"); i >= 0 {
		return endpoint[i+1:]
	}
	return endpoint
}
