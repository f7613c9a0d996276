package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// FetchError is returned once every attempt for a URL has failed, or when
// the first failure was not retryable.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// TimeoutError indicates the request timed out in transit.
type TimeoutError struct {
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// ConnectionError indicates a transport failure such as a reset or refused
// connection.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Errorf("connection: %w", e.Err).Error()
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsFetchError reports whether err carries a FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// classifyTransportError maps an http.Client error to a typed error. Caller
// cancellation is passed through untouched.
func classifyTransportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &TimeoutError{Err: err}
	}
	return &ConnectionError{Err: err}
}

// ErrorLabel returns a short metrics label for err.
func ErrorLabel(err error) string {
	if err == nil {
		return "unknown"
	}

	var status *StatusError
	if errors.As(err, &status) {
		switch {
		case status.StatusCode == http.StatusTooManyRequests:
			return "rate_limited"
		case status.StatusCode == http.StatusForbidden:
			return "forbidden"
		case status.StatusCode >= 500:
			return "upstream"
		default:
			return "status"
		}
	}

	var timeout *TimeoutError
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var conn *ConnectionError
	if errors.As(err, &conn) {
		return "connection"
	}
	return "other"
}
