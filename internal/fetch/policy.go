package fetch

import (
	"errors"
	"net/http"
	"time"

	"github.com/maltedev/arbitrage-scanner/internal/ratelimit"
)

const (
	DefaultMaxAttempts = 6
	DefaultBackoffBase = 2 * time.Second
)

var retryableStatuses = map[int]struct{}{
	http.StatusTooManyRequests:    {},
	http.StatusBadGateway:         {},
	http.StatusServiceUnavailable: {},
	http.StatusForbidden:          {},
	520:                           {},
	522:                           {},
	524:                           {},
}

// Policy decides how often and how long the engine retries.
type Policy struct {
	MaxAttempts int
	BackoffBase time.Duration
	Sleep       ratelimit.SleepFunc
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BackoffBase: DefaultBackoffBase,
		Sleep:       ratelimit.Sleep,
	}
}

// Backoff is the wait after the n-th failed attempt. It grows linearly.
func (p Policy) Backoff(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	return p.BackoffBase * time.Duration(n)
}

// RetryableStatus reports whether an HTTP status is worth another attempt.
// 403 is included because the sites challenge requests intermittently.
func RetryableStatus(code int) bool {
	_, ok := retryableStatuses[code]
	return ok
}

// Retryable reports whether a failed attempt may be retried.
func (p Policy) Retryable(err error) bool {
	var status *StatusError
	if errors.As(err, &status) {
		return RetryableStatus(status.StatusCode)
	}

	var timeout *TimeoutError
	var conn *ConnectionError
	return errors.As(err, &timeout) || errors.As(err, &conn)
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p Policy) sleepFunc() ratelimit.SleepFunc {
	if p.Sleep == nil {
		return ratelimit.Sleep
	}
	return p.Sleep
}
