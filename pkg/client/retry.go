package client

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// RetriesCount is the default number of retries, if retries are enabled.
	RetriesCount = 5
	// RequestTimeout is the default timeout of all attempts together, if retries are enabled.
	RequestTimeout = 30 * time.Second
	// RetryWaitTimeStart is the delay before the first retry.
	RetryWaitTimeStart = 100 * time.Millisecond
	// RetryWaitTimeMax caps the delay between retries, including the server Retry-After hint.
	RetryWaitTimeMax = 3 * time.Second
)

type ctxKey string

const retryAttemptCtxKey = ctxKey("retry-attempt")

// RetryConfig configures Client retries.
type RetryConfig struct {
	Condition           RetryCondition
	Count               int
	TotalRequestTimeout time.Duration
	WaitTimeStart       time.Duration
	WaitTimeMax         time.Duration
}

// RetryCondition decides whether the failed attempt should be repeated.
// The response is nil if the request failed on the network level.
type RetryCondition func(req *http.Request, res *http.Response, err error) bool

// NoRetry returns a RetryConfig without retries and without a timeout.
// The request is bounded only by its context.
func NoRetry() RetryConfig {
	return RetryConfig{}
}

// TestingRetry - fast retry for use in tests.
func TestingRetry() RetryConfig {
	v := DefaultRetry()
	v.WaitTimeStart = 1 * time.Millisecond
	v.WaitTimeMax = 1 * time.Millisecond
	return v
}

// DefaultRetry returns a RetryConfig with exponential backoff and DefaultRetryCondition.
func DefaultRetry() RetryConfig {
	return RetryConfig{
		Condition:           DefaultRetryCondition(),
		Count:               RetriesCount,
		TotalRequestTimeout: RequestTimeout,
		WaitTimeStart:       RetryWaitTimeStart,
		WaitTimeMax:         RetryWaitTimeMax,
	}
}

// DefaultRetryCondition retries only attempts that are safe to repeat.
//
// Throttled (429) and unavailable (503) responses are always retried, the server has not processed the request.
// Other temporary errors, including network errors, are retried only for idempotent methods,
// so a POST, for example a submission upload, is never sent twice.
// An unknown host is never retried.
func DefaultRetryCondition() RetryCondition {
	return func(req *http.Request, res *http.Response, err error) bool {
		if res == nil || res.StatusCode == 0 {
			switch {
			case err == nil:
				return false
			case isUnknownHost(err):
				return false
			case isDialError(err):
				// Connection was not established, nothing was sent
				return true
			default:
				return isIdempotent(req)
			}
		}

		switch res.StatusCode {
		case http.StatusTooManyRequests, http.StatusServiceUnavailable:
			return true
		case
			http.StatusRequestTimeout,
			http.StatusConflict,
			http.StatusLocked,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusGatewayTimeout:
			return isIdempotent(req)
		default:
			return false
		}
	}
}

// NewBackoff returns an exponential backoff for HTTP retries.
func (c RetryConfig) NewBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.WaitTimeStart
	b.MaxInterval = c.WaitTimeMax
	b.MaxElapsedTime = c.TotalRequestTimeout
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.Reset()
	return b
}

// nextDelay returns the delay before the next attempt, backoff.Stop if there is no time left.
// A longer Retry-After hint of the server is respected up to WaitTimeMax.
func (c RetryConfig) nextDelay(state backoff.BackOff, res *http.Response) time.Duration {
	delay := state.NextBackOff()
	if delay == backoff.Stop {
		return delay
	}
	if hint, ok := retryAfter(res); ok && hint > delay {
		delay = hint
		if c.WaitTimeMax > 0 && delay > c.WaitTimeMax {
			delay = c.WaitTimeMax
		}
	}
	return delay
}

// ContextRetryAttempt returns the retry attempt number stored in the request context.
func ContextRetryAttempt(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(retryAttemptCtxKey).(int)
	return v, ok
}

// retryAfter parses the Retry-After header in the delay-seconds form.
func retryAfter(res *http.Response) (time.Duration, bool) {
	if res == nil {
		return 0, false
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(res.Header.Get("Retry-After")))
	if err != nil || seconds < 0 {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}

func isIdempotent(req *http.Request) bool {
	if req == nil {
		return false
	}
	switch req.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}

func isUnknownHost(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "no such host") || strings.Contains(msg, "No address associated with hostname")
}

func isDialError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
