package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/net/http2"

	"github.com/kiloprojects/go-client/pkg/client/trace"
)

const (
	// DialTimeout is the maximum time of the connection setup.
	DialTimeout = 3 * time.Second
	// KeepAlive is the interval between keep-alive probes.
	KeepAlive = 10 * time.Second
	// TLSHandshakeTimeout is the maximum time of the TLS handshake.
	TLSHandshakeTimeout = 5 * time.Second
	// ResponseHeaderTimeout is the maximum wait for the response headers.
	ResponseHeaderTimeout = 20 * time.Second
	// MaxConnectionsPerHost limits open connections to the API host.
	MaxConnectionsPerHost = 32
)

// DefaultTransport returns a transport with reasonable limits.
func DefaultTransport() http.RoundTripper {
	dialer := Dialer()
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   TLSHandshakeTimeout,
		ResponseHeaderTimeout: ResponseHeaderTimeout,
		MaxConnsPerHost:       MaxConnectionsPerHost,
		MaxIdleConnsPerHost:   MaxConnectionsPerHost,
	}
}

// HTTP2Transport forces HTTP2 protocol.
func HTTP2Transport() http.RoundTripper {
	dialer := Dialer()
	return &http2.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string, cfg *tls.Config) (net.Conn, error) {
			d := &tls.Dialer{NetDialer: dialer, Config: cfg}
			return d.DialContext(ctx, network, addr)
		},
		ReadIdleTimeout:  3 * time.Second,
		PingTimeout:      3 * time.Second,
		WriteByteTimeout: 3 * time.Second,
	}
}

// Dialer - default dialer.
func Dialer() *net.Dialer {
	return &net.Dialer{
		Timeout:   DialTimeout,
		KeepAlive: KeepAlive,
	}
}

// roundTripper sends each attempt through the wrapped transport, it reports the attempts to the trace.
type roundTripper struct {
	trace   *trace.ClientTrace
	retry   RetryConfig
	wrapped http.RoundTripper
}

func (rt roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	state := rt.retry.NewBackoff()
	for attempt := 0; ; attempt++ {
		res, err := rt.send(req)
		if !rt.shouldRetry(attempt, req, res, err) {
			return res, err
		}

		delay := rt.retry.nextDelay(state, res)
		if delay == backoff.Stop {
			return res, err
		}
		if rt.trace != nil && rt.trace.HTTPRequestRetry != nil {
			rt.trace.HTTPRequestRetry(attempt+1, delay)
		}

		// Response of the failed attempt is dropped
		if res != nil && res.Body != nil {
			_ = res.Body.Close()
		}

		if req, err = rewind(req, attempt+1); err != nil {
			return nil, err
		}
		if err := wait(req.Context(), delay); err != nil {
			return nil, err
		}
	}
}

func (rt roundTripper) send(req *http.Request) (*http.Response, error) {
	if rt.trace != nil && rt.trace.HTTPRequestStart != nil {
		rt.trace.HTTPRequestStart(req)
	}
	res, err := rt.wrapped.RoundTrip(req)
	if rt.trace != nil && rt.trace.HTTPRequestDone != nil {
		rt.trace.HTTPRequestDone(res, err)
	}
	return res, err
}

func (rt roundTripper) shouldRetry(attempt int, req *http.Request, res *http.Response, err error) bool {
	return rt.retry.Condition != nil && attempt < rt.retry.Count && rt.retry.Condition(req, res, err)
}

// rewind prepares the request for the next attempt, the body is opened again.
func rewind(req *http.Request, attempt int) (*http.Request, error) {
	req = req.WithContext(context.WithValue(req.Context(), retryAttemptCtxKey, attempt))
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("cannot rewind body: %w", err)
		}
		req.Body = body
	}
	return req, nil
}

func wait(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
