// Package client provides Client, the net/http implementation of the request.Sender interface.
//
// Client resolves request URLs against a base URL, merges common headers,
// encodes request bodies and maps response bodies to the result defined by the request.
// Retries are opt-in, see WithRetry. Trace hooks and OpenTelemetry telemetry can be attached.
//
// RequestURL, EncodeBody and HandleResponse are shared with other Sender implementations.
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	otelMetric "go.opentelemetry.io/otel/metric"
	otelTrace "go.opentelemetry.io/otel/trace"

	"github.com/kiloprojects/go-client/pkg/client/trace"
	"github.com/kiloprojects/go-client/pkg/client/trace/otel"
	"github.com/kiloprojects/go-client/pkg/request"
)

const (
	UserAgent = "kilonova-go-client"
	appName   = "github.com/kiloprojects/go-client"
)

// Client is an immutable request.Sender, each With/And method returns a modified copy.
type Client struct {
	transport      http.RoundTripper
	baseURL        *url.URL
	header         http.Header
	retry          RetryConfig
	traceFactories []trace.Factory
	tracer         otelTrace.Tracer
}

// New creates the Client with DefaultTransport, retries are disabled.
func New() Client {
	header := make(http.Header)
	header.Set("User-Agent", UserAgent)
	header.Set("Accept-Encoding", "gzip, br")
	return Client{transport: DefaultTransport(), header: header, retry: NoRetry()}
}

// WithBaseURL sets the URL relative request URLs are resolved against.
// It panics on an invalid URL, the value usually comes from a validated configuration.
func (c Client) WithBaseURL(baseURL string) Client {
	v, err := url.Parse(baseURL)
	if err != nil {
		panic(fmt.Errorf(`base url "%s" is not valid: %w`, baseURL, err))
	}
	c.baseURL = v
	return c
}

func (c Client) BaseURL() *url.URL {
	return c.baseURL
}

func (c Client) WithUserAgent(v string) Client {
	return c.WithHeader("User-Agent", v)
}

// WithHeader sets a header sent with each request, a request header of the same name replaces it.
func (c Client) WithHeader(key, value string) Client {
	return c.WithHeaders(map[string]string{key: value})
}

func (c Client) WithHeaders(headers map[string]string) Client {
	c.header = c.header.Clone()
	if c.header == nil {
		c.header = make(http.Header)
	}
	for k, v := range headers {
		c.header.Set(k, v)
	}
	return c
}

// WithTransport replaces the round tripper, nil restores DefaultTransport.
func (c Client) WithTransport(transport http.RoundTripper) Client {
	if transport == nil {
		transport = DefaultTransport()
	}
	c.transport = transport
	return c
}

func (c Client) WithRetry(retry RetryConfig) Client {
	c.retry = retry
	return c
}

// AndTrace adds the trace factory, hooks are called in the registration order.
func (c Client) AndTrace(fn trace.Factory) Client {
	c.traceFactories = append(c.traceFactories[:len(c.traceFactories):len(c.traceFactories)], fn)
	return c
}

// WithTelemetry enables OpenTelemetry spans and metrics, a nil provider disables the corresponding part.
func (c Client) WithTelemetry(tracerProvider otelTrace.TracerProvider, meterProvider otelMetric.MeterProvider, opts ...otel.Option) Client {
	if tracerProvider != nil {
		c.tracer = tracerProvider.Tracer(appName)
	}
	return c.AndTrace(otel.NewTrace(tracerProvider, meterProvider, opts...))
}

// Tracer is used by request.APIRequest to start the parent span, it is nil if telemetry is disabled.
func (c Client) Tracer() otelTrace.Tracer {
	return c.tracer
}

// Send sends the request and maps the response, it implements the request.Sender interface.
func (c Client) Send(ctx context.Context, reqDef request.HTTPRequest) (res *http.Response, result any, err error) {
	ctx, clientTrace := trace.Start(ctx, reqDef, c.traceFactories)
	if clientTrace != nil && clientTrace.RequestProcessed != nil {
		defer func() {
			clientTrace.RequestProcessed(result, err)
		}()
	}

	req, err := c.newRequest(ctx, reqDef)
	if err != nil {
		return nil, nil, err
	}

	transport := c.transport
	if transport == nil {
		transport = DefaultTransport()
	}
	native := http.Client{
		Timeout:   c.retry.TotalRequestTimeout,
		Transport: roundTripper{retry: c.retry, trace: clientTrace, wrapped: transport},
	}

	startedAt := time.Now()
	if res, err = native.Do(req); err != nil {
		return nil, nil, handleSendError(startedAt, c.retry.TotalRequestTimeout, req, err)
	}

	result, err = HandleResponse(req, res, reqDef.ResultDef(), reqDef.ErrorDef())
	return res, result, err
}

// newRequest converts the definition to the native request with headers and a re-openable body.
func (c Client) newRequest(ctx context.Context, reqDef request.HTTPRequest) (*http.Request, error) {
	reqURL, err := RequestURL(c.baseURL, reqDef)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, reqDef.Method(), reqURL.String(), nil)
	if err != nil {
		return nil, err
	}
	mergeHeaders(req.Header, c.header, reqDef.RequestHeader())

	body, err := EncodeBody(reqDef)
	if err == nil && body != nil {
		if body.ContentType != "" {
			req.Header.Set("Content-Type", body.ContentType)
		}
		if body.Size >= 0 {
			req.ContentLength = body.Size
		}
		req.GetBody = body.Open
		req.Body, err = body.Open()
	}
	if err != nil {
		return nil, fmt.Errorf(`request %s "%s": cannot prepare request body: %w`, req.Method, req.URL.String(), err)
	}
	return req, nil
}

// mergeHeaders copies the layers into dst, a later layer replaces all values of the same name.
func mergeHeaders(dst http.Header, layers ...http.Header) {
	for _, layer := range layers {
		for k, values := range layer {
			dst[http.CanonicalHeaderKey(k)] = append([]string(nil), values...)
		}
	}
}

// RequestURL replaces {placeholders} with escaped path parameters, resolves the URL against the base URL
// and adds the query parameters.
func RequestURL(baseURL *url.URL, reqDef request.HTTPRequest) (*url.URL, error) {
	raw := reqDef.URL().String()
	for k, v := range reqDef.PathParams() {
		raw = strings.ReplaceAll(raw, url.PathEscape("{"+k+"}"), url.PathEscape(v))
	}

	out, err := url.Parse(raw)
	if baseURL != nil {
		out, err = baseURL.Parse(raw)
	}
	if err != nil {
		return nil, err
	}

	if params := reqDef.QueryParams(); len(params) > 0 {
		query := out.Query()
		for k, values := range params {
			for _, v := range values {
				query.Add(k, v)
			}
		}
		out.RawQuery = query.Encode()
	}
	return out, nil
}
