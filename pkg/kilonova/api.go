// Package kilonova contains request definitions for the Kilonova judge API.
// The definitions are not complete and can be extended as needed.
// Requests can be sent by any HTTP client that implements the request.Sender interface,
// the net/http client.Client is used by default.
//
// Every endpoint responds with the {status, data} envelope, see Response.
// The generic Request function and the body-shape helpers never fail, a transport error is returned as an error envelope.
// Typed requests, for example SubmissionRequest, return the unwrapped payload or the *Error.
package kilonova

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	otelMetric "go.opentelemetry.io/otel/metric"
	otelTrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kiloprojects/go-client/pkg/client"
	"github.com/kiloprojects/go-client/pkg/client/trace"
	"github.com/kiloprojects/go-client/pkg/request"
	"github.com/kiloprojects/go-client/pkg/session"
)

// APIRoot is the path segment all API calls are rooted under.
const APIRoot = "api"

// PageSize is the number of submissions per page.
const PageSize = 50

type API struct {
	sender  request.Sender
	baseURL string
	logger  *zap.SugaredLogger

	lock    sync.RWMutex
	session string
}

type apiConfig struct {
	sender         request.Sender
	session        string
	logger         *zap.SugaredLogger
	tracerProvider otelTrace.TracerProvider
	meterProvider  otelMetric.MeterProvider
}

type APIOption func(c *apiConfig)

// WithSender sets the transport, the default is the net/http client.Client.
func WithSender(v request.Sender) APIOption {
	return func(c *apiConfig) {
		c.sender = v
	}
}

// WithSession sets the session credential, the default is the guest credential.
func WithSession(v string) APIOption {
	return func(c *apiConfig) {
		c.session = v
	}
}

func WithLogger(v *zap.SugaredLogger) APIOption {
	return func(c *apiConfig) {
		c.logger = v
	}
}

// WithTracerProvider enables telemetry of the default sender.
func WithTracerProvider(v otelTrace.TracerProvider) APIOption {
	return func(c *apiConfig) {
		c.tracerProvider = v
	}
}

func WithMeterProvider(v otelMetric.MeterProvider) APIOption {
	return func(c *apiConfig) {
		c.meterProvider = v
	}
}

// NewAPI creates the API client.
// The host may be empty, then request URLs are resolved against the base URL of the sender.
func NewAPI(host string, opts ...APIOption) *API {
	cfg := apiConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.session == "" {
		cfg.session = session.Guest
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop().Sugar()
	}
	if cfg.sender == nil {
		c := client.New().AndTrace(trace.LogTracer(cfg.logger))
		if cfg.tracerProvider != nil || cfg.meterProvider != nil {
			c = c.WithTelemetry(cfg.tracerProvider, cfg.meterProvider)
		}
		cfg.sender = c
	}

	baseURL := "/" + APIRoot
	if host != "" {
		if !strings.HasPrefix(host, "https://") && !strings.HasPrefix(host, "http://") {
			host = "https://" + host
		}
		baseURL = strings.TrimRight(host, "/") + baseURL
	}

	return &API{sender: cfg.sender, baseURL: baseURL, logger: cfg.logger, session: cfg.session}
}

func (a *API) Sender() request.Sender {
	return a.sender
}

// Session returns the current session credential.
func (a *API) Session() string {
	a.lock.RLock()
	defer a.lock.RUnlock()
	return a.session
}

// SetSession replaces the session credential, it is used by all following requests.
func (a *API) SetSession(v string) {
	a.lock.Lock()
	defer a.lock.Unlock()
	a.session = v
}

// newRequest creates the request with the API base URL and the default headers.
func (a *API) newRequest(params RequestParams) (request.HTTPRequest, error) {
	method := params.Method
	if method == "" {
		method = http.MethodGet
	}
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return nil, fmt.Errorf(`unsupported method "%s"`, method)
	}

	req := request.NewHTTPRequest(a.sender).
		WithBaseURL(a.baseURL).
		WithMethod(method).
		WithURL(normalizePath(params.URL)).
		AndHeader("Accept", "application/json").
		AndHeader("Authorization", a.Session()).
		WithHeaders(params.Headers)

	if len(params.Query) > 0 {
		req = req.WithQuery(params.Query)
	}
	for k, v := range params.PathParams {
		req = req.AndPathParam(k, v)
	}

	switch body := params.Body.(type) {
	case nil:
	case *request.Form:
		req = req.WithMultipartBody(body)
	default:
		req = req.WithBody(body)
	}

	if params.UploadProgress != nil {
		req = req.WithUploadProgress(params.UploadProgress)
	}

	return req, nil
}

// normalizePath makes the path relative to the API root.
func normalizePath(path string) string {
	return strings.TrimLeft(path, "/")
}
