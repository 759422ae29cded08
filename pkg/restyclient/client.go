// Package restyclient provides Client, the go-resty implementation of the request.Sender interface.
//
// The URL resolution and the response mapping are shared with the net/http client, see client.RequestURL and client.HandleResponse.
package restyclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/kiloprojects/go-client/pkg/client"
	"github.com/kiloprojects/go-client/pkg/request"
)

// Client implements the request.Sender interface by resty.Client.
type Client struct {
	resty   *resty.Client
	baseURL *url.URL
}

type Option func(c *config)

type config struct {
	baseURL    string
	transport  http.RoundTripper
	logger     resty.Logger
	timeout    time.Duration
	retryCount int
	retryWait  time.Duration
	userAgent  string
}

// WithBaseURL sets the base URL, relative request URLs are resolved against it.
func WithBaseURL(v string) Option {
	return func(c *config) {
		c.baseURL = v
	}
}

// WithHTTPTransport replaces the HTTP transport.
func WithHTTPTransport(v http.RoundTripper) Option {
	return func(c *config) {
		c.transport = v
	}
}

// WithLogger sets the resty logger, for example a *zap.SugaredLogger.
func WithLogger(v resty.Logger) Option {
	return func(c *config) {
		c.logger = v
	}
}

// WithTimeout sets the timeout of each request attempt, 0 means no timeout.
func WithTimeout(v time.Duration) Option {
	return func(c *config) {
		c.timeout = v
	}
}

// WithRetry enables resty retries of network errors and temporary HTTP errors.
func WithRetry(count int, wait time.Duration) Option {
	return func(c *config) {
		c.retryCount = count
		c.retryWait = wait
	}
}

// WithUserAgent overrides the default User-Agent header.
func WithUserAgent(v string) Option {
	return func(c *config) {
		c.userAgent = v
	}
}

// New creates the Client, retries are disabled by default.
func New(opts ...Option) Client {
	cfg := config{userAgent: client.UserAgent}
	for _, o := range opts {
		o(&cfg)
	}

	r := resty.New().
		SetHeader("User-Agent", cfg.userAgent).
		SetTimeout(cfg.timeout)
	if cfg.transport != nil {
		r.SetTransport(cfg.transport)
	}
	if cfg.logger != nil {
		r.SetLogger(cfg.logger)
	}
	if cfg.retryCount > 0 {
		condition := client.DefaultRetryCondition()
		r.SetRetryCount(cfg.retryCount).
			SetRetryWaitTime(cfg.retryWait).
			SetRetryMaxWaitTime(client.RetryWaitTimeMax).
			AddRetryCondition(func(res *resty.Response, err error) bool {
				var rawReq *http.Request
				var rawRes *http.Response
				if res != nil {
					rawRes = res.RawResponse
					if res.Request != nil {
						rawReq = res.Request.RawRequest
					}
				}
				return condition(rawReq, rawRes, err)
			})
	}

	c := Client{resty: r}
	if cfg.baseURL != "" {
		baseURL, err := url.Parse(cfg.baseURL)
		if err != nil {
			panic(fmt.Errorf(`base url "%s" is not valid: %w`, cfg.baseURL, err))
		}
		c.baseURL = baseURL
	}
	return c
}

// ErrNotInitialized is returned by Send of a Client not created by New.
var ErrNotInitialized = errors.New("resty client is not initialized, use restyclient.New")

// BaseURL returns the base URL, or nil.
func (c Client) BaseURL() *url.URL {
	return c.baseURL
}

// Send method sends HTTP request and returns HTTP response, it implements the request.Sender interface.
func (c Client) Send(ctx context.Context, reqDef request.HTTPRequest) (*http.Response, any, error) {
	if c.resty == nil {
		return nil, nil, ErrNotInitialized
	}

	method := reqDef.Method()
	reqURL, err := client.RequestURL(c.baseURL, reqDef)
	if err != nil {
		return nil, nil, err
	}

	// The body is mapped by client.HandleResponse
	req := c.resty.R().SetContext(ctx).SetDoNotParseResponse(true)
	for k, values := range reqDef.RequestHeader() {
		req.Header.Del(k)
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}

	if err := setBody(req, reqDef); err != nil {
		return nil, nil, fmt.Errorf(`request %s "%s": cannot prepare request body: %w`, method, reqURL.String(), err)
	}

	res, err := req.Execute(method, reqURL.String())
	if err != nil {
		return nil, nil, sendError(method, reqURL, err)
	}

	raw := res.RawResponse
	result, err := client.HandleResponse(raw.Request, raw, reqDef.ResultDef(), reqDef.ErrorDef())
	return raw, result, err
}

func setBody(req *resty.Request, reqDef request.HTTPRequest) error {
	// Native multipart support, if the form contains a file and the upload progress is not tracked
	if form, ok := reqDef.RequestBody().(*request.Form); ok && len(form.Files()) > 0 && reqDef.UploadProgress() == nil {
		values := make(url.Values)
		for _, field := range form.Fields() {
			values.Add(field.Name, field.Value)
		}
		req.SetFormDataFromValues(values)
		for _, file := range form.Files() {
			req.SetFileReader(file.Field, file.FileName, bytes.NewReader(file.Content))
		}
		return nil
	}

	body, err := client.EncodeBody(reqDef)
	if err != nil || body == nil {
		return err
	}
	reader, err := body.Open()
	if err != nil {
		return err
	}
	if body.ContentType != "" {
		req.SetHeader("Content-Type", body.ContentType)
	}
	req.SetBody(reader)
	return nil
}

func sendError(method string, reqURL *url.URL, err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	return fmt.Errorf(`request %s "%s" failed: %w`, method, reqURL.String(), err)
}
