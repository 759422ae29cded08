// Package requests is the second Kilonova API client.
//
// The transport is a swappable field of the Client, the resty transport is used by default.
// Responses are returned as the APIResponse envelope, it does not carry the HTTP status code.
// A transport failure is returned as an error envelope, the methods never fail.
package requests

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/kiloprojects/go-client/pkg/request"
	"github.com/kiloprojects/go-client/pkg/restyclient"
	"github.com/kiloprojects/go-client/pkg/session"
)

const urlPrefix = "/api"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// RequestConfig describes one API call.
type RequestConfig struct {
	// Method is GET or POST.
	Method string
	// URL is the call path, it is prefixed by "/api".
	URL string
	// Data is the request body, a string or *request.Form.
	Data any
	// Headers override the default headers.
	Headers map[string]string
	// UploadProgress is called as the body is sent.
	UploadProgress request.ProgressFunc
}

// APIResponse is the response envelope, Data is a payload or an error message.
type APIResponse struct {
	Status string              `json:"status"`
	Data   jsoniter.RawMessage `json:"data"`
}

func newErrorResponse(err error) APIResponse {
	data, _ := json.Marshal(err.Error())
	return APIResponse{Status: StatusError, Data: data}
}

func (r APIResponse) IsSuccess() bool {
	return r.Status == StatusSuccess
}

// Message returns the error message, or an empty string if the response is not an error.
func (r APIResponse) Message() string {
	if r.Status != StatusError {
		return ""
	}
	var msg string
	if err := json.Unmarshal(r.Data, &msg); err != nil {
		return string(r.Data)
	}
	return msg
}

// Decode decodes the payload to the target.
func (r APIResponse) Decode(target any) error {
	if !r.IsSuccess() {
		return fmt.Errorf(`cannot decode response data: status is "%s"`, r.Status)
	}
	return json.Unmarshal(r.Data, target)
}

type Client struct {
	host   string
	logger *zap.SugaredLogger

	lock      sync.RWMutex
	session   string
	transport request.Sender
}

type Option func(c *Client)

// WithHost sets the API host, if it is empty, paths are resolved against the base URL of the transport.
func WithHost(v string) Option {
	return func(c *Client) {
		c.host = strings.TrimRight(v, "/")
	}
}

func WithSession(v string) Option {
	return func(c *Client) {
		c.session = v
	}
}

func WithTransport(v request.Sender) Option {
	return func(c *Client) {
		c.transport = v
	}
}

func WithLogger(v *zap.SugaredLogger) Option {
	return func(c *Client) {
		c.logger = v
	}
}

// New creates the Client, the default session is the guest credential.
func New(opts ...Option) *Client {
	c := &Client{session: session.Guest}
	for _, o := range opts {
		o(c)
	}
	if c.transport == nil {
		c.transport = restyclient.New()
	}
	if c.logger == nil {
		c.logger = zap.NewNop().Sugar()
	}
	return c
}

func (c *Client) Transport() request.Sender {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.transport
}

// SetTransport replaces the transport used by all following requests.
func (c *Client) SetTransport(v request.Sender) {
	if v == nil {
		panic(fmt.Errorf("transport cannot be nil"))
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	c.transport = v
}

func (c *Client) Session() string {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.session
}

func (c *Client) SetSession(v string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.session = v
}

// DefaultHeaders returns headers sent with each request.
func (c *Client) DefaultHeaders() map[string]string {
	return map[string]string{
		"Accept":        "application/json",
		"Authorization": c.Session(),
	}
}

// APIRequest sends the API call, a transport failure is returned as an error envelope.
func (c *Client) APIRequest(ctx context.Context, cfg RequestConfig) APIResponse {
	method := cfg.Method
	if method == "" {
		method = http.MethodGet
	}

	path := urlPrefix + "/" + strings.TrimLeft(cfg.URL, "/")

	req := request.NewHTTPRequest(c.Transport()).
		WithMethod(method).
		WithURL(c.host + path).
		WithHeaders(c.DefaultHeaders()).
		WithHeaders(cfg.Headers)

	switch data := cfg.Data.(type) {
	case nil:
	case *request.Form:
		req = req.WithMultipartBody(data)
	default:
		req = req.WithBody(data)
	}
	if cfg.UploadProgress != nil {
		req = req.WithUploadProgress(cfg.UploadProgress)
	}

	out := APIResponse{}
	if err := req.WithResult(&out).SendOrErr(ctx); err != nil {
		c.logger.Debugf(`api call %s "%s" failed: %s`, method, path, err)
		return newErrorResponse(err)
	}
	switch out.Status {
	case StatusSuccess, StatusError:
		return out
	case "":
		return newErrorResponse(fmt.Errorf(`api call %s "%s": response body is empty`, method, path))
	default:
		return newErrorResponse(fmt.Errorf(`api call %s "%s": unexpected response status "%s"`, method, path, out.Status))
	}
}

// GetRequest sends the GET request with the query parameters.
func (c *Client) GetRequest(ctx context.Context, call string, params map[string]any) APIResponse {
	if query := request.Query(params).Encode(); query != "" {
		call += "?" + query
	}
	return c.APIRequest(ctx, RequestConfig{Method: http.MethodGet, URL: call})
}

// PostRequest sends the POST request with the URL-encoded form body.
func (c *Client) PostRequest(ctx context.Context, call string, data map[string]any) APIResponse {
	return c.APIRequest(ctx, RequestConfig{
		Method:  http.MethodPost,
		URL:     call,
		Headers: map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
		Data:    request.ToFormBody(data).Encode(),
	})
}

// BodyRequest sends the POST request with the JSON body.
func (c *Client) BodyRequest(ctx context.Context, call string, body any) APIResponse {
	content, err := json.Marshal(body)
	if err != nil {
		return newErrorResponse(err)
	}
	return c.APIRequest(ctx, RequestConfig{
		Method:  http.MethodPost,
		URL:     call,
		Headers: map[string]string{"Content-Type": "application/json"},
		Data:    string(content),
	})
}

// MultipartRequest sends the POST request with the multipart/form-data body.
// The progress callback is optional.
func (c *Client) MultipartRequest(ctx context.Context, call string, form *request.Form, progress request.ProgressFunc) APIResponse {
	if form == nil {
		form = request.NewForm()
	}
	return c.APIRequest(ctx, RequestConfig{
		Method:         http.MethodPost,
		URL:            call,
		Data:           form,
		UploadProgress: progress,
	})
}
