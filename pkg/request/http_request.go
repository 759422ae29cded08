package request

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// Result - any value.
type Result = any

// NoResult type.
type NoResult struct{}

// ProgressFunc is called while the request body is being sent.
// The total is -1 if the body size is unknown.
type ProgressFunc func(sent, total int64)

// CompleteFunc is invoked when the request is completed, it can replace the error.
type CompleteFunc func(ctx context.Context, response HTTPResponse, err error) error

// HTTPRequest is an immutable HTTP request, each With/And method returns a modified copy.
//
// An invalid definition, for example an unparsable URL, does not panic.
// The problem is recorded and returned by Send, wrapped in the ReqDefinitionError.
type HTTPRequest interface {
	httpRequestReadOnly
	// WithGet is shortcut for WithMethod(http.MethodGet).WithURL(url).
	WithGet(url string) HTTPRequest
	// WithPost is shortcut for WithMethod(http.MethodPost).WithURL(url).
	WithPost(url string) HTTPRequest
	WithMethod(method string) HTTPRequest
	// WithBaseURL sets the base URL, it can be relative, then it is resolved by the Sender.
	WithBaseURL(baseURL string) HTTPRequest
	// WithURL sets the URL, a relative URL is resolved against the base URL.
	WithURL(url string) HTTPRequest
	AndHeader(header string, value string) HTTPRequest
	// WithHeaders sets multiple header fields, existing fields with the same name are replaced.
	WithHeaders(headers map[string]string) HTTPRequest
	AndQueryParam(param, value string) HTTPRequest
	// WithQuery replaces all query parameters, see Query.
	WithQuery(query Query) HTTPRequest
	// AndPathParam sets a value of the {placeholder} in the URL.
	AndPathParam(param, value string) HTTPRequest
	// WithFormBody sets the URL-encoded body and the "application/x-www-form-urlencoded" content type.
	WithFormBody(form map[string]any) HTTPRequest
	// WithMultipartBody sets the multipart/form-data body, the boundary is generated when the body is encoded.
	WithMultipartBody(form *Form) HTTPRequest
	// WithJSONBody sets the body encoded to JSON by the Sender and the "application/json" content type.
	WithJSONBody(body any) HTTPRequest
	WithBody(body any) HTTPRequest
	WithContentType(contentType string) HTTPRequest
	// WithUploadProgress registers the callback invoked as the request body is sent.
	WithUploadProgress(fn ProgressFunc) HTTPRequest
	// WithError registers a pointer, the error response is decoded into it.
	WithError(err error) HTTPRequest
	// WithResult registers a pointer or an io.Writer, the response body is mapped to it.
	WithResult(result any) HTTPRequest
	// WithOnComplete registers the callback invoked after the response is received or the request fails.
	WithOnComplete(fn func(ctx context.Context, response HTTPResponse, err error) error) HTTPRequest
	// WithOnSuccess registers the callback invoked only if the request succeeds.
	WithOnSuccess(fn func(ctx context.Context, response HTTPResponse) error) HTTPRequest
	// WithOnError registers the callback invoked only if the request fails.
	WithOnError(fn func(ctx context.Context, response HTTPResponse, err error) error) HTTPRequest
	// Send sends the request and returns the response, the mapped result and the error.
	Send(ctx context.Context) (response HTTPResponse, result any, err error)
	SendOrErr(ctx context.Context) error
}

type httpRequestReadOnly interface {
	// Method returns the HTTP method, GET if it is not set.
	Method() string
	// URL returns the request URL, a relative URL is resolved against the base URL.
	URL() *url.URL
	RequestHeader() http.Header
	QueryParams() url.Values
	// PathParams returns values of the {placeholder} parts of the URL.
	PathParams() map[string]string
	// RequestBody returns the body definition, supported types are:
	// `string`, `[]byte`, `url.Values`, `*Form`, `io.Reader`, `*struct`, `*map`, `*slice`.
	// A value is encoded to JSON if the content type is JSON.
	RequestBody() any
	UploadProgress() ProgressFunc
	// ErrorDef returns the target for the error response mapping.
	ErrorDef() error
	// ResultDef returns the target for the response mapping.
	ResultDef() any
}

// NewHTTPRequest creates an empty request sent by the sender.
func NewHTTPRequest(sender Sender) HTTPRequest {
	return httpRequest{sender: sender, header: make(http.Header)}
}

type httpRequest struct {
	sender      Sender
	method      string
	baseURL     *url.URL
	url         *url.URL
	header      http.Header
	queryParams url.Values
	pathParams  map[string]string
	body        any
	progress    ProgressFunc
	resultDef   any
	errorDef    error
	onComplete  []CompleteFunc
	// defErrs contains problems found while the request was defined
	defErrs []error
}

func (r httpRequest) Tracer() trace.Tracer {
	if tp, ok := r.sender.(withTracer); ok {
		return tp.Tracer()
	}
	return nil
}

func (r httpRequest) Method() string {
	if r.method == "" {
		return http.MethodGet
	}
	return r.method
}

func (r httpRequest) URL() *url.URL {
	var out url.URL
	if r.url != nil {
		out = *r.url
	}
	if r.baseURL == nil || out.IsAbs() {
		return &out
	}

	// Base URL ends with a slash, so the whole path is kept
	out.Path = strings.TrimLeft(out.Path, "/")
	out.RawPath = ""
	return r.baseURL.ResolveReference(&out)
}

func (r httpRequest) RequestHeader() http.Header {
	return r.header
}

func (r httpRequest) QueryParams() url.Values {
	return r.queryParams
}

func (r httpRequest) PathParams() map[string]string {
	return r.pathParams
}

func (r httpRequest) RequestBody() any {
	return r.body
}

func (r httpRequest) UploadProgress() ProgressFunc {
	return r.progress
}

func (r httpRequest) ErrorDef() error {
	return r.errorDef
}

func (r httpRequest) ResultDef() any {
	return r.resultDef
}

func (r httpRequest) WithGet(url string) HTTPRequest {
	return r.WithMethod(http.MethodGet).WithURL(url)
}

func (r httpRequest) WithPost(url string) HTTPRequest {
	return r.WithMethod(http.MethodPost).WithURL(url)
}

func (r httpRequest) WithMethod(method string) HTTPRequest {
	r.method = strings.ToUpper(method)
	return r
}

func (r httpRequest) WithURL(urlStr string) HTTPRequest {
	v, err := url.Parse(urlStr)
	if err != nil {
		return r.invalid(fmt.Errorf(`url "%s" is not valid: %w`, urlStr, err))
	}
	r.url = v
	return r
}

func (r httpRequest) WithBaseURL(baseURL string) HTTPRequest {
	v, err := url.Parse(baseURL)
	if err != nil {
		return r.invalid(fmt.Errorf(`base url "%s" is not valid: %w`, baseURL, err))
	}
	v.Path = strings.TrimRight(v.Path, "/") + "/"
	v.RawPath = ""
	r.baseURL = v
	return r
}

func (r httpRequest) AndHeader(header string, value string) HTTPRequest {
	return r.WithHeaders(map[string]string{header: value})
}

func (r httpRequest) WithHeaders(headers map[string]string) HTTPRequest {
	r.header = r.header.Clone()
	if r.header == nil {
		r.header = make(http.Header)
	}
	for k, v := range headers {
		r.header.Set(k, v)
	}
	return r
}

func (r httpRequest) AndQueryParam(key, value string) HTTPRequest {
	r.queryParams = cloneURLValues(r.queryParams)
	r.queryParams.Set(key, value)
	return r
}

func (r httpRequest) WithQuery(query Query) HTTPRequest {
	r.queryParams = query.Values()
	return r
}

func (r httpRequest) AndPathParam(key, value string) HTTPRequest {
	r.pathParams = cloneParams(r.pathParams)
	r.pathParams[key] = value
	return r
}

func (r httpRequest) WithFormBody(form map[string]any) HTTPRequest {
	r.body = ToFormBody(form).Encode()
	return r.WithContentType("application/x-www-form-urlencoded")
}

func (r httpRequest) WithMultipartBody(form *Form) HTTPRequest {
	if form == nil {
		form = NewForm()
	}
	r.body = form
	// The content type with the boundary is set by the Sender
	r.header = r.header.Clone()
	r.header.Del("Content-Type")
	return r
}

func (r httpRequest) WithJSONBody(body any) HTTPRequest {
	r.body = body
	return r.WithContentType("application/json")
}

func (r httpRequest) WithBody(body any) HTTPRequest {
	r.body = body
	return r
}

func (r httpRequest) WithContentType(contentType string) HTTPRequest {
	return r.AndHeader("Content-Type", contentType)
}

func (r httpRequest) WithUploadProgress(fn ProgressFunc) HTTPRequest {
	r.progress = fn
	return r
}

func (r httpRequest) WithError(err error) HTTPRequest {
	if !isPointer(err) {
		return r.invalid(fmt.Errorf(`error must be defined by a pointer, found "%T"`, err))
	}
	r.errorDef = err
	return r
}

func (r httpRequest) WithResult(result any) HTTPRequest {
	if _, ok := result.(io.Writer); !ok && !isPointer(result) {
		return r.invalid(fmt.Errorf(`result must be defined by a pointer, found "%T"`, result))
	}
	r.resultDef = result
	return r
}

func (r httpRequest) WithOnComplete(fn func(ctx context.Context, response HTTPResponse, err error) error) HTTPRequest {
	// Full slice expression, so copies never share the backing array
	r.onComplete = append(r.onComplete[:len(r.onComplete):len(r.onComplete)], fn)
	return r
}

func (r httpRequest) WithOnSuccess(fn func(ctx context.Context, response HTTPResponse) error) HTTPRequest {
	return r.WithOnComplete(func(ctx context.Context, response HTTPResponse, err error) error {
		if err != nil {
			return err
		}
		return fn(ctx, response)
	})
}

func (r httpRequest) WithOnError(fn func(ctx context.Context, response HTTPResponse, err error) error) HTTPRequest {
	return r.WithOnComplete(func(ctx context.Context, response HTTPResponse, err error) error {
		if err == nil {
			return nil
		}
		return fn(ctx, response, err)
	})
}

func (r httpRequest) Send(ctx context.Context) (HTTPResponse, any, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if err := r.definitionErr(); err != nil {
		return nil, nil, err
	}

	rawResponse, result, err := r.sender.Send(ctx, r)
	out := &httpResponse{httpRequest: r, rawResponse: rawResponse, result: result, err: err}
	for _, fn := range r.onComplete {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		out.err = fn(ctx, out, out.err)
	}
	return out, out.result, out.err
}

func (r httpRequest) SendOrErr(ctx context.Context) error {
	_, _, err := r.Send(ctx)
	return err
}

func (r httpRequest) invalid(err error) httpRequest {
	r.defErrs = append(r.defErrs[:len(r.defErrs):len(r.defErrs)], err)
	return r
}

func (r httpRequest) definitionErr() error {
	errs := r.defErrs
	if r.sender == nil {
		errs = append(errs[:len(errs):len(errs)], errors.New("sender is not set"))
	}
	if r.url == nil {
		errs = append(errs[:len(errs):len(errs)], errors.New("url is not set"))
	}
	if len(errs) == 0 {
		return nil
	}
	return ReqDefinitionError{error: fmt.Errorf(`invalid request %s "%s": %w`, r.Method(), r.URL(), errors.Join(errs...))}
}

func isPointer(v any) bool {
	return v != nil && reflect.ValueOf(v).Kind() == reflect.Ptr
}
