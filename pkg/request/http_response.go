package request

import "net/http"

// HTTPResponse is the outcome of a sent HTTPRequest, it still exposes the request definition.
type HTTPResponse interface {
	httpRequestReadOnly
	ResponseHeader() http.Header
	// StatusCode is 0 if no response was received, for example on a network error.
	StatusCode() int
	// RawRequest is the native request of the last attempt, nil if no response was received.
	RawRequest() *http.Request
	RawResponse() *http.Response
	// IsSuccess reports a 2xx status code.
	IsSuccess() bool
	// IsError reports a status code >= 400.
	IsError() bool
	// Result is the value the response body was mapped to, see HTTPRequest.WithResult.
	Result() any
	// Error is the mapped error response or the transport error.
	Error() error
}

type httpResponse struct {
	httpRequest
	rawResponse *http.Response
	result      any
	err         error
}

func (r httpResponse) ResponseHeader() http.Header {
	if raw := r.rawResponse; raw != nil {
		return raw.Header
	}
	return nil
}

func (r httpResponse) StatusCode() int {
	if raw := r.rawResponse; raw != nil {
		return raw.StatusCode
	}
	return 0
}

func (r httpResponse) RawRequest() *http.Request {
	if raw := r.rawResponse; raw != nil {
		return raw.Request
	}
	return nil
}

func (r httpResponse) RawResponse() *http.Response {
	return r.rawResponse
}

func (r httpResponse) IsSuccess() bool {
	code := r.StatusCode()
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}

func (r httpResponse) IsError() bool {
	return r.StatusCode() >= http.StatusBadRequest
}

func (r httpResponse) Result() any {
	return r.result
}

func (r httpResponse) Error() error {
	return r.err
}
