package request

import (
	"context"
	"net/http"
)

// Sender is the HTTP transport of requests, see client.Client and restyclient.Client.
type Sender interface {
	// Send sends the request and maps the response body to the request ResultDef.
	// The returned result is the ResultDef value itself, or nil if nothing was mapped.
	Send(ctx context.Context, request HTTPRequest) (rawResponse *http.Response, result any, err error)
}

// Sendable is anything that can be sent and reports only an error, for example HTTPRequest or APIRequest.
type Sendable interface {
	SendOrErr(ctx context.Context) error
}

// SendableFunc adapts a function to the Sendable interface.
type SendableFunc func(ctx context.Context) error

func (f SendableFunc) SendOrErr(ctx context.Context) error {
	return f(ctx)
}

// ReqDefinitionError reports an invalid request definition.
// It is also a Sendable that fails on send, so a builder can return it in place of the request.
type ReqDefinitionError struct {
	error
}

func NewReqDefinitionError(err error) Sendable {
	return ReqDefinitionError{error: err}
}

func (v ReqDefinitionError) SendOrErr(context.Context) error {
	return v
}

func (v ReqDefinitionError) Unwrap() error {
	return v.error
}
