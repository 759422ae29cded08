// Package trace defines hooks called while a request.HTTPRequest is sent by the client.Client.
//
// ClientTrace embeds the native httptrace.ClientTrace and adds hooks for attempts, retries and
// the processed result. Tracers are created per request by a Factory, see LogTracer, DumpTracer
// and the otel sub-package.
package trace

import (
	"context"
	"net/http"
	"net/http/httptrace"
	"reflect"
	"time"

	"github.com/kiloprojects/go-client/pkg/request"
)

// Factory creates ClientTrace hooks for a request.
// The returned context is used to send the request, a nil trace is ignored.
type Factory func(ctx context.Context, request request.HTTPRequest) (context.Context, *ClientTrace)

// ClientTrace is a set of hooks called while an HTTPRequest is sent.
type ClientTrace struct {
	httptrace.ClientTrace
	// HTTPRequestStart is called before each attempt, including redirects and retries.
	HTTPRequestStart func(request *http.Request)
	// HTTPRequestDone is called after each attempt, the response is nil on a network error.
	HTTPRequestDone func(response *http.Response, err error)
	// HTTPRequestRetry is called before the delay preceding the retry attempt.
	HTTPRequestRetry func(attempt int, delay time.Duration)
	// RequestProcessed is called once, when the response is mapped to the result or the request fails.
	RequestProcessed func(result any, err error)
}

// Start creates traces of all factories and composes them in the registration order.
// The composed native hooks are attached to the returned context.
func Start(ctx context.Context, reqDef request.HTTPRequest, factories []Factory) (context.Context, *ClientTrace) {
	var out *ClientTrace
	for _, fn := range factories {
		var t *ClientTrace
		if ctx, t = fn(ctx, reqDef); t == nil {
			continue
		}
		t.Compose(out)
		out = t
	}
	if out != nil {
		ctx = httptrace.WithClientTrace(ctx, &out.ClientTrace)
	}
	return ctx, out
}

// Compose modifies t, so the hooks of previous are called before the hooks of t.
func (t *ClientTrace) Compose(previous *ClientTrace) {
	if previous != nil {
		chainHooks(reflect.ValueOf(t).Elem(), reflect.ValueOf(previous).Elem())
	}
}

// chainHooks walks func fields, the embedded httptrace.ClientTrace included.
func chainHooks(dst, src reflect.Value) {
	for i := range dst.NumField() {
		next, prev := dst.Field(i), src.Field(i)
		switch {
		case next.Kind() == reflect.Struct:
			chainHooks(next, prev)
		case next.Kind() != reflect.Func || prev.IsNil():
		case next.IsNil():
			next.Set(prev)
		default:
			fn := reflect.ValueOf(next.Interface())
			next.Set(reflect.MakeFunc(next.Type(), func(args []reflect.Value) []reflect.Value {
				prev.Call(args)
				return fn.Call(args)
			}))
		}
	}
}
