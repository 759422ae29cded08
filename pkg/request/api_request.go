package request

import (
	"context"
	"fmt"
	"reflect"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// APIRequestSpanName is the name of the span wrapping all HTTP requests of one APIRequest.
const APIRequestSpanName = "kilonova.api.request"

// APIRequest with response mapped to the generic type R.
type APIRequest[R Result] interface {
	// WithBefore registers the callback invoked before the requests are sent.
	// If it returns an error, nothing is sent.
	WithBefore(fn func(ctx context.Context) error) APIRequest[R]
	// WithOnComplete registers the callback invoked when all requests are completed, it can replace the error.
	WithOnComplete(fn func(ctx context.Context, result R, err error) error) APIRequest[R]
	// WithOnSuccess registers the callback invoked only if all requests succeed.
	WithOnSuccess(fn func(ctx context.Context, result R) error) APIRequest[R]
	// WithOnError registers the callback invoked only if a request fails.
	WithOnError(fn func(ctx context.Context, err error) error) APIRequest[R]
	// Send sends the requests and returns the shared result.
	Send(ctx context.Context) (result R, err error)
	SendOrErr(ctx context.Context) error
}

// ParallelAPIRequests are sent concurrently by a WaitGroup, all errors are collected.
type ParallelAPIRequests []Sendable

// FailFastAPIRequests are sent concurrently by a RunGroup, the first error cancels the others and is returned.
type FailFastAPIRequests []Sendable

type withTracer interface {
	Tracer() trace.Tracer
}

// Parallel wraps requests to one Sendable, they are sent concurrently.
func Parallel(requests ...Sendable) ParallelAPIRequests {
	return requests
}

func (v ParallelAPIRequests) SendOrErr(ctx context.Context) error {
	wg := NewWaitGroup(ctx)
	for _, r := range v {
		wg.Send(r)
	}
	return wg.Wait()
}

func (v ParallelAPIRequests) Tracer() trace.Tracer {
	return firstTracer(v)
}

// FailFast wraps requests to one Sendable, they are sent concurrently until the first error.
func FailFast(requests ...Sendable) FailFastAPIRequests {
	return requests
}

func (v FailFastAPIRequests) SendOrErr(ctx context.Context) error {
	g := NewRunGroup(ctx)
	for _, r := range v {
		g.Add(r)
	}
	return g.RunAndWait()
}

func (v FailFastAPIRequests) Tracer() trace.Tracer {
	return firstTracer(v)
}

func firstTracer(requests []Sendable) trace.Tracer {
	if len(requests) == 0 {
		return nil
	}
	if tp, ok := requests[0].(withTracer); ok {
		return tp.Tracer()
	}
	return nil
}

// NewAPIRequest creates the request composed of one or more Sendable, usually HTTPRequest with a callback filling the result.
// More requests are sent concurrently.
func NewAPIRequest[R Result](result R, requests ...Sendable) APIRequest[R] {
	if len(requests) == 0 {
		return &apiRequest[R]{result: result, requests: []Sendable{NewReqDefinitionError(fmt.Errorf("at least one request must be provided"))}}
	}
	return &apiRequest[R]{result: result, requests: requests}
}

// NewNoOperationAPIRequest returns the request that sends nothing and returns the result.
// It is useful if there is no work to be done, for example an empty list of IDs.
func NewNoOperationAPIRequest[R Result](result R) APIRequest[R] {
	return &apiRequest[R]{result: result}
}

type apiRequest[R Result] struct {
	result     R
	requests   []Sendable
	before     []func(ctx context.Context) error
	onComplete []func(ctx context.Context, result R, err error) error
}

func (r apiRequest[R]) WithBefore(fn func(ctx context.Context) error) APIRequest[R] {
	r.before = append(r.before[:len(r.before):len(r.before)], fn)
	return r
}

func (r apiRequest[R]) WithOnComplete(fn func(ctx context.Context, result R, err error) error) APIRequest[R] {
	r.onComplete = append(r.onComplete[:len(r.onComplete):len(r.onComplete)], fn)
	return r
}

func (r apiRequest[R]) WithOnSuccess(fn func(ctx context.Context, result R) error) APIRequest[R] {
	return r.WithOnComplete(func(ctx context.Context, result R, err error) error {
		if err != nil {
			return err
		}
		return fn(ctx, result)
	})
}

func (r apiRequest[R]) WithOnError(fn func(ctx context.Context, err error) error) APIRequest[R] {
	return r.WithOnComplete(func(ctx context.Context, result R, err error) error {
		if err == nil {
			return nil
		}
		return fn(ctx, err)
	})
}

func (r apiRequest[R]) Send(ctx context.Context) (result R, err error) {
	ctx, span := r.startSpan(ctx)
	defer func() {
		if span == nil {
			return
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := r.runBefore(ctx); err != nil {
		return r.result, err
	}

	switch len(r.requests) {
	case 0:
	case 1:
		err = r.requests[0].SendOrErr(ctx)
	default:
		err = ParallelAPIRequests(r.requests).SendOrErr(ctx)
	}

	for _, fn := range r.onComplete {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return r.result, ctxErr
		}
		err = fn(ctx, r.result, err)
	}
	return r.result, err
}

func (r apiRequest[R]) SendOrErr(ctx context.Context) error {
	_, err := r.Send(ctx)
	return err
}

func (r apiRequest[R]) runBefore(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, fn := range r.before {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// startSpan starts the span if the sender of the first request provides a tracer.
func (r apiRequest[R]) startSpan(ctx context.Context) (context.Context, trace.Span) {
	if len(r.requests) == 0 {
		return ctx, nil
	}
	tp, ok := r.requests[0].(withTracer)
	if !ok || tp.Tracer() == nil {
		return ctx, nil
	}

	resultType := ""
	if v := reflect.TypeOf(r.result); v != nil {
		resultType = v.String()
	}

	return tp.Tracer().Start(
		ctx,
		APIRequestSpanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.Int("kilonova.api.requests", len(r.requests)),
			attribute.String("kilonova.api.result_type", resultType),
		),
	)
}
