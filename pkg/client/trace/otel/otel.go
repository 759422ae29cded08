// Package otel provides OpenTelemetry tracing and metrics for API client requests.
//
// Each logical request has a span "kilonova.client.request", it wraps all redirects and retries.
// Each sent HTTP request, including redirects and retries, has a child span "http.request".
// Metrics names start with "kilonova.client." and "kilonova.http.", see the meters struct.
//
// Credentials are never exported, the Authorization and cookie headers are masked.
package otel

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelMetric "go.opentelemetry.io/otel/metric"
	metricNoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	otelTrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/kiloprojects/go-client/pkg/client/trace"
	"github.com/kiloprojects/go-client/pkg/request"
)

const (
	traceAppName          = "github.com/kiloprojects/go-client"
	clientPrefix          = "kilonova.client."
	httpPrefix            = "kilonova.http."
	clientRequestSpanName = clientPrefix + "request"
	httpRequestSpanName   = "http.request"
)

// NewTrace returns a trace.Factory which creates spans and records metrics for each request.
// Nil providers are replaced by no-op providers.
func NewTrace(tracerProvider otelTrace.TracerProvider, meterProvider otelMetric.MeterProvider, opts ...Option) trace.Factory {
	cfg := newConfig(opts)
	if tracerProvider == nil {
		tracerProvider = noop.NewTracerProvider()
	}
	if meterProvider == nil {
		meterProvider = metricNoop.NewMeterProvider()
	}
	tracer := tracerProvider.Tracer(traceAppName)
	meters := newMeters(meterProvider.Meter(traceAppName))

	return func(ctx context.Context, reqDef request.HTTPRequest) (context.Context, *trace.ClientTrace) {
		tc := &trace.ClientTrace{}
		attrs := newAttributes(cfg, reqDef)
		startTime := time.Now()

		// Root span, it may contain multiple HTTP requests: redirects, retries
		meters.clientInFlight.Add(ctx, 1, otelMetric.WithAttributes(attrs.call...))
		ctx, rootSpan := tracer.Start(
			ctx,
			clientRequestSpanName,
			otelTrace.WithSpanKind(otelTrace.SpanKindClient),
			otelTrace.WithAttributes(attrs.call...),
			otelTrace.WithAttributes(attrs.callSpan...),
		)
		rootCtx := ctx

		var httpSpan otelTrace.Span
		var httpStart time.Time
		tc.HTTPRequestStart = func(req *http.Request) {
			httpStart = time.Now()
			attrs.SetFromRequest(req)

			var httpCtx context.Context
			httpCtx, httpSpan = tracer.Start(
				rootCtx,
				httpRequestSpanName,
				otelTrace.WithSpanKind(otelTrace.SpanKindClient),
				otelTrace.WithAttributes(attrs.attempt...),
			)
			if cfg.propagators != nil {
				cfg.propagators.Inject(httpCtx, propagation.HeaderCarrier(req.Header))
			}
			meters.httpInFlight.Add(rootCtx, 1, otelMetric.WithAttributes(attrs.attempt...))
		}
		tc.HTTPRequestDone = func(res *http.Response, err error) {
			elapsed := float64(time.Since(httpStart)) / float64(time.Millisecond)
			attrs.SetFromResponse(res, err)

			meters.httpInFlight.Add(rootCtx, -1, otelMetric.WithAttributes(attrs.attempt...))
			meters.httpDuration.Record(rootCtx, elapsed, otelMetric.WithAttributes(attrs.attempt...), otelMetric.WithAttributes(attrs.response...))

			if httpSpan == nil {
				return
			}
			httpSpan.SetAttributes(attrs.response...)
			httpSpan.SetAttributes(attrs.responseSpan...)
			switch {
			case err != nil:
				httpSpan.RecordError(err)
				httpSpan.SetStatus(codes.Error, err.Error())
			case res != nil && res.StatusCode >= http.StatusBadRequest:
				httpErr := fmt.Errorf(`HTTP status code: %d %s`, res.StatusCode, http.StatusText(res.StatusCode))
				httpSpan.RecordError(httpErr)
				httpSpan.SetStatus(codes.Error, httpErr.Error())
			}
			httpSpan.End()
			httpSpan = nil
		}
		tc.HTTPRequestRetry = func(attempt int, delay time.Duration) {
			meters.retries.Add(rootCtx, 1, otelMetric.WithAttributes(attrs.call...))
			rootSpan.AddEvent("retry", otelTrace.WithAttributes(
				attribute.Int("retry.attempt", attempt),
				attribute.Int64("retry.delay_ms", delay.Milliseconds()),
			))
		}
		tc.RequestProcessed = func(result any, err error) {
			elapsed := float64(time.Since(startTime)) / float64(time.Millisecond)

			// In-flight attributes must match the increment
			meters.clientInFlight.Add(rootCtx, -1, otelMetric.WithAttributes(attrs.call...))
			meters.clientDuration.Record(rootCtx, elapsed, otelMetric.WithAttributes(attrs.call...), otelMetric.WithAttributes(attrs.response...))

			rootSpan.SetAttributes(attrs.response...)
			if err != nil {
				rootSpan.RecordError(err)
				rootSpan.SetStatus(codes.Error, err.Error())
			}
			rootSpan.End()
		}

		return ctx, tc
	}
}
