package otel

import otelMetric "go.opentelemetry.io/otel/metric"

type meters struct {
	clientInFlight otelMetric.Int64UpDownCounter
	clientDuration otelMetric.Float64Histogram
	httpInFlight   otelMetric.Int64UpDownCounter
	httpDuration   otelMetric.Float64Histogram
	retries        otelMetric.Int64Counter
}

func newMeters(meter otelMetric.Meter) *meters {
	return &meters{
		clientInFlight: mustInstrument(meter.Int64UpDownCounter(
			clientPrefix+"request.in_flight",
			otelMetric.WithDescription("API client: in flight requests."),
		)),
		clientDuration: mustInstrument(meter.Float64Histogram(
			clientPrefix+"request.duration",
			otelMetric.WithDescription("API client: requests duration, including retries and body mapping."),
			otelMetric.WithUnit("ms"),
		)),
		httpInFlight: mustInstrument(meter.Int64UpDownCounter(
			httpPrefix+"request.in_flight",
			otelMetric.WithDescription("HTTP request: in flight requests."),
		)),
		httpDuration: mustInstrument(meter.Float64Histogram(
			httpPrefix+"request.duration",
			otelMetric.WithDescription("HTTP request: response received duration."),
			otelMetric.WithUnit("ms"),
		)),
		retries: mustInstrument(meter.Int64Counter(
			clientPrefix+"request.retries",
			otelMetric.WithDescription("API client: number of retries."),
		)),
	}
}

func mustInstrument[T any](instrument T, err error) T {
	if err != nil {
		panic(err)
	}
	return instrument
}
