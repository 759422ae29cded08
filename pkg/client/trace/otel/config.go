package otel

import (
	"strings"

	"go.opentelemetry.io/otel/propagation"
)

type config struct {
	propagators         propagation.TextMapPropagator
	redactedQueryParams nameSet
	redactedHeaders     nameSet
}

type Option func(*config)

// nameSet is a case-insensitive set of names.
type nameSet map[string]struct{}

func (s nameSet) add(names ...string) {
	for _, n := range names {
		s[strings.ToLower(n)] = struct{}{}
	}
}

func (s nameSet) has(name string) bool {
	_, found := s[strings.ToLower(name)]
	return found
}

// WithPropagators injects trace context headers to outgoing requests.
func WithPropagators(v propagation.TextMapPropagator) Option {
	return func(c *config) {
		c.propagators = v
	}
}

// WithRedactedQueryParam masks values of the query parameters in span attributes.
func WithRedactedQueryParam(params ...string) Option {
	return func(c *config) {
		c.redactedQueryParams.add(params...)
	}
}

// WithRedactedHeaders masks values of the headers in span attributes.
// Headers carrying the session credential are always masked.
func WithRedactedHeaders(headers ...string) Option {
	return func(c *config) {
		c.redactedHeaders.add(headers...)
	}
}

func newConfig(opts []Option) config {
	cfg := config{redactedQueryParams: make(nameSet), redactedHeaders: make(nameSet)}
	cfg.redactedHeaders.add("Authorization", "Cookie", "Set-Cookie", "Proxy-Authorization", "WWW-Authenticate", "Proxy-Authenticate")
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}
