package otel

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kiloprojects/go-client/pkg/request"
)

const (
	maskedAttrValue = "****"
	apiRootSegment  = "/api/"
	guestSession    = "guest"
)

// attributes of one logical request, they are updated as HTTP attempts are sent.
// The "metric" groups have low cardinality, the "span" groups are attached to spans only.
type attributes struct {
	config config
	// call identifies the API call, for example "user/byID/{id}", placeholders are not substituted
	call         []attribute.KeyValue
	callSpan     []attribute.KeyValue
	attempt      []attribute.KeyValue
	response     []attribute.KeyValue
	responseSpan []attribute.KeyValue
}

func newAttributes(cfg config, reqDef request.HTTPRequest) *attributes {
	out := &attributes{config: cfg}

	resultType := ""
	if v := reflect.TypeOf(reqDef.ResultDef()); v != nil {
		resultType = v.String()
	}
	session := reqDef.RequestHeader().Get("Authorization")

	out.call = []attribute.KeyValue{
		attribute.String("kilonova.api.method", reqDef.Method()),
		attribute.String("kilonova.api.call", apiCall(reqDef.URL().Path)),
		attribute.Bool("kilonova.session.guest", session == "" || session == guestSession),
	}

	out.callSpan = append(out.callSpan, attribute.String("kilonova.api.result_type", resultType))
	out.callSpan = append(out.callSpan, headerAttrs(cfg, "kilonova.api.header.", reqDef.RequestHeader())...)
	for k, v := range reqDef.QueryParams() {
		value := strings.Join(v, ";")
		if cfg.redactedQueryParams.has(k) {
			value = maskedAttrValue
		}
		out.callSpan = append(out.callSpan, attribute.String("kilonova.api.query."+k, value))
	}
	for k, v := range reqDef.PathParams() {
		out.callSpan = append(out.callSpan, attribute.String("kilonova.api.path."+k, v))
	}
	return out
}

func (v *attributes) SetFromRequest(req *http.Request) {
	v.attempt = []attribute.KeyValue{
		attribute.String("http.method", req.Method),
		attribute.String("http.url.host", req.URL.Host),
		attribute.String("http.url.path", pathUnescape(req.URL.Path)),
	}
}

func (v *attributes) SetFromResponse(res *http.Response, err error) {
	v.response, v.responseSpan = nil, nil
	if res != nil {
		v.response = append(v.response, attribute.Int("http.status_code", res.StatusCode))
		v.responseSpan = headerAttrs(v.config, "http.response.header.", res.Header)
	}

	var netErr net.Error
	v.response = append(v.response,
		attribute.Bool("http.success", err == nil && res != nil && res.StatusCode < http.StatusBadRequest),
		attribute.Bool("http.error", err != nil),
		attribute.Bool("http.error.net", errors.As(err, &netErr)),
		attribute.Bool("http.error.canceled", errors.Is(err, context.Canceled)),
		attribute.Bool("http.error.deadline_exceeded", errors.Is(err, context.DeadlineExceeded)),
	)
}

// apiCall returns the path relative to the API root.
func apiCall(path string) string {
	path = pathUnescape(path)
	if _, call, found := strings.Cut(path, apiRootSegment); found {
		return call
	}
	return strings.TrimLeft(path, "/")
}

func headerAttrs(cfg config, prefix string, header http.Header) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(header))
	for key, values := range header {
		key = strings.ToLower(key)
		value := strings.Join(values, ";")
		if cfg.redactedHeaders.has(key) {
			value = maskedAttrValue
		}
		attrs = append(attrs, attribute.String(prefix+key, value))
	}
	sort.Slice(attrs, func(i, j int) bool {
		return attrs[i].Key < attrs[j].Key
	})
	return attrs
}

func pathUnescape(in string) string {
	if out, err := url.PathUnescape(in); err == nil {
		return out
	}
	return in
}
