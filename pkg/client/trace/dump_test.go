package trace_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/keboola/go-utils/pkg/wildcards"
	"github.com/stretchr/testify/assert"

	"github.com/kiloprojects/go-client/pkg/client"
	"github.com/kiloprojects/go-client/pkg/client/trace"
	"github.com/kiloprojects/go-client/pkg/request"
)

func TestDumpTracer(t *testing.T) {
	t.Parallel()

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", `https://example.com/api/user/byID/1`, httpmock.ResponderFromMultipleResponses([]*http.Response{
		{StatusCode: http.StatusTooManyRequests},
		{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(`{"status":"success","data":{"id":1}}`))},
	}))

	var logs strings.Builder
	c := client.New().
		WithTransport(transport).
		WithRetry(client.TestingRetry()).
		AndTrace(trace.DumpTracer(&logs))

	expected := `
>>> GET /api/user/byID/1 HTTP/1.1
Host: example.com
User-Agent: kilonova-go-client
Accept-Encoding: gzip, br
Authorization: ****

<<< HTTP/0.0 429 Too Many Requests
Content-Length: 0

~~~ retry #1 in 1ms

>>> GET /api/user/byID/1 HTTP/1.1
Host: example.com
User-Agent: kilonova-go-client
Accept-Encoding: gzip, br
Authorization: ****

<<< HTTP/0.0 200 OK
Content-Length: 0

{
  "status": "success",
  "data": {
    "id": 1
  }
}

=== GET /api/user/byID/1 | status 200 | %s
`

	str := ""
	_, _, err := request.NewHTTPRequest(c).
		WithGet("https://example.com/api/user/byID/1").
		AndHeader("Authorization", "secret-session").
		WithResult(&str).
		Send(context.Background())
	assert.NoError(t, err)
	assert.NotContains(t, logs.String(), "secret-session")
	wildcards.Assert(t, strings.TrimSpace(expected), strings.TrimSpace(logs.String()))
}

func TestDumpTracer_Error(t *testing.T) {
	t.Parallel()

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("POST", `https://example.com/api/submissions/submit`, httpmock.NewErrorResponder(errors.New("connection reset")))

	var logs strings.Builder
	c := client.New().WithTransport(transport).AndTrace(trace.DumpTracer(&logs))

	err := request.NewHTTPRequest(c).
		WithPost("https://example.com/api/submissions/submit").
		AndHeader("Cookie", "kn-sessionid=secret-session").
		WithFormBody(map[string]any{"lang": "cpp17"}).
		SendOrErr(context.Background())
	assert.Error(t, err)
	assert.NotContains(t, logs.String(), "secret-session")
	assert.Contains(t, logs.String(), "Cookie: ****")
	assert.Contains(t, logs.String(), "lang=cpp17")
	assert.Contains(t, logs.String(), "<<< error after ")
	assert.Contains(t, logs.String(), "connection reset")
	assert.Contains(t, logs.String(), "=== POST /api/submissions/submit | status 0 | ")
}
