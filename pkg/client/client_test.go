package client_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/kiloprojects/go-client/pkg/client"
	"github.com/kiloprojects/go-client/pkg/request"
)

type envelope struct {
	Status string         `json:"status"`
	Data   map[string]any `json:"data"`
}

type testError struct {
	Message    string `json:"error"`
	statusCode int
}

func (e *testError) Error() string {
	return e.Message
}

func (e *testError) SetResponse(response *http.Response) {
	e.statusCode = response.StatusCode
}

type testWriteCloser struct {
	io.Writer
}

func (v testWriteCloser) Close() error {
	_, err := v.Write([]byte("<CLOSE>"))
	return err
}

func TestNew(t *testing.T) {
	t.Parallel()
	c := New()
	assert.NotNil(t, c)
	assert.Nil(t, c.BaseURL())
	assert.Nil(t, c.Tracer())
}

func TestRequest_NoRetryByDefault(t *testing.T) {
	t.Parallel()
	c, transport := NewMockedClient()
	transport.RegisterResponder("GET", `https://example.com`, httpmock.NewStringResponder(503, "unavailable"))

	err := request.NewHTTPRequest(c).WithGet("https://example.com").SendOrErr(context.Background())
	assert.EqualError(t, err, `request GET "https://example.com" failed: 503 Service Unavailable`)
	assert.Equal(t, 1, transport.GetCallCountInfo()["GET https://example.com"])
}

func TestRawResults(t *testing.T) {
	t.Parallel()
	c, transport := NewMockedClient()
	transport.RegisterResponder("GET", "https://example.com", httpmock.NewStringResponder(200, `{"foo":"bar"}`))
	ctx := context.Background()

	var bytesResult []byte
	_, result, err := request.NewHTTPRequest(c).WithGet("https://example.com").WithResult(&bytesResult).Send(ctx)
	require.NoError(t, err)
	assert.Same(t, &bytesResult, result)
	assert.Equal(t, []byte(`{"foo":"bar"}`), bytesResult)

	var strResult string
	_, _, err = request.NewHTTPRequest(c).WithGet("https://example.com").WithResult(&strResult).Send(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"foo":"bar"}`, strResult)

	var out strings.Builder
	_, _, err = request.NewHTTPRequest(c).WithGet("https://example.com").WithResult(io.Writer(&out)).Send(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"foo":"bar"}`, out.String())

	out.Reset()
	_, _, err = request.NewHTTPRequest(c).WithGet("https://example.com").WithResult(testWriteCloser{Writer: &out}).Send(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"foo":"bar"}<CLOSE>`, out.String())
}

func TestRawResult_ErrorStatus(t *testing.T) {
	t.Parallel()
	c, transport := NewMockedClient()
	transport.RegisterResponder("GET", "https://example.com", httpmock.NewStringResponder(404, "not found"))

	var str string
	err := request.NewHTTPRequest(c).WithGet("https://example.com").WithResult(&str).SendOrErr(context.Background())
	assert.EqualError(t, err, `request GET "https://example.com" failed: 404 Not Found`)
}

func TestJSONResult_AnyStatus(t *testing.T) {
	t.Parallel()
	c, transport := NewMockedClient()
	transport.RegisterResponder("GET", "https://example.com/ok", httpmock.NewStringResponder(200, `{"status":"success","data":{"id":1}}`))
	transport.RegisterResponder("GET", "https://example.com/missing", httpmock.NewStringResponder(404, `{"status":"error","data":"Submission not found"}`))
	ctx := context.Background()

	result := &envelope{}
	res, _, err := request.NewHTTPRequest(c).WithGet("https://example.com/ok").WithResult(result).Send(ctx)
	require.NoError(t, err)
	assert.Equal(t, 200, res.StatusCode())
	assert.Equal(t, &envelope{Status: "success", Data: map[string]any{"id": float64(1)}}, result)

	// The envelope is decoded even if the status is an error status
	raw := make(map[string]any)
	res, mapped, err := request.NewHTTPRequest(c).WithGet("https://example.com/missing").WithResult(&raw).Send(ctx)
	require.NoError(t, err)
	assert.Equal(t, 404, res.StatusCode())
	assert.True(t, res.IsError())
	assert.Same(t, &raw, mapped)
	assert.Equal(t, map[string]any{"status": "error", "data": "Submission not found"}, raw)
}

func TestJSONResult_InvalidBody(t *testing.T) {
	t.Parallel()
	c, transport := NewMockedClient()
	transport.RegisterResponder("GET", "https://example.com", httpmock.NewStringResponder(502, `<html>Bad Gateway</html>`))

	result := &envelope{}
	err := request.NewHTTPRequest(c).WithGet("https://example.com").WithResult(result).SendOrErr(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `cannot process request GET "https://example.com": cannot decode JSON result:`)
}

func TestErrorDefinition(t *testing.T) {
	t.Parallel()
	c, transport := NewMockedClient()
	transport.RegisterResponder("GET", "https://example.com", httpmock.NewJsonResponderOrPanic(403, map[string]any{"error": "forbidden"}))

	result := &envelope{}
	_, _, err := request.NewHTTPRequest(c).
		WithGet("https://example.com").
		WithResult(result).
		WithError(&testError{}).
		Send(context.Background())
	require.Error(t, err)
	var target *testError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, "forbidden", target.Message)
	assert.Equal(t, 403, target.statusCode)
	assert.Empty(t, result.Status)
}

func TestNoContent(t *testing.T) {
	t.Parallel()
	c, transport := NewMockedClient()
	transport.RegisterResponder("DELETE", "https://example.com", httpmock.NewStringResponder(204, ""))

	result := &envelope{}
	_, mapped, err := request.NewHTTPRequest(c).WithMethod(http.MethodDelete).WithURL("https://example.com").WithResult(result).Send(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, mapped)
}

func TestGzipResponse(t *testing.T) {
	t.Parallel()
	c, transport := NewMockedClient()

	var body bytes.Buffer
	w := gzip.NewWriter(&body)
	_, _ = w.Write([]byte(`{"status":"success","data":{"id":2}}`))
	require.NoError(t, w.Close())
	transport.RegisterResponder("GET", "https://example.com", func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "gzip, br", req.Header.Get("Accept-Encoding"))
		res := httpmock.NewBytesResponse(200, body.Bytes())
		res.Header.Set("Content-Encoding", "gzip")
		return res, nil
	})

	result := &envelope{}
	require.NoError(t, request.NewHTTPRequest(c).WithGet("https://example.com").WithResult(result).SendOrErr(context.Background()))
	assert.Equal(t, map[string]any{"id": float64(2)}, result.Data)
}

func TestBaseURL_PathAndQuery(t *testing.T) {
	t.Parallel()
	c, transport := NewMockedClient()
	c = c.WithBaseURL("https://kilonova.test")
	transport.RegisterResponder("GET", `https://kilonova.test/api/user/byID/123`, httpmock.NewStringResponder(200, `{}`))
	transport.RegisterResponder("GET", `https://kilonova.test/api/submissions/get`, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "limit=50&offset=0&ordering=id", req.URL.RawQuery)
		return httpmock.NewStringResponse(200, `{}`), nil
	})
	ctx := context.Background()

	err := request.NewHTTPRequest(c).
		WithBaseURL("/api").
		WithGet("user/byID/{id}").
		AndPathParam("id", "123").
		SendOrErr(ctx)
	require.NoError(t, err)

	err = request.NewHTTPRequest(c).
		WithBaseURL("/api").
		WithGet("/submissions/get").
		WithQuery(request.Query{"ordering": "id", "offset": 0, "limit": 50, "user_id": nil}).
		SendOrErr(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, transport.GetTotalCallCount())
}

func TestHeaders(t *testing.T) {
	t.Parallel()
	c, transport := NewMockedClient()
	c = c.
		WithUserAgent("my-user-agent").
		WithHeader("X-Common", "common").
		WithHeaders(map[string]string{"Accept": "text/plain", "X-Other": "other"})
	transport.RegisterResponder("GET", "https://example.com", func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "my-user-agent", req.Header.Get("User-Agent"))
		assert.Equal(t, "common", req.Header.Get("X-Common"))
		assert.Equal(t, "other", req.Header.Get("X-Other"))
		// Request header replaces the common header
		assert.Equal(t, []string{"application/json"}, req.Header.Values("Accept"))
		assert.Equal(t, "guest", req.Header.Get("Authorization"))
		return httpmock.NewStringResponse(200, "OK"), nil
	})

	err := request.NewHTTPRequest(c).
		WithGet("https://example.com").
		AndHeader("Accept", "application/json").
		AndHeader("Authorization", "guest").
		SendOrErr(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestRequestBody(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		req         func(r request.HTTPRequest) request.HTTPRequest
		contentType string
		body        string
	}{
		{
			name:        "json",
			req:         func(r request.HTTPRequest) request.HTTPRequest { return r.WithJSONBody(map[string]any{"a": 1}) },
			contentType: "application/json",
			body:        `{"a":1}`,
		},
		{
			name:        "form",
			req:         func(r request.HTTPRequest) request.HTTPRequest { return r.WithFormBody(map[string]any{"id": 3, "name": "a b"}) },
			contentType: "application/x-www-form-urlencoded",
			body:        `id=3&name=a+b`,
		},
		{
			name:        "string",
			req:         func(r request.HTTPRequest) request.HTTPRequest { return r.WithBody("raw").WithContentType("text/plain") },
			contentType: "text/plain",
			body:        `raw`,
		},
		{
			name:        "bytes",
			req:         func(r request.HTTPRequest) request.HTTPRequest { return r.WithBody([]byte("raw")) },
			contentType: "",
			body:        `raw`,
		},
		{
			name:        "seeker",
			req:         func(r request.HTTPRequest) request.HTTPRequest { return r.WithBody(strings.NewReader("stream")) },
			contentType: "",
			body:        `stream`,
		},
	}

	for _, tc := range cases {
		c, transport := NewMockedClient()
		transport.RegisterResponder("POST", "https://example.com", func(req *http.Request) (*http.Response, error) {
			body, err := io.ReadAll(req.Body)
			assert.NoError(t, err, tc.name)
			assert.Equal(t, tc.body, string(body), tc.name)
			assert.Equal(t, tc.contentType, req.Header.Get("Content-Type"), tc.name)
			return httpmock.NewStringResponse(200, "OK"), nil
		})
		err := tc.req(request.NewHTTPRequest(c).WithPost("https://example.com")).SendOrErr(context.Background())
		assert.NoError(t, err, tc.name)
		assert.Equal(t, 1, transport.GetTotalCallCount(), tc.name)
	}
}

func TestRequestBody_Unsupported(t *testing.T) {
	t.Parallel()
	c, transport := NewMockedClient()

	err := request.NewHTTPRequest(c).WithPost("https://example.com").WithBody(map[string]any{"a": 1}).SendOrErr(context.Background())
	require.Error(t, err)
	assert.Equal(t, `request POST "https://example.com": cannot prepare request body: unsupported body type "map[string]interface {}"`, err.Error())
	assert.Equal(t, 0, transport.GetTotalCallCount())
}

func TestMultipartBody_UploadProgress(t *testing.T) {
	t.Parallel()
	c, transport := NewMockedClient()
	transport.RegisterResponder("POST", "https://example.com/api/submissions/submit", func(req *http.Request) (*http.Response, error) {
		mediaType, params, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
		require.NoError(t, err)
		assert.Equal(t, "multipart/form-data", mediaType)

		form, err := multipart.NewReader(req.Body, params["boundary"]).ReadForm(1 << 20)
		require.NoError(t, err)
		assert.Equal(t, []string{"cpp17"}, form.Value["lang"])
		require.Len(t, form.File["code"], 1)
		assert.Equal(t, "main.cpp", form.File["code"][0].Filename)
		return httpmock.NewStringResponse(200, `{"status":"success","data":{"id":55}}`), nil
	})

	var lock sync.Mutex
	var lastSent, lastTotal int64
	form := request.NewForm().
		AddField("lang", "cpp17").
		AddFile("code", "main.cpp", []byte("int main() { return 0; }"))
	result := &envelope{}
	err := request.NewHTTPRequest(c).
		WithPost("https://example.com/api/submissions/submit").
		WithMultipartBody(form).
		WithUploadProgress(func(sent, total int64) {
			lock.Lock()
			defer lock.Unlock()
			lastSent, lastTotal = sent, total
		}).
		WithResult(result).
		SendOrErr(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "success", result.Status)

	lock.Lock()
	defer lock.Unlock()
	assert.Greater(t, lastTotal, int64(0))
	assert.Equal(t, lastTotal, lastSent)
}

func TestContext_DeadlineExceeded(t *testing.T) {
	t.Parallel()
	c, transport := NewMockedClient()
	transport.RegisterResponder("GET", "https://example.com", func(request *http.Request) (*http.Response, error) {
		time.Sleep(100 * time.Millisecond)
		return httpmock.NewStringResponse(504, "test"), nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := request.NewHTTPRequest(c).WithGet("https://example.com").SendOrErr(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `request GET "https://example.com" failed: timeout after`)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestContext_Canceled(t *testing.T) {
	t.Parallel()
	c, transport := NewMockedClient()
	transport.RegisterResponder("GET", "https://example.com", func(request *http.Request) (*http.Response, error) {
		time.Sleep(100 * time.Millisecond)
		return httpmock.NewStringResponse(504, "test"), nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	wg := request.NewWaitGroup(ctx)
	wg.Send(request.NewHTTPRequest(c).WithGet("https://example.com"))
	time.Sleep(20 * time.Millisecond)
	cancel()

	err := wg.Wait()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `request GET "https://example.com" failed: canceled after`)
}

func TestNetworkError(t *testing.T) {
	t.Parallel()
	c, transport := NewMockedClient()
	transport.RegisterResponder("GET", "https://example.com", httpmock.NewErrorResponder(assert.AnError))

	err := request.NewHTTPRequest(c).WithGet("https://example.com").SendOrErr(context.Background())
	require.Error(t, err)
	assert.Equal(t, `request GET "https://example.com" failed: `+assert.AnError.Error(), err.Error())
}
