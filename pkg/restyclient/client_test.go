package restyclient_test

import (
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiloprojects/go-client/pkg/client"
	"github.com/kiloprojects/go-client/pkg/request"
	. "github.com/kiloprojects/go-client/pkg/restyclient"
)

type envelope struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
}

func TestClient_JSONResult(t *testing.T) {
	t.Parallel()
	c, transport := NewMockedClient(WithBaseURL("https://kilonova.test"))
	transport.RegisterResponder("GET", "https://kilonova.test/api/submissions/getByID", func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "id=7", req.URL.RawQuery)
		assert.Equal(t, client.UserAgent, req.Header.Get("User-Agent"))
		assert.Equal(t, "guest", req.Header.Get("Authorization"))
		return httpmock.NewStringResponse(200, `{"status":"success","data":{"id":7}}`), nil
	})

	result := &envelope{}
	res, mapped, err := request.NewHTTPRequest(c).
		WithBaseURL("/api").
		WithGet("submissions/getByID").
		AndQueryParam("id", "7").
		AndHeader("Authorization", "guest").
		WithResult(result).
		Send(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 200, res.StatusCode())
	assert.Same(t, result, mapped)
	assert.Equal(t, &envelope{Status: "success", Data: map[string]any{"id": float64(7)}}, result)
}

func TestClient_ErrorEnvelope(t *testing.T) {
	t.Parallel()
	c, transport := NewMockedClient()
	transport.RegisterResponder("GET", "https://kilonova.test/api/user/byID/1", httpmock.NewStringResponder(404, `{"status":"error","data":"User not found"}`))

	result := &envelope{}
	res, _, err := request.NewHTTPRequest(c).WithGet("https://kilonova.test/api/user/byID/1").WithResult(result).Send(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 404, res.StatusCode())
	assert.Equal(t, &envelope{Status: "error", Data: "User not found"}, result)
}

func TestClient_GenericHTTPError(t *testing.T) {
	t.Parallel()
	c, transport := NewMockedClient()
	transport.RegisterResponder("GET", "https://kilonova.test", httpmock.NewStringResponder(500, "boom"))

	err := request.NewHTTPRequest(c).WithGet("https://kilonova.test").SendOrErr(context.Background())
	assert.EqualError(t, err, `request GET "https://kilonova.test" failed: 500 Internal Server Error`)
}

func TestClient_TransportError(t *testing.T) {
	t.Parallel()
	c, transport := NewMockedClient()
	transport.RegisterResponder("GET", "https://kilonova.test", httpmock.NewErrorResponder(assert.AnError))

	err := request.NewHTTPRequest(c).WithGet("https://kilonova.test").SendOrErr(context.Background())
	require.Error(t, err)
	assert.Equal(t, `request GET "https://kilonova.test" failed: `+assert.AnError.Error(), err.Error())
	assert.ErrorIs(t, err, assert.AnError)
}

func TestClient_JSONBody(t *testing.T) {
	t.Parallel()
	c, transport := NewMockedClient()
	transport.RegisterResponder("POST", "https://kilonova.test/api/body", func(req *http.Request) (*http.Response, error) {
		body, err := io.ReadAll(req.Body)
		assert.NoError(t, err)
		assert.Equal(t, `{"a":1}`, string(body))
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		return httpmock.NewStringResponse(200, `{"status":"success","data":"ok"}`), nil
	})

	result := &envelope{}
	err := request.NewHTTPRequest(c).
		WithPost("https://kilonova.test/api/body").
		WithJSONBody(map[string]any{"a": 1}).
		WithResult(result).
		SendOrErr(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Data)
}

func TestClient_FormBody(t *testing.T) {
	t.Parallel()
	c, transport := NewMockedClient()
	transport.RegisterResponder("POST", "https://kilonova.test/api/form", func(req *http.Request) (*http.Response, error) {
		body, err := io.ReadAll(req.Body)
		assert.NoError(t, err)
		assert.Equal(t, `ids=1&ids=2&name=x`, string(body))
		assert.Equal(t, "application/x-www-form-urlencoded", req.Header.Get("Content-Type"))
		return httpmock.NewStringResponse(200, `{"status":"success","data":"ok"}`), nil
	})

	err := request.NewHTTPRequest(c).
		WithPost("https://kilonova.test/api/form").
		WithFormBody(map[string]any{"name": "x", "ids": []int{1, 2}}).
		SendOrErr(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestClient_MultipartBody(t *testing.T) {
	t.Parallel()

	form := request.NewForm().
		AddField("problemID", "12").
		AddField("lang", "cpp17").
		AddFile("code", "main.cpp", []byte("int main() {}"))

	for _, trackProgress := range []bool{false, true} {
		c, transport := NewMockedClient()
		transport.RegisterResponder("POST", "https://kilonova.test/api/submissions/submit", func(req *http.Request) (*http.Response, error) {
			mediaType, params, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
			require.NoError(t, err)
			assert.Equal(t, "multipart/form-data", mediaType)
			parsed, err := multipart.NewReader(req.Body, params["boundary"]).ReadForm(1 << 20)
			require.NoError(t, err)
			assert.Equal(t, []string{"12"}, parsed.Value["problemID"])
			assert.Equal(t, []string{"cpp17"}, parsed.Value["lang"])
			require.Len(t, parsed.File["code"], 1)
			f, err := parsed.File["code"][0].Open()
			require.NoError(t, err)
			content, err := io.ReadAll(f)
			require.NoError(t, err)
			assert.Equal(t, "int main() {}", string(content))
			return httpmock.NewStringResponse(200, `{"status":"success","data":1}`), nil
		})

		var sent int64
		req := request.NewHTTPRequest(c).WithPost("https://kilonova.test/api/submissions/submit").WithMultipartBody(form)
		if trackProgress {
			req = req.WithUploadProgress(func(s, _ int64) {
				sent = s
			})
		}
		require.NoError(t, req.SendOrErr(context.Background()))
		if trackProgress {
			assert.Greater(t, sent, int64(0))
		}
	}
}

func TestClient_Retry(t *testing.T) {
	t.Parallel()
	c, transport := NewMockedClient(WithRetry(2, time.Millisecond))
	transport.RegisterResponder("GET", "https://kilonova.test", httpmock.NewStringResponder(503, "unavailable"))

	err := request.NewHTTPRequest(c).WithGet("https://kilonova.test").SendOrErr(context.Background())
	assert.EqualError(t, err, `request GET "https://kilonova.test" failed: 503 Service Unavailable`)
	assert.Equal(t, 3, transport.GetTotalCallCount())
}

func TestClient_Canceled(t *testing.T) {
	t.Parallel()
	c, transport := NewMockedClient()
	transport.RegisterResponder("GET", "https://kilonova.test", httpmock.NewStringResponder(200, `{}`))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Canceled context stops the request before it is sent
	err := request.NewHTTPRequest(c).WithGet("https://kilonova.test").SendOrErr(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, transport.GetTotalCallCount())
}

func TestClient_ZeroValue(t *testing.T) {
	t.Parallel()
	err := request.NewHTTPRequest(Client{}).WithGet("https://kilonova.test/api/user/self").SendOrErr(context.Background())
	assert.ErrorIs(t, err, ErrNotInitialized)
}
