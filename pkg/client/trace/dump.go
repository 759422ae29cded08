package trace

import (
	"bytes"
	"context"
	stdjson "encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"os"
	"strings"
	"time"

	"github.com/kiloprojects/go-client/pkg/client/decode"
	"github.com/kiloprojects/go-client/pkg/request"
)

const (
	dumpMaxBodyLength = 2000
	dumpFullEnv       = "KN_HTTP_DUMP_FULL"
	maskedValue       = "****"
)

// DumpTracer writes each HTTP attempt, the request and the response, to the writer.
// The Authorization and Cookie headers are masked, they contain the session credential.
// JSON bodies are indented, long bodies are truncated unless KN_HTTP_DUMP_FULL=true.
func DumpTracer(wr io.Writer) Factory {
	return func(ctx context.Context, reqDef request.HTTPRequest) (context.Context, *ClientTrace) {
		d := &dumper{wr: wr}
		var startTime, attemptTime time.Time
		var lastStatus int

		t := &ClientTrace{}
		t.HTTPRequestStart = func(r *http.Request) {
			if startTime.IsZero() {
				startTime = time.Now()
			}
			attemptTime = time.Now()
			d.request(r)
		}
		t.HTTPRequestDone = func(r *http.Response, err error) {
			if r != nil {
				lastStatus = r.StatusCode
			}
			d.response(r, err, time.Since(attemptTime))
		}
		t.HTTPRequestRetry = func(attempt int, delay time.Duration) {
			d.printf("~~~ retry #%d in %s\n\n", attempt, delay)
		}
		t.RequestProcessed = func(_ any, err error) {
			if err != nil {
				d.printf("=== %s %s | status %d | %s | error: %s\n\n", reqDef.Method(), reqDef.URL().Path, lastStatus, time.Since(startTime), err)
				return
			}
			d.printf("=== %s %s | status %d | %s\n\n", reqDef.Method(), reqDef.URL().Path, lastStatus, time.Since(startTime))
		}
		return ctx, t
	}
}

type dumper struct {
	wr io.Writer
}

func (d *dumper) request(r *http.Request) {
	out, err := httputil.DumpRequestOut(maskCredentials(r), true)
	if err != nil {
		d.printf(">>> %s %s\ncannot dump request: %s\n\n", r.Method, r.URL.RequestURI(), err)
		return
	}
	head, body, _ := strings.Cut(strings.ReplaceAll(string(out), "\r\n", "\n"), "\n\n")
	d.printf(">>> %s\n", head)
	d.body(body, r.Header.Get("Content-Type"))
}

func (d *dumper) response(r *http.Response, err error, elapsed time.Duration) {
	if err != nil {
		d.printf("<<< error after %s: %s\n\n", elapsed, err)
		return
	}

	head, dumpErr := httputil.DumpResponse(r, false)
	if dumpErr != nil {
		d.printf("<<< cannot dump response: %s\n\n", dumpErr)
		return
	}
	d.printf("<<< %s\n", strings.TrimSpace(strings.ReplaceAll(string(head), "\r\n", "\n")))

	if r.Body == nil {
		d.printf("\n")
		return
	}

	// The body is read and buffered, so the client can read it again
	var raw bytes.Buffer
	decoded, decodeErr := decode.Decode(io.NopCloser(io.TeeReader(r.Body, &raw)), r.Header.Get("Content-Encoding"))
	var plain strings.Builder
	if decodeErr == nil {
		_, decodeErr = io.Copy(&plain, decoded)
	}
	r.Body = io.NopCloser(bytes.NewReader(raw.Bytes()))
	if decodeErr != nil {
		d.printf("cannot read response body: %s\n\n", decodeErr)
		return
	}
	d.body(plain.String(), r.Header.Get("Content-Type"))
}

func (d *dumper) body(body, contentType string) {
	body = strings.TrimSpace(body)
	if body == "" {
		d.printf("\n")
		return
	}

	if strings.Contains(contentType, "json") || strings.HasPrefix(body, "{") {
		var indented bytes.Buffer
		if stdjson.Indent(&indented, []byte(body), "", "  ") == nil {
			body = indented.String()
		}
	}

	if len(body) > dumpMaxBodyLength && os.Getenv(dumpFullEnv) != "true" { //nolint:forbidigo
		body = body[:dumpMaxBodyLength] + fmt.Sprintf("\n... (set env %s=true to see full output)", dumpFullEnv)
	}
	d.printf("\n%s\n\n", body)
}

func (d *dumper) printf(format string, a ...any) {
	_, _ = fmt.Fprintf(d.wr, format, a...)
}

func maskCredentials(r *http.Request) *http.Request {
	if r.Header.Get("Authorization") == "" && r.Header.Get("Cookie") == "" {
		return r
	}
	clone := r.Clone(r.Context())
	for _, name := range []string{"Authorization", "Cookie"} {
		if clone.Header.Get(name) != "" {
			clone.Header.Set(name, maskedValue)
		}
	}
	// Clone shares the body, GetBody returns a fresh copy for the dump.
	// A stream body is not dumped, it can be read only once.
	clone.Body, clone.ContentLength = http.NoBody, 0
	if r.GetBody != nil {
		if body, err := r.GetBody(); err == nil {
			clone.Body, clone.ContentLength = body, r.ContentLength
		}
	}
	return clone
}
