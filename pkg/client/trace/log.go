package trace

import (
	"context"
	"net/http"
	"net/http/httptrace"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kiloprojects/go-client/pkg/request"
)

// LogTracer logs the request lifecycle at the debug level, with structured fields.
// Each request gets the "request.id" field, retries of the request share it.
// Headers are never logged, so the log is free of the session credential.
func LogTracer(logger *zap.SugaredLogger) Factory {
	var lastID atomic.Uint64
	return func(ctx context.Context, reqDef request.HTTPRequest) (context.Context, *ClientTrace) {
		log := logger.With("request.id", lastID.Add(1), "http.method", reqDef.Method())

		var url string
		var statusCode int
		var connStart, attemptStart, doneTime time.Time

		t := &ClientTrace{}
		t.ConnectStart = func(_, _ string) {
			connStart = time.Now()
		}
		t.GotConn = func(info httptrace.GotConnInfo) {
			if info.Reused {
				log.Debugw("http connection reused", "http.url", url, "conn.idle", info.IdleTime)
			} else {
				log.Debugw("http connection opened", "http.url", url, "conn.duration", time.Since(connStart))
			}
		}
		t.HTTPRequestStart = func(r *http.Request) {
			url = r.URL.String()
			attemptStart = time.Now()
			log.Debugw("http request started", "http.url", url)
		}
		t.HTTPRequestDone = func(r *http.Response, err error) {
			doneTime = time.Now()
			if r != nil {
				statusCode = r.StatusCode
			}
			fields := []any{"http.url", url, "http.status_code", statusCode, "duration", doneTime.Sub(attemptStart)}
			if err != nil {
				fields = append(fields, "error", err.Error())
			}
			log.Debugw("http request done", fields...)
		}
		t.HTTPRequestRetry = func(attempt int, delay time.Duration) {
			log.Debugw("http request retry", "http.url", url, "retry.attempt", attempt, "retry.delay", delay)
		}
		t.RequestProcessed = func(_ any, err error) {
			if url == "" {
				url = reqDef.URL().String()
			}
			fields := []any{"http.url", url, "http.status_code", statusCode, "duration", time.Since(doneTime)}
			if err != nil {
				fields = append(fields, "error", err.Error())
			}
			log.Debugw("http response processed", fields...)
		}
		return ctx, t
	}
}
