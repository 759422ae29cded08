// Package counter counts request body bytes as they are sent.
package counter

import (
	"errors"
	"io"
)

// ProgressFunc receives the number of bytes sent so far and the total size, -1 if unknown.
type ProgressFunc func(sent, total int64)

// Body wraps a request body and reports progress after each non-empty read.
// At the end of the body, the final report carries the real size if the total was unknown.
type Body struct {
	body     io.ReadCloser
	report   ProgressFunc
	total    int64
	sent     int64
	reported int64
	finished bool
}

func NewBody(body io.ReadCloser, total int64, report ProgressFunc) *Body {
	return &Body{body: body, total: total, report: report}
}

// Sent returns the number of bytes read from the body.
func (b *Body) Sent() int64 {
	return b.sent
}

func (b *Body) Read(p []byte) (int, error) {
	n, err := b.body.Read(p)
	b.sent += int64(n)
	if b.report == nil {
		return n, err
	}

	if errors.Is(err, io.EOF) {
		b.finish()
	} else if n > 0 {
		b.report(b.sent, b.total)
		b.reported = b.sent
	}
	return n, err
}

func (b *Body) Close() error {
	return b.body.Close()
}

func (b *Body) finish() {
	if b.finished {
		return
	}
	b.finished = true

	total := b.total
	if total < 0 {
		total = b.sent
	} else if b.reported == b.sent {
		return
	}
	b.report(b.sent, total)
	b.reported = b.sent
}
