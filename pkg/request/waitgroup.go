package request

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/semaphore"
)

// WaitGroupConcurrencyLimit is the default number of requests of a WaitGroup in flight.
const WaitGroupConcurrencyLimit = 8

// WaitGroup sends each request as soon as Send is called, bounded by the concurrency limit.
// A failed request does not stop the others, Wait returns all errors.
// Requests can be sent from callbacks of requests in the group.
//
// Use RunGroup to schedule requests first and stop at the first error.
type WaitGroup struct {
	ctx     context.Context
	pending sync.WaitGroup
	slots   *semaphore.Weighted

	errsLock sync.Mutex
	errs     *multierror.Error
}

func NewWaitGroup(ctx context.Context) *WaitGroup {
	return NewWaitGroupWithLimit(ctx, WaitGroupConcurrencyLimit)
}

func NewWaitGroupWithLimit(ctx context.Context, limit int64) *WaitGroup {
	return &WaitGroup{ctx: ctx, slots: semaphore.NewWeighted(limit)}
}

// Send starts the request in a new goroutine.
func (g *WaitGroup) Send(request Sendable) {
	g.pending.Add(1)
	go func() {
		defer g.pending.Done()
		g.collect(g.send(request))
	}()
}

// Wait blocks until all requests, including those sent meanwhile, are completed.
// A single error is returned as it is, more errors are combined.
func (g *WaitGroup) Wait() error {
	g.pending.Wait()

	g.errsLock.Lock()
	defer g.errsLock.Unlock()
	if g.errs != nil && len(g.errs.Errors) == 1 {
		return g.errs.Errors[0]
	}
	return g.errs.ErrorOrNil()
}

func (g *WaitGroup) send(request Sendable) error {
	if err := g.slots.Acquire(g.ctx, 1); err != nil {
		return err
	}
	defer g.slots.Release(1)
	return request.SendOrErr(g.ctx)
}

func (g *WaitGroup) collect(err error) {
	if err == nil {
		return
	}
	g.errsLock.Lock()
	defer g.errsLock.Unlock()
	g.errs = multierror.Append(g.errs, err)
}
