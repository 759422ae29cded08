package request

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// RunGroupConcurrencyLimit is the default number of requests of a RunGroup in flight.
const RunGroupConcurrencyLimit = 32

// RunGroup collects requests by Add and sends them when RunAndWait is called.
// The first error cancels the group context, so the remaining requests fail fast, and it is returned.
//
// Use WaitGroup to send requests immediately and collect all errors.
type RunGroup struct {
	ctx     context.Context
	group   *errgroup.Group
	slots   *semaphore.Weighted
	started chan struct{}
}

func NewRunGroup(ctx context.Context) *RunGroup {
	return NewRunGroupWithLimit(ctx, RunGroupConcurrencyLimit)
}

func NewRunGroupWithLimit(ctx context.Context, limit int64) *RunGroup {
	group, ctx := errgroup.WithContext(ctx)
	return &RunGroup{ctx: ctx, group: group, slots: semaphore.NewWeighted(limit), started: make(chan struct{})}
}

// Add schedules the request, it may be called from a callback while RunAndWait is running.
func (g *RunGroup) Add(request Sendable) {
	g.group.Go(func() error {
		<-g.started
		if err := g.slots.Acquire(g.ctx, 1); err != nil {
			return err
		}
		defer g.slots.Release(1)
		return request.SendOrErr(g.ctx)
	})
}

// RunAndWait releases the scheduled requests and waits for all of them.
func (g *RunGroup) RunAndWait() error {
	close(g.started)
	return g.group.Wait()
}
