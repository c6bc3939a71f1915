package executor

import (
	"context"
	"sync"

	"github.com/caffeineduck/vehicle/hostfunc"
)

// loop drives a host's async ops. Jobs run on their own goroutines and post
// their completions back over done; only the goroutine calling run executes
// completions, so everything touching the script engine or the resource
// table stays on one thread.
type loop struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan func() error
	wg     sync.WaitGroup

	// pending is only touched on the script thread.
	pending int
}

func newLoop() *loop {
	ctx, cancel := context.WithCancel(context.Background())
	return &loop{
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan func() error),
	}
}

// submit starts job on a backend goroutine. settle runs on the script thread
// with the job's completion.
func (l *loop) submit(job hostfunc.Job, settle func(hostfunc.Completion) error) {
	l.pending++
	l.wg.Add(1)

	go func() {
		defer l.wg.Done()
		c := job(l.ctx)
		select {
		case l.done <- func() error { return settle(c) }:
		case <-l.ctx.Done():
		}
	}()
}

// run executes completions until no op is pending, ctx is done or check
// reports an error. check runs before waiting for each completion.
func (l *loop) run(ctx context.Context, check func() error) error {
	for {
		if err := check(); err != nil {
			return err
		}
		if l.pending == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.done:
			l.pending--
			if err := fn(); err != nil {
				return err
			}
		}
	}
}

// stop cancels outstanding jobs and waits for their goroutines. Jobs blocked
// on a resource must be unblocked by closing the resource first.
func (l *loop) stop() {
	l.cancel()
	l.wg.Wait()
}
