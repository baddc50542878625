// Package worker offloads pure, CPU-heavy compute (shuffling many zones,
// bulk filters) onto a bounded goroutine pool, so the Engine's single
// logical thread never blocks on it directly (spec.md §5: "Implementations
// MAY offload CPU-heavy deterministic batch operations... to a worker
// pool, provided the exposed dispatch contract remains synchronous").
package worker

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
)

// Options mirrors the constructor's workerOptions (spec.md §6). workerPath
// and wasmPath name bundler/WASM plumbing the spec excludes outright; they
// have no analogue here.
type Options struct {
	Enabled bool
	Timeout time.Duration
	Size    int64
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 50 * time.Millisecond
	}
	if o.Size <= 0 {
		o.Size = 4
	}
	return o
}

// Pool bounds concurrent offloads with a weighted semaphore.
type Pool struct {
	sem     *semaphore.Weighted
	timeout time.Duration
}

func New(opts Options) *Pool {
	opts = opts.withDefaults()
	return &Pool{sem: semaphore.NewWeighted(opts.Size), timeout: opts.Timeout}
}

// Run offloads fn onto the pool and waits up to the configured timeout. If
// fn neither acquires a slot nor returns in time, Run reports timedOut=true
// and the caller is expected to fall back to running the equivalent
// computation inline; fn itself keeps running in the background and its
// eventual result, if any, is discarded (spec.md §5: "timeout causes the
// offload to be abandoned").
func (p *Pool) Run(fn func() (any, error)) (result any, err error, timedOut bool) {
	type outcome struct {
		val any
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		if acqErr := p.sem.Acquire(ctx, 1); acqErr != nil {
			// No slot freed up within the deadline; run unbounded rather
			// than deadlock a caller who's already decided to fall back.
			v, e := fn()
			done <- outcome{v, e}
			return
		}
		defer p.sem.Release(1)
		v, e := fn()
		done <- outcome{v, e}
	}()

	select {
	case o := <-done:
		return o.val, o.err, false
	case <-time.After(p.timeout):
		return nil, nil, true
	}
}
