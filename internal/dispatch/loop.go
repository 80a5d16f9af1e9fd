// Package dispatch provides the single coordination goroutine that session
// operations run on.
package dispatch

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/grovetools/qualitylink/errors"
)

// Loop runs posted jobs one at a time, in posting order, on the goroutine
// that called Run.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	stopped bool
	running atomic.Bool
	inJob   atomic.Bool
}

// NewLoop creates a loop. Jobs may be posted before Run is called.
func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Run processes jobs until ctx is done. Jobs still queued at that point are
// dropped and later posts are refused.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return errors.ContractViolation("dispatch loop is already running")
	}
	defer l.stop()

	for {
		for {
			job, ok := l.next()
			if !ok {
				break
			}
			l.run(job)
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	job := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return job, true
}

func (l *Loop) run(job func()) {
	l.inJob.Store(true)
	defer l.inJob.Store(false)
	job()
}

func (l *Loop) stop() {
	l.mu.Lock()
	l.stopped = true
	l.queue = nil
	l.mu.Unlock()
}

// Post queues fn and returns immediately. It reports false once the loop has
// stopped.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Do runs fn on the loop and waits for it to finish. Called from inside a
// job it runs fn inline.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	if l.CheckAccess() {
		fn()
		return nil
	}

	done := make(chan struct{})
	if !l.Post(func() {
		defer close(done)
		fn()
	}) {
		return errors.New(errors.ErrCodeInternal, "dispatch loop has stopped")
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CheckAccess reports whether the caller is running inside a loop job.
// Go has no goroutine identity, so this is true for any goroutine while a job
// is executing; it catches calls made outside the loop, not concurrent ones.
func (l *Loop) CheckAccess() bool {
	return l.inJob.Load()
}
