// Package workflow runs cancellable step workflows and reports their
// progress to a replaceable host.
package workflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/grovetools/qualitylink/errors"
	"github.com/grovetools/qualitylink/logging"
	"github.com/sirupsen/logrus"
)

// Step is one unit of a workflow. Run must return promptly once ctx is done.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// Runner starts workflows on their own goroutines. Progress goes to the
// host that is current when the report is made.
type Runner struct {
	mu       sync.Mutex
	host     Host
	inflight map[string]context.CancelFunc
	wg       sync.WaitGroup
	logger   *logrus.Entry
}

// NewRunner creates a runner reporting to host; a nil host discards reports.
func NewRunner(host Host) *Runner {
	return &Runner{
		host:     host,
		inflight: make(map[string]context.CancelFunc),
		logger:   logging.NewLogger("workflow"),
	}
}

// Start launches a workflow running steps in order and returns its id.
func (r *Runner) Start(name string, steps ...Step) string {
	id := uuid.New().String()
	ctx, cancel := context.WithCancel(context.Background())

	r.mu.Lock()
	r.inflight[id] = cancel
	r.wg.Add(1)
	r.mu.Unlock()

	r.logger.WithFields(logrus.Fields{"workflow": name, "workflow_id": id}).Debug("Starting workflow")

	go func() {
		defer r.wg.Done()
		defer r.finish(id)
		r.run(ctx, id, name, steps)
	}()
	return id
}

func (r *Runner) run(ctx context.Context, id, name string, steps []Step) {
	for _, step := range steps {
		if ctx.Err() != nil {
			r.report(Progress{WorkflowID: id, Workflow: name, Step: step.Name, Done: true,
				Cancelled: true, Err: errors.WorkflowAborted(name)})
			return
		}

		r.report(Progress{WorkflowID: id, Workflow: name, Step: step.Name})
		err := runStep(ctx, step)
		if ctx.Err() != nil {
			r.report(Progress{WorkflowID: id, Workflow: name, Step: step.Name, Done: true,
				Cancelled: true, Err: errors.WorkflowAborted(name)})
			return
		}
		if err != nil {
			r.report(Progress{WorkflowID: id, Workflow: name, Step: step.Name, Done: true, Err: err})
			return
		}
	}
	r.report(Progress{WorkflowID: id, Workflow: name, Done: true})
}

// runStep converts a panicking step into a failure of its workflow, except
// for critical panics, which are re-raised.
func runStep(ctx context.Context, step Step) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			perr := errors.FromPanic(rec)
			if errors.IsCritical(perr) {
				panic(rec)
			}
			err = fmt.Errorf("step %s panicked: %w", step.Name, perr)
		}
	}()
	return step.Run(ctx)
}

func (r *Runner) report(p Progress) {
	r.mu.Lock()
	host := r.host
	r.mu.Unlock()
	if host != nil {
		host.Report(p)
	}
}

func (r *Runner) finish(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cancel, ok := r.inflight[id]; ok {
		cancel()
		delete(r.inflight, id)
	}
}

// AbortAll cancels every in-flight workflow and returns without waiting
// for them to stop.
func (r *Runner) AbortAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.inflight) > 0 {
		r.logger.WithField("count", len(r.inflight)).Info("Aborting workflows")
	}
	for id, cancel := range r.inflight {
		cancel()
		delete(r.inflight, id)
	}
}

// ChangeHost redirects subsequent progress reports to host.
func (r *Runner) ChangeHost(host Host) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.host = host
}

// Busy reports whether any workflow has not been aborted or finished.
func (r *Runner) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inflight) > 0
}

// Wait blocks until every started workflow goroutine has returned.
func (r *Runner) Wait() {
	r.wg.Wait()
}
