package workflow

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Progress is one progress report of a running workflow.
type Progress struct {
	WorkflowID string
	Workflow   string
	Step       string
	Done       bool
	Cancelled  bool
	Err        error
}

// Status renders the report as a short status word.
func (p Progress) Status() string {
	switch {
	case p.Cancelled:
		return "cancelled"
	case p.Err != nil:
		return "failed"
	case p.Done:
		return "completed"
	default:
		return "running"
	}
}

// Host renders workflow progress.
type Host interface {
	Report(p Progress)
}

// HostFunc adapts a function to Host.
type HostFunc func(Progress)

// Report implements Host.
func (f HostFunc) Report(p Progress) { f(p) }

// LogHost writes progress to a logger.
type LogHost struct {
	Logger *logrus.Entry
}

// Report implements Host.
func (h LogHost) Report(p Progress) {
	entry := h.Logger.WithFields(logrus.Fields{
		"workflow":    p.Workflow,
		"workflow_id": p.WorkflowID,
		"status":      p.Status(),
	})
	if p.Step != "" {
		entry = entry.WithField("step", p.Step)
	}
	switch {
	case p.Err != nil && !p.Cancelled:
		entry.WithError(p.Err).Warn("Workflow failed")
	case p.Cancelled:
		entry.Info("Workflow cancelled")
	case p.Done:
		entry.Info("Workflow completed")
	default:
		entry.Debug("Workflow progress")
	}
}

// Recorder keeps every report it receives.
type Recorder struct {
	mu      sync.Mutex
	reports []Progress
}

// Report implements Host.
func (r *Recorder) Report(p Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, p)
}

// Reports returns a copy of the recorded reports.
func (r *Recorder) Reports() []Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Progress, len(r.reports))
	copy(out, r.reports)
	return out
}

// Last returns the most recent report.
func (r *Recorder) Last() (Progress, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.reports) == 0 {
		return Progress{}, false
	}
	return r.reports[len(r.reports)-1], true
}
