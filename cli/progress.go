package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/qualitylink/workflow"
)

var (
	runningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	completedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	failedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	cancelledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// ProgressReporter prints workflow progress, one line per report
type ProgressReporter struct {
	mu     sync.Mutex
	out    io.Writer
	starts map[string]time.Time
}

// Verify interface compliance at compile time
var _ workflow.Host = (*ProgressReporter)(nil)

// NewProgressReporter creates a new progress reporter
func NewProgressReporter(out io.Writer) *ProgressReporter {
	return &ProgressReporter{
		out:    out,
		starts: make(map[string]time.Time),
	}
}

// Report implements workflow.Host
func (p *ProgressReporter) Report(progress workflow.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start, seen := p.starts[progress.WorkflowID]
	if !seen {
		start = time.Now()
		p.starts[progress.WorkflowID] = start
	}

	symbol, style := "[~]", runningStyle
	switch progress.Status() {
	case "completed":
		symbol, style = "[*]", completedStyle
	case "failed":
		symbol, style = "[x]", failedStyle
	case "cancelled":
		symbol, style = "[-]", cancelledStyle
	}

	line := progress.Workflow
	if progress.Step != "" {
		line += " > " + progress.Step
	}
	line += ": " + progress.Status()
	if progress.Done {
		line += fmt.Sprintf(" in %s", time.Since(start).Round(time.Millisecond))
		delete(p.starts, progress.WorkflowID)
	}
	if progress.Err != nil && !progress.Cancelled {
		line += fmt.Sprintf(" (%v)", progress.Err)
	}

	fmt.Fprintf(p.out, "%s %s\n", style.Render(symbol), line)
}
