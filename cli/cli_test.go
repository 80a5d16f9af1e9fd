package cli

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/grovetools/qualitylink/errors"
	"github.com/grovetools/qualitylink/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "not bound",
			err:  errors.New(errors.ErrCodeBindingNotFound, "workspace is not bound"),
			want: "qlink bind",
		},
		{
			name: "invalid binding",
			err:  errors.BindingInvalid("/ws/.qlink/binding.yml", "serverUri is required"),
			want: "/ws/.qlink/binding.yml",
		},
		{
			name: "wrapped code",
			err:  fmt.Errorf("bind: %w", errors.InvalidArgument("project")),
			want: "project",
		},
		{
			name: "plain error",
			err:  fmt.Errorf("boom"),
			want: "Error: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			h := &ErrorHandler{Out: &out}

			assert.Equal(t, tt.err, h.Handle(tt.err))
			assert.Contains(t, out.String(), tt.want)
			assert.NotContains(t, out.String(), "Error details")
		})
	}
}

func TestErrorHandlerVerbose(t *testing.T) {
	var out bytes.Buffer
	h := &ErrorHandler{Verbose: true, Out: &out}

	h.Handle(errors.New(errors.ErrCodeBindingNotFound, "workspace is not bound").WithDetail("workspace", "/ws"))
	assert.Contains(t, out.String(), "Error details")
	assert.Contains(t, out.String(), `"/ws"`)

	assert.NoError(t, h.Handle(nil))
}

func TestProgressReporter(t *testing.T) {
	var out bytes.Buffer
	p := NewProgressReporter(&out)

	p.Report(workflow.Progress{WorkflowID: "w1", Workflow: "refresh", Step: "connect"})
	p.Report(workflow.Progress{WorkflowID: "w1", Workflow: "refresh", Done: true})
	p.Report(workflow.Progress{WorkflowID: "w2", Workflow: "refresh", Step: "connect", Done: true, Err: fmt.Errorf("401")})
	p.Report(workflow.Progress{WorkflowID: "w3", Workflow: "refresh", Step: "connect", Done: true,
		Cancelled: true, Err: errors.WorkflowAborted("refresh")})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "[~] refresh > connect: running")
	assert.Contains(t, lines[1], "[*] refresh: completed in ")
	assert.Contains(t, lines[2], "[x] refresh > connect: failed")
	assert.Contains(t, lines[2], "(401)")
	assert.Contains(t, lines[3], "[-] refresh > connect: cancelled")
	assert.NotContains(t, lines[3], "aborted")
	assert.Empty(t, p.starts)
}

func TestPrinterEncode(t *testing.T) {
	var out bytes.Buffer
	p := NewPrinter(&out, true)
	require.NoError(t, p.Encode(map[string]string{"key": "proj1"}))
	assert.Equal(t, "{\n  \"key\": \"proj1\"\n}\n", out.String())
}
