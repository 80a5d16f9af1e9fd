package workflow

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/grovetools/qualitylink/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerCompletesSteps(t *testing.T) {
	rec := &Recorder{}
	runner := NewRunner(rec)

	var ran []string
	id := runner.Start("refresh",
		Step{Name: "connect", Run: func(ctx context.Context) error { ran = append(ran, "connect"); return nil }},
		Step{Name: "sync", Run: func(ctx context.Context) error { ran = append(ran, "sync"); return nil }},
	)
	runner.Wait()

	assert.Equal(t, []string{"connect", "sync"}, ran)
	assert.False(t, runner.Busy())

	reports := rec.Reports()
	require.Len(t, reports, 3)
	assert.Equal(t, "connect", reports[0].Step)
	assert.Equal(t, "sync", reports[1].Step)
	last := reports[2]
	assert.Equal(t, id, last.WorkflowID)
	assert.True(t, last.Done)
	assert.NoError(t, last.Err)
	assert.Equal(t, "completed", last.Status())
}

func TestRunnerStepFailureStopsWorkflow(t *testing.T) {
	rec := &Recorder{}
	runner := NewRunner(rec)

	secondRan := false
	runner.Start("refresh",
		Step{Name: "connect", Run: func(ctx context.Context) error { return fmt.Errorf("connection refused") }},
		Step{Name: "sync", Run: func(ctx context.Context) error { secondRan = true; return nil }},
	)
	runner.Wait()

	assert.False(t, secondRan)
	last, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, "failed", last.Status())
	assert.EqualError(t, last.Err, "connection refused")
}

func TestRunnerRecoversStepPanic(t *testing.T) {
	rec := &Recorder{}
	runner := NewRunner(rec)

	runner.Start("refresh", Step{Name: "connect", Run: func(ctx context.Context) error {
		panic("bad response")
	}})
	runner.Wait()

	last, ok := rec.Last()
	require.True(t, ok)
	require.Error(t, last.Err)
	assert.Contains(t, last.Err.Error(), "bad response")
}

func TestRunnerAbortAll(t *testing.T) {
	rec := &Recorder{}
	runner := NewRunner(rec)

	started := make(chan struct{})
	runner.Start("refresh", Step{Name: "connect", Run: func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}})
	<-started
	assert.True(t, runner.Busy())

	runner.AbortAll()
	// Not busy as soon as AbortAll returns, before the goroutine exits
	assert.False(t, runner.Busy())

	runner.Wait()
	last, ok := rec.Last()
	require.True(t, ok)
	assert.True(t, last.Cancelled)
	assert.Equal(t, "cancelled", last.Status())
	assert.True(t, errors.Is(last.Err, errors.ErrCodeWorkflowAborted))
}

func TestRunnerAbortAllDoesNotWait(t *testing.T) {
	runner := NewRunner(nil)

	release := make(chan struct{})
	runner.Start("slow", Step{Name: "ignore-cancel", Run: func(ctx context.Context) error {
		<-release
		return nil
	}})

	returned := make(chan struct{})
	go func() {
		runner.AbortAll()
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("AbortAll blocked on a running step")
	}
	close(release)
	runner.Wait()
}

func TestRunnerChangeHost(t *testing.T) {
	first := &Recorder{}
	second := &Recorder{}
	runner := NewRunner(first)

	proceed := make(chan struct{})
	reported := make(chan struct{})
	runner.Start("refresh",
		Step{Name: "one", Run: func(ctx context.Context) error { close(reported); <-proceed; return nil }},
		Step{Name: "two", Run: func(ctx context.Context) error { return nil }},
	)

	<-reported
	runner.ChangeHost(second)
	close(proceed)
	runner.Wait()

	require.Len(t, first.Reports(), 1)
	assert.Equal(t, "one", first.Reports()[0].Step)

	steps := []string{}
	for _, p := range second.Reports() {
		steps = append(steps, p.Step)
	}
	assert.Equal(t, []string{"two", ""}, steps)
}
