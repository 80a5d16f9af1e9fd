package logging

import (
	"io"
	"os"
	"sync/atomic"
)

// writerBox gives atomic.Value a single concrete type to store.
type writerBox struct{ io.Writer }

// stderrSink is where component loggers write their stderr-side output.
var stderrSink atomic.Value

func init() {
	stderrSink.Store(writerBox{os.Stderr})
}

// sinkWriter forwards to whatever writer stderrSink holds at write time, so
// loggers created before SetGlobalOutput still follow it.
type sinkWriter struct{}

func (sinkWriter) Write(p []byte) (int, error) {
	return stderrSink.Load().(writerBox).Write(p)
}

// SetGlobalOutput redirects the stderr-side output of all component loggers.
// Tests use it to capture log output.
func SetGlobalOutput(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	stderrSink.Store(writerBox{w})
}

// GetGlobalOutput returns the writer component loggers use for stderr output.
func GetGlobalOutput() io.Writer {
	return sinkWriter{}
}
