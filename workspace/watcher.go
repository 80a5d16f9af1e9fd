package workspace

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/grovetools/qualitylink/logging"
	"github.com/sirupsen/logrus"
)

// Watcher watches a binding directory and calls onChange when a binding
// file is written, created, removed or renamed.
type Watcher struct {
	watcher  *fsnotify.Watcher
	dir      string
	debounce time.Duration
	timer    *time.Timer
	lastFile string
	mu       sync.Mutex
	logger   *logrus.Entry
	onChange func(file string)
}

// NewWatcher creates a watcher on dir, creating the directory if needed.
// debounceMs <= 0 selects the 100ms default.
func NewWatcher(dir string, debounceMs int, onChange func(string)) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	if debounceMs <= 0 {
		debounceMs = 100
	}

	return &Watcher{
		watcher:  watcher,
		dir:      dir,
		debounce: time.Duration(debounceMs) * time.Millisecond,
		logger:   logging.NewLogger("binding-watcher"),
		onChange: onChange,
	}, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Start processes file events. It blocks until ctx is cancelled or the
// watcher is closed.
func (w *Watcher) Start(ctx context.Context) {
	defer w.Close()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.logger.Debugf("fsnotify event: %s op=%v", event.Name, event.Op)

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if isBindingFile(event.Name) {
				w.handleChange(event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("Watcher error: %v", err)
		case <-ctx.Done():
			return
		}
	}
}

// Close stops the watcher and drops a pending notification; a running Start
// returns.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()
	return w.watcher.Close()
}

func isBindingFile(path string) bool {
	name := filepath.Base(path)
	if !strings.HasPrefix(name, "binding.") {
		return false
	}
	switch filepath.Ext(name) {
	case ".yml", ".yaml", ".toml":
		return true
	}
	return false
}

// handleChange schedules onChange once events have been quiet for the
// debounce interval, so a rewrite that touches several files is reported once
// with its final state on disk.
func (w *Watcher) handleChange(file string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.lastFile = file
	if w.timer != nil {
		w.timer.Stop()
		w.logger.Debugf("Debounced: %s", filepath.Base(file))
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	file := w.lastFile
	w.timer = nil
	w.mu.Unlock()

	w.logger.Infof("Binding changed: %s", filepath.Base(file))
	if w.onChange != nil {
		w.onChange(file)
	}
}
