// Package workspace tracks which workspace is open and tells subscribers
// when that changes.
package workspace

import (
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/grovetools/qualitylink/binding"
	"github.com/grovetools/qualitylink/logging"
	"github.com/sirupsen/logrus"
)

// Tracker holds the active workspace root and notifies subscribers whenever
// it is opened, closed or switched, or when Notify is called.
// Handlers run synchronously on the goroutine that caused the change.
type Tracker struct {
	mu          sync.RWMutex
	root        string
	subscribers map[string]func()
	order       []string
	logger      *logrus.Entry
}

// Verify interface compliance at compile time
var _ binding.Workspace = (*Tracker)(nil)

// NewTracker creates a tracker with no open workspace.
func NewTracker() *Tracker {
	return &Tracker{
		subscribers: make(map[string]func()),
		logger:      logging.NewLogger("workspace"),
	}
}

// Open makes root the active workspace. Opening the active root again does
// nothing.
func (t *Tracker) Open(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	t.mu.Lock()
	if t.root == abs {
		t.mu.Unlock()
		return nil
	}
	previous := t.root
	t.root = abs
	t.mu.Unlock()

	if previous == "" {
		t.logger.WithField("root", abs).Info("Workspace opened")
	} else {
		t.logger.WithFields(logrus.Fields{"root": abs, "previous": previous}).Info("Workspace switched")
	}
	t.Notify()
	return nil
}

// Close closes the active workspace, if any.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.root == "" {
		t.mu.Unlock()
		return
	}
	previous := t.root
	t.root = ""
	t.mu.Unlock()

	t.logger.WithField("root", previous).Info("Workspace closed")
	t.Notify()
}

// Active returns the active workspace root, or "" when none is open.
func (t *Tracker) Active() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root
}

// ActiveRoot implements binding.Workspace.
func (t *Tracker) ActiveRoot() (string, bool) {
	root := t.Active()
	return root, root != ""
}

// Subscribe registers fn for change notifications and returns an id for
// Unsubscribe.
func (t *Tracker) Subscribe(fn func()) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := uuid.New().String()
	t.subscribers[id] = fn
	t.order = append(t.order, id)
	return id
}

// Unsubscribe removes a subscription. It reports whether id was registered.
func (t *Tracker) Unsubscribe(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.subscribers[id]; !ok {
		return false
	}
	delete(t.subscribers, id)
	for i, existing := range t.order {
		if existing == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

// Notify calls every subscriber in subscription order.
func (t *Tracker) Notify() {
	t.mu.RLock()
	handlers := make([]func(), 0, len(t.order))
	for _, id := range t.order {
		handlers = append(handlers, t.subscribers[id])
	}
	t.mu.RUnlock()

	for _, h := range handlers {
		h()
	}
}
