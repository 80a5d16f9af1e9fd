// Package session keeps the add-in's view of the workspace binding in step
// with the workspace. A Coordinator owns the attached section, the visual
// state and the deferred-reset flag, and reconciles them with the persisted
// binding whenever the workspace changes.
//
// All Coordinator methods must be called on the coordination goroutine.
package session

import (
	"reflect"

	"github.com/grovetools/qualitylink/binding"
	"github.com/grovetools/qualitylink/errors"
	"github.com/grovetools/qualitylink/logging"
	"github.com/sirupsen/logrus"
)

// Coordinator is the session host.
type Coordinator struct {
	services   ServiceLocator
	store      BindingStore
	runner     WorkflowRunner
	tracker    WorkspaceTracker
	dispatcher Dispatcher
	state      *StateManager
	logger     *logrus.Entry
	onCritical func(error)

	activeSection  Section
	pendingReset   bool
	subscriptionID string
	closed         bool
}

// Verify interface compliance at compile time
var _ Host = (*Coordinator)(nil)

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithStateManager supplies the visual state instead of a fresh one.
func WithStateManager(state *StateManager) Option {
	return func(c *Coordinator) {
		if state != nil {
			c.state = state
		}
	}
}

// WithLogger replaces the component logger.
func WithLogger(logger *logrus.Entry) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCriticalHandler sets the function that receives errors a workspace
// change notification cannot return: critical failures and contract
// violations. The default panics with the error.
func WithCriticalHandler(fn func(error)) Option {
	return func(c *Coordinator) {
		if fn != nil {
			c.onCritical = fn
		}
	}
}

// New creates the coordinator and subscribes it to tracker. It must be
// called on the coordination goroutine.
func New(services ServiceLocator, store BindingStore, runner WorkflowRunner, tracker WorkspaceTracker, dispatcher Dispatcher, opts ...Option) (*Coordinator, error) {
	switch {
	case isNil(services):
		return nil, errors.InvalidArgument("services")
	case isNil(store):
		return nil, errors.InvalidArgument("store")
	case isNil(runner):
		return nil, errors.InvalidArgument("runner")
	case isNil(tracker):
		return nil, errors.InvalidArgument("tracker")
	case isNil(dispatcher):
		return nil, errors.InvalidArgument("dispatcher")
	}
	if !dispatcher.CheckAccess() {
		return nil, errors.ContractViolation("session coordinator must be created on the coordination goroutine")
	}

	c := &Coordinator{
		services:   services,
		store:      store,
		runner:     runner,
		tracker:    tracker,
		dispatcher: dispatcher,
		state:      NewStateManager(),
		logger:     logging.NewLogger("session"),
		onCritical: func(err error) { panic(err) },
		// The first attach after the workspace opens always reconciles.
		pendingReset: true,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.subscriptionID = tracker.Subscribe(c.onWorkspaceChanged)
	return c, nil
}

// Dispatcher returns the coordination goroutine's dispatcher.
func (c *Coordinator) Dispatcher() Dispatcher {
	return c.dispatcher
}

// VisualState returns the session-visible state.
func (c *Coordinator) VisualState() *StateManager {
	return c.state
}

// ActiveSection returns the attached section, or nil.
func (c *Coordinator) ActiveSection() Section {
	return c.activeSection
}

// Service resolves a host service.
func (c *Coordinator) Service(key string) (interface{}, bool) {
	return c.services.Service(key)
}

// PendingReset reports whether a reconciliation is owed to the next attach.
func (c *Coordinator) PendingReset() bool {
	return c.pendingReset
}

// SetActiveSection attaches section. Attaching while a section is attached
// is a contract violation. If a reconciliation was deferred, it runs now
// without aborting workflows and its error is returned.
func (c *Coordinator) SetActiveSection(section Section) error {
	if isNil(section) {
		return errors.InvalidArgument("section")
	}
	if c.closed {
		return errors.ContractViolation("session coordinator is closed")
	}
	if c.activeSection != nil {
		return c.violation(errors.ContractViolation("a section is already attached; clear it first"))
	}
	viewModel := section.ViewModel()
	if isNil(viewModel) {
		return c.violation(errors.ContractViolation("section has no view model"))
	}
	progressHost := section.ProgressHost()
	if isNil(progressHost) {
		return c.violation(errors.ContractViolation("section has no progress host"))
	}

	c.activeSection = section
	c.state.SyncCommandFromActiveSection(section)

	viewModel.SetState(c.state.ManagedState())
	c.runner.ChangeHost(progressHost)
	c.logger.Debug("Section attached")

	if c.pendingReset {
		c.pendingReset = false
		return c.resetBinding(false)
	}
	return nil
}

// ClearActiveSection detaches the attached section. It does nothing when no
// section is attached.
func (c *Coordinator) ClearActiveSection() {
	if c.activeSection == nil {
		return
	}

	if viewModel := c.activeSection.ViewModel(); !isNil(viewModel) {
		viewModel.SetState(nil)
	}
	c.activeSection = nil
	c.state.SyncCommandFromActiveSection(nil)
	c.logger.Debug("Section detached")
}

// Close unsubscribes from the workspace tracker. Later workspace changes are
// ignored. Close is idempotent.
func (c *Coordinator) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if !c.tracker.Unsubscribe(c.subscriptionID) {
		c.logger.Warn("Workspace subscription was already removed")
	}
	return nil
}

func (c *Coordinator) onWorkspaceChanged() {
	if c.closed {
		return
	}
	c.logger.Info("Workspace changed, resetting binding")

	if err := c.resetBinding(true); err != nil {
		c.onCritical(err)
	}
}

// resetBinding reconciles the session with the persisted binding. When abort
// is set, running workflows are cancelled before the binding is read.
func (c *Coordinator) resetBinding(abort bool) error {
	if abort {
		c.runner.AbortAll()
	}

	bound, err := c.safeReadBinding()
	if err != nil {
		return err
	}

	if bound == nil {
		c.clearCurrentBinding()
		return nil
	}

	if c.activeSection == nil {
		c.pendingReset = true
		c.logger.WithField("project_key", bound.ProjectKey).Debug("No section attached, deferring binding reset")
		return nil
	}

	return c.applyBinding(bound)
}

func (c *Coordinator) clearCurrentBinding() {
	c.state.ClearBoundProjectKey()
	c.state.ClearBoundProject()
	c.logger.Debug("Cleared binding")
}

func (c *Coordinator) applyBinding(bound *binding.BoundProject) error {
	uri, err := bound.ServerURL()
	if err != nil {
		return c.violation(errors.Wrap(err, errors.ErrCodeContractViolation, "cannot apply a binding without a server URI").
			WithDetail("project_key", bound.ProjectKey))
	}
	refresh := c.activeSection.RefreshCommand()
	if isNil(refresh) {
		return c.violation(errors.ContractViolation("attached section has no refresh command"))
	}

	// Shown before the refresh completes.
	c.state.SetBoundProjectKey(bound.ProjectKey)

	params := binding.Anonymous(uri)
	if bound.Credentials != nil {
		params = bound.Credentials.ConnectionParameters(uri)
	}

	c.logger.WithFields(logrus.Fields{
		"project_key": bound.ProjectKey,
		"server_uri":  uri.String(),
		"auth":        params.Auth.String(),
	}).Info("Applying binding")

	if !refresh.CanExecute(params) {
		c.logger.Debug("Refresh command cannot execute, no workflow started")
		return nil
	}
	refresh.Execute(params)
	return nil
}

// safeReadBinding reads the binding, degrading every non-critical failure to
// "no binding". Critical errors are returned and critical panics re-raised.
func (c *Coordinator) safeReadBinding() (bound *binding.BoundProject, err error) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		perr := errors.FromPanic(rec)
		if errors.IsCritical(perr) {
			panic(rec)
		}
		c.logger.WithError(perr).Warn("Binding read panicked, treating workspace as unbound")
		bound, err = nil, nil
	}()

	bound, err = c.store.Read()
	if err == nil {
		return bound, nil
	}
	if errors.IsCritical(err) {
		return nil, err
	}

	c.logger.WithError(err).WithField("code", errors.GetCode(err)).
		Warn("Failed to read binding, treating workspace as unbound")
	return nil, nil
}

func (c *Coordinator) violation(err *errors.QualityError) error {
	c.logger.WithField("code", err.Code).Errorf("Contract violation: %s", err.Message)
	return err
}

// isNil reports whether v is nil or an interface holding a nil pointer,
// map, slice, func or chan.
func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
