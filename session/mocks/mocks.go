// Package mocks provides hand-written fakes of the session collaborators.
package mocks

import (
	"fmt"
	"sync"

	"github.com/grovetools/qualitylink/binding"
	"github.com/grovetools/qualitylink/session"
	"github.com/grovetools/qualitylink/workflow"
)

// CallLog records calls across several mocks so tests can check ordering.
type CallLog struct {
	mu    sync.Mutex
	calls []string
}

// Record appends a call name.
func (l *CallLog) Record(name string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, name)
}

// Calls returns the recorded call names in order.
func (l *CallLog) Calls() []string {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.calls))
	copy(out, l.calls)
	return out
}

// BindingStore is a mock implementation of session.BindingStore
type BindingStore struct {
	ReadFunc  func() (*binding.BoundProject, error)
	ReadCalls int
	Log       *CallLog
}

// Read calls the mock function
func (m *BindingStore) Read() (*binding.BoundProject, error) {
	m.ReadCalls++
	m.Log.Record("read")
	if m.ReadFunc != nil {
		return m.ReadFunc()
	}
	return nil, nil
}

// Returns makes Read return bound.
func (m *BindingStore) Returns(bound *binding.BoundProject) {
	m.ReadFunc = func() (*binding.BoundProject, error) { return bound, nil }
}

// WorkflowRunner is a mock implementation of session.WorkflowRunner
type WorkflowRunner struct {
	AbortAllFunc   func()
	ChangeHostFunc func(host workflow.Host)
	AbortAllCalls  int
	Hosts          []workflow.Host
	Log            *CallLog
}

// AbortAll calls the mock function
func (m *WorkflowRunner) AbortAll() {
	m.AbortAllCalls++
	m.Log.Record("abort")
	if m.AbortAllFunc != nil {
		m.AbortAllFunc()
	}
}

// ChangeHost calls the mock function
func (m *WorkflowRunner) ChangeHost(host workflow.Host) {
	m.Hosts = append(m.Hosts, host)
	m.Log.Record("changeHost")
	if m.ChangeHostFunc != nil {
		m.ChangeHostFunc(host)
	}
}

// ViewModel is a mock implementation of session.ViewModel
type ViewModel struct {
	state    *session.ManagedState
	SetCalls int
}

// SetState records the state
func (m *ViewModel) SetState(state *session.ManagedState) {
	m.SetCalls++
	m.state = state
}

// State returns the last state set
func (m *ViewModel) State() *session.ManagedState {
	return m.state
}

// RefreshCommand is a mock implementation of session.RefreshCommand
type RefreshCommand struct {
	CanExecuteFunc  func(params binding.ConnectionParameters) bool
	ExecuteFunc     func(params binding.ConnectionParameters)
	CanExecuteCalls []binding.ConnectionParameters
	ExecuteCalls    []binding.ConnectionParameters
	Log             *CallLog
}

// CanExecute calls the mock function; it defaults to true
func (m *RefreshCommand) CanExecute(params binding.ConnectionParameters) bool {
	m.CanExecuteCalls = append(m.CanExecuteCalls, params)
	m.Log.Record("canExecute")
	if m.CanExecuteFunc != nil {
		return m.CanExecuteFunc(params)
	}
	return true
}

// Execute calls the mock function
func (m *RefreshCommand) Execute(params binding.ConnectionParameters) {
	m.ExecuteCalls = append(m.ExecuteCalls, params)
	m.Log.Record("execute")
	if m.ExecuteFunc != nil {
		m.ExecuteFunc(params)
	}
}

// Section is a mock implementation of session.Section. Fields are interface
// typed so that leaving one unset yields a true nil.
type Section struct {
	VM      session.ViewModel
	Host    workflow.Host
	Refresh session.RefreshCommand
}

// NewSection returns a section with a fresh view model, a recording progress
// host and a refresh command that can always execute.
func NewSection() *Section {
	return &Section{
		VM:      &ViewModel{},
		Host:    &workflow.Recorder{},
		Refresh: &RefreshCommand{},
	}
}

// ViewModel returns the view model
func (m *Section) ViewModel() session.ViewModel { return m.VM }

// ProgressHost returns the progress host
func (m *Section) ProgressHost() workflow.Host { return m.Host }

// RefreshCommand returns the refresh command
func (m *Section) RefreshCommand() session.RefreshCommand { return m.Refresh }

// WorkspaceTracker is a mock implementation of session.WorkspaceTracker
type WorkspaceTracker struct {
	handlers         map[string]func()
	nextID           int
	SubscribeCalls   int
	UnsubscribeCalls int
}

// Subscribe records the handler
func (m *WorkspaceTracker) Subscribe(fn func()) string {
	if m.handlers == nil {
		m.handlers = make(map[string]func())
	}
	m.SubscribeCalls++
	m.nextID++
	id := fmt.Sprintf("sub-%d", m.nextID)
	m.handlers[id] = fn
	return id
}

// Unsubscribe removes the handler
func (m *WorkspaceTracker) Unsubscribe(id string) bool {
	m.UnsubscribeCalls++
	if _, ok := m.handlers[id]; !ok {
		return false
	}
	delete(m.handlers, id)
	return true
}

// Subscribers returns the number of live subscriptions
func (m *WorkspaceTracker) Subscribers() int {
	return len(m.handlers)
}

// Fire calls every subscribed handler
func (m *WorkspaceTracker) Fire() {
	for _, h := range m.handlers {
		h()
	}
}

// Dispatcher is a mock implementation of session.Dispatcher
type Dispatcher struct {
	Denied bool
}

// CheckAccess grants access unless Denied is set
func (m *Dispatcher) CheckAccess() bool {
	return !m.Denied
}
