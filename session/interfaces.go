package session

import (
	"github.com/grovetools/qualitylink/binding"
	"github.com/grovetools/qualitylink/workflow"
)

// BindingStore reads the persisted binding of the current workspace.
// A nil record with a nil error means there is no binding.
type BindingStore interface {
	Read() (*binding.BoundProject, error)
}

// WorkflowRunner is the part of the workflow engine the coordinator drives.
type WorkflowRunner interface {
	// AbortAll signals cancellation to every in-flight workflow and returns
	// without waiting for them to stop.
	AbortAll()
	// ChangeHost redirects future progress reports.
	ChangeHost(host workflow.Host)
}

// Section is a UI surface that can host the session.
type Section interface {
	ViewModel() ViewModel
	ProgressHost() workflow.Host
	RefreshCommand() RefreshCommand
}

// ViewModel is the state slot of a section. SetState(nil) clears it.
type ViewModel interface {
	SetState(state *ManagedState)
	State() *ManagedState
}

// RefreshCommand starts the workflow that connects to the server and
// refreshes the bound project.
type RefreshCommand interface {
	CanExecute(params binding.ConnectionParameters) bool
	Execute(params binding.ConnectionParameters)
}

// WorkspaceTracker emits a notification whenever the active workspace changes.
type WorkspaceTracker interface {
	Subscribe(fn func()) string
	Unsubscribe(id string) bool
}

// Dispatcher identifies the coordination goroutine.
type Dispatcher interface {
	CheckAccess() bool
}

// ServiceLocator resolves host services by key.
type ServiceLocator interface {
	Service(key string) (interface{}, bool)
}

// Host is the surface the coordinator exposes to the rest of the add-in.
type Host interface {
	ServiceLocator
	Dispatcher() Dispatcher
	ActiveSection() Section
	SetActiveSection(section Section) error
	ClearActiveSection()
	VisualState() *StateManager
}
