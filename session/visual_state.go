package session

import "sync"

// BoundProjectView is what the UI shows about the bound project.
type BoundProjectView struct {
	Key  string
	Name string
}

// ManagedState is shared by reference with the attached section's view
// model. Workflows may update it from their own goroutines.
type ManagedState struct {
	mu              sync.RWMutex
	boundProject    *BoundProjectView
	connectedServer string
	commandsEnabled bool
}

// BoundProject returns the bound project view, or nil.
func (s *ManagedState) BoundProject() *BoundProjectView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.boundProject == nil {
		return nil
	}
	view := *s.boundProject
	return &view
}

// HasBoundProject reports whether a project view is set.
func (s *ManagedState) HasBoundProject() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.boundProject != nil
}

// ConnectedServer returns the server the last refresh connected to.
func (s *ManagedState) ConnectedServer() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connectedServer
}

// SetConnectedServer records the server a refresh connected to.
func (s *ManagedState) SetConnectedServer(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connectedServer = uri
}

// CommandsEnabled reports whether section commands are usable.
func (s *ManagedState) CommandsEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.commandsEnabled
}

// StateManager owns the session-visible state: the key of the project that
// is (or is about to be) bound and the managed state handed to sections.
type StateManager struct {
	mu              sync.RWMutex
	boundProjectKey *string
	managed         *ManagedState
}

// NewStateManager creates an unbound state.
func NewStateManager() *StateManager {
	return &StateManager{managed: &ManagedState{}}
}

// BoundProjectKey returns the bound project key, if any.
func (m *StateManager) BoundProjectKey() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.boundProjectKey == nil {
		return "", false
	}
	return *m.boundProjectKey, true
}

// SetBoundProjectKey sets the key of the project that should become bound.
func (m *StateManager) SetBoundProjectKey(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.boundProjectKey = &key
}

// ClearBoundProjectKey removes the bound project key.
func (m *StateManager) ClearBoundProjectKey() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.boundProjectKey = nil
}

// ManagedState returns the shared managed state.
func (m *StateManager) ManagedState() *ManagedState {
	return m.managed
}

// SetBoundProject shows project as bound. Called once a refresh has
// confirmed the project on the server.
func (m *StateManager) SetBoundProject(project BoundProjectView) {
	m.managed.mu.Lock()
	defer m.managed.mu.Unlock()
	m.managed.boundProject = &project
}

// ClearBoundProject removes the bound project view and connected server.
func (m *StateManager) ClearBoundProject() {
	m.managed.mu.Lock()
	defer m.managed.mu.Unlock()
	m.managed.boundProject = nil
	m.managed.connectedServer = ""
}

// SyncCommandFromActiveSection enables commands while a section is attached.
func (m *StateManager) SyncCommandFromActiveSection(active Section) {
	m.managed.mu.Lock()
	defer m.managed.mu.Unlock()
	m.managed.commandsEnabled = active != nil
}
