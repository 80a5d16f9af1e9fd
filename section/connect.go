// Package section provides a headless connect section: the UI surface the
// session coordinator attaches to when no IDE is driving it.
package section

import (
	"context"
	"sync"

	"github.com/grovetools/qualitylink/binding"
	"github.com/grovetools/qualitylink/session"
	"github.com/grovetools/qualitylink/workflow"
	"github.com/sirupsen/logrus"
)

// Runner is the part of the workflow engine a section starts work on.
type Runner interface {
	Start(name string, steps ...workflow.Step) string
	Busy() bool
}

// ConnectSection implements session.Section.
type ConnectSection struct {
	viewModel *ViewModel
	host      workflow.Host
	refresh   *RefreshCommand
}

// Verify interface compliance at compile time
var _ session.Section = (*ConnectSection)(nil)

// NewConnectSection creates a section whose refresh command runs on runner
// and reports progress to host. state supplies the project key to confirm
// once connected; it may be nil.
func NewConnectSection(runner Runner, refresher Refresher, host workflow.Host, state *session.StateManager, logger *logrus.Entry) *ConnectSection {
	vm := &ViewModel{}
	return &ConnectSection{
		viewModel: vm,
		host:      host,
		refresh: &RefreshCommand{
			runner:    runner,
			refresher: refresher,
			viewModel: vm,
			state:     state,
			logger:    logger,
		},
	}
}

// ViewModel implements session.Section.
func (s *ConnectSection) ViewModel() session.ViewModel { return s.viewModel }

// ProgressHost implements session.Section.
func (s *ConnectSection) ProgressHost() workflow.Host { return s.host }

// RefreshCommand implements session.Section.
func (s *ConnectSection) RefreshCommand() session.RefreshCommand { return s.refresh }

// ViewModel holds the state the coordinator hands to the section.
type ViewModel struct {
	mu    sync.RWMutex
	state *session.ManagedState
}

// SetState implements session.ViewModel.
func (vm *ViewModel) SetState(state *session.ManagedState) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.state = state
}

// State implements session.ViewModel.
func (vm *ViewModel) State() *session.ManagedState {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.state
}

// RefreshCommand starts the "refresh" workflow: connect to the server, then
// record the result in the managed state.
type RefreshCommand struct {
	runner    Runner
	refresher Refresher
	viewModel *ViewModel
	state     *session.StateManager
	logger    *logrus.Entry
}

// CanExecute reports false while a workflow is running or when params do
// not describe a reachable server.
func (c *RefreshCommand) CanExecute(params binding.ConnectionParameters) bool {
	if c.runner.Busy() {
		return false
	}
	return params.Validate() == nil
}

// Execute starts the refresh workflow and returns immediately.
func (c *RefreshCommand) Execute(params binding.ConnectionParameters) {
	projectKey := ""
	if c.state != nil {
		projectKey, _ = c.state.BoundProjectKey()
	}

	var info session.BoundProjectView
	var server string

	id := c.runner.Start("refresh",
		workflow.Step{Name: "connect", Run: func(ctx context.Context) error {
			result, err := c.refresher.Refresh(ctx, params, projectKey)
			if err != nil {
				return err
			}
			server = params.ServerURI.String()
			info = session.BoundProjectView{Key: projectKey, Name: result.ProjectName}
			return nil
		}},
		workflow.Step{Name: "update-state", Run: func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			managed := c.viewModel.State()
			if managed == nil {
				// Section was detached while connecting.
				return nil
			}
			if !c.stillBound(projectKey) {
				// A newer reconciliation replaced or cleared the binding.
				return nil
			}
			managed.SetConnectedServer(server)
			if c.state != nil && info.Key != "" {
				c.state.SetBoundProject(info)
			}
			return nil
		}},
	)

	if c.logger != nil {
		c.logger.WithFields(logrus.Fields{
			"workflow_id": id,
			"server_uri":  params.ServerURI.String(),
			"project_key": projectKey,
		}).Info("Refresh started")
	}
}

// stillBound reports whether the session is still bound to projectKey.
func (c *RefreshCommand) stillBound(projectKey string) bool {
	if c.state == nil {
		return true
	}
	key, ok := c.state.BoundProjectKey()
	return ok && key == projectKey
}
