package session_test

import (
	"fmt"
	"testing"

	"github.com/grovetools/qualitylink/binding"
	"github.com/grovetools/qualitylink/errors"
	"github.com/grovetools/qualitylink/session"
	"github.com/grovetools/qualitylink/session/mocks"
	"github.com/grovetools/qualitylink/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	log       *mocks.CallLog
	store     *mocks.BindingStore
	runner    *mocks.WorkflowRunner
	tracker   *mocks.WorkspaceTracker
	services  *session.Registry
	coord     *session.Coordinator
	criticals []error
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := &mocks.CallLog{}
	f := &fixture{
		log:      log,
		store:    &mocks.BindingStore{Log: log},
		runner:   &mocks.WorkflowRunner{Log: log},
		tracker:  &mocks.WorkspaceTracker{},
		services: session.NewRegistry(),
	}
	coord, err := session.New(f.services, f.store, f.runner, f.tracker, &mocks.Dispatcher{},
		session.WithCriticalHandler(func(err error) { f.criticals = append(f.criticals, err) }))
	require.NoError(t, err)
	f.coord = coord
	return f
}

func newSection(log *mocks.CallLog) (*mocks.Section, *mocks.RefreshCommand) {
	section := mocks.NewSection()
	refresh := section.Refresh.(*mocks.RefreshCommand)
	refresh.Log = log
	return section, refresh
}

// consumeInitialReset attaches and detaches a section while unbound so the
// reset owed to the first attach is spent.
func (f *fixture) consumeInitialReset(t *testing.T) {
	t.Helper()
	section, _ := newSection(nil)
	require.NoError(t, f.coord.SetActiveSection(section))
	f.coord.ClearActiveSection()
	require.False(t, f.coord.PendingReset())
}

func boundProject(key, uri string) *binding.BoundProject {
	return &binding.BoundProject{ProjectKey: key, ServerURI: uri}
}

func boundKey(f *fixture) *string {
	key, ok := f.coord.VisualState().BoundProjectKey()
	if !ok {
		return nil
	}
	return &key
}

func TestNewRejectsNilCollaborators(t *testing.T) {
	services := session.NewRegistry()
	store := &mocks.BindingStore{}
	runner := &mocks.WorkflowRunner{}
	tracker := &mocks.WorkspaceTracker{}
	dispatcher := &mocks.Dispatcher{}

	tests := []struct {
		name       string
		services   session.ServiceLocator
		store      session.BindingStore
		runner     session.WorkflowRunner
		tracker    session.WorkspaceTracker
		dispatcher session.Dispatcher
	}{
		{"services", nil, store, runner, tracker, dispatcher},
		{"store", services, nil, runner, tracker, dispatcher},
		{"runner", services, store, nil, tracker, dispatcher},
		{"tracker", services, store, runner, nil, dispatcher},
		{"dispatcher", services, store, runner, tracker, nil},
		{"store", services, (*mocks.BindingStore)(nil), runner, tracker, dispatcher},
		{"tracker", services, store, runner, (*mocks.WorkspaceTracker)(nil), dispatcher},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coord, err := session.New(tt.services, tt.store, tt.runner, tt.tracker, tt.dispatcher)
			require.Error(t, err)
			assert.Nil(t, coord)
			assert.Equal(t, errors.ErrCodeInvalidArgument, errors.GetCode(err))
			assert.Contains(t, err.Error(), tt.name)
		})
	}
	assert.Equal(t, 0, tracker.SubscribeCalls)
}

func TestNewRequiresCoordinationGoroutine(t *testing.T) {
	tracker := &mocks.WorkspaceTracker{}
	_, err := session.New(session.NewRegistry(), &mocks.BindingStore{}, &mocks.WorkflowRunner{}, tracker,
		&mocks.Dispatcher{Denied: true})

	require.Error(t, err)
	assert.True(t, errors.IsContractViolation(err))
	assert.Equal(t, 0, tracker.SubscribeCalls)
}

func TestCloseUnsubscribesOnce(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, 1, f.tracker.SubscribeCalls)
	assert.Equal(t, 1, f.tracker.Subscribers())

	require.NoError(t, f.coord.Close())
	require.NoError(t, f.coord.Close())
	assert.Equal(t, 1, f.tracker.UnsubscribeCalls)
	assert.Equal(t, 0, f.tracker.Subscribers())

	err := f.coord.SetActiveSection(mocks.NewSection())
	assert.True(t, errors.IsContractViolation(err))
}

func TestAccessors(t *testing.T) {
	f := newFixture(t)
	f.services.Register("server", "http-client")

	svc, ok := f.coord.Service("server")
	assert.True(t, ok)
	assert.Equal(t, "http-client", svc)
	_, ok = f.coord.Service("missing")
	assert.False(t, ok)

	assert.NotNil(t, f.coord.Dispatcher())
	assert.True(t, f.coord.Dispatcher().CheckAccess())
	assert.NotNil(t, f.coord.VisualState())
	assert.Nil(t, f.coord.ActiveSection())
	assert.True(t, f.coord.PendingReset(), "first attach owes a reset")
}

func TestAttachDetachSequence(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 3; i++ {
		section := mocks.NewSection()
		require.NoError(t, f.coord.SetActiveSection(section))
		assert.Same(t, section, f.coord.ActiveSection())

		vm := section.VM.(*mocks.ViewModel)
		assert.Same(t, f.coord.VisualState().ManagedState(), vm.State())
		assert.True(t, f.coord.VisualState().ManagedState().CommandsEnabled())
		require.NotEmpty(t, f.runner.Hosts)
		assert.Same(t, section.Host, f.runner.Hosts[len(f.runner.Hosts)-1])

		f.coord.ClearActiveSection()
		assert.Nil(t, f.coord.ActiveSection())
		assert.Nil(t, vm.State())
		assert.False(t, f.coord.VisualState().ManagedState().CommandsEnabled())
	}
	assert.Len(t, f.runner.Hosts, 3)
}

func TestClearActiveSectionIdempotent(t *testing.T) {
	f := newFixture(t)
	f.coord.ClearActiveSection()

	section := mocks.NewSection()
	require.NoError(t, f.coord.SetActiveSection(section))

	f.coord.ClearActiveSection()
	f.coord.ClearActiveSection()

	assert.Nil(t, f.coord.ActiveSection())
	assert.Equal(t, 2, section.VM.(*mocks.ViewModel).SetCalls, "set on attach, cleared once on detach")
}

func TestSetActiveSectionContract(t *testing.T) {
	f := newFixture(t)

	err := f.coord.SetActiveSection(nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidArgument, errors.GetCode(err))

	var typed *mocks.Section
	require.NotPanics(t, func() { err = f.coord.SetActiveSection(typed) })
	assert.Equal(t, errors.ErrCodeInvalidArgument, errors.GetCode(err))
	assert.Nil(t, f.coord.ActiveSection())

	first := mocks.NewSection()
	require.NoError(t, f.coord.SetActiveSection(first))

	err = f.coord.SetActiveSection(mocks.NewSection())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeContractViolation, errors.GetCode(err))
	assert.Same(t, first, f.coord.ActiveSection())
}

func TestSetActiveSectionRequiresCapabilities(t *testing.T) {
	tests := []struct {
		name    string
		section *mocks.Section
	}{
		{"no view model", &mocks.Section{Host: mocks.NewSection().Host}},
		{"no progress host", &mocks.Section{VM: &mocks.ViewModel{}}},
		{"nil view model pointer", &mocks.Section{VM: (*mocks.ViewModel)(nil), Host: mocks.NewSection().Host}},
		{"nil progress host pointer", &mocks.Section{VM: &mocks.ViewModel{}, Host: (*workflow.Recorder)(nil)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			err := f.coord.SetActiveSection(tt.section)
			require.Error(t, err)
			assert.True(t, errors.IsContractViolation(err))
			assert.Nil(t, f.coord.ActiveSection())
			assert.True(t, f.coord.PendingReset())
		})
	}
}

func TestFirstAttachResetsWithoutAbort(t *testing.T) {
	f := newFixture(t)
	f.store.Returns(boundProject("proj1", "https://sq.example/"))

	section, refresh := newSection(f.log)
	require.NoError(t, f.coord.SetActiveSection(section))

	assert.False(t, f.coord.PendingReset())
	assert.Equal(t, 0, f.runner.AbortAllCalls)
	assert.Equal(t, 1, f.store.ReadCalls)
	require.Len(t, refresh.ExecuteCalls, 1)
	assert.Equal(t, "https://sq.example/", refresh.ExecuteCalls[0].ServerURI.String())

	// Later attaches do not reconcile again
	f.coord.ClearActiveSection()
	section2, refresh2 := newSection(f.log)
	require.NoError(t, f.coord.SetActiveSection(section2))
	assert.Equal(t, 1, f.store.ReadCalls)
	assert.Empty(t, refresh2.ExecuteCalls)
}

func TestWorkspaceChangeWithAttachedSection(t *testing.T) {
	f := newFixture(t)
	section, refresh := newSection(f.log)
	require.NoError(t, f.coord.SetActiveSection(section))
	f.coord.VisualState().SetBoundProjectKey("stale")

	f.store.ReadFunc = func() (*binding.BoundProject, error) {
		key, _ := f.coord.VisualState().BoundProjectKey()
		assert.Equal(t, "stale", key, "state must not change before the read")
		return boundProject("proj1", "https://sq.example/"), nil
	}
	refresh.ExecuteFunc = func(params binding.ConnectionParameters) {
		key, _ := f.coord.VisualState().BoundProjectKey()
		assert.Equal(t, "proj1", key, "key is set before the refresh runs")
	}

	before := len(f.log.Calls())
	f.tracker.Fire()

	assert.Equal(t, []string{"abort", "read", "canExecute", "execute"}, f.log.Calls()[before:])
	assert.Equal(t, 1, f.runner.AbortAllCalls)
	require.NotNil(t, boundKey(f))
	assert.Equal(t, "proj1", *boundKey(f))
	require.Len(t, refresh.ExecuteCalls, 1)
	params := refresh.ExecuteCalls[0]
	assert.Equal(t, "https://sq.example/", params.ServerURI.String())
	assert.True(t, params.IsAnonymous())
	assert.Empty(t, f.criticals)
}

func TestApplyBindingCarriesCredentials(t *testing.T) {
	f := newFixture(t)
	f.store.Returns(&binding.BoundProject{
		ProjectKey:  "proj1",
		ServerURI:   "https://sq.example/",
		Credentials: &binding.Credentials{Type: binding.AuthBasic, UserName: "admin", Secret: "pw"},
	})

	section, refresh := newSection(f.log)
	require.NoError(t, f.coord.SetActiveSection(section))

	require.Len(t, refresh.ExecuteCalls, 1)
	auth := refresh.ExecuteCalls[0].Auth
	assert.Equal(t, binding.AuthBasic, auth.Method)
	assert.Equal(t, "admin", auth.UserName)
	assert.Equal(t, "pw", auth.Secret)
}

func TestRefreshNotExecutable(t *testing.T) {
	f := newFixture(t)
	f.store.Returns(boundProject("proj1", "https://sq.example/"))

	section, refresh := newSection(f.log)
	refresh.CanExecuteFunc = func(binding.ConnectionParameters) bool { return false }

	require.NoError(t, f.coord.SetActiveSection(section))
	assert.Len(t, refresh.CanExecuteCalls, 1)
	assert.Empty(t, refresh.ExecuteCalls)
	require.NotNil(t, boundKey(f))
	assert.Equal(t, "proj1", *boundKey(f))
}

func TestNoBindingClearsRegardlessOfAttachState(t *testing.T) {
	for _, attached := range []bool{true, false} {
		t.Run(fmt.Sprintf("attached=%v", attached), func(t *testing.T) {
			f := newFixture(t)
			f.consumeInitialReset(t)

			section, refresh := newSection(f.log)
			if attached {
				require.NoError(t, f.coord.SetActiveSection(section))
			}
			f.coord.VisualState().SetBoundProjectKey("old")
			f.coord.VisualState().SetBoundProject(session.BoundProjectView{Key: "old"})
			f.coord.VisualState().ManagedState().SetConnectedServer("https://old.example/")

			f.tracker.Fire()

			assert.Nil(t, boundKey(f))
			assert.False(t, f.coord.VisualState().ManagedState().HasBoundProject())
			assert.Empty(t, f.coord.VisualState().ManagedState().ConnectedServer())
			assert.Empty(t, refresh.ExecuteCalls)
			assert.False(t, f.coord.PendingReset())
		})
	}
}

func TestBindingDeferredUntilAttach(t *testing.T) {
	f := newFixture(t)
	f.consumeInitialReset(t)
	f.store.Returns(boundProject("proj1", "https://sq.example/"))

	f.tracker.Fire()
	assert.True(t, f.coord.PendingReset())
	assert.Nil(t, boundKey(f), "nothing is applied while detached")
	assert.Equal(t, 1, f.runner.AbortAllCalls)

	section, refresh := newSection(f.log)
	reads := f.store.ReadCalls
	require.NoError(t, f.coord.SetActiveSection(section))

	assert.False(t, f.coord.PendingReset())
	assert.Equal(t, reads+1, f.store.ReadCalls, "exactly one reconciliation on attach")
	assert.Equal(t, 1, f.runner.AbortAllCalls, "attach reconciles without aborting")
	require.Len(t, refresh.ExecuteCalls, 1)
	assert.Equal(t, "proj1", *boundKey(f))
}

func TestAbsentBindingWinsOverDeferredReset(t *testing.T) {
	f := newFixture(t)
	f.consumeInitialReset(t)
	f.store.Returns(boundProject("proj1", "https://sq.example/"))
	f.tracker.Fire()
	require.True(t, f.coord.PendingReset())

	f.coord.VisualState().SetBoundProjectKey("old")
	f.store.Returns(nil)
	f.tracker.Fire()
	assert.Nil(t, boundKey(f), "clearing is never deferred")

	section, refresh := newSection(f.log)
	require.NoError(t, f.coord.SetActiveSection(section))
	assert.Empty(t, refresh.ExecuteCalls)
	assert.Nil(t, boundKey(f))
}

func TestTransientReadFailureDegradesToUnbound(t *testing.T) {
	tests := []struct {
		name string
		read func() (*binding.BoundProject, error)
	}{
		{"invalid record", func() (*binding.BoundProject, error) {
			return nil, errors.BindingInvalid("/w/.qlink/binding.yml", "projectKey is required")
		}},
		{"plain error", func() (*binding.BoundProject, error) {
			return nil, fmt.Errorf("disk on fire")
		}},
		{"record with error", func() (*binding.BoundProject, error) {
			return boundProject("proj1", "https://sq.example/"), fmt.Errorf("partial read")
		}},
		{"panic", func() (*binding.BoundProject, error) {
			panic("decoder exploded")
		}},
		{"nil map write", func() (*binding.BoundProject, error) {
			var m map[string]int
			m["boom"] = 1
			return nil, nil
		}},
		{"index out of range", func() (*binding.BoundProject, error) {
			var fields []string
			return boundProject(fields[len(fields)+3], "https://sq.example/"), nil
		}},
		{"nil dereference", func() (*binding.BoundProject, error) {
			var bound *binding.BoundProject
			return boundProject(bound.ProjectKey, bound.ServerURI), nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			section, refresh := newSection(f.log)
			require.NoError(t, f.coord.SetActiveSection(section))
			f.coord.VisualState().SetBoundProjectKey("old")

			f.store.ReadFunc = tt.read
			assert.NotPanics(t, f.tracker.Fire)

			assert.Nil(t, boundKey(f))
			assert.Empty(t, refresh.ExecuteCalls)
			assert.Empty(t, f.criticals)
		})
	}
}

func TestCriticalReadFailurePropagates(t *testing.T) {
	critical := errors.Critical(fmt.Errorf("out of memory"))

	t.Run("workspace change", func(t *testing.T) {
		f := newFixture(t)
		f.consumeInitialReset(t)
		f.coord.VisualState().SetBoundProjectKey("old")
		f.store.ReadFunc = func() (*binding.BoundProject, error) { return nil, critical }

		f.tracker.Fire()

		require.Len(t, f.criticals, 1)
		assert.Same(t, critical, f.criticals[0])
		require.NotNil(t, boundKey(f), "state is left untouched")
		assert.Equal(t, "old", *boundKey(f))
	})

	t.Run("deferred reset on attach", func(t *testing.T) {
		f := newFixture(t)
		f.store.ReadFunc = func() (*binding.BoundProject, error) { return nil, critical }

		err := f.coord.SetActiveSection(mocks.NewSection())
		assert.Same(t, critical, err)
	})

	t.Run("flagged critical panic", func(t *testing.T) {
		f := newFixture(t)
		f.store.ReadFunc = func() (*binding.BoundProject, error) {
			panic(errors.Critical(fmt.Errorf("host torn down")))
		}
		assert.Panics(t, func() { f.coord.SetActiveSection(mocks.NewSection()) })
	})
}

func TestDefaultCriticalHandlerPanics(t *testing.T) {
	tracker := &mocks.WorkspaceTracker{}
	store := &mocks.BindingStore{ReadFunc: func() (*binding.BoundProject, error) {
		return nil, errors.Critical(fmt.Errorf("stack overflow"))
	}}
	_, err := session.New(session.NewRegistry(), store, &mocks.WorkflowRunner{}, tracker, &mocks.Dispatcher{})
	require.NoError(t, err)

	assert.Panics(t, tracker.Fire)
}

func TestMissingRefreshCommandIsContractViolation(t *testing.T) {
	f := newFixture(t)
	f.store.Returns(boundProject("proj1", "https://sq.example/"))

	section := mocks.NewSection()
	section.Refresh = nil

	err := f.coord.SetActiveSection(section)
	require.Error(t, err)
	assert.True(t, errors.IsContractViolation(err))
	assert.Nil(t, boundKey(f))

	f.tracker.Fire()
	require.Len(t, f.criticals, 1)
	assert.True(t, errors.IsContractViolation(f.criticals[0]))
}

func TestWorkspaceChangeIgnoredAfterClose(t *testing.T) {
	f := newFixture(t)
	section, refresh := newSection(f.log)
	require.NoError(t, f.coord.SetActiveSection(section))

	// Keep a handle on the handler as a tracker might deliver an in-flight event late
	var handler func()
	tracker := &mocks.WorkspaceTracker{}
	coord, err := session.New(f.services, f.store, f.runner, trackerFunc{tracker, &handler}, &mocks.Dispatcher{})
	require.NoError(t, err)
	require.NoError(t, coord.Close())

	f.store.Returns(boundProject("proj1", "https://sq.example/"))
	handler()
	assert.Equal(t, 0, f.runner.AbortAllCalls)
	assert.Empty(t, refresh.ExecuteCalls)
}

// trackerFunc captures the subscribed handler.
type trackerFunc struct {
	*mocks.WorkspaceTracker
	handler *func()
}

func (t trackerFunc) Subscribe(fn func()) string {
	*t.handler = fn
	return t.WorkspaceTracker.Subscribe(fn)
}
