package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/grovetools/qualitylink/binding"
	"github.com/grovetools/qualitylink/cli"
	"github.com/grovetools/qualitylink/internal/dispatch"
	"github.com/grovetools/qualitylink/section"
	"github.com/grovetools/qualitylink/session"
	"github.com/grovetools/qualitylink/workflow"
	"github.com/grovetools/qualitylink/workspace"
	"github.com/spf13/cobra"
)

func NewWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run a session that follows the binding of the workspace",
		Long: `Attach a connected section to the workspace and keep it in sync.

Every change to the binding file aborts running refreshes, re-reads the
binding and starts a new refresh against the bound server. Stop with Ctrl-C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openWorkspace(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			return runSession(cmd, env)
		},
	}
}

func runSession(cmd *cobra.Command, env *workspaceEnv) error {
	logger := cli.GetLogger(cmd)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The loop outlives ctx so that teardown can still run on it.
	loopCtx, stopLoop := context.WithCancel(context.Background())
	loop := dispatch.NewLoop()
	loopDone := make(chan error, 1)
	go func() { loopDone <- loop.Run(loopCtx) }()
	defer func() {
		stopLoop()
		<-loopDone
	}()

	critical := make(chan error, 1)
	onCritical := func(err error) {
		select {
		case critical <- err:
		default:
		}
		cancel()
	}

	logHost := workflow.LogHost{Logger: logger}
	var host workflow.Host = logHost
	if !env.opts.JSONOutput {
		reporter := cli.NewProgressReporter(cmd.OutOrStdout())
		host = workflow.HostFunc(func(p workflow.Progress) {
			reporter.Report(p)
			logHost.Report(p)
		})
	}
	runner := workflow.NewRunner(host)
	services := session.NewRegistry()
	services.Register("binding.store", env.store)
	services.Register("workspace.tracker", env.tracker)

	var (
		coord     *session.Coordinator
		attachErr error
	)
	if err := loop.Do(ctx, func() {
		coord, attachErr = session.New(services, env.store, runner, env.tracker, loop,
			session.WithCriticalHandler(onCritical))
		if attachErr != nil {
			return
		}
		connect := section.NewConnectSection(runner, section.NewHTTPRefresher(env.cfg.Refresh), host, coord.VisualState(), logger)
		attachErr = coord.SetActiveSection(connect)
	}); err != nil {
		return err
	}
	if attachErr != nil {
		if coord != nil {
			loop.Do(loopCtx, func() { coord.Close() })
		}
		return attachErr
	}

	if fs, ok := env.store.(*binding.FileStore); ok && env.cfg.WatchEnabled() {
		if dir, ok := fs.Dir(); ok {
			watcher, err := workspace.NewWatcher(dir, env.cfg.Watch.DebounceMs, func(file string) {
				logger.WithField("file", file).Debug("Binding file changed")
				loop.Post(env.tracker.Notify)
			})
			if err != nil {
				logger.WithError(err).Warn("Binding watcher unavailable, changes will not be picked up")
			} else {
				go watcher.Start(ctx)
				logger.WithField("dir", dir).Info("Watching binding directory")
			}
		}
	} else if !ok {
		logger.Warn("The sqlite backend is not watched; restart the session after rebinding")
	}

	<-ctx.Done()
	logger.Info("Stopping session")

	loop.Do(loopCtx, func() {
		runner.AbortAll()
		coord.ClearActiveSection()
		coord.Close()
	})
	runner.Wait()

	select {
	case err := <-critical:
		return err
	default:
		return nil
	}
}
