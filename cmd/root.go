package cmd

import (
	"github.com/grovetools/qualitylink/binding"
	"github.com/grovetools/qualitylink/cli"
	"github.com/grovetools/qualitylink/config"
	"github.com/grovetools/qualitylink/pkg/paths"
	"github.com/grovetools/qualitylink/workspace"
	"github.com/spf13/cobra"
)

// NewRootCmd assembles the qlink command tree.
func NewRootCmd() *cobra.Command {
	root := cli.NewStandardCommand(
		"qlink",
		"Keep a workspace bound to its project on a code-quality server",
	)

	root.AddCommand(NewBindCmd())
	root.AddCommand(NewUnbindCmd())
	root.AddCommand(NewStatusCmd())
	root.AddCommand(NewWatchCmd())
	root.AddCommand(NewSchemaCmd())
	root.AddCommand(NewConfigCmd())
	root.AddCommand(NewPathsCmd())
	root.AddCommand(cli.NewVersionCommand("qlink"))

	return root
}

// workspaceEnv is what every binding command needs: the loaded config, a
// tracker opened on the workspace root and the configured store.
type workspaceEnv struct {
	opts    cli.CommandOptions
	cfg     *config.Config
	root    string
	tracker *workspace.Tracker
	store   binding.Store
}

func openWorkspace(cmd *cobra.Command) (*workspaceEnv, error) {
	opts := cli.GetOptions(cmd)
	cfg, err := opts.LoadConfig()
	if err != nil {
		return nil, err
	}
	root, err := opts.WorkspaceRoot()
	if err != nil {
		return nil, err
	}

	tracker := workspace.NewTracker()
	if err := tracker.Open(root); err != nil {
		return nil, err
	}
	store, err := binding.Open(cfg.Binding, tracker)
	if err != nil {
		return nil, err
	}

	return &workspaceEnv{
		opts:    opts,
		cfg:     cfg,
		root:    tracker.Active(),
		tracker: tracker,
		store:   store,
	}, nil
}

func (e *workspaceEnv) Close() error {
	return e.store.Close()
}

// location describes where the binding of the workspace lives.
func (e *workspaceEnv) location() string {
	if fs, ok := e.store.(*binding.FileStore); ok {
		if path, ok := fs.Path(); ok {
			return path
		}
	}
	if e.cfg.Binding.Database != "" {
		return e.cfg.Binding.Database
	}
	return paths.BindingDatabasePath()
}
