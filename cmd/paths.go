package cmd

import (
	"github.com/grovetools/qualitylink/cli"
	"github.com/grovetools/qualitylink/pkg/paths"
	"github.com/spf13/cobra"
)

// PathsOutput represents the paths used by qlink.
type PathsOutput struct {
	ConfigDir  string `json:"config_dir"`
	StateDir   string `json:"state_dir"`
	BindingsDB string `json:"bindings_db"`
}

func NewPathsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paths",
		Short: "Print the paths used by qlink",
		Long: `Print the paths used by qlink as JSON.

- config_dir: global configuration (qlink.yml)
- state_dir: logs and the binding database
- bindings_db: database used by the sqlite binding backend

QLINK_HOME overrides both directories; otherwise XDG_CONFIG_HOME and
XDG_STATE_HOME are honoured.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := PathsOutput{
				ConfigDir:  paths.ConfigDir(),
				StateDir:   paths.StateDir(),
				BindingsDB: paths.BindingDatabasePath(),
			}
			return cli.NewPrinter(cmd.OutOrStdout(), true).Encode(output)
		},
	}

	return cmd
}
