package cmd

import (
	"fmt"

	"github.com/grovetools/qualitylink/cli"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Display the effective configuration for the workspace",
		Long: `Shows the configuration after merging its layers:
1. Global config ($XDG_CONFIG_HOME/qlink/qlink.yml)
2. Project config (qlink.yml found from the workspace upwards)
3. Override file (qlink.override.yml next to the project config)
Defaults are applied to anything left unset.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cli.GetOptions(cmd)
			cfg, err := opts.LoadConfig()
			if err != nil {
				return err
			}

			if opts.JSONOutput {
				return cli.NewPrinter(cmd.OutOrStdout(), true).Encode(cfg)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	return cmd
}
