package cli

import (
	"os"

	"github.com/grovetools/qualitylink/config"
	"github.com/grovetools/qualitylink/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// CommandOptions holds the global options of qlink commands
type CommandOptions struct {
	ConfigFile string
	Workspace  string
	Verbose    bool
	JSONOutput bool
}

// NewStandardCommand creates a new command with the standard qlink flags
func NewStandardCommand(use, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ConfigureLogging(GetOptions(cmd))
		},
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	cmd.PersistentFlags().StringP("config", "c", "", "Path to qlink.yml config file")
	cmd.PersistentFlags().StringP("workspace", "w", "", "Workspace root (defaults to the current directory)")

	return cmd
}

// ConfigureLogging applies the verbose flag before component loggers are
// created.
func ConfigureLogging(opts CommandOptions) {
	if opts.Verbose && os.Getenv("QLINK_LOG_LEVEL") == "" {
		os.Setenv("QLINK_LOG_LEVEL", "debug")
		logging.Reset()
	}
}

// GetLogger returns the qlink-cli component logger
func GetLogger(cmd *cobra.Command) *logrus.Entry {
	entry := logging.NewLogger("qlink-cli")

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		entry.Logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return entry
}

// GetOptions extracts common options from a command
func GetOptions(cmd *cobra.Command) CommandOptions {
	configFile, _ := cmd.Flags().GetString("config")
	workspace, _ := cmd.Flags().GetString("workspace")
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	return CommandOptions{
		ConfigFile: configFile,
		Workspace:  workspace,
		Verbose:    verbose,
		JSONOutput: jsonOutput,
	}
}

// WorkspaceRoot resolves the workspace the command operates on
func (o CommandOptions) WorkspaceRoot() (string, error) {
	if o.Workspace != "" {
		return o.Workspace, nil
	}
	return os.Getwd()
}

// LoadConfig loads the explicit config file if one was given, otherwise the
// layered configuration found from the workspace root.
func (o CommandOptions) LoadConfig() (*config.Config, error) {
	if o.ConfigFile != "" {
		return config.Load(o.ConfigFile)
	}
	root, err := o.WorkspaceRoot()
	if err != nil {
		return nil, err
	}
	return config.LoadFrom(root)
}
