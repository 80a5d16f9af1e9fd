package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/grovetools/qualitylink/binding"
	"github.com/grovetools/qualitylink/cli"
	"github.com/grovetools/qualitylink/config"
	"github.com/grovetools/qualitylink/errors"
	"github.com/grovetools/qualitylink/section"
	"github.com/spf13/cobra"
)

// StatusOutput is the JSON form of 'qlink status'.
type StatusOutput struct {
	Workspace   string `json:"workspace"`
	Bound       bool   `json:"bound"`
	ProjectKey  string `json:"project_key,omitempty"`
	ProjectName string `json:"project_name,omitempty"`
	ServerURI   string `json:"server_uri,omitempty"`
	Auth        string `json:"auth,omitempty"`
	Location    string `json:"location,omitempty"`
	Server      string `json:"server_version,omitempty"`
}

func statusFor(env *workspaceEnv, bound *binding.BoundProject) StatusOutput {
	out := StatusOutput{Workspace: env.root, Location: env.location()}
	if bound == nil {
		return out
	}
	out.Bound = true
	out.ProjectKey = bound.ProjectKey
	out.ProjectName = bound.ProjectName
	out.ServerURI = bound.ServerURI
	if params, err := bound.ConnectionParameters(); err == nil {
		out.Auth = params.Auth.String()
	}
	return out
}

func NewStatusCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the binding of the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openWorkspace(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			bound, err := env.store.Read()
			if err != nil {
				return err
			}
			out := statusFor(env, bound)

			if check {
				if bound == nil {
					return errors.New(errors.ErrCodeBindingNotFound, "workspace is not bound").
						WithDetail("workspace", env.root)
				}
				info, err := fetchServerInfo(cmd, env, *bound)
				if err != nil {
					return err
				}
				out.Server = info.Version
				if info.ProjectName != "" {
					out.ProjectName = info.ProjectName
				}
			}

			printer := cli.NewPrinter(cmd.OutOrStdout(), env.opts.JSONOutput)
			if printer.JSON {
				return printer.Encode(out)
			}

			printer.Path("Workspace", out.Workspace)
			if !out.Bound {
				printer.Warn("Not bound")
				return nil
			}
			printer.Field("Project", out.ProjectKey)
			if out.ProjectName != "" {
				printer.Field("Name", out.ProjectName)
			}
			printer.Field("Server", out.ServerURI)
			printer.Field("Auth", out.Auth)
			printer.Path("Binding", out.Location)
			if out.Server != "" {
				printer.Success(fmt.Sprintf("Server reachable (version %s)", out.Server))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Contact the server and verify the project")
	return cmd
}

func fetchServerInfo(cmd *cobra.Command, env *workspaceEnv, bound binding.BoundProject) (section.ServerInfo, error) {
	params, err := bound.ConnectionParameters()
	if err != nil {
		return section.ServerInfo{}, errors.Wrap(err, errors.ErrCodeBindingInvalid, "binding has no usable server URI")
	}

	timeout := time.Duration(env.cfg.Refresh.TimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout+time.Second)
	defer cancel()

	return section.NewHTTPRefresher(env.cfg.Refresh).Refresh(ctx, params, bound.ProjectKey)
}

// checkServer queries the server for bound as it will be read back, with ${VAR}
// references in the secret expanded.
func checkServer(cmd *cobra.Command, env *workspaceEnv, bound binding.BoundProject) error {
	if bound.Credentials != nil {
		creds := *bound.Credentials
		creds.Secret = config.ExpandEnvVars(creds.Secret)
		bound.Credentials = &creds
	}
	info, err := fetchServerInfo(cmd, env, bound)
	if err != nil {
		return err
	}
	cli.GetLogger(cmd).WithField("version", info.Version).Debug("Server check passed")
	return nil
}
