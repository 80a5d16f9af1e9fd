package cmd

import (
	"fmt"
	"strings"

	"github.com/grovetools/qualitylink/binding"
	"github.com/grovetools/qualitylink/cli"
	"github.com/grovetools/qualitylink/errors"
	"github.com/spf13/cobra"
)

func NewBindCmd() *cobra.Command {
	var (
		projectKey  string
		projectName string
		server      string
		user        string
		token       string
		check       bool
	)

	cmd := &cobra.Command{
		Use:   "bind",
		Short: "Bind the workspace to a project on a quality server",
		Long: `Write the binding record of the workspace.

With --user the secret given by --token is sent as a basic-auth password;
without it the token is sent as a bearer token. Secrets may be written as
${VAR} references, which are expanded each time the binding is read.`,
		Example: `  qlink bind --project my-app --server https://sonar.example.com --token '${SONAR_TOKEN}'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(projectKey) == "" {
				return errors.InvalidArgument("project")
			}
			if strings.TrimSpace(server) == "" {
				return errors.InvalidArgument("server")
			}

			bound := binding.BoundProject{
				ProjectKey:  projectKey,
				ProjectName: projectName,
				ServerURI:   server,
			}
			switch {
			case user != "":
				bound.Credentials = &binding.Credentials{Type: binding.AuthBasic, UserName: user, Secret: token}
			case token != "":
				bound.Credentials = &binding.Credentials{Type: binding.AuthToken, Secret: token}
			}
			if err := bound.Validate(); err != nil {
				return errors.Wrap(err, errors.ErrCodeInvalidArgument, "invalid binding")
			}

			env, err := openWorkspace(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			if check {
				if err := checkServer(cmd, env, bound); err != nil {
					return err
				}
			}

			if err := env.store.Write(bound); err != nil {
				return err
			}

			printer := cli.NewPrinter(cmd.OutOrStdout(), env.opts.JSONOutput)
			if printer.JSON {
				return printer.Encode(statusFor(env, &bound))
			}
			printer.Success(fmt.Sprintf("Bound %s to %s", env.root, projectKey))
			printer.Path("Binding", env.location())
			return nil
		},
	}

	cmd.Flags().StringVar(&projectKey, "project", "", "Key of the server project")
	cmd.Flags().StringVar(&projectName, "name", "", "Display name of the project")
	cmd.Flags().StringVar(&server, "server", "", "Base URL of the quality server")
	cmd.Flags().StringVar(&user, "user", "", "User name for basic authentication")
	cmd.Flags().StringVar(&token, "token", "", "Token, or password with --user")
	cmd.Flags().BoolVar(&check, "check", false, "Verify the server and project before writing")

	return cmd
}

func NewUnbindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unbind",
		Short: "Remove the binding of the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openWorkspace(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			if err := env.store.Delete(); err != nil {
				return err
			}
			printer := cli.NewPrinter(cmd.OutOrStdout(), env.opts.JSONOutput)
			if printer.JSON {
				return printer.Encode(statusFor(env, nil))
			}
			printer.Success(fmt.Sprintf("Unbound %s", env.root))
			return nil
		},
	}
}
