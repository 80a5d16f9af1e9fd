package cmd

import (
	"fmt"

	"github.com/grovetools/qualitylink/binding"
	"github.com/grovetools/qualitylink/config"
	"github.com/spf13/cobra"
)

func NewSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema [binding|config]",
		Short: "Print the JSON Schema of binding files or of qlink.yml",
		Long: `Print a JSON Schema editors can use to validate and complete files.
"binding" (the default) describes binding files, "config" describes qlink.yml.`,
		ValidArgs: []string{"binding", "config"},
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			generate := binding.GenerateSchema
			if len(args) == 1 && args[0] == "config" {
				generate = config.GenerateSchema
			}
			data, err := generate()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}
