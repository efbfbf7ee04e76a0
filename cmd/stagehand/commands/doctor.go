package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/stagehand/cmd/stagehand/handlers"
)

// Doctor returns the command that checks the local machine.
func Doctor() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, container runtime and client tools",
		Long: `Validate the configuration and check that the container runtime answers
and the tools the configured provider needs are installed.

Optional tools such as kubectl are listed but never fail the check.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Doctor(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: stagehand.yaml)")

	return cmd
}
