package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/stagehand/cmd/stagehand/handlers"
)

// Down returns the command that tears the environment down.
func Down() *cobra.Command {
	var (
		configPath  string
		keepCluster bool
	)

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Delete the cluster",
		Long: `Delete the local cluster and everything in it.

With --keep-cluster the Backstage application, ArgoCD and their namespaces
are removed and the cluster keeps running. Running down when nothing exists
succeeds.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Down(cmd.Context(), configPath, keepCluster)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: stagehand.yaml)")
	cmd.Flags().BoolVar(&keepCluster, "keep-cluster", false, "Remove ArgoCD and Backstage but keep the cluster")

	return cmd
}
