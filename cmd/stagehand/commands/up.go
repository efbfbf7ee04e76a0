package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/stagehand/cmd/stagehand/handlers"
)

// Up returns the command that brings the environment up.
//
// Optional flags:
//
//	--config, -c: Path to configuration YAML file (default: auto-detect stagehand.yaml)
//	--on-conflict: continue, abort, recreate or ask when the cluster exists
//	--tui: Render progress as an interactive view
//	--metrics-file: Write run metrics in Prometheus text format
//
// Environment variables:
//
//	GITHUB_TOKEN: stored for Backstage (optional)
//	REGISTRY_USERNAME, REGISTRY_PASSWORD: image pull credentials (optional)
//	STAGEHAND_*_TIMEOUT, STAGEHAND_RETRY_*: readiness and retry tuning
func Up() *cobra.Command {
	var (
		configPath string
		opts       handlers.UpOptions
	)

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Create the cluster and deploy ArgoCD and Backstage",
		Long: `Create a local cluster and deploy ArgoCD and Backstage into it.

Every step is checked first and skipped when it is already in place, so
running up again converges an existing environment without changing it.
Transient failures are retried; each step waits until its pods are ready
before the next one starts.

Examples:
  # Bring up the environment described by stagehand.yaml
  stagehand up

  # Recreate an existing cluster from scratch
  stagehand up --on-conflict recreate

  # Follow progress in an interactive view
  stagehand up --tui`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Up(cmd.Context(), configPath, opts)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: stagehand.yaml)")
	cmd.Flags().StringVar(&opts.OnConflict, "on-conflict", "", "What to do when the cluster exists: continue, abort, recreate, ask (default: from config)")
	cmd.Flags().BoolVar(&opts.TUI, "tui", false, "Show interactive progress")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "Write run metrics to this file in Prometheus text format")

	return cmd
}
