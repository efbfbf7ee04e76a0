package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/stagehand/internal/config"
	"github.com/imamik/stagehand/internal/config/wizard"
)

// Factory function variables for init - can be replaced in tests.
var (
	wizardFileExists       = wizard.FileExists
	wizardConfirmOverwrite = wizard.ConfirmOverwrite
	wizardRunWizard        = wizard.RunWizard
	wizardBuildConfig      = wizard.BuildConfig
	wizardWriteConfig      = wizard.WriteConfig
)

// Init runs the configuration wizard and writes the result to outputPath.
func Init(ctx context.Context, outputPath string) error {
	if wizardFileExists(outputPath) {
		overwrite, err := wizardConfirmOverwrite(outputPath)
		if err != nil {
			return fmt.Errorf("failed to confirm overwrite: %w", err)
		}
		if !overwrite {
			fmt.Fprintln(stdout, "Canceled.")
			return nil
		}
	}

	printWelcome()

	result, err := wizardRunWizard(ctx)
	if err != nil {
		return fmt.Errorf("wizard canceled: %w", err)
	}

	cfg := wizardBuildConfig(result)
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := wizardWriteConfig(cfg, outputPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	printInitSuccess(outputPath, cfg)
	return nil
}

func printWelcome() {
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "stagehand - Backstage on a local cluster")
	fmt.Fprintln(stdout, "========================================")
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "This wizard creates a configuration for a local kind or minikube")
	fmt.Fprintln(stdout, "cluster running ArgoCD and a Backstage application.")
	fmt.Fprintln(stdout)
}

func printInitSuccess(outputPath string, cfg *config.Config) {
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Configuration saved!")
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "  File: %s\n", outputPath)
	fmt.Fprintln(stdout)

	fmt.Fprintln(stdout, "Summary")
	fmt.Fprintln(stdout, "-------")
	fmt.Fprintf(stdout, "  Cluster:     %s\n", cfg.ClusterName)
	fmt.Fprintf(stdout, "  Provider:    %s\n", cfg.Provider)
	fmt.Fprintf(stdout, "  Workers:     %d\n", cfg.Cluster.Workers)
	if cfg.Cluster.Ingress.Enabled {
		fmt.Fprintf(stdout, "  Ingress:     ports %d/%d\n", cfg.Cluster.Ingress.HTTPPort, cfg.Cluster.Ingress.HTTPSPort)
	}
	fmt.Fprintf(stdout, "  Backstage:   %s\n", cfg.Backstage.RepoURL)
	fmt.Fprintf(stdout, "  On conflict: %s\n", cfg.OnConflict)
	fmt.Fprintln(stdout)

	fmt.Fprintln(stdout, "Next Steps")
	fmt.Fprintln(stdout, "----------")
	fmt.Fprintln(stdout, "  1. Optionally export GITHUB_TOKEN and registry credentials")
	fmt.Fprintln(stdout, "  2. Check your machine:")
	fmt.Fprintf(stdout, "     stagehand doctor -c %s\n", outputPath)
	fmt.Fprintln(stdout, "  3. Bring the environment up:")
	fmt.Fprintf(stdout, "     stagehand up -c %s\n", outputPath)
	fmt.Fprintln(stdout)
}
