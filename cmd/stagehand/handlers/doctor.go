package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/imamik/stagehand/internal/config"
	"github.com/imamik/stagehand/internal/k8s"
	"github.com/imamik/stagehand/internal/platform/docker"
	"github.com/imamik/stagehand/internal/util/prerequisites"
)

// ErrDoctorFailed is returned when a required check does not pass.
var ErrDoctorFailed = errors.New("environment is not ready for stagehand")

// Factory function variables for doctor - can be replaced in tests.
var (
	// dockerInfo reports the container runtime details.
	dockerInfo = func(ctx context.Context) (docker.Info, error) {
		rt, err := docker.New()
		if err != nil {
			return docker.Info{}, err
		}
		return rt.Info(ctx)
	}

	// checkTools looks up the client tools on PATH.
	checkTools = prerequisites.CheckAll

	// serverVersion asks the API server behind kubeconfig for its version.
	serverVersion = func(ctx context.Context, kubeconfig []byte) (string, error) {
		client, err := k8s.NewFromKubeconfig(kubeconfig)
		if err != nil {
			return "", err
		}
		return client.ServerVersion(ctx)
	}
)

// Doctor validates the configuration and checks the local machine: the
// container runtime must answer and the provider's tools must be installed.
// Optional tools are listed but never fail the check. An existing cluster
// must answer on its API server; a missing one is only reported.
func Doctor(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "stagehand doctor: %s (%s)\n", cfg.ClusterName, cfg.Provider)
	fmt.Fprintln(stdout, "===========================")
	fmt.Fprintln(stdout)

	ok := true

	fmt.Fprintln(stdout, "Container runtime")
	fmt.Fprintln(stdout, "-----------------")
	info, err := dockerInfo(ctx)
	if err != nil {
		ok = false
		fmt.Fprintf(stdout, "  [FAIL] docker: %v\n", err)
	} else {
		fmt.Fprintf(stdout, "  [OK]   docker %s (API %s, %s/%s)\n", info.Version, info.APIVersion, info.OS, info.Arch)
	}
	fmt.Fprintln(stdout)

	fmt.Fprintln(stdout, "Client tools")
	fmt.Fprintln(stdout, "------------")
	results := checkTools(ctx, string(cfg.Provider))
	if len(results.Results) == 0 {
		fmt.Fprintln(stdout, "  (none)")
	}
	for _, r := range results.Results {
		fmt.Fprintln(stdout, formatToolResult(r))
	}
	if results.HasErrors() {
		ok = false
	}
	fmt.Fprintln(stdout)

	if !checkCluster(ctx, cfg) {
		ok = false
	}

	printConfigSummary(cfg)

	if !ok {
		if err := results.Error(); err != nil {
			return fmt.Errorf("%w: %w", ErrDoctorFailed, err)
		}
		return ErrDoctorFailed
	}
	fmt.Fprintln(stdout, "All required checks passed.")
	return nil
}

// checkCluster prints the state of the configured cluster and reports false
// only when the cluster exists but its API server does not answer.
func checkCluster(ctx context.Context, cfg *config.Config) bool {
	fmt.Fprintln(stdout, "Cluster")
	fmt.Fprintln(stdout, "-------")
	defer fmt.Fprintln(stdout)

	lifecycle, err := newLifecycle(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stdout, "  [--]   %s: state unknown: %v\n", cfg.ClusterName, err)
		return true
	}
	exists, err := lifecycle.Exists(ctx, cfg.ClusterName)
	if err != nil {
		// The runtime and tool checks above already report the cause.
		fmt.Fprintf(stdout, "  [--]   %s: state unknown: %v\n", cfg.ClusterName, err)
		return true
	}
	if !exists {
		fmt.Fprintf(stdout, "  [--]   %s: not created yet\n", cfg.ClusterName)
		return true
	}

	kubeconfig, err := lifecycle.Kubeconfig(ctx, cfg.ClusterName)
	if err != nil {
		fmt.Fprintf(stdout, "  [FAIL] %s: %v\n", cfg.ClusterName, err)
		return false
	}
	version, err := serverVersion(ctx, kubeconfig)
	if err != nil {
		fmt.Fprintf(stdout, "  [FAIL] %s: API server unreachable: %v\n", cfg.ClusterName, err)
		return false
	}
	fmt.Fprintf(stdout, "  [OK]   %s: Kubernetes %s\n", cfg.ClusterName, version)
	return true
}

func formatToolResult(r prerequisites.CheckResult) string {
	switch {
	case r.Found && r.Version != "":
		return fmt.Sprintf("  [OK]   %-10s %s", r.Tool.Name, r.Version)
	case r.Found:
		return fmt.Sprintf("  [OK]   %-10s %s", r.Tool.Name, r.Path)
	case r.Tool.Required:
		return fmt.Sprintf("  [FAIL] %-10s missing, see %s", r.Tool.Name, r.Tool.InstallURL)
	default:
		return fmt.Sprintf("  [--]   %-10s optional: %s", r.Tool.Name, r.Tool.Description)
	}
}

func printConfigSummary(cfg *config.Config) {
	fmt.Fprintln(stdout, "Configuration")
	fmt.Fprintln(stdout, "-------------")
	fmt.Fprintf(stdout, "  Workers:     %d\n", cfg.Cluster.Workers)
	fmt.Fprintf(stdout, "  ArgoCD:      %s/%s (%s)\n", cfg.ArgoCD.Namespace, cfg.ArgoCD.Release, cfg.ArgoCD.Chart)
	if cfg.Backstage.Path != "" {
		fmt.Fprintf(stdout, "  Backstage:   %s (path %s @ %s)\n", cfg.Backstage.RepoURL, cfg.Backstage.Path, cfg.Backstage.Revision)
	} else {
		fmt.Fprintf(stdout, "  Backstage:   %s (chart %s @ %s)\n", cfg.Backstage.RepoURL, cfg.Backstage.Chart, cfg.Backstage.Revision)
	}
	fmt.Fprintf(stdout, "  On conflict: %s\n", cfg.OnConflict)
	fmt.Fprintf(stdout, "  Credentials: %s\n", cfg.Credentials)
	fmt.Fprintln(stdout)
}
