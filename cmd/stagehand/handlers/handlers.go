// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command definitions
// in the commands package. Handlers are framework-agnostic and can be tested
// independently of the CLI framework.
package handlers

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/mattn/go-isatty"

	"github.com/imamik/stagehand/internal/bootstrap"
	"github.com/imamik/stagehand/internal/config"
	"github.com/imamik/stagehand/internal/k8s"
	"github.com/imamik/stagehand/internal/platform/docker"
	"github.com/imamik/stagehand/internal/platform/helm"
	"github.com/imamik/stagehand/internal/platform/kind"
	"github.com/imamik/stagehand/internal/platform/minikube"
)

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// loadConfig loads, defaults and validates the configuration.
	loadConfig = config.Load

	// newRuntime connects to the container runtime.
	newRuntime = func() (bootstrap.ContainerRuntime, error) {
		return docker.New()
	}

	// newLifecycle creates the cluster lifecycle for the configured provider.
	newLifecycle = defaultLifecycle

	// connect builds the in-cluster collaborators from a kubeconfig.
	connect bootstrap.Connector = func(_ context.Context, kubeconfig []byte) (bootstrap.ClusterAPI, bootstrap.ChartInstaller, error) {
		cluster, err := k8s.NewFromKubeconfig(kubeconfig)
		if err != nil {
			return nil, nil, err
		}
		return cluster, helm.NewClient(kubeconfig), nil
	}

	// bootstrapOptions are appended to every Bootstrapper (for testing injection).
	bootstrapOptions []bootstrap.Option

	// isInteractive reports whether prompts can be shown.
	isInteractive = func() bool {
		return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	}

	// stdout and stderr receive handler output.
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// defaultLifecycle maps the configuration onto the provider adapter.
func defaultLifecycle(ctx context.Context, cfg *config.Config) (bootstrap.Lifecycle, error) {
	switch cfg.Provider {
	case config.ProviderKind:
		return kind.New(kind.ClusterSpec{
			NodeImage:    cfg.Cluster.NodeImage,
			Workers:      cfg.Cluster.Workers,
			HTTPPort:     cfg.Cluster.Ingress.HTTPPort,
			HTTPSPort:    cfg.Cluster.Ingress.HTTPSPort,
			WaitForReady: time.Minute,
		}, kind.WithLogger(logr.FromContextOrDiscard(ctx).WithName("kind"))), nil
	case config.ProviderMinikube:
		return minikube.New(minikube.ClusterSpec{
			KubernetesVersion: cfg.Cluster.KubernetesVersion,
			Workers:           cfg.Cluster.Workers,
			CPUs:              cfg.Cluster.CPUs,
			Memory:            cfg.Cluster.Memory,
			Ingress:           cfg.Cluster.Ingress.Enabled,
		}), nil
	default:
		return nil, fmt.Errorf("provider %q is not supported", cfg.Provider)
	}
}

// newBootstrapper wires the collaborators for cfg.
func newBootstrapper(ctx context.Context, cfg *config.Config, opts ...bootstrap.Option) (*bootstrap.Bootstrapper, error) {
	lifecycle, err := newLifecycle(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return assemble(cfg, lifecycle, opts...)
}

// assemble creates a Bootstrapper around an existing lifecycle.
func assemble(cfg *config.Config, lifecycle bootstrap.Lifecycle, opts ...bootstrap.Option) (*bootstrap.Bootstrapper, error) {
	runtime, err := newRuntime()
	if err != nil {
		return nil, fmt.Errorf("failed to create container runtime client: %w", err)
	}

	opts = append(opts, bootstrapOptions...)
	return bootstrap.New(cfg, runtime, lifecycle, connect, opts...), nil
}
