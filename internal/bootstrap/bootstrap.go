package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/imamik/stagehand/internal/config"
	"github.com/imamik/stagehand/internal/provisioning"
	"github.com/imamik/stagehand/internal/util/prerequisites"
)

// Bootstrapper brings up and tears down the demo environment described by a
// configuration.
type Bootstrapper struct {
	cfg        *config.Config
	runtime    ContainerRuntime
	lifecycle  Lifecycle
	connect    Connector
	checkTools ToolChecker
	seqOpts    []provisioning.Option

	// Connected lazily once the cluster exists.
	cluster ClusterAPI
	charts  ChartInstaller
}

// Option configures a Bootstrapper.
type Option func(*Bootstrapper)

// WithToolChecker replaces the PATH lookup of required client tools.
func WithToolChecker(check ToolChecker) Option {
	return func(b *Bootstrapper) {
		b.checkTools = check
	}
}

// WithSequencerOptions passes options to the provisioning sequencer.
func WithSequencerOptions(opts ...provisioning.Option) Option {
	return func(b *Bootstrapper) {
		b.seqOpts = append(b.seqOpts, opts...)
	}
}

// New creates a Bootstrapper.
func New(cfg *config.Config, runtime ContainerRuntime, lifecycle Lifecycle, connect Connector, opts ...Option) *Bootstrapper {
	if cfg.Timeouts == nil {
		cfg.Timeouts = config.LoadTimeouts()
	}

	b := &Bootstrapper{
		cfg:       cfg,
		runtime:   runtime,
		lifecycle: lifecycle,
		connect:   connect,
		checkTools: func(ctx context.Context, provider string) error {
			return prerequisites.CheckProvider(ctx, provider).Error()
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Preflight verifies the container runtime and client tools before anything
// is mutated. Failures match provisioning.ErrMissingPrerequisite.
func (b *Bootstrapper) Preflight(ctx context.Context) error {
	if err := b.runtime.Available(ctx); err != nil {
		return fmt.Errorf("%w: %w", provisioning.ErrMissingPrerequisite, err)
	}
	if err := b.checkTools(ctx, string(b.cfg.Provider)); err != nil {
		return fmt.Errorf("%w: %w", provisioning.ErrMissingPrerequisite, err)
	}
	return nil
}

// Up runs preflight and then every step of the plan. The report is nil when
// preflight fails.
func (b *Bootstrapper) Up(ctx context.Context) (*provisioning.Report, error) {
	if err := b.Preflight(ctx); err != nil {
		return nil, err
	}
	return provisioning.NewSequencer(b.seqOpts...).Run(ctx, b.Steps())
}

// Status runs the existence check of every step without mutating anything.
// When the cluster is absent the in-cluster steps are reported absent too.
func (b *Bootstrapper) Status(ctx context.Context) ([]provisioning.Presence, error) {
	if err := b.runtime.Available(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", provisioning.ErrMissingPrerequisite, err)
	}

	steps := b.Steps()
	clusterExists, err := b.lifecycle.Exists(ctx, b.cfg.ClusterName)
	if err != nil {
		return nil, fmt.Errorf("failed to check cluster %s: %w", b.cfg.ClusterName, err)
	}
	if clusterExists {
		return provisioning.Inspect(ctx, steps), nil
	}

	presence := make([]provisioning.Presence, len(steps))
	for i, step := range steps {
		presence[i] = provisioning.Presence{Name: step.Name}
	}
	return presence, nil
}

// Down deletes the cluster. With keepCluster it instead removes what the
// later steps installed, in reverse order, and leaves the cluster running.
func (b *Bootstrapper) Down(ctx context.Context, keepCluster bool) error {
	logger := logr.FromContextOrDiscard(ctx)

	if !keepCluster {
		if err := b.lifecycle.Delete(ctx, b.cfg.ClusterName); err != nil {
			return fmt.Errorf("failed to delete cluster %s: %w", b.cfg.ClusterName, err)
		}
		b.disconnect()
		logger.Info("cluster deleted", "name", b.cfg.ClusterName)
		return nil
	}

	exists, err := b.lifecycle.Exists(ctx, b.cfg.ClusterName)
	if err != nil {
		return fmt.Errorf("failed to check cluster %s: %w", b.cfg.ClusterName, err)
	}
	if !exists {
		logger.Info("cluster does not exist, nothing to remove", "name", b.cfg.ClusterName)
		return nil
	}

	cluster, charts, err := b.connection(ctx)
	if err != nil {
		return err
	}

	var errs []error
	if err := cluster.Delete(ctx, applicationSelector(b.cfg)); err != nil {
		errs = append(errs, err)
	}
	if err := charts.Uninstall(ctx, b.cfg.ArgoCD.Namespace, b.cfg.ArgoCD.Release); err != nil {
		errs = append(errs, err)
	}
	for _, ns := range []string{b.cfg.Backstage.Namespace, b.cfg.ArgoCD.Namespace} {
		if err := cluster.Delete(ctx, namespaceSelector(ns)); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to remove installed components: %w", err)
	}

	logger.Info("removed installed components", "cluster", b.cfg.ClusterName)
	return nil
}

// connection returns the in-cluster collaborators, connecting on first use.
func (b *Bootstrapper) connection(ctx context.Context) (ClusterAPI, ChartInstaller, error) {
	if b.cluster != nil && b.charts != nil {
		return b.cluster, b.charts, nil
	}

	kubeconfig, err := b.lifecycle.Kubeconfig(ctx, b.cfg.ClusterName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get kubeconfig for %s: %w", b.cfg.ClusterName, err)
	}

	cluster, charts, err := b.connect(ctx, kubeconfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to cluster %s: %w", b.cfg.ClusterName, err)
	}

	b.cluster, b.charts = cluster, charts
	return cluster, charts, nil
}

func (b *Bootstrapper) disconnect() {
	b.cluster, b.charts = nil, nil
}
