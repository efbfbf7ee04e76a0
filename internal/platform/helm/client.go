package helm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"helm.sh/helm/v3/pkg/action"
	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/cli"
	"helm.sh/helm/v3/pkg/release"
	"helm.sh/helm/v3/pkg/storage/driver"
)

// DefaultTimeout bounds a single install, upgrade or uninstall.
const DefaultTimeout = 5 * time.Minute

var errReleaseNameRequired = errors.New("helm: release name is required")

// ChartSpec describes a release to install from a chart repository.
type ChartSpec struct {
	Release    string
	Namespace  string
	Repository string
	Chart      string
	Version    string
	Values     Values
	Timeout    time.Duration
}

// ChartLoader fetches the chart named by spec.
type ChartLoader func(ctx context.Context, spec ChartSpec) (*chart.Chart, error)

// ConfigFactory builds the helm action configuration for a namespace.
type ConfigFactory func(ctx context.Context, namespace string) (*action.Configuration, error)

// Client provides Helm operations using in-memory kubeconfig.
type Client struct {
	settings  *cli.EnvSettings
	loadChart ChartLoader
	newConfig ConfigFactory
}

// Option configures a Client.
type Option func(*Client)

// WithChartLoader replaces the repository download.
func WithChartLoader(loader ChartLoader) Option {
	return func(c *Client) {
		c.loadChart = loader
	}
}

// WithConfigFactory replaces the kubeconfig-backed action configuration.
func WithConfigFactory(factory ConfigFactory) Option {
	return func(c *Client) {
		c.newConfig = factory
	}
}

// NewClient creates a Helm client from kubeconfig bytes.
func NewClient(kubeconfig []byte, opts ...Option) *Client {
	c := &Client{settings: cli.New()}
	c.loadChart = c.downloadChart
	c.newConfig = func(ctx context.Context, namespace string) (*action.Configuration, error) {
		logger := logr.FromContextOrDiscard(ctx).WithName("helm")
		cfg := new(action.Configuration)
		if err := cfg.Init(newKubeconfigGetter(kubeconfig, namespace), namespace, "secret", func(format string, v ...interface{}) {
			logger.V(2).Info(fmt.Sprintf(format, v...))
		}); err != nil {
			return nil, fmt.Errorf("failed to initialize helm action config: %w", err)
		}
		return cfg, nil
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ReleaseExists reports whether the latest revision of the release is deployed.
// A release left failed or pending by an earlier run counts as absent.
func (c *Client) ReleaseExists(ctx context.Context, namespace, name string) (bool, error) {
	cfg, err := c.newConfig(ctx, namespace)
	if err != nil {
		return false, err
	}

	latest, err := lastRelease(cfg, name)
	if err != nil {
		return false, err
	}
	return latest != nil && latest.Info != nil && latest.Info.Status == release.StatusDeployed, nil
}

// InstallOrUpgrade installs a chart or upgrades if already installed. It does
// not wait for workloads; readiness is checked by the caller.
func (c *Client) InstallOrUpgrade(ctx context.Context, spec ChartSpec) error {
	if spec.Release == "" {
		return errReleaseNameRequired
	}
	if spec.Timeout <= 0 {
		spec.Timeout = DefaultTimeout
	}

	cfg, err := c.newConfig(ctx, spec.Namespace)
	if err != nil {
		return err
	}

	ch, err := c.loadChart(ctx, spec)
	if err != nil {
		return fmt.Errorf("failed to load chart: %w", err)
	}

	values, err := spec.Values.normalize()
	if err != nil {
		return err
	}

	latest, err := lastRelease(cfg, spec.Release)
	if err != nil {
		return err
	}

	logger := logr.FromContextOrDiscard(ctx).WithValues("release", spec.Release, "namespace", spec.Namespace)

	switch {
	case latest == nil:
		logger.Info("installing chart", "chart", spec.Chart, "version", spec.Version)
		return c.install(ctx, cfg, spec, ch, values)
	case !hasDeployed(cfg, spec.Release):
		// Upgrade refuses releases that never deployed.
		logger.Info("replacing release without a deployed revision", "status", latest.Info.Status.String())
		if err := uninstall(cfg, spec.Release, spec.Timeout); err != nil {
			return err
		}
		return c.install(ctx, cfg, spec, ch, values)
	default:
		logger.Info("upgrading release", "chart", spec.Chart, "version", spec.Version, "revision", latest.Version)
		return c.upgrade(ctx, cfg, spec, ch, values)
	}
}

// Uninstall removes a Helm release. A missing release is not an error.
func (c *Client) Uninstall(ctx context.Context, namespace, name string) error {
	cfg, err := c.newConfig(ctx, namespace)
	if err != nil {
		return err
	}
	return uninstall(cfg, name, DefaultTimeout)
}

func (c *Client) install(ctx context.Context, cfg *action.Configuration, spec ChartSpec, ch *chart.Chart, values map[string]any) error {
	installClient := action.NewInstall(cfg)
	installClient.ReleaseName = spec.Release
	installClient.Namespace = spec.Namespace
	installClient.CreateNamespace = true
	installClient.Version = spec.Version
	installClient.Timeout = spec.Timeout

	if _, err := installClient.RunWithContext(ctx, ch, values); err != nil {
		return fmt.Errorf("failed to install release %s: %w", spec.Release, err)
	}
	return nil
}

func (c *Client) upgrade(ctx context.Context, cfg *action.Configuration, spec ChartSpec, ch *chart.Chart, values map[string]any) error {
	upgradeClient := action.NewUpgrade(cfg)
	upgradeClient.Namespace = spec.Namespace
	upgradeClient.Version = spec.Version
	upgradeClient.Timeout = spec.Timeout
	upgradeClient.ReuseValues = false

	if _, err := upgradeClient.RunWithContext(ctx, spec.Release, ch, values); err != nil {
		return fmt.Errorf("failed to upgrade release %s: %w", spec.Release, err)
	}
	return nil
}

func uninstall(cfg *action.Configuration, name string, timeout time.Duration) error {
	uninstallClient := action.NewUninstall(cfg)
	uninstallClient.IgnoreNotFound = true
	uninstallClient.Timeout = timeout

	if _, err := uninstallClient.Run(name); err != nil {
		return fmt.Errorf("failed to uninstall release %s: %w", name, err)
	}
	return nil
}

// lastRelease returns the highest revision of a release, or nil if the
// release has no history.
func lastRelease(cfg *action.Configuration, name string) (*release.Release, error) {
	histClient := action.NewHistory(cfg)
	histClient.Max = 256
	history, err := histClient.Run(name)
	if errors.Is(err, driver.ErrReleaseNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history of release %s: %w", name, err)
	}

	var latest *release.Release
	for _, rel := range history {
		if latest == nil || rel.Version > latest.Version {
			latest = rel
		}
	}
	return latest, nil
}

func hasDeployed(cfg *action.Configuration, name string) bool {
	deployed, err := cfg.Releases.DeployedAll(name)
	return err == nil && len(deployed) > 0
}
