package kind

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/go-logr/logr"
	"sigs.k8s.io/kind/pkg/apis/config/v1alpha4"
	"sigs.k8s.io/kind/pkg/cluster"
	kindcmd "sigs.k8s.io/kind/pkg/cmd"
	kindlog "sigs.k8s.io/kind/pkg/log"
)

// IngressReadyLabel marks the node that receives the ingress host ports.
const IngressReadyLabel = "ingress-ready"

// Provider describes the subset of kind's cluster.Provider used here.
type Provider interface {
	Create(name string, opts ...cluster.CreateOption) error
	Delete(name, kubeconfigPath string) error
	List() ([]string, error)
	KubeConfig(name string, internal bool) (string, error)
}

// ClusterSpec shapes the kind cluster created by Create.
type ClusterSpec struct {
	// NodeImage overrides kind's default node image.
	NodeImage string
	Workers   int
	// Ingress host ports; zero disables the mapping.
	HTTPPort  int
	HTTPSPort int
	// WaitForReady makes kind wait for the control plane before returning.
	WaitForReady time.Duration
}

// Lifecycle creates, inspects and deletes kind clusters.
type Lifecycle struct {
	provider Provider
	spec     ClusterSpec
}

// Option configures a Lifecycle.
type Option func(*lifecycleOptions)

type lifecycleOptions struct {
	provider Provider
	logger   kindlog.Logger
}

// WithProvider replaces the kind provider.
func WithProvider(p Provider) Option {
	return func(o *lifecycleOptions) {
		o.provider = p
	}
}

// WithLogger routes kind's output through logger instead of the terminal.
func WithLogger(logger logr.Logger) Option {
	return func(o *lifecycleOptions) {
		o.logger = &logrAdapter{logger: logger}
	}
}

// New creates a Lifecycle for clusters shaped by spec.
func New(spec ClusterSpec, opts ...Option) *Lifecycle {
	o := &lifecycleOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.provider == nil {
		logger := o.logger
		if logger == nil {
			logger = kindcmd.NewLogger()
		}
		o.provider = cluster.NewProvider(cluster.ProviderWithLogger(logger))
	}
	return &Lifecycle{provider: o.provider, spec: spec}
}

// Exists reports whether a kind cluster with the given name exists.
func (l *Lifecycle) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	clusters, err := l.provider.List()
	if err != nil {
		return false, fmt.Errorf("kind list: %w", err)
	}
	return slices.Contains(clusters, name), nil
}

// Create creates the cluster and merges its context into the default kubeconfig.
func (l *Lifecycle) Create(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	logr.FromContextOrDiscard(ctx).Info("creating kind cluster",
		"name", name, "workers", l.spec.Workers, "image", l.spec.NodeImage)

	opts := []cluster.CreateOption{
		cluster.CreateWithV1Alpha4Config(l.Config()),
		cluster.CreateWithDisplayUsage(false),
		cluster.CreateWithDisplaySalutation(false),
	}
	if l.spec.NodeImage != "" {
		opts = append(opts, cluster.CreateWithNodeImage(l.spec.NodeImage))
	}
	if l.spec.WaitForReady > 0 {
		opts = append(opts, cluster.CreateWithWaitForReady(l.spec.WaitForReady))
	}

	if err := l.provider.Create(name, opts...); err != nil {
		return fmt.Errorf("kind create: %w", err)
	}
	return nil
}

// Delete deletes the cluster and its kubeconfig context. A missing cluster is
// not an error.
func (l *Lifecycle) Delete(ctx context.Context, name string) error {
	exists, err := l.Exists(ctx, name)
	if err != nil || !exists {
		return err
	}

	logr.FromContextOrDiscard(ctx).Info("deleting kind cluster", "name", name)
	if err := l.provider.Delete(name, ""); err != nil {
		return fmt.Errorf("kind delete: %w", err)
	}
	return nil
}

// Kubeconfig returns the external kubeconfig of the cluster.
func (l *Lifecycle) Kubeconfig(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	kubeconfig, err := l.provider.KubeConfig(name, false)
	if err != nil {
		return nil, fmt.Errorf("kind kubeconfig: %w", err)
	}
	return []byte(kubeconfig), nil
}

// Config renders the v1alpha4 cluster configuration: one control-plane node,
// which also takes the ingress host ports, plus the configured workers.
func (l *Lifecycle) Config() *v1alpha4.Cluster {
	controlPlane := v1alpha4.Node{Role: v1alpha4.ControlPlaneRole}

	if l.spec.HTTPPort > 0 || l.spec.HTTPSPort > 0 {
		controlPlane.Labels = map[string]string{IngressReadyLabel: "true"}
		if l.spec.HTTPPort > 0 {
			controlPlane.ExtraPortMappings = append(controlPlane.ExtraPortMappings, v1alpha4.PortMapping{
				ContainerPort: 80,
				HostPort:      int32(l.spec.HTTPPort), //nolint:gosec // validated port range
				Protocol:      v1alpha4.PortMappingProtocolTCP,
			})
		}
		if l.spec.HTTPSPort > 0 {
			controlPlane.ExtraPortMappings = append(controlPlane.ExtraPortMappings, v1alpha4.PortMapping{
				ContainerPort: 443,
				HostPort:      int32(l.spec.HTTPSPort), //nolint:gosec // validated port range
				Protocol:      v1alpha4.PortMappingProtocolTCP,
			})
		}
	}

	nodes := make([]v1alpha4.Node, 0, 1+l.spec.Workers)
	nodes = append(nodes, controlPlane)
	for range l.spec.Workers {
		nodes = append(nodes, v1alpha4.Node{Role: v1alpha4.WorkerRole})
	}

	return &v1alpha4.Cluster{
		TypeMeta: v1alpha4.TypeMeta{
			Kind:       "Cluster",
			APIVersion: "kind.x-k8s.io/v1alpha4",
		},
		Nodes: nodes,
	}
}
