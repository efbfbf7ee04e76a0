package bootstrap

import (
	"context"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/imamik/stagehand/internal/k8s"
	"github.com/imamik/stagehand/internal/platform/helm"
	"github.com/imamik/stagehand/internal/readiness"
)

// ContainerRuntime reports whether the container runtime backing the local
// cluster is reachable.
type ContainerRuntime interface {
	Available(ctx context.Context) error
}

// Lifecycle creates and deletes local clusters by name.
type Lifecycle interface {
	Exists(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, name string) error
	Delete(ctx context.Context, name string) error
	Kubeconfig(ctx context.Context, name string) ([]byte, error)
}

// ClusterAPI is the in-cluster collaborator.
type ClusterAPI interface {
	Exists(ctx context.Context, sel k8s.Selector) (bool, error)
	Apply(ctx context.Context, obj *unstructured.Unstructured) error
	Delete(ctx context.Context, sel k8s.Selector) error
	WaitReady(ctx context.Context, probe readiness.Probe) error
	SecretValue(ctx context.Context, namespace, name, key string) (string, error)
	PodLogs(ctx context.Context, namespace, labelSelector string, tailLines int64) (string, error)
}

// ChartInstaller manages helm releases.
type ChartInstaller interface {
	ReleaseExists(ctx context.Context, namespace, name string) (bool, error)
	InstallOrUpgrade(ctx context.Context, spec helm.ChartSpec) error
	Uninstall(ctx context.Context, namespace, name string) error
}

// Connector builds the in-cluster collaborators from a kubeconfig.
type Connector func(ctx context.Context, kubeconfig []byte) (ClusterAPI, ChartInstaller, error)

// ToolChecker fails when a client tool required by provider is missing.
type ToolChecker func(ctx context.Context, provider string) error

// Compile-time checks for the production adapters.
var (
	_ ClusterAPI     = (*k8s.Client)(nil)
	_ ChartInstaller = (*helm.Client)(nil)
)
