package testing

import (
	"github.com/imamik/stagehand/internal/config"
	"github.com/imamik/stagehand/internal/platform/helm"
)

// ClusterFixture bundles the collaborator mocks of a bootstrap run.
type ClusterFixture struct {
	Runtime   *MockContainerRuntime
	Lifecycle *MockLifecycle
	Cluster   *MockClusterAPI
	Charts    *MockChartInstaller

	// Connects counts how often the in-cluster collaborators were built.
	Connects int
	// Kubeconfigs records the kubeconfig of every connect.
	Kubeconfigs [][]byte
}

// NewClusterFixture creates mocks for a machine with no cluster yet.
func NewClusterFixture() *ClusterFixture {
	return &ClusterFixture{
		Runtime:   NewMockContainerRuntime(),
		Lifecycle: NewMockLifecycle(),
		Cluster:   NewMockClusterAPI(),
		Charts:    NewMockChartInstaller(),
	}
}

// SuccessfulBootstrap makes every readiness gate pass.
func (f *ClusterFixture) SuccessfulBootstrap() *ClusterFixture {
	f.Cluster.WithAllReady()
	return f
}

// ExistingEnvironment marks the cluster and ArgoCD release of cfg as present.
func (f *ClusterFixture) ExistingEnvironment(cfg *config.Config) *ClusterFixture {
	f.Lifecycle.clusters[cfg.ClusterName] = true
	f.Charts.releases[cfg.ArgoCD.Namespace+"/"+cfg.ArgoCD.Release] = helm.ChartSpec{
		Release:   cfg.ArgoCD.Release,
		Namespace: cfg.ArgoCD.Namespace,
		Chart:     cfg.ArgoCD.Chart,
	}
	return f
}

// Connect records the connect and returns the cluster and chart mocks.
func (f *ClusterFixture) Connect(kubeconfig []byte) (*MockClusterAPI, *MockChartInstaller) {
	f.Connects++
	f.Kubeconfigs = append(f.Kubeconfigs, kubeconfig)
	return f.Cluster, f.Charts
}
