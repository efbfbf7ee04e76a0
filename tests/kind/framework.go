//go:build kind

// Package kind runs stagehand against a real kind cluster.
//
// Run with:
//
//	go test -tags=kind -v ./tests/kind/...
//
// Set KEEP_KIND_CLUSTER to keep the cluster afterwards. Set STAGEHAND_E2E_FULL
// to also install ArgoCD and Backstage from their public charts.
package kind

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/stagehand/internal/k8s"
	"github.com/imamik/stagehand/internal/platform/docker"
	"github.com/imamik/stagehand/internal/platform/kind"
)

const clusterName = "stagehand-e2e"

// Framework owns the kind cluster shared by all specs.
type Framework struct {
	Lifecycle  *kind.Lifecycle
	Runtime    *docker.Runtime
	Client     *k8s.Client
	Kubeconfig []byte

	created bool
}

// NewFramework creates the framework without touching the cluster.
func NewFramework(logger logr.Logger) (*Framework, error) {
	rt, err := docker.New()
	if err != nil {
		return nil, err
	}
	return &Framework{
		Runtime: rt,
		Lifecycle: kind.New(kind.ClusterSpec{WaitForReady: 2 * time.Minute},
			kind.WithLogger(logger.WithName("kind"))),
	}, nil
}

// Setup creates the kind cluster or reuses an existing one.
func (f *Framework) Setup(ctx context.Context) error {
	if err := f.Runtime.Available(ctx); err != nil {
		return fmt.Errorf("docker not running: %w", err)
	}

	exists, err := f.Lifecycle.Exists(ctx, clusterName)
	if err != nil {
		return err
	}
	if !exists {
		if err := f.Lifecycle.Create(ctx, clusterName); err != nil {
			return fmt.Errorf("create cluster: %w", err)
		}
		f.created = true
	}

	f.Kubeconfig, err = f.Lifecycle.Kubeconfig(ctx, clusterName)
	if err != nil {
		return fmt.Errorf("get kubeconfig: %w", err)
	}
	f.Client, err = k8s.NewFromKubeconfig(f.Kubeconfig)
	return err
}

// Teardown deletes the cluster it created unless KEEP_KIND_CLUSTER is set.
func (f *Framework) Teardown(ctx context.Context) error {
	if os.Getenv("KEEP_KIND_CLUSTER") != "" || !f.created {
		fmt.Printf("\nCluster preserved: %s\n", clusterName)
		fmt.Printf("  Delete: kind delete cluster --name %s\n", clusterName)
		return nil
	}
	return f.Lifecycle.Delete(ctx, clusterName)
}

// Diagnostics returns recent logs of the pods matching selector.
func (f *Framework) Diagnostics(ctx context.Context, namespace, selector string) string {
	logs, err := f.Client.PodLogs(ctx, namespace, selector, 50)
	if err != nil {
		return fmt.Sprintf("no logs: %v", err)
	}
	return logs
}
