package handlers

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
)

// Down tears the environment down. The cluster is deleted unless keepCluster
// is set, in which case only the Backstage application, ArgoCD and their
// namespaces are removed. Running it against a missing environment succeeds.
func Down(ctx context.Context, configPath string, keepCluster bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	b, err := newBootstrapper(ctx, cfg)
	if err != nil {
		return err
	}

	logr.FromContextOrDiscard(ctx).Info("tearing environment down", "cluster", cfg.ClusterName, "keepCluster", keepCluster)

	if err := b.Down(ctx, keepCluster); err != nil {
		return err
	}

	if keepCluster {
		fmt.Fprintf(stdout, "Removed ArgoCD and Backstage from cluster %s\n", cfg.ClusterName)
	} else {
		fmt.Fprintf(stdout, "Cluster %s deleted\n", cfg.ClusterName)
	}
	return nil
}
