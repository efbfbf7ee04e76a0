package bootstrap

import (
	"context"
	"fmt"

	"github.com/imamik/stagehand/internal/provisioning"
)

// diagnosticTailLines is how many log lines per container Diagnose collects.
const diagnosticTailLines = 50

// AccessInfo tells the operator how to reach the environment.
type AccessInfo struct {
	ArgoCDNamespace string
	ArgoCDUsername  string
	// ArgoCDPassword is empty when the initial admin secret was removed.
	ArgoCDPassword string
	Hints          []string
}

// Access reads the ArgoCD admin password and builds port-forward hints.
func (b *Bootstrapper) Access(ctx context.Context) (*AccessInfo, error) {
	cluster, _, err := b.connection(ctx)
	if err != nil {
		return nil, err
	}

	cfg := b.cfg
	info := &AccessInfo{
		ArgoCDNamespace: cfg.ArgoCD.Namespace,
		ArgoCDUsername:  "admin",
		Hints: []string{
			fmt.Sprintf("kubectl port-forward svc/%s-server -n %s 8080:80", cfg.ArgoCD.Release, cfg.ArgoCD.Namespace),
			fmt.Sprintf("kubectl port-forward svc/%s -n %s 7007:7007", cfg.Backstage.Application, cfg.Backstage.Namespace),
		},
	}

	password, err := cluster.SecretValue(ctx, cfg.ArgoCD.Namespace, argoCDAdminSecret, "password")
	if err != nil {
		return info, fmt.Errorf("failed to read argocd admin password: %w", err)
	}
	info.ArgoCDPassword = password
	return info, nil
}

// Diagnose returns recent pod logs for the readiness gate of the step that
// failed. It returns "" when the step has no gate.
func (b *Bootstrapper) Diagnose(ctx context.Context, failed provisioning.StepResult) (string, error) {
	for _, step := range b.Steps() {
		if step.Name != failed.Name || step.Ready == nil {
			continue
		}

		cluster, _, err := b.connection(ctx)
		if err != nil {
			return "", err
		}
		probe := step.Ready.Probe
		return cluster.PodLogs(ctx, probe.Namespace, probe.LabelSelector, diagnosticTailLines)
	}
	return "", nil
}
