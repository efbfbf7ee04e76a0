package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/imamik/stagehand/internal/config"
	"github.com/imamik/stagehand/internal/k8s"
	"github.com/imamik/stagehand/internal/provisioning"
	"github.com/imamik/stagehand/internal/readiness"
)

// Step names that do not depend on configuration.
const (
	StepCluster     = "cluster"
	StepArgoCD      = "argocd"
	StepGitHubToken = "secret/github-token"
)

// Steps returns the ordered plan for the configuration. Secret steps are only
// included when their credentials are set.
func (b *Bootstrapper) Steps() []provisioning.Step {
	cfg := b.cfg

	steps := []provisioning.Step{
		b.clusterStep(),
		b.resourceStep("namespace/"+cfg.ArgoCD.Namespace, namespaceSelector(cfg.ArgoCD.Namespace), func() (*unstructured.Unstructured, error) {
			return namespaceManifest(cfg.ArgoCD.Namespace)
		}),
		b.resourceStep("namespace/"+cfg.Backstage.Namespace, namespaceSelector(cfg.Backstage.Namespace), func() (*unstructured.Unstructured, error) {
			return namespaceManifest(cfg.Backstage.Namespace)
		}),
	}

	if cfg.Credentials.HasRegistry() {
		steps = append(steps, b.secretStep("secret/"+cfg.Registry.SecretName,
			secretSelector(cfg.Backstage.Namespace, cfg.Registry.SecretName), corev1.DockerConfigJsonKey,
			func() (*unstructured.Unstructured, error) { return registrySecretManifest(cfg) }))
	}
	if cfg.Credentials.HasGitHubToken() {
		steps = append(steps, b.secretStep(StepGitHubToken,
			secretSelector(cfg.Backstage.Namespace, config.DefaultGitHubSecretName), GitHubTokenKey,
			func() (*unstructured.Unstructured, error) { return githubSecretManifest(cfg) }))
	}

	steps = append(steps, b.argoCDStep())

	app := b.resourceStep(ApplicationStepName(cfg), applicationSelector(cfg), func() (*unstructured.Unstructured, error) {
		return applicationManifest(cfg)
	})
	app.Ready = b.gate(cfg.Backstage.Namespace, backstageSelector, cfg.Timeouts.Backstage)
	steps = append(steps, app)

	return steps
}

// ApplicationStepName is the name of the step applying the Backstage Application.
func ApplicationStepName(cfg *config.Config) string {
	return "application/" + cfg.Backstage.Application
}

func (b *Bootstrapper) clusterStep() provisioning.Step {
	name := b.cfg.ClusterName
	step := b.baseStep(StepCluster)

	step.Exists = func(ctx context.Context) (bool, error) {
		return b.lifecycle.Exists(ctx, name)
	}
	step.Apply = func(ctx context.Context) error {
		// A previous attempt may have created the cluster before its gate timed out.
		exists, err := b.lifecycle.Exists(ctx, name)
		if err != nil {
			return err
		}
		if !exists {
			logr.FromContextOrDiscard(ctx).Info("creating cluster", "name", name, "provider", string(b.cfg.Provider))
			if err := b.lifecycle.Create(ctx, name); err != nil {
				return err
			}
		}
		b.disconnect()
		return nil
	}
	step.Conflict = true
	step.Remove = func(ctx context.Context) error {
		b.disconnect()
		return b.lifecycle.Delete(ctx, name)
	}
	step.Ready = b.gate("kube-system", controlPlaneSelector, b.cfg.Timeouts.Cluster)
	return step
}

func (b *Bootstrapper) argoCDStep() provisioning.Step {
	cfg := b.cfg
	step := b.baseStep(StepArgoCD)

	step.Exists = func(ctx context.Context) (bool, error) {
		_, charts, err := b.connection(ctx)
		if err != nil {
			return false, err
		}
		return charts.ReleaseExists(ctx, cfg.ArgoCD.Namespace, cfg.ArgoCD.Release)
	}
	step.Apply = func(ctx context.Context) error {
		_, charts, err := b.connection(ctx)
		if err != nil {
			return err
		}
		return charts.InstallOrUpgrade(ctx, argoCDChart(cfg))
	}
	step.Ready = b.gate(cfg.ArgoCD.Namespace, argoCDServerSelector, cfg.Timeouts.ArgoCD)
	return step
}

// resourceStep applies a single manifest with server-side apply.
func (b *Bootstrapper) resourceStep(name string, sel k8s.Selector, manifest func() (*unstructured.Unstructured, error)) provisioning.Step {
	step := b.baseStep(name)

	step.Exists = func(ctx context.Context) (bool, error) {
		cluster, _, err := b.connection(ctx)
		if err != nil {
			return false, err
		}
		return cluster.Exists(ctx, sel)
	}
	step.Apply = func(ctx context.Context) error {
		cluster, _, err := b.connection(ctx)
		if err != nil {
			return err
		}
		obj, err := manifest()
		if err != nil {
			return fmt.Errorf("failed to build %s: %w", sel, err)
		}
		return cluster.Apply(ctx, obj)
	}
	return step
}

// secretStep is a resourceStep whose secret only counts as present while its
// key holds the value the manifest would write. Rotated credentials are
// applied again.
func (b *Bootstrapper) secretStep(name string, sel k8s.Selector, key string, manifest func() (*unstructured.Unstructured, error)) provisioning.Step {
	step := b.resourceStep(name, sel, manifest)
	exists := step.Exists

	step.Exists = func(ctx context.Context) (bool, error) {
		ok, err := exists(ctx)
		if err != nil || !ok {
			return ok, err
		}

		obj, err := manifest()
		if err != nil {
			return false, fmt.Errorf("failed to build %s: %w", sel, err)
		}
		want, err := secretData(obj, key)
		if err != nil {
			return false, err
		}

		cluster, _, err := b.connection(ctx)
		if err != nil {
			return false, err
		}
		got, err := cluster.SecretValue(ctx, sel.Namespace, sel.Name, key)
		if errors.Is(err, k8s.ErrSecretKeyMissing) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if got != want {
			logr.FromContextOrDiscard(ctx).Info("secret content changed, applying again", "secret", sel.String())
			return false, nil
		}
		return true, nil
	}
	return step
}

func (b *Bootstrapper) baseStep(name string) provisioning.Step {
	return provisioning.Step{
		Name:        name,
		MaxAttempts: b.cfg.Timeouts.RetryMaxAttempts,
		RetryDelay:  b.cfg.Timeouts.RetryDelay,
	}
}

func (b *Bootstrapper) gate(namespace, selector string, timeout time.Duration) *provisioning.Gate {
	return &provisioning.Gate{
		Probe: readiness.Probe{
			Namespace:     namespace,
			LabelSelector: selector,
			Timeout:       timeout,
			PollInterval:  b.cfg.Timeouts.PollInterval,
		},
		Wait: b.waitReady,
	}
}

func (b *Bootstrapper) waitReady(ctx context.Context, probe readiness.Probe) error {
	cluster, _, err := b.connection(ctx)
	if err != nil {
		return err
	}
	return cluster.WaitReady(ctx, probe)
}
