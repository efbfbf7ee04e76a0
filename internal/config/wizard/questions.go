package wizard

import (
	"context"
	"regexp"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/imamik/stagehand/internal/config"
)

// clusterNameRegex validates cluster name format: 1-32 lowercase alphanumeric with hyphens.
var clusterNameRegex = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,30}[a-z0-9])?$`)

// runClusterGroup prompts for cluster name, provider and topology.
func runClusterGroup(ctx context.Context, result *WizardResult) error {
	result.ClusterName = config.DefaultClusterName
	result.Provider = string(config.ProviderKind)

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Cluster Name").
				Description("1-32 lowercase alphanumeric characters or hyphens").
				Placeholder(config.DefaultClusterName).
				Value(&result.ClusterName).
				Validate(validateClusterName),
			huh.NewSelect[string]().
				Title("Provider").
				Description("Tool that runs the local cluster").
				Options(ProviderOptions...).
				Value(&result.Provider),
			huh.NewSelect[int]().
				Title("Worker Nodes").
				Options(WorkerCountOptions...).
				Value(&result.Workers),
			huh.NewConfirm().
				Title("Map ports 80/443 to the cluster?").
				Description("Lets an ingress controller serve Backstage on localhost").
				Value(&result.Ingress),
		).Title("Cluster"),
	).RunWithContext(ctx)
}

// runSourceGroup prompts for where ArgoCD pulls Backstage from.
func runSourceGroup(ctx context.Context, result *WizardResult) error {
	result.SourceKind = SourceHelm

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Backstage Source").
				Options(SourceOptions...).
				Value(&result.SourceKind),
		).Title("Backstage"),
	).RunWithContext(ctx)
	if err != nil {
		return err
	}

	if result.SourceKind == SourceHelm {
		result.RepoURL = config.DefaultBackstageRepoURL
		result.Chart = config.DefaultBackstageChart
		result.Revision = config.DefaultBackstageRevision

		return huh.NewForm(
			huh.NewGroup(
				huh.NewInput().Title("Chart Repository").Value(&result.RepoURL).Validate(validateRepoURL),
				huh.NewInput().Title("Chart").Value(&result.Chart).Validate(validateRequired),
				huh.NewInput().Title("Chart Version").Description("Exact version or range").Value(&result.Revision),
			).Title("Helm Source"),
		).RunWithContext(ctx)
	}

	result.Revision = "HEAD"
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Git Repository").Placeholder("https://github.com/org/portal.git").Value(&result.RepoURL).Validate(validateRepoURL),
			huh.NewInput().Title("Path").Placeholder("deploy/backstage").Value(&result.Path).Validate(validateRequired),
			huh.NewInput().Title("Revision").Description("Branch, tag or commit").Value(&result.Revision),
		).Title("Git Source"),
	).RunWithContext(ctx)
}

// runConflictGroup prompts for the behavior when the cluster already exists.
func runConflictGroup(ctx context.Context, result *WizardResult) error {
	result.OnConflict = "continue"

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("If the cluster already exists").
				Options(ConflictOptions...).
				Value(&result.OnConflict),
		).Title("Re-runs"),
	).RunWithContext(ctx)
}

// validateClusterName validates the cluster name format.
func validateClusterName(s string) error {
	if s == "" {
		return errClusterNameRequired
	}
	if !clusterNameRegex.MatchString(s) {
		return errClusterNameInvalid
	}
	return nil
}

func validateRepoURL(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errRepoURLRequired
	}
	for _, prefix := range []string{"https://", "http://", "oci://", "ssh://"} {
		if strings.HasPrefix(s, prefix) {
			return nil
		}
	}
	return errRepoURLInvalid
}

func validateRequired(s string) error {
	if strings.TrimSpace(s) == "" {
		return errSourceRequired
	}
	return nil
}
