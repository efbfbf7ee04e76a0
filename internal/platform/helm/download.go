package helm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/go-logr/logr"
	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chart/loader"
	"helm.sh/helm/v3/pkg/getter"
	"helm.sh/helm/v3/pkg/registry"
	"helm.sh/helm/v3/pkg/repo"
)

// downloadChart fetches the chart archive into memory, either from an OCI
// registry or from a classic chart repository index.
func (c *Client) downloadChart(ctx context.Context, spec ChartSpec) (*chart.Chart, error) {
	logger := logr.FromContextOrDiscard(ctx)

	if registry.IsOCI(spec.Repository) {
		ref, err := ociReference(spec)
		if err != nil {
			return nil, err
		}
		logger.V(1).Info("pulling chart", "ref", ref)
		return pullOCIChart(ref)
	}

	getters := getter.All(c.settings)
	chartURL, err := repo.FindChartInRepoURL(spec.Repository, spec.Chart, spec.Version, "", "", "", getters)
	if err != nil {
		return nil, fmt.Errorf("failed to find chart %s in repo %s: %w", spec.Chart, spec.Repository, err)
	}

	u, err := url.Parse(chartURL)
	if err != nil {
		return nil, fmt.Errorf("invalid chart url %q: %w", chartURL, err)
	}
	g, err := getters.ByScheme(u.Scheme)
	if err != nil {
		return nil, fmt.Errorf("no getter for chart url %q: %w", chartURL, err)
	}

	logger.V(1).Info("downloading chart", "url", chartURL)
	data, err := g.Get(chartURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download chart %s: %w", chartURL, err)
	}

	return loader.LoadArchive(data)
}

// ociReference builds "host/path/chart:version" from an oci:// repository.
func ociReference(spec ChartSpec) (string, error) {
	if spec.Version == "" || strings.ContainsAny(spec.Version, "*^~<> ") {
		return "", fmt.Errorf("chart %s from an OCI registry needs an exact version, got %q", spec.Chart, spec.Version)
	}
	base := strings.TrimSuffix(strings.TrimPrefix(spec.Repository, fmt.Sprintf("%s://", registry.OCIScheme)), "/")
	return fmt.Sprintf("%s/%s:%s", base, spec.Chart, spec.Version), nil
}

func pullOCIChart(ref string) (*chart.Chart, error) {
	registryClient, err := registry.NewClient(
		registry.ClientOptDebug(false),
		registry.ClientOptWriter(io.Discard),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create registry client: %w", err)
	}

	result, err := registryClient.Pull(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to pull chart %s: %w", ref, err)
	}
	return loader.LoadArchive(bytes.NewReader(result.Chart.Data))
}
