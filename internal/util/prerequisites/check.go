// Package prerequisites checks that the client tools stagehand shells out to,
// or recommends for working with the cluster, are installed.
package prerequisites

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// versionTimeout bounds each "<tool> version" probe.
const versionTimeout = 5 * time.Second

// Tool represents a client tool that may be required.
type Tool struct {
	// Name is the binary name to look for in PATH.
	Name string

	// Required indicates if this tool is mandatory.
	Required bool

	// Description explains what the tool is used for.
	Description string

	// InstallURL provides a URL for installation instructions.
	InstallURL string

	// VersionArgs prints the tool version; empty skips the probe.
	VersionArgs []string
}

// ProviderTools returns the tools a cluster provider needs. kind is linked
// into the binary and needs none.
func ProviderTools(provider string) []Tool {
	if provider != "minikube" {
		return nil
	}
	return []Tool{
		{
			Name:        "minikube",
			Required:    true,
			Description: "Creates and deletes the minikube cluster",
			InstallURL:  "https://minikube.sigs.k8s.io/docs/start/",
			VersionArgs: []string{"version", "--short"},
		},
	}
}

// OptionalTools returns tools that are useful but not required.
func OptionalTools() []Tool {
	return []Tool{
		{
			Name:        "kubectl",
			Required:    false,
			Description: "Inspect the cluster and port-forward to ArgoCD and Backstage",
			InstallURL:  "https://kubernetes.io/docs/tasks/tools/",
			VersionArgs: []string{"version", "--client"},
		},
		{
			Name:        "argocd",
			Required:    false,
			Description: "Manage the Backstage application from the command line",
			InstallURL:  "https://argo-cd.readthedocs.io/en/stable/cli_installation/",
			VersionArgs: []string{"version", "--client", "--short"},
		},
	}
}

// CheckResult contains the result of checking a single tool.
type CheckResult struct {
	Tool    Tool
	Found   bool
	Path    string
	Version string
}

// CheckResults contains the results of checking multiple tools.
type CheckResults struct {
	Results []CheckResult
	Missing []Tool
}

// HasErrors returns true if any required tools are missing.
func (r *CheckResults) HasErrors() bool {
	for _, tool := range r.Missing {
		if tool.Required {
			return true
		}
	}
	return false
}

// Error returns an error if any required tools are missing.
func (r *CheckResults) Error() error {
	var missing []string
	for _, tool := range r.Missing {
		if tool.Required {
			missing = append(missing, fmt.Sprintf("%s (%s)", tool.Name, tool.InstallURL))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
}

// Check verifies that the specified tools are available.
func Check(ctx context.Context, tools []Tool) *CheckResults {
	results := &CheckResults{}

	for _, tool := range tools {
		result := CheckResult{Tool: tool}

		path, err := exec.LookPath(tool.Name)
		if err == nil {
			result.Found = true
			result.Path = path
			result.Version = toolVersion(ctx, path, tool.VersionArgs)
		} else {
			results.Missing = append(results.Missing, tool)
		}

		results.Results = append(results.Results, result)
	}

	return results
}

// CheckProvider checks the tools required by provider.
func CheckProvider(ctx context.Context, provider string) *CheckResults {
	return Check(ctx, ProviderTools(provider))
}

// CheckAll checks the provider tools plus the optional ones.
func CheckAll(ctx context.Context, provider string) *CheckResults {
	required := ProviderTools(provider)
	optional := OptionalTools()
	all := make([]Tool, 0, len(required)+len(optional))
	all = append(all, required...)
	all = append(all, optional...)
	return Check(ctx, all)
}

// toolVersion returns the first output line of the version command, or ""
// when it cannot be determined.
func toolVersion(ctx context.Context, path string, args []string) string {
	if len(args) == 0 {
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	// #nosec G204 - path comes from LookPath on a fixed tool name
	output, err := exec.CommandContext(ctx, path, args...).Output()
	if err != nil {
		return ""
	}
	line, _, _ := strings.Cut(string(output), "\n")
	return strings.TrimSpace(line)
}
