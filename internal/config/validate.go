package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"k8s.io/apimachinery/pkg/util/validation"
)

// clusterNameRegex validates cluster name format: 1-32 lowercase alphanumeric with hyphens.
var clusterNameRegex = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,30}[a-z0-9])?$`)

// ValidConflictPolicies lists accepted on_conflict values.
var ValidConflictPolicies = map[string]bool{
	"continue": true,
	"abort":    true,
	"recreate": true,
	"ask":      true,
}

// MaxWorkers bounds the worker count of a local cluster.
const MaxWorkers = 5

// Validate checks the configuration for common errors and returns a detailed error if validation fails.
func (c *Config) Validate() error {
	if c.ClusterName == "" {
		return fmt.Errorf("cluster_name is required")
	}
	if !clusterNameRegex.MatchString(c.ClusterName) {
		return fmt.Errorf("cluster_name %q must be 1-32 lowercase alphanumeric characters or hyphens", c.ClusterName)
	}

	switch c.Provider {
	case ProviderKind, ProviderMinikube:
	default:
		return fmt.Errorf("provider %q is not supported (valid: kind, minikube)", c.Provider)
	}

	if err := c.validateCluster(); err != nil {
		return fmt.Errorf("cluster validation failed: %w", err)
	}

	if err := c.validateArgoCD(); err != nil {
		return fmt.Errorf("argocd validation failed: %w", err)
	}

	if err := c.validateBackstage(); err != nil {
		return fmt.Errorf("backstage validation failed: %w", err)
	}

	if !ValidConflictPolicies[strings.ToLower(c.OnConflict)] {
		return fmt.Errorf("on_conflict %q is invalid (valid: continue, abort, recreate, ask)", c.OnConflict)
	}

	if err := c.validateTimeouts(); err != nil {
		return fmt.Errorf("timeout validation failed: %w", err)
	}

	return nil
}

func (c *Config) validateCluster() error {
	if c.Cluster.Workers < 0 || c.Cluster.Workers > MaxWorkers {
		return fmt.Errorf("workers must be between 0 and %d, got %d", MaxWorkers, c.Cluster.Workers)
	}

	if c.Cluster.Ingress.Enabled {
		for name, port := range map[string]int{"http_port": c.Cluster.Ingress.HTTPPort, "https_port": c.Cluster.Ingress.HTTPSPort} {
			if port < 1 || port > 65535 {
				return fmt.Errorf("ingress %s %d is out of range", name, port)
			}
		}
		if c.Cluster.Ingress.HTTPPort == c.Cluster.Ingress.HTTPSPort {
			return fmt.Errorf("ingress http_port and https_port must differ")
		}
	}

	if c.Provider == ProviderKind && (c.Cluster.CPUs != 0 || c.Cluster.Memory != "") {
		return fmt.Errorf("cpus and memory are only supported with the minikube provider")
	}

	return nil
}

func (c *Config) validateArgoCD() error {
	if err := validateNamespace(c.ArgoCD.Namespace); err != nil {
		return err
	}
	if c.ArgoCD.Release == "" {
		return fmt.Errorf("release is required")
	}
	if c.ArgoCD.Chart == "" {
		return fmt.Errorf("chart is required")
	}
	return validateURL("repository", c.ArgoCD.Repository)
}

func (c *Config) validateBackstage() error {
	if err := validateNamespace(c.Backstage.Namespace); err != nil {
		return err
	}
	if errs := validation.IsDNS1123Subdomain(c.Backstage.Application); len(errs) > 0 {
		return fmt.Errorf("application %q: %s", c.Backstage.Application, strings.Join(errs, "; "))
	}
	if err := validateURL("repo_url", c.Backstage.RepoURL); err != nil {
		return err
	}
	if (c.Backstage.Chart == "") == (c.Backstage.Path == "") {
		return fmt.Errorf("exactly one of chart or path must be set")
	}
	if c.Backstage.Revision == "" {
		return fmt.Errorf("revision is required")
	}
	return nil
}

func (c *Config) validateTimeouts() error {
	t := c.Timeouts
	if t == nil {
		return nil
	}
	if t.Cluster <= 0 || t.ArgoCD <= 0 || t.Backstage <= 0 {
		return fmt.Errorf("readiness timeouts must be positive")
	}
	if t.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if t.PollInterval > t.Cluster {
		return fmt.Errorf("poll interval %v exceeds the cluster timeout %v", t.PollInterval, t.Cluster)
	}
	if t.RetryMaxAttempts < 1 {
		return fmt.Errorf("retry max attempts must be at least 1")
	}
	return nil
}

func validateNamespace(ns string) error {
	if errs := validation.IsDNS1123Label(ns); len(errs) > 0 {
		return fmt.Errorf("namespace %q: %s", ns, strings.Join(errs, "; "))
	}
	return nil
}

func validateURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s %q: %w", field, raw, err)
	}
	switch u.Scheme {
	case "http", "https", "oci", "ssh", "git":
	default:
		return fmt.Errorf("%s %q: unsupported scheme %q", field, raw, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s %q: missing host", field, raw)
	}
	return nil
}
