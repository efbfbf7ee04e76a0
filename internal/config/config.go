package config

// Provider selects the local cluster lifecycle tool.
type Provider string

const (
	ProviderKind     Provider = "kind"
	ProviderMinikube Provider = "minikube"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultClusterName        = "stagehand"
	DefaultArgoCDNamespace    = "argocd"
	DefaultBackstageNamespace = "backstage"

	DefaultArgoCDRelease    = "argocd"
	DefaultArgoCDChart      = "argo-cd"
	DefaultArgoCDRepository = "https://argoproj.github.io/argo-helm"

	DefaultBackstageApplication = "backstage"
	DefaultBackstageRepoURL     = "https://backstage.github.io/charts"
	DefaultBackstageChart       = "backstage"
	DefaultBackstageRevision    = "2.*"
	DefaultBackstageProject     = "default"

	DefaultRegistryServer     = "ghcr.io"
	DefaultRegistrySecretName = "registry-credentials"
	DefaultGitHubSecretName   = "backstage-secrets"
)

// Config is the complete input of a bootstrap run.
type Config struct {
	ClusterName string   `yaml:"cluster_name"`
	Provider    Provider `yaml:"provider"`

	Cluster   ClusterConfig   `yaml:"cluster"`
	ArgoCD    ArgoCDConfig    `yaml:"argocd"`
	Backstage BackstageConfig `yaml:"backstage"`
	Registry  RegistryConfig  `yaml:"registry"`

	// OnConflict is one of continue, abort, recreate, ask.
	OnConflict string `yaml:"on_conflict"`

	// Loaded from the environment, never from the file.
	Timeouts    *Timeouts   `yaml:"-"`
	Credentials Credentials `yaml:"-"`
}

// ClusterConfig describes the local cluster.
type ClusterConfig struct {
	// NodeImage is the kind node image. Empty uses the kind default.
	NodeImage string `yaml:"node_image,omitempty"`

	// KubernetesVersion is passed to minikube. Empty uses the minikube default.
	KubernetesVersion string `yaml:"kubernetes_version,omitempty"`

	Workers int `yaml:"workers"`

	// Ingress maps host ports 80/443 to the control-plane node and labels it
	// ingress-ready.
	Ingress IngressConfig `yaml:"ingress"`

	// Minikube resources.
	CPUs   int    `yaml:"cpus,omitempty"`
	Memory string `yaml:"memory,omitempty"`
}

// IngressConfig configures host port mappings.
type IngressConfig struct {
	Enabled   bool `yaml:"enabled"`
	HTTPPort  int  `yaml:"http_port,omitempty"`
	HTTPSPort int  `yaml:"https_port,omitempty"`
}

// ArgoCDConfig describes the ArgoCD Helm release.
type ArgoCDConfig struct {
	Namespace  string `yaml:"namespace"`
	Release    string `yaml:"release"`
	Chart      string `yaml:"chart"`
	Repository string `yaml:"repository"`
	// Version is the chart version. Empty installs the latest.
	Version string `yaml:"version,omitempty"`

	// Values are merged over the built-in values.
	Values map[string]any `yaml:"values,omitempty"`
}

// BackstageConfig describes the ArgoCD Application delivering Backstage.
type BackstageConfig struct {
	Namespace   string `yaml:"namespace"`
	Application string `yaml:"application"`
	Project     string `yaml:"project"`

	RepoURL string `yaml:"repo_url"`
	// Chart selects a Helm repository source. When empty, Path in a git
	// repository is used instead.
	Chart    string `yaml:"chart,omitempty"`
	Path     string `yaml:"path,omitempty"`
	Revision string `yaml:"revision"`

	// Values are passed to the Helm source as inline values.
	Values map[string]any `yaml:"values,omitempty"`
}

// RegistryConfig describes the private image registry.
type RegistryConfig struct {
	Server     string `yaml:"server"`
	SecretName string `yaml:"secret_name"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills in zero values.
func (c *Config) ApplyDefaults() {
	if c.ClusterName == "" {
		c.ClusterName = DefaultClusterName
	}
	if c.Provider == "" {
		c.Provider = ProviderKind
	}

	if c.Cluster.Ingress.Enabled {
		if c.Cluster.Ingress.HTTPPort == 0 {
			c.Cluster.Ingress.HTTPPort = 80
		}
		if c.Cluster.Ingress.HTTPSPort == 0 {
			c.Cluster.Ingress.HTTPSPort = 443
		}
	}

	if c.ArgoCD.Namespace == "" {
		c.ArgoCD.Namespace = DefaultArgoCDNamespace
	}
	if c.ArgoCD.Release == "" {
		c.ArgoCD.Release = DefaultArgoCDRelease
	}
	if c.ArgoCD.Chart == "" {
		c.ArgoCD.Chart = DefaultArgoCDChart
	}
	if c.ArgoCD.Repository == "" {
		c.ArgoCD.Repository = DefaultArgoCDRepository
	}

	if c.Backstage.Namespace == "" {
		c.Backstage.Namespace = DefaultBackstageNamespace
	}
	if c.Backstage.Application == "" {
		c.Backstage.Application = DefaultBackstageApplication
	}
	if c.Backstage.Project == "" {
		c.Backstage.Project = DefaultBackstageProject
	}
	if c.Backstage.RepoURL == "" {
		c.Backstage.RepoURL = DefaultBackstageRepoURL
		if c.Backstage.Chart == "" && c.Backstage.Path == "" {
			c.Backstage.Chart = DefaultBackstageChart
		}
	}
	if c.Backstage.Revision == "" {
		if c.Backstage.Chart != "" {
			c.Backstage.Revision = DefaultBackstageRevision
		} else {
			c.Backstage.Revision = "HEAD"
		}
	}

	if c.Registry.Server == "" {
		c.Registry.Server = DefaultRegistryServer
	}
	if c.Registry.SecretName == "" {
		c.Registry.SecretName = DefaultRegistrySecretName
	}

	if c.OnConflict == "" {
		c.OnConflict = "continue"
	}

	if c.Timeouts == nil {
		c.Timeouts = LoadTimeouts()
	}
}
