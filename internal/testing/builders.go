package testing

import (
	"maps"
	"time"

	"github.com/imamik/stagehand/internal/config"
)

// ConfigBuilder provides a fluent interface for constructing test configs.
// Each method returns a new builder (immutable) for chaining.
type ConfigBuilder struct {
	cfg config.Config
}

// NewConfigBuilder creates a new ConfigBuilder with defaults applied and
// millisecond timeouts so failing gates do not slow tests down.
func NewConfigBuilder() *ConfigBuilder {
	cfg := config.Config{
		ClusterName: "test-cluster",
		Provider:    config.ProviderKind,
		Timeouts: &config.Timeouts{
			Cluster:          50 * time.Millisecond,
			ArgoCD:           50 * time.Millisecond,
			Backstage:        50 * time.Millisecond,
			PollInterval:     5 * time.Millisecond,
			RetryMaxAttempts: 3,
			RetryDelay:       time.Millisecond,
		},
	}
	cfg.ApplyDefaults()
	return &ConfigBuilder{cfg: cfg}
}

// WithClusterName sets the cluster name.
func (b *ConfigBuilder) WithClusterName(name string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.ClusterName = name
	return newBuilder
}

// WithProvider sets the lifecycle provider.
func (b *ConfigBuilder) WithProvider(provider config.Provider) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Provider = provider
	return newBuilder
}

// WithWorkers sets the number of worker nodes.
func (b *ConfigBuilder) WithWorkers(count int) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Cluster.Workers = count
	return newBuilder
}

// WithIngress enables host port mappings on 80/443.
func (b *ConfigBuilder) WithIngress(enabled bool) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Cluster.Ingress = config.IngressConfig{Enabled: enabled}
	if enabled {
		newBuilder.cfg.Cluster.Ingress.HTTPPort = 80
		newBuilder.cfg.Cluster.Ingress.HTTPSPort = 443
	}
	return newBuilder
}

// WithGitHubToken sets the GitHub token credential.
func (b *ConfigBuilder) WithGitHubToken(token string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Credentials.GitHubToken = token
	return newBuilder
}

// WithRegistry sets the registry credentials.
func (b *ConfigBuilder) WithRegistry(username, password string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Credentials.RegistryUsername = username
	newBuilder.cfg.Credentials.RegistryPassword = password
	return newBuilder
}

// WithRetries sets the attempt budget and delay of every step.
func (b *ConfigBuilder) WithRetries(attempts int, delay time.Duration) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Timeouts.RetryMaxAttempts = attempts
	newBuilder.cfg.Timeouts.RetryDelay = delay
	return newBuilder
}

// WithBackstageValues sets the inline Helm values of the Application.
func (b *ConfigBuilder) WithBackstageValues(values map[string]any) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Backstage.Values = maps.Clone(values)
	return newBuilder
}

// WithArgoCDValues sets values merged over the built-in ArgoCD values.
func (b *ConfigBuilder) WithArgoCDValues(values map[string]any) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.ArgoCD.Values = maps.Clone(values)
	return newBuilder
}

// Build returns the configuration.
func (b *ConfigBuilder) Build() *config.Config {
	cfg := b.clone().cfg
	return &cfg
}

// clone creates a deep copy of the builder for immutability.
func (b *ConfigBuilder) clone() *ConfigBuilder {
	newCfg := b.cfg
	if b.cfg.Timeouts != nil {
		timeouts := *b.cfg.Timeouts
		newCfg.Timeouts = &timeouts
	}
	newCfg.ArgoCD.Values = maps.Clone(b.cfg.ArgoCD.Values)
	newCfg.Backstage.Values = maps.Clone(b.cfg.Backstage.Values)
	return &ConfigBuilder{cfg: newCfg}
}

// MinimalConfig returns a config without credentials.
func MinimalConfig() *config.Config {
	return NewConfigBuilder().Build()
}

// FullConfig returns a config with every optional step enabled.
func FullConfig() *config.Config {
	return NewConfigBuilder().
		WithWorkers(1).
		WithIngress(true).
		WithGitHubToken("ghp_test").
		WithRegistry("robot", "s3cret").
		Build()
}
