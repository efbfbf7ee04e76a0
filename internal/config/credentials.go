package config

import "os"

// Environment variables holding credentials.
const (
	EnvGitHubToken      = "GITHUB_TOKEN"
	EnvRegistryUsername = "REGISTRY_USERNAME"
	EnvRegistryPassword = "REGISTRY_PASSWORD"
)

// Credentials are read from the environment only.
type Credentials struct {
	GitHubToken      string
	RegistryUsername string
	RegistryPassword string
}

// LoadCredentials reads credentials from the environment.
func LoadCredentials() Credentials {
	return Credentials{
		GitHubToken:      os.Getenv(EnvGitHubToken),
		RegistryUsername: os.Getenv(EnvRegistryUsername),
		RegistryPassword: os.Getenv(EnvRegistryPassword),
	}
}

// HasGitHubToken reports whether a GitHub token is available.
func (c Credentials) HasGitHubToken() bool {
	return c.GitHubToken != ""
}

// HasRegistry reports whether both registry credentials are set.
func (c Credentials) HasRegistry() bool {
	return c.RegistryUsername != "" && c.RegistryPassword != ""
}

// String never prints secret values.
func (c Credentials) String() string {
	return "Credentials{GitHubToken:" + redact(c.GitHubToken) +
		" RegistryUsername:" + redact(c.RegistryUsername) +
		" RegistryPassword:" + redact(c.RegistryPassword) + "}"
}

func redact(s string) string {
	if s == "" {
		return "<unset>"
	}
	return "<redacted>"
}
