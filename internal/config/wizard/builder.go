package wizard

import (
	"strings"

	"github.com/imamik/stagehand/internal/config"
)

// BuildConfig creates a Config struct from the wizard result.
func BuildConfig(result *WizardResult) *config.Config {
	cfg := &config.Config{
		ClusterName: result.ClusterName,
		Provider:    config.Provider(result.Provider),
		Cluster: config.ClusterConfig{
			Workers: result.Workers,
			Ingress: config.IngressConfig{Enabled: result.Ingress},
		},
		Backstage: config.BackstageConfig{
			RepoURL:  strings.TrimSpace(result.RepoURL),
			Revision: strings.TrimSpace(result.Revision),
		},
		OnConflict: result.OnConflict,
	}

	if result.SourceKind == SourceGit {
		cfg.Backstage.Path = strings.TrimSpace(result.Path)
	} else {
		cfg.Backstage.Chart = strings.TrimSpace(result.Chart)
	}

	return cfg
}
