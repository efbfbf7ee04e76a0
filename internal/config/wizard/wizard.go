package wizard

import (
	"context"
	"fmt"
)

// WizardResult holds all the answers from the interactive wizard.
type WizardResult struct {
	ClusterName string
	Provider    string
	Workers     int
	Ingress     bool

	// Backstage delivery
	SourceKind string // SourceHelm or SourceGit
	RepoURL    string
	Chart      string
	Path       string
	Revision   string

	OnConflict string
}

// RunWizard runs the interactive configuration wizard.
// The context is used for cancellation support (e.g., Ctrl+C).
func RunWizard(ctx context.Context) (*WizardResult, error) {
	result := &WizardResult{}

	if err := runClusterGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("cluster: %w", err)
	}

	if err := runSourceGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("backstage source: %w", err)
	}

	if err := runConflictGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("conflict policy: %w", err)
	}

	return result, nil
}
