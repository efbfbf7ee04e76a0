package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/stagehand/internal/ui/tui"
)

// Status prints which steps of the plan are already in place. Nothing is
// created or changed.
func Status(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	b, err := newBootstrapper(ctx, cfg)
	if err != nil {
		return err
	}

	presence, err := b.Status(ctx)
	if err != nil {
		return err
	}

	fmt.Fprint(stdout, tui.RenderStatus(cfg.ClusterName, presence))
	return nil
}
