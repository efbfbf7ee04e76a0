package k8s

import (
	"context"

	"github.com/imamik/stagehand/internal/readiness"
)

// WaitReady blocks until every pod matched by the probe is Running and Ready,
// or the probe timeout elapses. Pods that do not exist yet count as not ready.
func (c *Client) WaitReady(ctx context.Context, probe readiness.Probe) error {
	return readiness.Poll(ctx, probe, readiness.PodsReady(c.clientset, probe))
}
