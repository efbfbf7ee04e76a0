package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/go-logr/logr"

	"github.com/imamik/stagehand/internal/bootstrap"
	"github.com/imamik/stagehand/internal/config"
	"github.com/imamik/stagehand/internal/provisioning"
	"github.com/imamik/stagehand/internal/ui/tui"
)

// UpOptions are the flags of the up command.
type UpOptions struct {
	// OnConflict overrides the configured conflict policy when set.
	OnConflict  string
	TUI         bool
	MetricsFile string
}

// Factory function variables for up - can be replaced in tests.
var (
	// promptConflict asks what to do with an existing cluster.
	promptConflict = defaultPromptConflict

	// runTUI renders progress while the bootstrap runs.
	runTUI = tui.RunUp
)

// Up brings the environment up.
//
// The flow is:
//  1. Load configuration and resolve the conflict policy ("ask" runs preflight
//     and prompts once when the cluster already exists and stdin is a terminal)
//  2. Preflight: container runtime and required client tools
//  3. Run every step of the plan, retrying transient failures
//  4. Print a summary and how to reach ArgoCD and Backstage
//
// A deliberate abort is not an error. When a readiness gate times out, the
// logs of the pods behind it are printed before the error is returned.
func Up(ctx context.Context, configPath string, opts UpOptions) error {
	logger := logr.FromContextOrDiscard(ctx)

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	policy, err := provisioning.ParseConflictPolicy(firstNonEmpty(opts.OnConflict, cfg.OnConflict))
	if err != nil {
		return err
	}

	lifecycle, err := newLifecycle(ctx, cfg)
	if err != nil {
		return err
	}
	if policy == provisioning.ConflictAsk {
		// Asking about the cluster needs the runtime, so check prerequisites first.
		pre, err := assemble(cfg, lifecycle)
		if err != nil {
			return err
		}
		if err := pre.Preflight(ctx); err != nil {
			return err
		}
		policy, err = resolveAsk(ctx, cfg, lifecycle)
		if err != nil {
			return err
		}
	}

	metrics := provisioning.NewMetrics()
	relay := &observerRelay{}
	b, err := assemble(cfg, lifecycle, bootstrap.WithSequencerOptions(
		provisioning.WithObserver(relay),
		provisioning.WithMetrics(metrics),
		provisioning.WithConflictPolicy(policy),
	))
	if err != nil {
		return err
	}

	logger.Info("bringing environment up", "cluster", cfg.ClusterName, "provider", string(cfg.Provider), "onConflict", policy.String())

	var report *provisioning.Report
	run := func(ctx context.Context, observer provisioning.Observer) error {
		relay.set(observer)
		var runErr error
		report, runErr = b.Up(ctx)
		return runErr
	}

	if opts.TUI {
		err = runTUI(ctx, run, cfg.ClusterName, string(cfg.Provider), stepNames(b.Steps()))
	} else {
		err = run(ctx, provisioning.MultiObserver{
			provisioning.NewConsoleObserver(stdout),
			provisioning.NewLogObserver(logger.V(1)),
		})
	}

	if opts.MetricsFile != "" {
		if werr := metrics.WriteToTextfile(opts.MetricsFile); werr != nil {
			logger.Error(werr, "failed to write metrics", "path", opts.MetricsFile)
		}
	}

	if err != nil {
		return handleUpFailure(ctx, b, report, err)
	}

	printUpSuccess(ctx, b, report)
	return nil
}

// resolveAsk turns the ask policy into a concrete one. Without an existing
// cluster or a terminal there is nothing to ask and the cluster is reused.
func resolveAsk(ctx context.Context, cfg *config.Config, lifecycle bootstrap.Lifecycle) (provisioning.ConflictPolicy, error) {
	exists, err := lifecycle.Exists(ctx, cfg.ClusterName)
	if err != nil {
		return "", fmt.Errorf("failed to check cluster %s: %w", cfg.ClusterName, err)
	}
	if !exists {
		return provisioning.ConflictContinue, nil
	}
	if !isInteractive() {
		logr.FromContextOrDiscard(ctx).Info("cluster exists and no terminal to ask, reusing it", "cluster", cfg.ClusterName)
		return provisioning.ConflictContinue, nil
	}
	return promptConflict(ctx, cfg.ClusterName)
}

func defaultPromptConflict(ctx context.Context, clusterName string) (provisioning.ConflictPolicy, error) {
	choice := string(provisioning.ConflictContinue)
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(fmt.Sprintf("Cluster %q already exists", clusterName)).
				Options(
					huh.NewOption("Reuse it", string(provisioning.ConflictContinue)),
					huh.NewOption("Delete and recreate it", string(provisioning.ConflictRecreate)),
					huh.NewOption("Abort", string(provisioning.ConflictAbort)),
				).
				Value(&choice),
		),
	).RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return provisioning.ConflictAbort, nil
	}
	if err != nil {
		return "", fmt.Errorf("conflict prompt: %w", err)
	}
	return provisioning.ParseConflictPolicy(choice)
}

func handleUpFailure(ctx context.Context, b *bootstrap.Bootstrapper, report *provisioning.Report, err error) error {
	if provisioning.IsAborted(err) {
		fmt.Fprintln(stdout, "Aborted: existing environment left unchanged.")
		return nil
	}

	if report != nil && errors.Is(err, provisioning.ErrReadinessTimeout) {
		if failed := report.Failed(); failed != nil {
			printDiagnostics(ctx, b, *failed)
		}
	}
	return err
}

func printDiagnostics(ctx context.Context, b *bootstrap.Bootstrapper, failed provisioning.StepResult) {
	logs, err := b.Diagnose(ctx, failed)
	if err != nil {
		fmt.Fprintf(stderr, "Could not collect pod logs for %s: %v\n", failed.Name, err)
		return
	}
	if strings.TrimSpace(logs) == "" {
		return
	}
	fmt.Fprintf(stderr, "\nRecent logs for %s:\n%s\n", failed.Name, logs)
}

func printUpSuccess(ctx context.Context, b *bootstrap.Bootstrapper, report *provisioning.Report) {
	applied, skipped := report.Counts()
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "Environment ready in %s (%d applied, %d unchanged)\n", report.Duration.Round(time.Second), applied, skipped)

	info, err := b.Access(ctx)
	if info == nil {
		fmt.Fprintf(stderr, "Could not read access information: %v\n", err)
		return
	}

	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Access")
	fmt.Fprintln(stdout, "------")
	fmt.Fprintf(stdout, "  ArgoCD user:     %s\n", info.ArgoCDUsername)
	if info.ArgoCDPassword != "" {
		fmt.Fprintf(stdout, "  ArgoCD password: %s\n", info.ArgoCDPassword)
	} else {
		fmt.Fprintf(stdout, "  ArgoCD password: unavailable (%v)\n", err)
	}
	for _, hint := range info.Hints {
		fmt.Fprintf(stdout, "  $ %s\n", hint)
	}
}

func stepNames(steps []provisioning.Step) []string {
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.Name
	}
	return names
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// observerRelay forwards events to an observer chosen after the sequencer
// was configured.
type observerRelay struct {
	mu     sync.Mutex
	target provisioning.Observer
}

func (r *observerRelay) set(o provisioning.Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.target = o
}

func (r *observerRelay) get() provisioning.Observer {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.target == nil {
		return provisioning.DiscardObserver
	}
	return r.target
}

// Event implements provisioning.Observer.
func (r *observerRelay) Event(event provisioning.Event) {
	r.get().Event(event)
}

// Progress implements provisioning.Observer.
func (r *observerRelay) Progress(step string, current, total int) {
	r.get().Progress(step, current, total)
}
