package provisioning

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/stagehand/internal/readiness"
	"github.com/imamik/stagehand/internal/util/retry"
)

// fakeCluster is an in-memory stand-in for the external system steps mutate.
type fakeCluster struct {
	present   map[string]bool
	mutations int
	checks    int
}

func newFakeCluster() *fakeCluster {
	return &fakeCluster{present: make(map[string]bool)}
}

func (c *fakeCluster) step(name string) Step {
	return Step{
		Name: name,
		Exists: func(context.Context) (bool, error) {
			c.checks++
			return c.present[name], nil
		},
		Apply: func(context.Context) error {
			c.mutations++
			c.present[name] = true
			return nil
		},
		MaxAttempts: 3,
		RetryDelay:  time.Millisecond,
	}
}

// countingStep returns a step whose apply fails until it has been called
// succeedOn times. succeedOn <= 0 fails forever.
func countingStep(name string, succeedOn int, calls *int) Step {
	return Step{
		Name:   name,
		Exists: func(context.Context) (bool, error) { return false, nil },
		Apply: func(context.Context) error {
			*calls++
			if succeedOn > 0 && *calls >= succeedOn {
				return nil
			}
			return fmt.Errorf("transient failure %d", *calls)
		},
		RetryDelay: time.Millisecond,
	}
}

func TestSequencer_AllExist_NeverApplies(t *testing.T) {
	t.Parallel()
	applied := 0
	var steps []Step
	for _, name := range []string{"cluster", "namespace/argocd", "namespace/backstage", "argocd"} {
		steps = append(steps, Step{
			Name:        name,
			Exists:      func(context.Context) (bool, error) { return true, nil },
			Apply:       func(context.Context) error { applied++; return nil },
			MaxAttempts: 5,
		})
	}

	report, err := NewSequencer().Run(context.Background(), steps)

	require.NoError(t, err)
	assert.Zero(t, applied)
	for _, s := range report.Steps {
		assert.Equal(t, StateReady, s.State, s.Name)
		assert.True(t, s.Skipped, s.Name)
		assert.Zero(t, s.Attempts, s.Name)
	}
	appliedCount, skipped := report.Counts()
	assert.Equal(t, 0, appliedCount)
	assert.Equal(t, 4, skipped)
}

func TestSequencer_PerpetualFailure_ExactlyMaxAttempts(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 3, 5} {
		t.Run(fmt.Sprintf("max=%d", n), func(t *testing.T) {
			t.Parallel()
			calls := 0
			failing := countingStep("argocd", 0, &calls)
			failing.MaxAttempts = n

			nextChecked := false
			next := Step{
				Name:   "application/backstage",
				Exists: func(context.Context) (bool, error) { nextChecked = true; return false, nil },
				Apply:  func(context.Context) error { return nil },
			}

			report, err := NewSequencer().Run(context.Background(), []Step{failing, next})

			require.Error(t, err)
			assert.Equal(t, n, calls)
			assert.ErrorIs(t, err, ErrAttemptsExhausted)
			assert.False(t, nextChecked, "steps after a failure must not run")

			var stepErr *StepError
			require.ErrorAs(t, err, &stepErr)
			assert.Equal(t, "argocd", stepErr.Step)
			assert.Equal(t, StateFailed, stepErr.State)
			assert.Equal(t, n, stepErr.Attempts)
			assert.Contains(t, err.Error(), fmt.Sprintf("transient failure %d", n))

			require.Len(t, report.Steps, 2)
			assert.Equal(t, StateFailed, report.Steps[0].State)
			assert.Equal(t, StatePending, report.Steps[1].State)
			assert.Equal(t, "argocd", report.Failed().Name)
		})
	}
}

func TestSequencer_SucceedsOnThirdAttempt(t *testing.T) {
	t.Parallel()
	calls := 0
	step := countingStep("application/backstage", 3, &calls)
	step.MaxAttempts = 3
	observer := NewMockObserver()

	report, err := NewSequencer(WithObserver(observer)).Run(context.Background(), []Step{step})

	require.NoError(t, err)
	res, ok := report.Step("application/backstage")
	require.True(t, ok)
	assert.Equal(t, StateReady, res.State)
	assert.Equal(t, 3, res.Attempts)
	assert.False(t, res.Skipped)
	assert.Equal(t, 2, observer.count("application/backstage", EventAttemptFailed))
	assert.Nil(t, report.Failed())
}

func TestSequencer_ExistingNamespaceGoesStraightToReady(t *testing.T) {
	t.Parallel()
	cluster := newFakeCluster()
	cluster.present["namespace/argocd"] = true
	observer := NewMockObserver()

	report, err := NewSequencer(WithObserver(observer)).Run(context.Background(), []Step{cluster.step("namespace/argocd")})

	require.NoError(t, err)
	assert.Zero(t, cluster.mutations)
	assert.Equal(t, StateReady, report.Steps[0].State)
	assert.Equal(t, []State{StateCheckingExists, StateSkipped, StateReady}, observer.states("namespace/argocd"))
	assert.Zero(t, observer.count("namespace/argocd", EventResourceApplying))
}

func TestSequencer_SecondRunMakesNoMutations(t *testing.T) {
	t.Parallel()
	cluster := newFakeCluster()
	steps := []Step{
		cluster.step("cluster"),
		cluster.step("namespace/argocd"),
		cluster.step("namespace/backstage"),
		cluster.step("secret/github-token"),
		cluster.step("argocd"),
		cluster.step("application/backstage"),
	}

	_, err := NewSequencer().Run(context.Background(), steps)
	require.NoError(t, err)
	assert.Equal(t, len(steps), cluster.mutations)

	cluster.mutations = 0
	report, err := NewSequencer().Run(context.Background(), steps)
	require.NoError(t, err)
	assert.Zero(t, cluster.mutations)
	_, skipped := report.Counts()
	assert.Equal(t, len(steps), skipped)
}

func TestSequencer_ReadinessTimeoutRetriesStep(t *testing.T) {
	t.Parallel()
	applies, waits := 0, 0
	step := Step{
		Name:        "argocd",
		Exists:      func(context.Context) (bool, error) { return false, nil },
		Apply:       func(context.Context) error { applies++; return nil },
		MaxAttempts: 3,
		RetryDelay:  time.Millisecond,
		Ready: &Gate{
			Probe: readiness.Probe{Namespace: "argocd", LabelSelector: "app.kubernetes.io/name=argocd-server"},
			Wait: func(_ context.Context, p readiness.Probe) error {
				waits++
				if waits == 1 {
					return &readiness.TimeoutError{Probe: p, Elapsed: p.Timeout}
				}
				return nil
			},
		},
	}

	report, err := NewSequencer().Run(context.Background(), []Step{step})

	require.NoError(t, err)
	assert.Equal(t, 2, applies)
	assert.Equal(t, 2, waits)
	assert.Equal(t, 2, report.Steps[0].Attempts)
}

func TestSequencer_ReadinessNeverSatisfied(t *testing.T) {
	t.Parallel()
	applies := 0
	probe := readiness.Probe{
		Namespace:     "backstage",
		LabelSelector: "app.kubernetes.io/name=backstage",
		Timeout:       20 * time.Millisecond,
		PollInterval:  5 * time.Millisecond,
	}
	step := Step{
		Name:        "application/backstage",
		Exists:      func(context.Context) (bool, error) { return false, nil },
		Apply:       func(context.Context) error { applies++; return nil },
		MaxAttempts: 2,
		RetryDelay:  time.Millisecond,
		Ready: &Gate{
			Probe: probe,
			Wait: func(ctx context.Context, p readiness.Probe) error {
				return readiness.Poll(ctx, p, func(context.Context) (bool, error) {
					return false, readiness.ErrNotFound
				})
			},
		},
	}

	_, err := NewSequencer().Run(context.Background(), []Step{step})

	require.Error(t, err)
	assert.Equal(t, 2, applies)
	assert.ErrorIs(t, err, ErrReadinessTimeout)
	assert.ErrorIs(t, err, ErrAttemptsExhausted)
}

func TestSequencer_SkippedStepStillVerifiesReadiness(t *testing.T) {
	t.Parallel()
	applies, waits := 0, 0
	step := Step{
		Name:   "cluster",
		Exists: func(context.Context) (bool, error) { return true, nil },
		Apply:  func(context.Context) error { applies++; return nil },
		Ready: &Gate{
			Probe: readiness.Probe{Namespace: "kube-system", LabelSelector: "tier=control-plane"},
			Wait:  func(context.Context, readiness.Probe) error { waits++; return nil },
		},
	}
	observer := NewMockObserver()

	report, err := NewSequencer(WithObserver(observer)).Run(context.Background(), []Step{step})

	require.NoError(t, err)
	assert.Zero(t, applies)
	assert.Equal(t, 1, waits)
	assert.True(t, report.Steps[0].Skipped)
	assert.Equal(t, []State{StateCheckingExists, StateSkipped, StateWaiting, StateReady}, observer.states("cluster"))
}

func TestSequencer_SkippedStepReadinessFailure(t *testing.T) {
	t.Parallel()
	step := Step{
		Name:   "cluster",
		Exists: func(context.Context) (bool, error) { return true, nil },
		Apply:  func(context.Context) error { return nil },
		Ready: &Gate{
			Wait: func(_ context.Context, p readiness.Probe) error {
				return &readiness.TimeoutError{Probe: p}
			},
		},
	}

	_, err := NewSequencer().Run(context.Background(), []Step{step})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReadinessTimeout)
	assert.NotErrorIs(t, err, ErrAttemptsExhausted)
}

func TestSequencer_ConflictPolicies(t *testing.T) {
	t.Parallel()

	newConflictStep := func(applies, removes *int) Step {
		return Step{
			Name:     "cluster",
			Exists:   func(context.Context) (bool, error) { return true, nil },
			Apply:    func(context.Context) error { *applies++; return nil },
			Remove:   func(context.Context) error { *removes++; return nil },
			Conflict: true,
		}
	}

	t.Run("continue reuses the existing cluster", func(t *testing.T) {
		t.Parallel()
		applies, removes := 0, 0
		report, err := NewSequencer(WithConflictPolicy(ConflictContinue)).
			Run(context.Background(), []Step{newConflictStep(&applies, &removes)})

		require.NoError(t, err)
		assert.Zero(t, applies)
		assert.Zero(t, removes)
		assert.True(t, report.Steps[0].Skipped)
	})

	t.Run("abort stops without error state", func(t *testing.T) {
		t.Parallel()
		applies, removes := 0, 0
		laterRan := false
		later := Step{
			Name:   "namespace/argocd",
			Exists: func(context.Context) (bool, error) { laterRan = true; return false, nil },
			Apply:  func(context.Context) error { return nil },
		}

		report, err := NewSequencer(WithConflictPolicy(ConflictAbort)).
			Run(context.Background(), []Step{newConflictStep(&applies, &removes), later})

		require.Error(t, err)
		assert.True(t, IsAborted(err))
		assert.ErrorIs(t, err, ErrAborted)
		assert.Contains(t, err.Error(), `step "cluster" aborted`)
		assert.Zero(t, applies)
		assert.False(t, laterRan)
		assert.Equal(t, StateAborted, report.Steps[0].State)
		assert.Equal(t, StatePending, report.Steps[1].State)
	})

	t.Run("recreate removes then applies", func(t *testing.T) {
		t.Parallel()
		applies, removes := 0, 0
		report, err := NewSequencer(WithConflictPolicy(ConflictRecreate)).
			Run(context.Background(), []Step{newConflictStep(&applies, &removes)})

		require.NoError(t, err)
		assert.Equal(t, 1, removes)
		assert.Equal(t, 1, applies)
		assert.True(t, report.Steps[0].Recreated)
		assert.False(t, report.Steps[0].Skipped)
	})

	t.Run("policy ignored for steps without conflict flag", func(t *testing.T) {
		t.Parallel()
		applies := 0
		step := Step{
			Name:   "namespace/argocd",
			Exists: func(context.Context) (bool, error) { return true, nil },
			Apply:  func(context.Context) error { applies++; return nil },
		}

		_, err := NewSequencer(WithConflictPolicy(ConflictAbort)).Run(context.Background(), []Step{step})

		require.NoError(t, err)
		assert.Zero(t, applies)
	})
}

func TestSequencer_ExistsErrorFailsStep(t *testing.T) {
	t.Parallel()
	applies := 0
	step := Step{
		Name:   "namespace/argocd",
		Exists: func(context.Context) (bool, error) { return false, errors.New("forbidden") },
		Apply:  func(context.Context) error { applies++; return nil },
	}

	report, err := NewSequencer().Run(context.Background(), []Step{step})

	require.Error(t, err)
	assert.Zero(t, applies)
	assert.Contains(t, err.Error(), "existence check: forbidden")
	assert.Equal(t, StateFailed, report.Steps[0].State)
}

func TestSequencer_FatalApplyErrorIsNotRetried(t *testing.T) {
	t.Parallel()
	calls := 0
	base := errors.New("invalid manifest")
	step := Step{
		Name:        "application/backstage",
		Exists:      func(context.Context) (bool, error) { return false, nil },
		Apply:       func(context.Context) error { calls++; return retry.Fatal(base) },
		MaxAttempts: 5,
		RetryDelay:  time.Millisecond,
	}

	_, err := NewSequencer().Run(context.Background(), []Step{step})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, base)
	assert.NotErrorIs(t, err, ErrAttemptsExhausted)
}

func TestSequencer_CancelledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	checked := false
	step := Step{
		Name:   "cluster",
		Exists: func(context.Context) (bool, error) { checked = true; return false, nil },
		Apply:  func(context.Context) error { return nil },
	}

	report, err := NewSequencer().Run(ctx, []Step{step})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, checked)
	assert.Equal(t, StateFailed, report.Steps[0].State)
}

func TestSequencer_InvalidSteps(t *testing.T) {
	t.Parallel()
	ok := func(context.Context) (bool, error) { return false, nil }
	apply := func(context.Context) error { return nil }

	tests := []struct {
		name   string
		steps  []Step
		policy ConflictPolicy
		errMsg string
	}{
		{"missing name", []Step{{Exists: ok, Apply: apply}}, ConflictContinue, "name is required"},
		{"missing exists", []Step{{Name: "a", Apply: apply}}, ConflictContinue, "exists check is required"},
		{"missing apply", []Step{{Name: "a", Exists: ok}}, ConflictContinue, "apply action is required"},
		{"gate without wait", []Step{{Name: "a", Exists: ok, Apply: apply, Ready: &Gate{}}}, ConflictContinue, "no wait function"},
		{"recreate without remove", []Step{{Name: "a", Exists: ok, Apply: apply, Conflict: true}}, ConflictRecreate, "cannot be removed"},
		{"duplicate", []Step{{Name: "a", Exists: ok, Apply: apply}, {Name: "a", Exists: ok, Apply: apply}}, ConflictContinue, "duplicate step name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			report, err := NewSequencer(WithConflictPolicy(tt.policy)).Run(context.Background(), tt.steps)
			require.Error(t, err)
			assert.Nil(t, report)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSequencer_RecordsMetrics(t *testing.T) {
	t.Parallel()
	cluster := newFakeCluster()
	cluster.present["namespace/argocd"] = true
	metrics := NewMetrics()

	_, err := NewSequencer(WithMetrics(metrics)).Run(context.Background(), []Step{
		cluster.step("namespace/argocd"),
		cluster.step("namespace/backstage"),
	})
	require.NoError(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.stepTotal.WithLabelValues("namespace/argocd", ResultSkipped)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.stepTotal.WithLabelValues("namespace/backstage", ResultApplied)))
}

func TestInspect_NeverMutates(t *testing.T) {
	t.Parallel()
	cluster := newFakeCluster()
	cluster.present["cluster"] = true
	broken := Step{
		Name:   "argocd",
		Exists: func(context.Context) (bool, error) { return false, errors.New("no kubeconfig") },
	}

	presence := Inspect(context.Background(), []Step{cluster.step("cluster"), cluster.step("namespace/argocd"), broken})

	require.Len(t, presence, 3)
	assert.True(t, presence[0].Exists)
	assert.False(t, presence[1].Exists)
	require.Error(t, presence[2].Err)
	assert.Zero(t, cluster.mutations)
	assert.Equal(t, 2, cluster.checks)
}

func TestParseConflictPolicy(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]ConflictPolicy{
		"":          ConflictContinue,
		"continue":  ConflictContinue,
		"ABORT":     ConflictAbort,
		" recreate": ConflictRecreate,
		"ask":       ConflictAsk,
	} {
		got, err := ParseConflictPolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseConflictPolicy("yolo")
	assert.Error(t, err)
}
