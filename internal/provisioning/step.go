package provisioning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/imamik/stagehand/internal/readiness"
)

// State is the lifecycle position of a step within a run.
type State string

const (
	StatePending        State = "PENDING"
	StateCheckingExists State = "CHECKING_EXISTS"
	StateSkipped        State = "SKIPPED"
	StateApplying       State = "APPLYING"
	StateWaiting        State = "WAITING"
	StateReady          State = "READY"
	StateFailed         State = "FAILED"
	StateAborted        State = "ABORTED"
)

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	switch s {
	case StateReady, StateFailed, StateAborted:
		return true
	default:
		return false
	}
}

// Default retry budget applied to steps that leave it unset.
const (
	DefaultMaxAttempts = 5
	DefaultRetryDelay  = 5 * time.Second
)

// Gate is a readiness check that must pass before a step is READY.
type Gate struct {
	Probe readiness.Probe

	// Wait blocks until the probe is satisfied or its timeout elapses.
	Wait func(ctx context.Context, probe readiness.Probe) error
}

// Step is one idempotent provisioning action.
type Step struct {
	Name string

	// Exists reports whether the step's effect is already present.
	Exists func(ctx context.Context) (bool, error)

	// Apply performs the action. It is only called when Exists returned false
	// (or the step is being recreated) and may be called up to MaxAttempts times.
	Apply func(ctx context.Context) error

	MaxAttempts int
	RetryDelay  time.Duration

	// Ready, when set, is polled after Apply and after a skip.
	Ready *Gate

	// Conflict marks a step whose pre-existing effect is significant enough
	// for the conflict policy to be consulted.
	Conflict bool

	// Remove undoes the step. Required when Conflict is set and the policy is
	// ConflictRecreate.
	Remove func(ctx context.Context) error
}

func (s *Step) withDefaults() Step {
	out := *s
	if out.MaxAttempts < 1 {
		out.MaxAttempts = 1
	}
	if out.RetryDelay < 0 {
		out.RetryDelay = 0
	}
	return out
}

// validate checks a step is runnable under the given policy.
func (s *Step) validate(policy ConflictPolicy) error {
	if s.Name == "" {
		return errors.New("step name is required")
	}
	if s.Exists == nil {
		return fmt.Errorf("step %q: exists check is required", s.Name)
	}
	if s.Apply == nil {
		return fmt.Errorf("step %q: apply action is required", s.Name)
	}
	if s.Ready != nil && s.Ready.Wait == nil {
		return fmt.Errorf("step %q: readiness gate has no wait function", s.Name)
	}
	if s.Conflict && policy == ConflictRecreate && s.Remove == nil {
		return fmt.Errorf("step %q: recreate requested but the step cannot be removed", s.Name)
	}
	return nil
}

// ValidateSteps checks that every step is runnable and names are unique.
func ValidateSteps(steps []Step, policy ConflictPolicy) error {
	seen := make(map[string]bool, len(steps))
	for i := range steps {
		if err := steps[i].validate(policy); err != nil {
			return err
		}
		if seen[steps[i].Name] {
			return fmt.Errorf("duplicate step name %q", steps[i].Name)
		}
		seen[steps[i].Name] = true
	}
	return nil
}
