package provisioning

import (
	"errors"
	"fmt"

	"github.com/imamik/stagehand/internal/readiness"
	"github.com/imamik/stagehand/internal/util/retry"
)

var (
	// ErrMissingPrerequisite is returned by preflight checks before any mutation.
	ErrMissingPrerequisite = errors.New("missing prerequisite")

	// ErrAttemptsExhausted matches a step whose apply failed on every attempt.
	ErrAttemptsExhausted = retry.ErrAttemptsExhausted

	// ErrReadinessTimeout matches a step whose readiness gate never passed.
	ErrReadinessTimeout = readiness.ErrTimeout

	// ErrAborted marks a run stopped on purpose by the operator.
	ErrAborted = errors.New("aborted by operator")
)

// StepError is returned by Sequencer.Run when a step does not reach READY.
type StepError struct {
	Step     string
	State    State
	Attempts int
	Err      error
}

func (e *StepError) Error() string {
	if e.State == StateAborted {
		return fmt.Sprintf("step %q aborted: %v", e.Step, e.Err)
	}
	if e.Attempts > 0 {
		return fmt.Sprintf("step %q failed after %d attempt(s): %v", e.Step, e.Attempts, e.Err)
	}
	return fmt.Sprintf("step %q failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// IsAborted reports whether err is a deliberate abort rather than a failure.
func IsAborted(err error) bool {
	return errors.Is(err, ErrAborted)
}
