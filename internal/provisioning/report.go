package provisioning

import (
	"context"
	"time"
)

// StepResult is the outcome of a single step.
type StepResult struct {
	Name      string
	State     State
	Skipped   bool
	Recreated bool
	Attempts  int
	Duration  time.Duration
	Err       error
}

func (r StepResult) result() string {
	switch {
	case r.State == StateAborted:
		return ResultAborted
	case r.State != StateReady:
		return ResultFailed
	case r.Skipped:
		return ResultSkipped
	default:
		return ResultApplied
	}
}

// Report lists every step of a run in order.
type Report struct {
	Steps    []StepResult
	Duration time.Duration
}

func newReport(steps []Step) *Report {
	r := &Report{Steps: make([]StepResult, len(steps))}
	for i := range steps {
		r.Steps[i] = StepResult{Name: steps[i].Name, State: StatePending}
	}
	return r
}

// Step returns the result for name.
func (r *Report) Step(name string) (StepResult, bool) {
	for _, s := range r.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return StepResult{}, false
}

// Failed returns the first step that did not reach READY, or nil.
func (r *Report) Failed() *StepResult {
	for i := range r.Steps {
		if st := r.Steps[i].State; st == StateFailed || st == StateAborted {
			return &r.Steps[i]
		}
	}
	return nil
}

// Counts returns how many steps were applied and skipped.
func (r *Report) Counts() (applied, skipped int) {
	for _, s := range r.Steps {
		if s.State != StateReady {
			continue
		}
		if s.Skipped {
			skipped++
		} else {
			applied++
		}
	}
	return applied, skipped
}

// Presence is the read-only existence status of a step.
type Presence struct {
	Name   string
	Exists bool
	Err    error
}

// Inspect runs only the existence checks of steps, never Apply, Remove or
// readiness gates. A failing check is recorded and inspection continues.
func Inspect(ctx context.Context, steps []Step) []Presence {
	out := make([]Presence, 0, len(steps))
	for i := range steps {
		p := Presence{Name: steps[i].Name}
		if steps[i].Exists != nil {
			p.Exists, p.Err = steps[i].Exists(ctx)
		}
		out = append(out, p)
	}
	return out
}
