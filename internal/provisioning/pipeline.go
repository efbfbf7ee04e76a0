package provisioning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/stagehand/internal/util/retry"
)

// Sequencer runs steps one after another, stopping at the first step that
// does not reach READY.
type Sequencer struct {
	observer Observer
	metrics  *Metrics
	conflict ConflictPolicy
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithObserver sets the event observer.
func WithObserver(o Observer) Option {
	return func(s *Sequencer) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithMetrics records step outcomes on m.
func WithMetrics(m *Metrics) Option {
	return func(s *Sequencer) {
		s.metrics = m
	}
}

// WithConflictPolicy sets the policy for conflict-sensitive steps.
func WithConflictPolicy(p ConflictPolicy) Option {
	return func(s *Sequencer) {
		s.conflict = p
	}
}

// NewSequencer creates a sequencer. Defaults: no observer, no metrics,
// ConflictContinue.
func NewSequencer(opts ...Option) *Sequencer {
	s := &Sequencer{
		observer: DiscardObserver,
		conflict: ConflictContinue,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes steps sequentially. The returned report always lists every
// step; steps after a failure stay PENDING. A non-nil error is a *StepError
// unless the steps themselves are invalid, in which case nothing runs.
func (s *Sequencer) Run(ctx context.Context, steps []Step) (*Report, error) {
	if err := ValidateSteps(steps, s.conflict); err != nil {
		return nil, err
	}

	logger := logr.FromContextOrDiscard(ctx)
	start := time.Now()
	report := newReport(steps)

	logger.Info("Starting provisioning", "steps", len(steps), "onConflict", s.conflict.String())

	for i := range steps {
		step := steps[i].withDefaults()
		s.observer.Progress(step.Name, i+1, len(steps))

		var res StepResult
		if err := ctx.Err(); err != nil {
			res = StepResult{Name: step.Name, State: StatePending}
			res.Err = &StepError{Step: step.Name, State: StateFailed, Err: err}
			res.State = StateFailed
			s.emit(step.Name, Event{Type: EventStepFailed, State: StateFailed, Err: err, Message: "interrupted"})
		} else {
			res = s.runStep(logr.NewContext(ctx, logger.WithValues("step", step.Name)), step)
		}

		report.Steps[i] = res
		s.metrics.RecordStep(step.Name, res.result(), res.Attempts, res.Duration)

		if res.State != StateReady {
			report.Duration = time.Since(start)
			return report, res.Err
		}
	}

	report.Duration = time.Since(start)
	logger.Info("Provisioning completed", "duration", report.Duration.Round(time.Millisecond).String())
	return report, nil
}

func (s *Sequencer) runStep(ctx context.Context, step Step) StepResult {
	started := time.Now()
	res := StepResult{Name: step.Name, State: StatePending}

	finish := func(state State, err error) StepResult {
		res.State = state
		res.Duration = time.Since(started)
		if err != nil {
			res.Err = &StepError{Step: step.Name, State: state, Attempts: res.Attempts, Err: err}
		}
		return res
	}

	res.State = StateCheckingExists
	s.emit(step.Name, Event{Type: EventStepStarted, State: StateCheckingExists, Message: "checking existence"})

	exists, err := step.Exists(ctx)
	if err != nil {
		err = fmt.Errorf("existence check: %w", err)
		s.emit(step.Name, Event{Type: EventStepFailed, State: StateFailed, Err: err})
		return finish(StateFailed, err)
	}

	if exists {
		s.emit(step.Name, Event{Type: EventResourceExists, State: StateCheckingExists, Message: "already exists"})

		if step.Conflict {
			switch s.conflict {
			case ConflictAbort:
				s.emit(step.Name, Event{Type: EventStepAborted, State: StateAborted, Message: "already exists, aborting as requested"})
				return finish(StateAborted, ErrAborted)
			case ConflictRecreate:
				s.emit(step.Name, Event{Type: EventResourceDeleting, State: StateApplying, Message: "recreating"})
				if err := step.Remove(ctx); err != nil {
					err = fmt.Errorf("remove existing: %w", err)
					s.emit(step.Name, Event{Type: EventStepFailed, State: StateFailed, Err: err})
					return finish(StateFailed, err)
				}
				s.emit(step.Name, Event{Type: EventResourceDeleted, State: StateApplying})
				res.Recreated = true
				exists = false
			}
		}
	}

	if exists {
		res.Skipped = true
		res.State = StateSkipped
		s.emit(step.Name, Event{Type: EventResourceExists, State: StateSkipped, Message: "skipping apply"})

		if step.Ready != nil {
			res.State = StateWaiting
			s.emit(step.Name, Event{Type: EventReadinessWaiting, State: StateWaiting, Message: waitMessage(step.Ready)})
			if err := step.Ready.Wait(ctx, step.Ready.Probe); err != nil {
				s.emit(step.Name, Event{Type: EventStepFailed, State: StateFailed, Err: err})
				return finish(StateFailed, err)
			}
		}

		s.emit(step.Name, Event{Type: EventStepReady, State: StateReady, Message: "ready (unchanged)"})
		return finish(StateReady, nil)
	}

	result, err := retry.Do(ctx, func(ctx context.Context) error {
		res.Attempts++
		res.State = StateApplying
		s.emit(step.Name, Event{Type: EventResourceApplying, State: StateApplying, Attempt: res.Attempts})

		if err := step.Apply(ctx); err != nil {
			return fmt.Errorf("apply: %w", err)
		}
		s.emit(step.Name, Event{Type: EventResourceApplied, State: StateApplying, Attempt: res.Attempts})

		if step.Ready == nil {
			return nil
		}

		res.State = StateWaiting
		s.emit(step.Name, Event{Type: EventReadinessWaiting, State: StateWaiting, Attempt: res.Attempts, Message: waitMessage(step.Ready)})
		return step.Ready.Wait(ctx, step.Ready.Probe)
	},
		retry.WithMaxAttempts(step.MaxAttempts),
		retry.WithDelay(step.RetryDelay),
		retry.WithOnRetry(func(attempt int, err error) {
			s.emit(step.Name, Event{
				Type:    EventAttemptFailed,
				State:   res.State,
				Attempt: attempt,
				Err:     err,
				Message: fmt.Sprintf("retrying in %v", step.RetryDelay),
			})
		}),
	)
	res.Attempts = result.Attempts

	if err != nil {
		s.emit(step.Name, Event{Type: EventStepFailed, State: StateFailed, Attempt: res.Attempts, Err: err})
		return finish(StateFailed, unwrapFatal(err))
	}

	s.emit(step.Name, Event{Type: EventStepReady, State: StateReady, Attempt: res.Attempts, Message: "ready"})
	return finish(StateReady, nil)
}

func (s *Sequencer) emit(step string, event Event) {
	event.Step = step
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	s.observer.Event(event)
}

func waitMessage(g *Gate) string {
	p := g.Probe.WithDefaults()
	return fmt.Sprintf("waiting for %s (timeout %v)", p, p.Timeout)
}

// unwrapFatal strips the retry package's fatal marker so callers see the
// underlying cause.
func unwrapFatal(err error) error {
	var fatal *retry.FatalError
	if errors.As(err, &fatal) {
		return fatal.Err
	}
	return err
}
