package readiness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/util/wait"
)

const (
	// DefaultPollInterval is used when a probe does not set one.
	DefaultPollInterval = 5 * time.Second
	// DefaultTimeout is used when a probe does not set one.
	DefaultTimeout = 5 * time.Minute
)

var (
	// ErrTimeout is matched by errors returned when a probe deadline elapses.
	ErrTimeout = errors.New("readiness timeout")

	// ErrNotFound may be returned by a Check to signal that the resource set
	// does not exist yet. It is treated exactly like "not ready".
	ErrNotFound = errors.New("resource not found")
)

// Probe identifies a condition to poll for.
type Probe struct {
	Namespace     string
	LabelSelector string
	Timeout       time.Duration
	PollInterval  time.Duration
}

// String renders the probe selector for logs and errors.
func (p Probe) String() string {
	if p.Namespace == "" {
		return p.LabelSelector
	}
	return fmt.Sprintf("%s/%s", p.Namespace, p.LabelSelector)
}

// WithDefaults returns a copy with zero durations replaced by defaults.
func (p Probe) WithDefaults() Probe {
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeout
	}
	if p.PollInterval <= 0 {
		p.PollInterval = DefaultPollInterval
	}
	return p
}

// Check reports whether the probed resources are ready.
type Check func(ctx context.Context) (bool, error)

// TimeoutError is returned by Poll when the probe deadline elapses.
type TimeoutError struct {
	Probe   Probe
	Elapsed time.Duration
	// LastErr is the last error returned by the check, if any.
	LastErr error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("%s not ready after %v", e.Probe, e.Elapsed.Round(time.Millisecond))
	if e.LastErr != nil {
		msg += fmt.Sprintf(" (last error: %v)", e.LastErr)
	}
	return msg
}

// Is lets errors.Is(err, ErrTimeout) match.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// Unwrap returns the last check error.
func (e *TimeoutError) Unwrap() error {
	return e.LastErr
}

// Poll evaluates check immediately and then every PollInterval until it reports
// ready or the probe Timeout elapses. Check errors never abort the poll: a
// missing resource is "not ready yet" and any other error is logged and retried.
//
// Cancellation of ctx ends the poll with the context error.
func Poll(ctx context.Context, probe Probe, check Check) error {
	probe = probe.WithDefaults()
	logger := logr.FromContextOrDiscard(ctx).WithValues("probe", probe.String())

	start := time.Now()
	var lastErr error

	err := wait.PollUntilContextTimeout(ctx, probe.PollInterval, probe.Timeout, true, func(ctx context.Context) (bool, error) {
		ready, err := check(ctx)
		if err != nil {
			lastErr = err
			if IsNotFound(err) {
				logger.V(1).Info("resources not found yet")
			} else {
				logger.V(1).Info("readiness check failed, will retry", "error", err.Error())
			}
			return false, nil
		}
		lastErr = nil
		return ready, nil
	})
	if err == nil {
		logger.V(1).Info("ready", "elapsed", time.Since(start).Round(time.Millisecond).String())
		return nil
	}

	// The parent context ended before our own deadline: report cancellation, not a timeout.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("waiting for %s: %w", probe, ctxErr)
	}

	return &TimeoutError{Probe: probe, Elapsed: time.Since(start), LastErr: lastErr}
}

// IsNotFound reports whether err means the probed resources do not exist yet.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || apierrors.IsNotFound(err)
}
