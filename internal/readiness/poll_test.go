package readiness

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

func fastProbe(timeout time.Duration) Probe {
	return Probe{
		Namespace:     "argocd",
		LabelSelector: "app.kubernetes.io/name=argocd-server",
		Timeout:       timeout,
		PollInterval:  5 * time.Millisecond,
	}
}

func TestPoll_ReadyImmediately(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32

	err := Poll(context.Background(), fastProbe(time.Second), func(context.Context) (bool, error) {
		calls.Add(1)
		return true, nil
	})

	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPoll_ReadyAfterSeveralPolls(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32

	err := Poll(context.Background(), fastProbe(2*time.Second), func(context.Context) (bool, error) {
		return calls.Add(1) >= 4, nil
	})

	require.NoError(t, err)
	assert.Equal(t, int32(4), calls.Load())
}

func TestPoll_NotFoundIsNotFatal(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	notFound := apierrors.NewNotFound(schema.GroupResource{Resource: "pods"}, "argocd-server")

	err := Poll(context.Background(), fastProbe(2*time.Second), func(context.Context) (bool, error) {
		switch calls.Add(1) {
		case 1:
			return false, notFound
		case 2:
			return false, ErrNotFound
		case 3:
			return false, errors.New("connection refused")
		default:
			return true, nil
		}
	})

	require.NoError(t, err)
	assert.Equal(t, int32(4), calls.Load())
}

func TestPoll_Timeout(t *testing.T) {
	t.Parallel()
	probe := fastProbe(40 * time.Millisecond)

	start := time.Now()
	err := Poll(context.Background(), probe, func(context.Context) (bool, error) {
		return false, nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, probe.Timeout)
	assert.Less(t, elapsed, probe.Timeout+timingSlack)

	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, probe.LabelSelector, timeoutErr.Probe.LabelSelector)
	assert.Nil(t, timeoutErr.LastErr)
}

// timingSlack absorbs scheduler jitter in the wall-clock assertions below.
const timingSlack = 150 * time.Millisecond

// Scaled down from a 60s timeout, 5s interval and a condition that turns
// true at 12s: the poll must return within one interval of the condition.
func TestPoll_ReturnsWithinOneIntervalOfReadiness(t *testing.T) {
	probe := Probe{
		Namespace:     "backstage",
		LabelSelector: "app.kubernetes.io/name=backstage",
		Timeout:       600 * time.Millisecond,
		PollInterval:  50 * time.Millisecond,
	}
	readyAt := 120 * time.Millisecond

	start := time.Now()
	err := Poll(context.Background(), probe, func(context.Context) (bool, error) {
		return time.Since(start) >= readyAt, nil
	})
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, elapsed, readyAt)
	assert.Less(t, elapsed, readyAt+probe.PollInterval+timingSlack)
	assert.Less(t, elapsed, probe.Timeout)
}

func TestPoll_BlockingCheckStopsAtDeadline(t *testing.T) {
	probe := fastProbe(200 * time.Millisecond)

	start := time.Now()
	err := Poll(context.Background(), probe, func(ctx context.Context) (bool, error) {
		<-ctx.Done()
		return false, ctx.Err()
	})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, elapsed, probe.Timeout)
	assert.Less(t, elapsed, probe.Timeout+timingSlack)
}

func TestPoll_TimeoutKeepsLastError(t *testing.T) {
	t.Parallel()

	err := Poll(context.Background(), fastProbe(30*time.Millisecond), func(context.Context) (bool, error) {
		return false, ErrNotFound
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "argocd/app.kubernetes.io/name=argocd-server")
}

func TestPoll_ContextCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Poll(ctx, fastProbe(time.Second), func(context.Context) (bool, error) {
		return false, nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestProbe_WithDefaults(t *testing.T) {
	t.Parallel()

	p := Probe{Namespace: "kube-system"}.WithDefaults()
	assert.Equal(t, DefaultTimeout, p.Timeout)
	assert.Equal(t, DefaultPollInterval, p.PollInterval)

	custom := Probe{Timeout: time.Minute, PollInterval: time.Second}.WithDefaults()
	assert.Equal(t, time.Minute, custom.Timeout)
	assert.Equal(t, time.Second, custom.PollInterval)
}

func TestProbe_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "kube-system/tier=control-plane",
		Probe{Namespace: "kube-system", LabelSelector: "tier=control-plane"}.String())
	assert.Equal(t, "tier=control-plane", Probe{LabelSelector: "tier=control-plane"}.String())
}
