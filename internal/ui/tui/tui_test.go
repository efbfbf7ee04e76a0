package tui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/stagehand/internal/provisioning"
)

var testSteps = []string{"cluster", "namespace/argocd", "argocd"}

func TestFormatDuration(t *testing.T) {
	t.Parallel()
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{30 * time.Second, "30s"},
		{90 * time.Second, "1m30s"},
		{3600 * time.Second, "1h0m"},
		{3661 * time.Second, "1h1m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.d), tt.d.String())
	}
}

func TestCalculateProgress(t *testing.T) {
	t.Parallel()

	m := NewUpModel("demo", "kind", testSteps)
	assert.Zero(t, calculateProgress(m))

	m.updateStep(provisioning.Event{Type: provisioning.EventStepReady, Step: "cluster", State: provisioning.StateReady})
	assert.InDelta(t, 1.0/3.0, calculateProgress(m), 0.001)

	m.Done = true
	assert.Equal(t, 1.0, calculateProgress(m))

	assert.Zero(t, calculateProgress(Model{}))
}

func TestModelUpdateStep(t *testing.T) {
	t.Parallel()
	m := NewUpModel("demo", "kind", testSteps)

	m.updateStep(provisioning.Event{Type: provisioning.EventResourceApplying, Step: "cluster", State: provisioning.StateApplying, Attempt: 1})
	assert.Equal(t, provisioning.StateApplying, m.Steps[0].State)
	assert.Equal(t, 1, m.Steps[0].Attempt)

	attemptErr := errors.New("connection refused")
	m.updateStep(provisioning.Event{Type: provisioning.EventAttemptFailed, Step: "cluster", State: provisioning.StateWaiting, Attempt: 1, Err: attemptErr})
	assert.Equal(t, attemptErr, m.Steps[0].Err)

	m.updateStep(provisioning.Event{Type: provisioning.EventStepReady, Step: "cluster", State: provisioning.StateReady, Attempt: 2, Message: "ready"})
	assert.Equal(t, provisioning.StateReady, m.Steps[0].State)
	assert.Equal(t, 2, m.Steps[0].Attempt)
	assert.NoError(t, m.Steps[0].Err)

	m.updateStep(provisioning.Event{Type: provisioning.EventResourceExists, Step: "namespace/argocd", State: provisioning.StateSkipped})
	assert.True(t, m.Steps[1].Skipped)

	// Unknown steps are ignored.
	m.updateStep(provisioning.Event{Type: provisioning.EventStepReady, Step: "other", State: provisioning.StateReady})
	assert.Equal(t, 1, m.finished())
}

func TestModelUpdate_Messages(t *testing.T) {
	t.Parallel()
	m := NewUpModel("demo", "kind", testSteps)

	updated, cmd := m.Update(ProgressMsg{Step: "argocd", Current: 3, Total: 3})
	assert.Nil(t, cmd)
	assert.Equal(t, 3, updated.(Model).Current)

	updated, cmd = updated.Update(TickMsg{})
	assert.NotNil(t, cmd)
	assert.Equal(t, 1, updated.(Model).SpinnerFrame)

	updated, _ = updated.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	assert.Equal(t, 60, updated.(Model).Width)

	runErr := errors.New("boom")
	final, cmd := updated.Update(ErrMsg{Err: runErr})
	assert.NotNil(t, cmd)
	assert.Equal(t, runErr, final.(Model).Err)

	final, cmd = updated.Update(DoneMsg{})
	assert.NotNil(t, cmd)
	assert.True(t, final.(Model).Done)
}

func TestRenderView(t *testing.T) {
	t.Parallel()
	m := NewUpModel("demo", "kind", testSteps)
	m.updateStep(provisioning.Event{Type: provisioning.EventStepReady, Step: "cluster", State: provisioning.StateReady, Attempt: 1})
	m.updateStep(provisioning.Event{Type: provisioning.EventResourceExists, Step: "namespace/argocd", State: provisioning.StateSkipped})
	m.updateStep(provisioning.Event{Type: provisioning.EventStepReady, Step: "namespace/argocd", State: provisioning.StateReady})
	m.updateStep(provisioning.Event{
		Type:    provisioning.EventStepFailed,
		Step:    "argocd",
		State:   provisioning.StateFailed,
		Attempt: 5,
		Err:     errors.New("argocd/app.kubernetes.io/name=argocd-server not ready after 5m0s"),
	})
	m.Err = m.Steps[2].Err

	out := m.View()
	assert.Contains(t, out, "stagehand: demo (kind)")
	assert.Contains(t, out, "Failed")
	assert.Contains(t, out, checkMark)
	assert.Contains(t, out, skipMark)
	assert.Contains(t, out, "unchanged")
	assert.Contains(t, out, "not ready after 5m0s")
	assert.Contains(t, out, "3/3 steps")
}

func TestRenderView_Aborted(t *testing.T) {
	t.Parallel()
	m := NewUpModel("demo", "", testSteps)
	m.Err = &provisioning.StepError{Step: "cluster", State: provisioning.StateAborted, Err: provisioning.ErrAborted}
	assert.Contains(t, m.View(), "Aborted")
}

func TestObserver(t *testing.T) {
	t.Parallel()
	var got []tea.Msg
	o := NewObserver(func(msg tea.Msg) { got = append(got, msg) })

	var _ provisioning.Observer = o
	o.Progress("cluster", 1, 3)
	o.Event(provisioning.Event{Type: provisioning.EventStepReady, Step: "cluster"})

	require.Len(t, got, 2)
	assert.Equal(t, ProgressMsg{Step: "cluster", Current: 1, Total: 3}, got[0])
	assert.Equal(t, provisioning.EventStepReady, got[1].(StepEventMsg).Event.Type)
}

func TestRenderStatus(t *testing.T) {
	t.Parallel()
	out := RenderStatus("demo", []provisioning.Presence{
		{Name: "cluster", Exists: true},
		{Name: "namespace/argocd"},
		{Name: "argocd", Err: errors.New("forbidden")},
	})

	assert.Contains(t, out, "stagehand: demo")
	assert.Contains(t, out, "present")
	assert.Contains(t, out, "absent")
	assert.Contains(t, out, "unknown: forbidden")
	assert.Contains(t, out, "1/3 present")
}

func TestCurrentSpinner(t *testing.T) {
	t.Parallel()
	assert.Equal(t, spinnerFrames[0], currentSpinner(0))
	assert.Equal(t, spinnerFrames[1], currentSpinner(len(spinnerFrames)+1))
	assert.Equal(t, spinnerFrames[1], currentSpinner(-1))
}
