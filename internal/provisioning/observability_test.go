package provisioning

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/go-logr/logr/funcr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockObserver is a test implementation of Observer that records events.
type MockObserver struct {
	events   []Event
	progress []string
}

func NewMockObserver() *MockObserver {
	return &MockObserver{
		events: make([]Event, 0),
	}
}

func (m *MockObserver) Event(event Event) {
	m.events = append(m.events, event)
}

func (m *MockObserver) Progress(step string, _, _ int) {
	m.progress = append(m.progress, step)
}

// states returns the distinct consecutive states seen for step.
func (m *MockObserver) states(step string) []State {
	var out []State
	for _, e := range m.events {
		if e.Step != step {
			continue
		}
		if len(out) == 0 || out[len(out)-1] != e.State {
			out = append(out, e.State)
		}
	}
	return out
}

func (m *MockObserver) count(step string, typ EventType) int {
	n := 0
	for _, e := range m.events {
		if e.Step == step && e.Type == typ {
			n++
		}
	}
	return n
}

func TestConsoleObserver_Event(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	observer := NewConsoleObserver(&buf)

	observer.Event(Event{
		Type:    EventAttemptFailed,
		Step:    "argocd",
		Attempt: 2,
		Message: "retrying in 5s",
		Err:     errors.New("connection refused"),
		Fields:  map[string]string{"release": "argocd", "chart": "argo-cd"},
	})

	line := buf.String()
	assert.Contains(t, line, "attempt.failed")
	assert.Contains(t, line, "[argocd]")
	assert.Contains(t, line, "attempt=2")
	assert.Contains(t, line, `error="connection refused"`)
	assert.Contains(t, line, "(chart=argo-cd, release=argocd)")
}

func TestConsoleObserver_Progress(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	NewConsoleObserver(&buf).Progress("namespace/argocd", 2, 7)

	assert.Equal(t, "==> [2/7] namespace/argocd\n", buf.String())
}

func TestConsoleObserver_WithFields(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	observer := NewConsoleObserver(&buf).WithFields(map[string]string{"cluster": "stagehand"})

	observer.Event(Event{Type: EventStepReady, Step: "cluster"})
	observer.Event(Event{Type: EventStepReady, Step: "argocd", Fields: map[string]string{"cluster": "override"}})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "cluster=stagehand")
	assert.Contains(t, lines[1], "cluster=override")
}

func TestLogObserver(t *testing.T) {
	t.Parallel()
	var lines []string
	logger := funcr.New(func(prefix, args string) {
		lines = append(lines, args)
	}, funcr.Options{Verbosity: 1})

	observer := NewLogObserver(logger)
	observer.Event(Event{Type: EventResourceApplying, Step: "namespace/backstage", State: StateApplying, Attempt: 1})
	observer.Event(Event{Type: EventStepFailed, Step: "argocd", State: StateFailed, Err: errors.New("boom")})
	observer.Progress("argocd", 6, 7)

	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], `"step"="namespace/backstage"`)
	assert.Contains(t, lines[0], `"state"="APPLYING"`)
	assert.Contains(t, lines[0], `"attempt"=1`)
	assert.Contains(t, lines[1], `"error"="boom"`)
	assert.Contains(t, lines[2], `"current"=6`)
}

func TestMultiObserver(t *testing.T) {
	t.Parallel()
	a, b := NewMockObserver(), NewMockObserver()
	multi := MultiObserver{a, nil, b}

	multi.Event(Event{Type: EventStepStarted, Step: "cluster"})
	multi.Progress("cluster", 1, 1)

	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
	assert.Equal(t, []string{"cluster"}, a.progress)
	assert.Equal(t, []string{"cluster"}, b.progress)
}
