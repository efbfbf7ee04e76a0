package provisioning

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

// Observer receives structured events while steps run.
type Observer interface {
	// Event emits a structured event
	Event(event Event)

	// Progress reports that step current of total is starting.
	Progress(step string, current, total int)
}

// Event represents a structured provisioning event.
type Event struct {
	Type      EventType         // Type of event
	Step      string            // Step name (e.g., "cluster", "namespace/argocd")
	State     State             // State the step moved to
	Attempt   int               // Apply attempt, 1-based, when relevant
	Message   string            // Human-readable message
	Err       error             // Error that caused the event, if any
	Timestamp time.Time         // When the event occurred
	Fields    map[string]string // Additional contextual fields
}

// EventType represents the type of provisioning event.
type EventType string

const (
	// EventStepStarted indicates the existence check of a step has started.
	EventStepStarted EventType = "step.started"
	// EventStepReady indicates a step completed successfully.
	EventStepReady EventType = "step.ready"
	// EventStepFailed indicates a step failed terminally.
	EventStepFailed EventType = "step.failed"
	// EventStepAborted indicates the operator chose to stop at this step.
	EventStepAborted EventType = "step.aborted"

	// EventResourceExists indicates the step's effect is already present.
	EventResourceExists EventType = "resource.exists"
	// EventResourceApplying indicates an apply attempt is starting.
	EventResourceApplying EventType = "resource.applying"
	// EventResourceApplied indicates an apply attempt succeeded.
	EventResourceApplied EventType = "resource.applied"
	// EventResourceDeleting indicates an existing effect is being removed.
	EventResourceDeleting EventType = "resource.deleting"
	// EventResourceDeleted indicates an existing effect was removed.
	EventResourceDeleted EventType = "resource.deleted"

	// EventAttemptFailed indicates an attempt failed and another will follow.
	EventAttemptFailed EventType = "attempt.failed"

	// EventReadinessWaiting indicates the readiness gate is being polled.
	EventReadinessWaiting EventType = "readiness.waiting"

	// EventProgress indicates a new step in the sequence.
	EventProgress EventType = "progress"
)

// ConsoleObserver writes one human-readable line per event.
type ConsoleObserver struct {
	mu            sync.Mutex
	out           io.Writer
	contextFields map[string]string
}

// NewConsoleObserver creates a new console-based observer.
func NewConsoleObserver(out io.Writer) *ConsoleObserver {
	return &ConsoleObserver{
		out:           out,
		contextFields: make(map[string]string),
	}
}

// Event implements Observer interface.
func (o *ConsoleObserver) Event(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	// Merge context fields
	if event.Fields == nil {
		event.Fields = make(map[string]string)
	}
	for k, v := range o.contextFields {
		if _, exists := event.Fields[k]; !exists {
			event.Fields[k] = v
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	_, _ = fmt.Fprintln(o.out, o.formatEvent(event))
}

// Progress implements Observer interface.
func (o *ConsoleObserver) Progress(step string, current, total int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, _ = fmt.Fprintf(o.out, "==> [%d/%d] %s\n", current, total, step)
}

// WithFields returns an observer that adds fields to every event.
func (o *ConsoleObserver) WithFields(fields map[string]string) *ConsoleObserver {
	newFields := make(map[string]string, len(o.contextFields)+len(fields))
	for k, v := range o.contextFields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}

	return &ConsoleObserver{
		out:           o.out,
		contextFields: newFields,
	}
}

// formatEvent formats an event for console output.
func (o *ConsoleObserver) formatEvent(event Event) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("    %-18s", event.Type))

	if event.Step != "" {
		parts = append(parts, fmt.Sprintf("[%s]", event.Step))
	}

	if event.Attempt > 0 {
		parts = append(parts, fmt.Sprintf("attempt=%d", event.Attempt))
	}

	if event.Message != "" {
		parts = append(parts, event.Message)
	}

	if event.Err != nil {
		parts = append(parts, fmt.Sprintf("error=%q", event.Err.Error()))
	}

	if len(event.Fields) > 0 {
		keys := make([]string, 0, len(event.Fields))
		for k := range event.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fieldParts := make([]string, 0, len(keys))
		for _, k := range keys {
			fieldParts = append(fieldParts, fmt.Sprintf("%s=%s", k, event.Fields[k]))
		}
		parts = append(parts, fmt.Sprintf("(%s)", strings.Join(fieldParts, ", ")))
	}

	return strings.Join(parts, " ")
}

// LogObserver writes events as structured logr lines.
type LogObserver struct {
	logger logr.Logger
}

// NewLogObserver creates an observer backed by logger.
func NewLogObserver(logger logr.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

// Event implements Observer interface.
func (o *LogObserver) Event(event Event) {
	kv := []any{"event", string(event.Type), "step", event.Step, "state", string(event.State)}
	if event.Attempt > 0 {
		kv = append(kv, "attempt", event.Attempt)
	}
	for k, v := range event.Fields {
		kv = append(kv, k, v)
	}

	msg := event.Message
	if msg == "" {
		msg = string(event.Type)
	}

	if event.Type == EventStepFailed && event.Err != nil {
		o.logger.Error(event.Err, msg, kv...)
		return
	}
	if event.Err != nil {
		kv = append(kv, "error", event.Err.Error())
	}
	o.logger.Info(msg, kv...)
}

// Progress implements Observer interface.
func (o *LogObserver) Progress(step string, current, total int) {
	o.logger.V(1).Info("progress", "step", step, "current", current, "total", total)
}

// MultiObserver fans events out to several observers in order.
type MultiObserver []Observer

// Event implements Observer interface.
func (m MultiObserver) Event(event Event) {
	for _, o := range m {
		if o != nil {
			o.Event(event)
		}
	}
}

// Progress implements Observer interface.
func (m MultiObserver) Progress(step string, current, total int) {
	for _, o := range m {
		if o != nil {
			o.Progress(step, current, total)
		}
	}
}

type discardObserver struct{}

func (discardObserver) Event(Event)                {}
func (discardObserver) Progress(string, int, int) {}

// DiscardObserver drops all events.
var DiscardObserver Observer = discardObserver{}
