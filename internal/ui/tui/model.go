package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/stagehand/internal/provisioning"
)

// StepView is the display state of one step.
type StepView struct {
	Name    string
	State   provisioning.State
	Attempt int
	Message string
	Skipped bool
	Err     error
}

// Model is the Bubble Tea model for the progress view.
type Model struct {
	ClusterName string
	Provider    string

	Steps   []StepView
	Current int

	StartTime    time.Time
	SpinnerFrame int

	// UI state
	Width  int
	Height int
	Err    error
	Done   bool
}

// NewUpModel creates a model listing steps as pending.
func NewUpModel(clusterName, provider string, steps []string) Model {
	m := Model{
		ClusterName: clusterName,
		Provider:    provider,
		StartTime:   time.Now(),
		Steps:       make([]StepView, len(steps)),
	}
	for i, name := range steps {
		m.Steps[i] = StepView{Name: name, State: provisioning.StatePending}
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case ProgressMsg:
		m.Current = msg.Current

	case StepEventMsg:
		m.updateStep(msg.Event)

	case TickMsg:
		m.SpinnerFrame++
		return m, tickCmd()

	case ErrMsg:
		m.Err = msg.Err
		return m, tea.Quit

	case DoneMsg:
		m.Done = true
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) updateStep(event provisioning.Event) {
	idx := -1
	for i := range m.Steps {
		if m.Steps[i].Name == event.Step {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	step := &m.Steps[idx]
	if event.State != "" {
		step.State = event.State
	}
	if event.Attempt > 0 {
		step.Attempt = event.Attempt
	}
	if event.Message != "" {
		step.Message = event.Message
	}

	switch event.Type {
	case provisioning.EventResourceExists:
		if event.State == provisioning.StateSkipped {
			step.Skipped = true
		}
	case provisioning.EventAttemptFailed, provisioning.EventStepFailed:
		step.Err = event.Err
	case provisioning.EventStepReady:
		step.Err = nil
	}
}

// finished counts steps in a terminal state.
func (m Model) finished() int {
	n := 0
	for _, s := range m.Steps {
		if s.State.Terminal() {
			n++
		}
	}
	return n
}

func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View implements tea.Model.
func (m Model) View() string {
	return renderView(m)
}
