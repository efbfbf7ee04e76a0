package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/stagehand/internal/provisioning"
)

// Observer forwards sequencer events to a running program.
type Observer struct {
	send func(tea.Msg)
}

// NewObserver creates an observer that delivers messages through send,
// usually tea.Program.Send.
func NewObserver(send func(tea.Msg)) *Observer {
	return &Observer{send: send}
}

// Event implements provisioning.Observer.
func (o *Observer) Event(event provisioning.Event) {
	o.send(StepEventMsg{Event: event})
}

// Progress implements provisioning.Observer.
func (o *Observer) Progress(step string, current, total int) {
	o.send(ProgressMsg{Step: step, Current: current, Total: total})
}

// RunUp runs fn in the background while rendering step progress. fn receives
// the observer to pass to the sequencer. The error of fn is returned once the
// view closes.
func RunUp(
	ctx context.Context,
	fn func(ctx context.Context, observer provisioning.Observer) error,
	clusterName, provider string,
	steps []string,
) error {
	m := NewUpModel(clusterName, provider, steps)

	p := tea.NewProgram(m, tea.WithAltScreen())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runErr := make(chan error, 1)
	go func() {
		err := fn(ctx, NewObserver(p.Send))
		runErr <- err
		if err != nil {
			p.Send(ErrMsg{Err: err})
			return
		}
		p.Send(DoneMsg{})
	}()

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	fm := finalModel.(Model)
	if !fm.Done && fm.Err == nil {
		// Quit by the operator; stop the run and wait for it to unwind.
		cancel()
	}
	return <-runErr
}
