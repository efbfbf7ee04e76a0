// Package tui provides a Bubble Tea-based terminal UI for bootstrap progress.
package tui

import "github.com/imamik/stagehand/internal/provisioning"

// StepEventMsg carries a sequencer event.
type StepEventMsg struct {
	Event provisioning.Event
}

// ProgressMsg reports that a step is starting.
type ProgressMsg struct {
	Step    string
	Current int
	Total   int
}

// TickMsg is sent periodically to refresh the display.
type TickMsg struct{}

// ErrMsg carries an error.
type ErrMsg struct{ Err error }

// DoneMsg signals that the operation is complete.
type DoneMsg struct{}
