package tui

import "github.com/charmbracelet/lipgloss"

// Palette. Adaptive so the view stays readable on light terminals.
var (
	okColor      = lipgloss.AdaptiveColor{Light: "#15803d", Dark: "#22c55e"}
	errorColor   = lipgloss.AdaptiveColor{Light: "#b91c1c", Dark: "#ef4444"}
	warnColor    = lipgloss.AdaptiveColor{Light: "#a16207", Dark: "#eab308"}
	accentColor  = lipgloss.AdaptiveColor{Light: "#1d4ed8", Dark: "#3b82f6"}
	mutedColor   = lipgloss.AdaptiveColor{Light: "#4b5563", Dark: "#6b7280"}
	contentColor = lipgloss.AdaptiveColor{Light: "#111827", Dark: "#f9fafb"}
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(contentColor)
	subtitleStyle = lipgloss.NewStyle().Foreground(mutedColor)
	sectionStyle  = lipgloss.NewStyle().Bold(true).Foreground(accentColor).MarginTop(1)
	footerStyle   = lipgloss.NewStyle().Foreground(mutedColor).MarginTop(1)

	// Step states
	readyStyle   = lipgloss.NewStyle().Foreground(okColor)
	failedStyle  = lipgloss.NewStyle().Foreground(errorColor)
	warningStyle = lipgloss.NewStyle().Foreground(warnColor)
	dimStyle     = lipgloss.NewStyle().Foreground(mutedColor)
	activeStyle  = lipgloss.NewStyle().Bold(true).Foreground(contentColor)

	progressBarFull  = lipgloss.NewStyle().Foreground(okColor)
	progressBarEmpty = lipgloss.NewStyle().Foreground(mutedColor)
)

// Step markers are plain ASCII so logs captured from the view stay legible.
const (
	checkMark = "[OK]"
	crossMark = "[!!]"
	skipMark  = "[==]"
	warnMark  = "[??]"
	pending   = "[  ]"
	spinner   = "[..]"
)

var spinnerFrames = []string{"[| ]", "[/ ]", "[- ]", "[\\ ]"}
