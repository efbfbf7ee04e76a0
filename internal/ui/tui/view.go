package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/imamik/stagehand/internal/provisioning"
)

// styleFunc is a single-string styling function.
type styleFunc func(string) string

// sf wraps a lipgloss.Style into a styleFunc.
func sf(s lipgloss.Style) styleFunc {
	return func(str string) string { return s.Render(str) }
}

func renderView(m Model) string {
	var b strings.Builder

	renderHeader(&b, m)
	renderProgressBar(&b, m)
	renderSteps(&b, m)

	if failed := m.failedStep(); failed != nil {
		renderFailure(&b, *failed)
	}

	renderFooter(&b, m)
	return b.String()
}

func renderHeader(b *strings.Builder, m Model) {
	title := fmt.Sprintf("stagehand: %s", m.ClusterName)
	if m.Provider != "" {
		title += fmt.Sprintf(" (%s)", m.Provider)
	}
	b.WriteString(titleStyle.Render(title))

	status := " "
	switch {
	case m.Err != nil && provisioning.IsAborted(m.Err):
		status += warningStyle.Render("Aborted")
	case m.Err != nil:
		status += failedStyle.Render("Failed")
	case m.Done:
		status += readyStyle.Render("Ready")
	default:
		status += activeStyle.Render(currentSpinner(m.SpinnerFrame)+" ") + dimStyle.Render("Bootstrapping...")
	}
	b.WriteString(status)
	b.WriteString("\n")
}

func renderProgressBar(b *strings.Builder, m Model) {
	progress := calculateProgress(m)
	barWidth := 40
	if m.Width > 0 && m.Width < 80 {
		barWidth = max(m.Width-30, 10)
	}
	filled := min(int(float64(barWidth)*progress), barWidth)

	bar := progressBarFull.Render(strings.Repeat("█", filled)) +
		progressBarEmpty.Render(strings.Repeat("░", barWidth-filled))

	fmt.Fprintf(b, "  %s %d%%  %d/%d steps\n", bar, int(progress*100), m.finished(), len(m.Steps))
}

func renderSteps(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render("  Steps"))
	b.WriteString("\n")

	for _, step := range m.Steps {
		icon, style := stepIcon(step, m.SpinnerFrame)
		line := fmt.Sprintf("    %s %-28s", style(icon), style(step.Name))
		if detail := stepDetail(step); detail != "" {
			line += " " + subtitleStyle.Render(detail)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
}

func renderFailure(b *strings.Builder, step StepView) {
	b.WriteString(sectionStyle.Render("  Error"))
	b.WriteString("\n")
	fmt.Fprintf(b, "    %s %s\n", failedStyle.Render(crossMark), failedStyle.Render(fmt.Sprintf("%s: %v", step.Name, step.Err)))
}

func renderFooter(b *strings.Builder, m Model) {
	elapsed := formatDuration(time.Since(m.StartTime))
	b.WriteString(footerStyle.Render(fmt.Sprintf("  elapsed: %s  |  q: quit", elapsed)))
	b.WriteString("\n")
}

// Helper functions

func stepIcon(step StepView, frame int) (string, styleFunc) {
	switch step.State {
	case provisioning.StateReady:
		if step.Skipped {
			return skipMark, sf(dimStyle)
		}
		return checkMark, sf(readyStyle)
	case provisioning.StateFailed:
		return crossMark, sf(failedStyle)
	case provisioning.StateAborted:
		return warnMark, sf(warningStyle)
	case provisioning.StatePending:
		return pending, sf(dimStyle)
	default:
		return currentSpinner(frame), sf(activeStyle)
	}
}

func stepDetail(step StepView) string {
	switch step.State {
	case provisioning.StatePending:
		return ""
	case provisioning.StateReady:
		if step.Skipped {
			return "unchanged"
		}
		if step.Attempt > 1 {
			return fmt.Sprintf("ready after %d attempts", step.Attempt)
		}
		return "ready"
	}

	detail := step.Message
	if step.Attempt > 1 {
		detail = fmt.Sprintf("attempt %d: %s", step.Attempt, detail)
	}
	return detail
}

func (m Model) failedStep() *StepView {
	for i := range m.Steps {
		if m.Steps[i].State == provisioning.StateFailed && m.Steps[i].Err != nil {
			return &m.Steps[i]
		}
	}
	return nil
}

func currentSpinner(frame int) string {
	if len(spinnerFrames) == 0 {
		return spinner
	}
	if frame < 0 {
		frame = -frame
	}
	return spinnerFrames[frame%len(spinnerFrames)]
}

func calculateProgress(m Model) float64 {
	if m.Done {
		return 1.0
	}
	if len(m.Steps) == 0 {
		return 0
	}
	return float64(m.finished()) / float64(len(m.Steps))
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
