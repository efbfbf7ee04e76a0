// Package wizard provides an interactive configuration wizard for stagehand.
//
// It uses charmbracelet/huh forms to collect answers, BuildConfig to turn them
// into a config.Config, and WriteConfig to write stagehand.yaml.
package wizard
