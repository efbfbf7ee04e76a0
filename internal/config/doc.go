// Package config defines the configuration of a bootstrap run.
//
// A [Config] is read from an optional stagehand.yaml, completed with defaults
// and validated. Credentials ([Credentials]) and timeouts ([Timeouts]) are
// never read from the file: they come from environment variables so that
// secrets stay out of version control and CI can tune deadlines.
package config
