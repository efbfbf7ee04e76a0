package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds all configurable timeout and retry values.
// These values can be customized via environment variables.
type Timeouts struct {
	Cluster          time.Duration // Readiness of the control plane after cluster creation
	ArgoCD           time.Duration // Readiness of the ArgoCD server
	Backstage        time.Duration // Readiness of Backstage pods after sync
	PollInterval     time.Duration // Interval between readiness checks
	RetryMaxAttempts int           // Maximum apply attempts per step
	RetryDelay       time.Duration // Fixed delay between apply attempts
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - STAGEHAND_TIMEOUT_CLUSTER (default: 5m)
//   - STAGEHAND_TIMEOUT_ARGOCD (default: 5m)
//   - STAGEHAND_TIMEOUT_BACKSTAGE (default: 10m)
//   - STAGEHAND_POLL_INTERVAL (default: 5s)
//   - STAGEHAND_RETRY_MAX_ATTEMPTS (default: 5)
//   - STAGEHAND_RETRY_DELAY (default: 5s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		Cluster:          parseDuration("STAGEHAND_TIMEOUT_CLUSTER", 5*time.Minute),
		ArgoCD:           parseDuration("STAGEHAND_TIMEOUT_ARGOCD", 5*time.Minute),
		Backstage:        parseDuration("STAGEHAND_TIMEOUT_BACKSTAGE", 10*time.Minute),
		PollInterval:     parseDuration("STAGEHAND_POLL_INTERVAL", 5*time.Second),
		RetryMaxAttempts: parseInt("STAGEHAND_RETRY_MAX_ATTEMPTS", 5),
		RetryDelay:       parseDuration("STAGEHAND_RETRY_DELAY", 5*time.Second),
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set, unparsable or not positive, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}

	return d
}

// parseInt parses a positive integer from an environment variable.
// If the variable is not set, unparsable or below 1, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}

	return i
}
