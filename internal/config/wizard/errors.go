package wizard

import "errors"

// Validation errors for the interactive wizard.
var (
	errClusterNameRequired = errors.New("cluster name is required")
	errClusterNameInvalid  = errors.New("cluster name must be 1-32 lowercase alphanumeric characters or hyphens, starting and ending with alphanumeric")
	errRepoURLRequired     = errors.New("repository URL is required")
	errRepoURLInvalid      = errors.New("repository URL must start with https://, http://, oci:// or ssh://")
	errSourceRequired      = errors.New("chart name or path is required")
)
