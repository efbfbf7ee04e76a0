// Package k8s is the cluster API adapter used by the bootstrap plan.
//
// [Client] answers existence queries for a [Selector], applies objects with
// Server-Side Apply (field manager "stagehand"), waits for pods to become
// ready through internal/readiness, and reads secrets and pod logs for
// diagnostics. Kinds served by CRDs that are not installed yet resolve as
// absent; applying them resets the cached REST mapper so a retry can pick up
// the freshly registered kind.
package k8s
