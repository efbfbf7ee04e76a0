// Package readiness blocks until a set of cluster resources satisfies a
// readiness predicate, or until a deadline elapses.
//
// A [Probe] names the resource set (namespace and label selector) together with
// its timeout and poll interval. [Poll] drives any [Check]; [PodsReady] is the
// predicate used for workloads: every matching pod Running and Ready, with an
// empty match treated as "not scheduled yet" rather than an error.
package readiness
