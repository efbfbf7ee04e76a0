// Package retry provides bounded retry logic for transient failures.
//
// The [Do] function invokes an operation up to a maximum number of attempts
// with a fixed delay in between. It is used for manifest applies and chart
// installs that may fail while the API server or a CRD is still settling.
package retry
