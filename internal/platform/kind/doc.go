// Package kind manages local clusters through the kind Go library.
//
// The kind API is not context aware: a cancelled context is checked before
// each call, but a running create cannot be interrupted.
package kind
