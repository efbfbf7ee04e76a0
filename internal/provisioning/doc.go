// Package provisioning runs ordered, idempotent provisioning steps.
//
// Each [Step] is guarded by an existence check. A step whose effect is already
// present is skipped; otherwise its Apply action runs through the bounded retry
// executor in internal/util/retry, followed by an optional readiness [Gate].
// A gate timeout fails the attempt, so it is retried like any other apply error.
//
// # State machine
//
//	PENDING -> CHECKING_EXISTS -> SKIPPED  -> (WAITING) -> READY
//	                           -> APPLYING -> (WAITING) -> READY | FAILED
//
// The first step that ends FAILED (or ABORTED by the conflict policy) stops the
// run. Nothing is rolled back; running the same steps again is always safe.
//
// # Observability
//
// The [Sequencer] emits structured [Event]s to an [Observer] and records
// per-step outcomes in [Metrics].
package provisioning
