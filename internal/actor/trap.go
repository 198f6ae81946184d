package actor

import "sync/atomic"

// trap states, spec.md §4.6: 0=idle, 1=requested but hook not yet
// installed, -1=hook installed, pending delivery back to 0.
const (
	trapIdle      int32 = 0
	trapRequested int32 = 1
	trapInstalled int32 = -1
)

// trapState implements the interrupt signal's small atomic state machine.
// Only one setter may transition idle->requested; only the worker that
// observes "requested" while dispatching installs the hook.
type trapState struct {
	v atomic.Int32
}

// Request transitions idle->requested. Returns false if a trap is already
// pending or installed for this service.
func (t *trapState) Request() bool {
	return t.v.CompareAndSwap(trapIdle, trapRequested)
}

// Observe is called by the worker immediately before dispatching a
// message to this service. If a trap was requested, it installs the hook
// (requested->installed) and reports true so the dispatcher can surface
// the interrupt to the callback.
func (t *trapState) Observe() bool {
	return t.v.CompareAndSwap(trapRequested, trapInstalled)
}

// Clear completes delivery, returning the state to idle (installed->idle).
// Safe to call whether the service acknowledged the trap itself or the
// dispatcher is clearing it on the service's behalf after delivery.
func (t *trapState) Clear() {
	t.v.CompareAndSwap(trapInstalled, trapIdle)
}

// Pending reports the current non-idle state without mutating it.
func (t *trapState) Pending() bool {
	return t.v.Load() != trapIdle
}
