// Package monitor implements the stall monitor: a background goroutine
// that detects a service stuck processing a single message for too long
// (spec.md §4.5).
package monitor

import (
	"sync/atomic"

	"github.com/villager-coder/skynet-go/internal/handle"
)

// Slot is a per-worker heartbeat record. The worker increments Version
// (release ordering via atomic.AddUint32) at the start of every dispatch
// and records which service it is about to call into; the monitor thread
// samples CheckVersion against Version every interval (spec.md §3).
type Slot struct {
	version uint32 // atomic
	source  uint32 // atomic, handle.Handle
	dest    uint32 // atomic, handle.Handle

	checkVersion uint32 // owned exclusively by the monitor goroutine
}

// BeginDispatch records the message about to be processed and advances
// the version counter. Called by the worker immediately before invoking
// the service callback.
func (s *Slot) BeginDispatch(source, dest handle.Handle) {
	atomic.StoreUint32(&s.source, uint32(source))
	atomic.StoreUint32(&s.dest, uint32(dest))
	atomic.AddUint32(&s.version, 1)
}

// EndDispatch clears the destination so the monitor does not mistake an
// idle worker for a stalled one between messages.
func (s *Slot) EndDispatch() {
	atomic.StoreUint32(&s.dest, 0)
}

func (s *Slot) snapshot() (version uint32, source, dest handle.Handle) {
	return atomic.LoadUint32(&s.version),
		handle.Handle(atomic.LoadUint32(&s.source)),
		handle.Handle(atomic.LoadUint32(&s.dest))
}
