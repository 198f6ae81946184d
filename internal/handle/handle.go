// Package handle defines the opaque service identifier shared by every
// other core package. It has no dependencies of its own so that both the
// message queue and the service registry can depend on it without
// forming an import cycle (spec.md §2's "handle registry" sits logically
// above this type, but both the registry and the mailbox need to name a
// handle, so the type itself is pulled out to the bottom of the stack).
package handle

import "fmt"

// Handle is a 32-bit opaque service identifier: the high 8 bits are the
// originating node id (for clustering via the harbor), the low 24 bits
// identify a service within that node.
type Handle uint32

const (
	nodeShift = 24
	nodeMask  = 0xFF
	idMask    = 0x00FFFFFF
)

// NewHandle combines a node id and an in-node service id into a Handle.
func NewHandle(node uint8, id uint32) Handle {
	return Handle(uint32(node)<<nodeShift | (id & idMask))
}

// Node returns the originating node id encoded in the high byte.
func (h Handle) Node() uint8 {
	return uint8((uint32(h) >> nodeShift) & nodeMask)
}

// Local returns the low 24 bits identifying the service within its node.
func (h Handle) Local() uint32 {
	return uint32(h) & idMask
}

// Zero reports whether this is the zero handle, used to mean "no handle"
// (e.g. an unrouted message source, or a disabled trap destination).
func (h Handle) Zero() bool {
	return h == 0
}

// String renders the handle the way the runtime logs it: eight lowercase
// hex digits prefixed with a colon, e.g. ":01000a0b".
func (h Handle) String() string {
	return fmt.Sprintf(":%08x", uint32(h))
}
