package actor

import (
	"sort"
	"sync"

	"github.com/villager-coder/skynet-go/internal/handle"
)

// Registry is the handle table: a flat, power-of-two-sized array of
// context pointers indexed by a hash of the handle's low bits, grown by
// doubling on insertion when full, guarded by a single reader-writer lock
// (spec.md §3/§4.1). A separate sorted slice maps short ASCII names to
// handles; names are first-come, first-served and permanent.
type Registry struct {
	node uint8

	mu          sync.RWMutex
	slots       []*Context // len is always a power of two
	nextIndex   uint32     // monotonically advancing local-id counter
	count       int

	namesMu sync.RWMutex
	names   []nameEntry // kept sorted by Name for binary search
}

type nameEntry struct {
	Name   string
	Handle handle.Handle
}

const minSlots = 16

// NewRegistry builds an empty registry for the given node id (used as the
// high byte of every handle it allocates).
func NewRegistry(node uint8) *Registry {
	return &Registry{
		node:  node,
		slots: make([]*Context, minSlots),
	}
}

// Register assigns the next free slot to ctx and takes a registry
// reference on it (spec.md §4.1). It fails only when growth itself would
// be required beyond the 24-bit local-id space, which in practice never
// happens before the process runs out of memory for the slot array.
func (r *Registry) Register(ctx *Context) (handle.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		size := len(r.slots)
		mask := uint32(size - 1)
		for i := 0; i < size; i++ {
			local := (uint32(i) + r.nextIndex) & 0x00FFFFFF
			slotIdx := local & mask
			if r.slots[slotIdx] == nil {
				r.slots[slotIdx] = ctx
				r.nextIndex = local + 1
				h := handle.NewHandle(r.node, local)
				ctx.setHandle(h)
				ctx.incref()
				r.count++
				return h, nil
			}
		}
		if size >= 1<<24 {
			return 0, newError(KindTransientResource, "node %d: 24-bit handle space exhausted", r.node)
		}
		r.grow()
	}
}

// grow doubles slot capacity and rehashes every live context in place.
// Callers hold the write lock.
func (r *Registry) grow() {
	old := r.slots
	next := make([]*Context, len(old)*2)
	mask := uint32(len(next) - 1)
	for _, ctx := range old {
		if ctx == nil {
			continue
		}
		next[ctx.Handle().Local()&mask] = ctx
	}
	r.slots = next
}

// Retire removes the mapping and drops the registry's reference, returning
// true iff the handle was live. A second call for the same handle returns
// false.
func (r *Registry) Retire(h handle.Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	mask := uint32(len(r.slots) - 1)
	slotIdx := h.Local() & mask
	ctx := r.slots[slotIdx]
	if ctx == nil || ctx.Handle() != h {
		return false
	}
	r.slots[slotIdx] = nil
	r.count--
	ctx.decref()
	return true
}

// Lookup acquires a fresh reference to the context for h under the read
// lock; the caller must call ctx.Release() when done with it.
func (r *Registry) Lookup(h handle.Handle) (*Context, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mask := uint32(len(r.slots) - 1)
	slotIdx := h.Local() & mask
	ctx := r.slots[slotIdx]
	if ctx == nil || ctx.Handle() != h {
		return nil, false
	}
	ctx.incref()
	return ctx, true
}

// Count returns the number of live handles, used by tests asserting no
// handle leaks across create/destroy cycles (spec.md §8).
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// BindName inserts name into the sorted name table iff it is not already
// bound. Names are permanent for the life of the process.
func (r *Registry) BindName(name string, h handle.Handle) bool {
	r.namesMu.Lock()
	defer r.namesMu.Unlock()

	i := sort.Search(len(r.names), func(i int) bool { return r.names[i].Name >= name })
	if i < len(r.names) && r.names[i].Name == name {
		return false
	}
	r.names = append(r.names, nameEntry{})
	copy(r.names[i+1:], r.names[i:])
	r.names[i] = nameEntry{Name: name, Handle: h}
	return true
}

// MarkEndlessLoop flags the context for h as stuck, called by the stall
// monitor (spec.md §4.5). A miss is silently ignored: the service may
// have been destroyed between the monitor's sample and this call.
func (r *Registry) MarkEndlessLoop(h handle.Handle) {
	ctx, ok := r.Lookup(h)
	if !ok {
		return
	}
	ctx.SetEndlessLoop(true)
	ctx.Release()
}

// FindName resolves a previously bound name to its handle.
func (r *Registry) FindName(name string) (handle.Handle, bool) {
	r.namesMu.RLock()
	defer r.namesMu.RUnlock()

	i := sort.Search(len(r.names), func(i int) bool { return r.names[i].Name >= name })
	if i < len(r.names) && r.names[i].Name == name {
		return r.names[i].Handle, true
	}
	return 0, false
}
