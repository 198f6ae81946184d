package actor

import (
	"sync/atomic"
	"time"

	"github.com/villager-coder/skynet-go/internal/handle"
	"github.com/villager-coder/skynet-go/internal/mq"
)

// Callback is the service message handler signature (spec.md §6):
// (context, message_type, session, source_handle, payload) ->
// retain_payload_flag. Returning true tells the dispatcher the callback
// took ownership of payload and it must not be reused/pooled by the core.
type Callback func(ctx *Context, kind mq.Kind, session uint32, source handle.Handle, payload []byte) (retain bool)

// State is the service lifecycle state, spec.md §4.4.
type State int32

const (
	StateCreating State = iota
	StateAlive
	StateRetiring
	StateDead
)

func (s State) String() string {
	switch s {
	case StateCreating:
		return "creating"
	case StateAlive:
		return "alive"
	case StateRetiring:
		return "retiring"
	case StateDead:
		return "dead"
	default:
		return "invalid"
	}
}

// Context is the per-service control block: spec.md §3's "service
// context". Exactly one Mailbox is owned for the context's entire
// lifetime; the context is reachable via the Registry iff its handle is
// live; it is only actually torn down once refcount hits zero, the
// handle has been retired, and the mailbox has been fully drained.
type Context struct {
	h handle.Handle

	// Module is an opaque pointer to the owning native module instance, or
	// nil for a service whose behavior lives purely in cb/ud (the
	// two-phase bootstrap pattern of Bootstrap, §4.4).
	Module any

	cb Callback
	ud any

	mailbox *mq.Mailbox

	refcount int32 // atomic
	state    int32 // atomic State

	messagesProcessed uint64        // atomic
	cpuTimeNanos       int64        // atomic monotonic accumulator, §9 open question
	endlessLoop        int32        // atomic bool
	session             uint32      // atomic counter
	trap                trapState

	onDestroy func(*Context)
}

// NewContext allocates a context in the "creating" state with a fresh
// mailbox that starts flagged as in the global queue (so it cannot be
// scheduled before Init succeeds) per spec.md §4.2/§4.4. Handle is
// assigned later by Registry.Register.
func NewContext(g *mq.Global, cb Callback, ud any) *Context {
	ctx := &Context{cb: cb, ud: ud, state: int32(StateCreating)}
	ctx.mailbox = mq.NewMailbox(0, g)
	return ctx
}

func (c *Context) setHandle(h handle.Handle) {
	c.h = h
	c.mailbox.SetHandle(h)
	atomic.StoreInt32(&c.state, int32(StateAlive))
}

// Handle returns the service's handle (zero until Registry.Register runs).
func (c *Context) Handle() handle.Handle { return c.h }

// Mailbox returns the context's single owned mailbox.
func (c *Context) Mailbox() *mq.Mailbox { return c.mailbox }

// UserData returns the opaque data passed at construction, for use by
// Callback implementations that close over typed state instead.
func (c *Context) UserData() any { return c.ud }

// State returns the current lifecycle state.
func (c *Context) State() State { return State(atomic.LoadInt32(&c.state)) }

func (c *Context) setState(s State) { atomic.StoreInt32(&c.state, int32(s)) }

// Trap exposes the interrupt-signal state machine (spec.md §4.6).
func (c *Context) Trap() *trapState { return &c.trap }

// NextSession allocates the next session id for a request this service
// sends, so the reply can be correlated back (spec.md §3).
func (c *Context) NextSession() uint32 {
	return atomic.AddUint32(&c.session, 1)
}

// EndlessLoop reports whether the stall monitor has flagged this service.
func (c *Context) EndlessLoop() bool {
	return atomic.LoadInt32(&c.endlessLoop) != 0
}

// SetEndlessLoop is called by the stall monitor when it detects a stall,
// and by an explicit admin command to clear it (spec.md §9 open question:
// the flag is never cleared automatically).
func (c *Context) SetEndlessLoop(v bool) {
	var n int32
	if v {
		n = 1
	}
	atomic.StoreInt32(&c.endlessLoop, n)
}

// Stats returns the bookkeeping counters exposed to admin introspection.
func (c *Context) Stats() (messages uint64, cpuTime time.Duration) {
	return atomic.LoadUint64(&c.messagesProcessed), time.Duration(atomic.LoadInt64(&c.cpuTimeNanos))
}

// recordDispatch is called by Dispatch after each cb invocation that
// returns without panicking.
func (c *Context) recordDispatch(d time.Duration) {
	atomic.AddUint64(&c.messagesProcessed, 1)
	atomic.AddInt64(&c.cpuTimeNanos, int64(d))
}

// Dispatch invokes the service callback. It never panics: a recovered
// panic is converted into a KindCallbackPanic error and the payload is
// treated as consumed, matching spec.md §7's "the core never unwinds
// across the service callback boundary."
func (c *Context) Dispatch(kind mq.Kind, session uint32, source handle.Handle, payload []byte) (retain bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newError(KindCallbackPanic, "service %s callback panicked: %v", c.h, r)
			retain = false
		}
	}()
	start := time.Now()
	retain = c.cb(c, kind, session, source, payload)
	c.recordDispatch(time.Since(start))
	return retain, nil
}

// incref/decref implement the shared reference count described in
// spec.md §3/§4.4: the registry holds one reference from Register to
// Retire, and each in-flight dispatcher or Registry.Lookup caller holds
// one more for the duration of its use.
func (c *Context) incref() {
	atomic.AddInt32(&c.refcount, 1)
}

// Release drops a reference taken by Registry.Lookup. When the count
// reaches zero and the handle has already been retired and the mailbox
// fully drained, onDestroy (if set) fires exactly once.
func (c *Context) Release() {
	c.decref()
}

func (c *Context) decref() {
	if atomic.AddInt32(&c.refcount, -1) == 0 {
		if c.State() != StateDead && c.retireObserved() && c.mailbox.Released() && c.mailbox.Length() == 0 {
			c.setState(StateDead)
			if c.onDestroy != nil {
				c.onDestroy(c)
			}
		}
	}
}

func (c *Context) retireObserved() bool {
	s := c.State()
	return s == StateRetiring || s == StateDead
}

// MarkRetiring transitions alive->retiring and marks the mailbox
// released; a subsequent worker dispatch will drop it (spec.md §4.4).
func (c *Context) MarkRetiring() {
	c.setState(StateRetiring)
	c.mailbox.MarkRelease()
}

// SetCallback replaces the service's message handler. Used by the
// two-phase bootstrap pattern (Bootstrap, spec.md §4.4/§12.4) to swap a
// one-shot trampoline for the service's real callback once its
// worker-thread initialization has run.
func (c *Context) SetCallback(cb Callback) {
	c.cb = cb
}

// SetOnDestroy registers the teardown hook invoked once the context is
// fully reclaimable (refcount zero, retired, mailbox drained).
func (c *Context) SetOnDestroy(fn func(*Context)) {
	c.onDestroy = fn
}
