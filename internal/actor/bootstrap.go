package actor

import (
	"github.com/villager-coder/skynet-go/internal/handle"
	"github.com/villager-coder/skynet-go/internal/mq"
)

// Create implements the service creation protocol of spec.md §4.4:
// allocate, register, run Init, and only on success make the mailbox
// schedulable. If Init fails the handle is retired immediately and the
// error is ServiceInitFailure — fatal to the caller, but the runtime
// continues (spec.md §7).
func Create(registry *Registry, global *mq.Global, cb Callback, ud any, initFn func(*Context) error) (*Context, error) {
	ctx := NewContext(global, cb, ud)

	h, err := registry.Register(ctx)
	if err != nil {
		return nil, newError(KindTransientResource, "register: %v", err)
	}

	if initFn != nil {
		if err := initFn(ctx); err != nil {
			registry.Retire(h)
			ctx.mailbox.MarkRelease()
			ctx.mailbox.Release(nil)
			return nil, newError(KindServiceInitFailure, "service %s init: %v", h, err)
		}
	}

	ctx.mailbox.Activate()
	return ctx, nil
}

// Bootstrap implements the self-message bootstrap pattern of spec.md
// §4.4/§12.4: a service whose real initialization must run on a worker
// thread (e.g. an embedded scripting sandbox, or per-connection gateway
// state in internal/socket) is given a one-shot trampoline callback that
// runs realInit and installs the actual handler, then is sent a single
// message to itself so that trampoline executes on a worker rather than
// the creator's goroutine.
func Bootstrap(registry *Registry, global *mq.Global, ud any, realInit func(ctx *Context) Callback) (*Context, error) {
	var ctx *Context
	trampoline := func(c *Context, kind mq.Kind, session uint32, source handle.Handle, payload []byte) bool {
		c.SetCallback(realInit(c))
		return false
	}
	ctx = NewContext(global, trampoline, ud)

	h, err := registry.Register(ctx)
	if err != nil {
		return nil, newError(KindTransientResource, "register: %v", err)
	}

	ctx.mailbox.Activate()
	ctx.mailbox.Push(mq.Message{Source: h, Kind: mq.KindSystem})

	return ctx, nil
}
