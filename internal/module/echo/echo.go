// Package echo is a minimal native module demonstrating the
// module.Instance/admin.Handler contract (spec.md §12.4): it replies to
// every text message with the same payload sent back to the source.
package echo

import (
	"github.com/villager-coder/skynet-go/internal/actor"
	"github.com/villager-coder/skynet-go/internal/handle"
	"github.com/villager-coder/skynet-go/internal/module"
	"github.com/villager-coder/skynet-go/internal/mq"
)

// Name is the module's registration name, passed to module.Registry.Register
// and to the LAUNCH admin command.
const Name = "echo"

type instance struct {
	self     handle.Handle
	registry *actor.Registry
	echoed   uint64
}

// New returns a module.Factory for echo bound to registry, so the instance
// can send its reply back through Send without the core threading a
// registry handle through every Instance.
func New(registry *actor.Registry) module.Factory {
	return func() module.Instance {
		return &instance{registry: registry}
	}
}

func (i *instance) Init(ctx *actor.Context, parm string) error {
	i.self = ctx.Handle()
	return nil
}

func (i *instance) Handle(ctx *actor.Context, kind mq.Kind, session uint32, source handle.Handle, payload []byte) bool {
	if kind != mq.KindText || source.Zero() {
		return false
	}
	i.echoed++
	actor.Send(i.registry, source, mq.Message{
		Source:  i.self,
		Session: session,
		Kind:    mq.KindText,
		Payload: payload,
	})
	return false
}

// Echoed returns the number of messages replied to, for tests/introspection.
func (i *instance) Echoed() uint64 { return i.echoed }
