package actor

import (
	"github.com/villager-coder/skynet-go/internal/handle"
	"github.com/villager-coder/skynet-go/internal/mq"
)

// Send resolves target through registry and pushes msg onto its mailbox,
// the local half of spec.md §3's "no delivery guarantee beyond best
// effort": a miss (service already retired) is reported back as ok=false
// so the caller can decide whether that is an error.
func Send(registry *Registry, target handle.Handle, msg mq.Message) (ok bool) {
	ctx, found := registry.Lookup(target)
	if !found {
		return false
	}
	defer ctx.Release()
	ctx.Mailbox().Push(msg)
	return true
}
