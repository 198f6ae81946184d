package worker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/villager-coder/skynet-go/internal/actor"
	"github.com/villager-coder/skynet-go/internal/handle"
	"github.com/villager-coder/skynet-go/internal/monitor"
	"github.com/villager-coder/skynet-go/internal/mq"
)

// trapSignalCode is the signal value delivered to a module.Signaler when
// the worker observes a pending interrupt trap (spec.md §4.6). skynet
// itself threads an operator-supplied int through to the signal
// callback; the admin SIGNAL command here takes no code argument, so a
// single fixed value stands for "trap fired."
const trapSignalCode = 0

// signaler mirrors internal/module.Signaler structurally, avoiding an
// import of that package here: any module.Instance whose type satisfies
// this one-method shape is routed an interrupt without worker needing to
// know about modules at all.
type signaler interface {
	Signal(code int)
}

// Pool is the fixed set of goroutines that implement spec.md §4.3's
// worker loop: pop a mailbox from the global queue, dispatch a weighted
// batch of its messages, requeue or drop it.
type Pool struct {
	registry *actor.Registry
	global   *mq.Global
	logger   *slog.Logger

	n    int
	wake *wakeSignal
	slot []*monitor.Slot

	wg sync.WaitGroup
}

// New builds a pool of n workers. Slots() exposes the per-worker monitor
// heartbeats for the stall monitor to watch.
func New(n int, registry *actor.Registry, global *mq.Global, logger *slog.Logger) *Pool {
	p := &Pool{
		registry: registry,
		global:   global,
		logger:   logger,
		n:        n,
		wake:     newWakeSignal(n),
		slot:     make([]*monitor.Slot, n),
	}
	for i := range p.slot {
		p.slot[i] = &monitor.Slot{}
	}
	return p
}

// Slots returns the per-worker monitor heartbeats, one per worker,
// indexed by worker id.
func (p *Pool) Slots() []*monitor.Slot { return p.slot }

// Wakeup implements the producer side of spec.md §5's wake protocol:
// signal one sleeping worker iff at least total-busy are asleep.
func (p *Pool) Wakeup(busy int) { p.wake.Wakeup(busy) }

// AllAsleep reports whether every worker is currently parked, used by
// producer-side sends (internal/runtime.Node.Send, the poll-thread
// analogue for internal/socket and internal/harbor traffic) to decide
// whether a wakeup(0) is warranted.
func (p *Pool) AllAsleep() bool { return p.wake.AllAsleep() }

// Start launches the n worker goroutines. It returns immediately; call
// Stop to shut the pool down.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go p.loop(ctx, i)
	}
}

// Stop wakes every worker and waits for them to exit.
func (p *Pool) Stop() {
	p.wake.Shutdown()
	p.wg.Wait()
}

func (p *Pool) loop(ctx context.Context, id int) {
	defer p.wg.Done()
	weight := weightFor(id)
	slot := p.slot[id]

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		mb := p.global.Pop()
		if mb == nil {
			if !p.wake.Sleep() {
				return
			}
			continue
		}

		p.dispatch(mb, weight, slot)
	}
}

// dispatch implements spec.md §4.3 steps 2-7 for one mailbox turn.
func (p *Pool) dispatch(mb *mq.Mailbox, weight int, slot *monitor.Slot) {
	h := mb.Handle()
	ctx, ok := p.registry.Lookup(h)
	if !ok {
		// Service was destroyed between enqueue and now; drain and drop.
		mb.MarkRelease()
		mb.Release(p.drop(h))
		return
	}
	defer ctx.Release()

	n := batchSize(weight, mb.Length())
	for i := 0; i < n; i++ {
		msg, ok := mb.Pop()
		if !ok {
			break
		}
		if overload := mb.OverloadReport(); overload > 0 {
			p.logger.Warn("mailbox overload",
				slog.String("handle", h.String()),
				slog.Int("length", overload))
		}

		trapped := ctx.Trap().Observe()
		if trapped {
			if sig, ok := ctx.UserData().(signaler); ok {
				sig.Signal(trapSignalCode)
			}
		}

		slot.BeginDispatch(msg.Source, h)
		retain, err := ctx.Dispatch(msg.Kind, msg.Session, msg.Source, msg.Payload)
		slot.EndDispatch()
		_ = retain // payload lifetime is GC-managed; retain only documents intent

		if trapped {
			ctx.Trap().Clear()
		}

		if err != nil {
			p.logger.Error("service callback failed",
				slog.String("handle", h.String()),
				slog.Any("err", err))
		}
	}

	if mb.Released() {
		mb.Release(p.drop(h))
		return
	}

	if mb.Length() > 0 {
		p.global.Push(mb)
	}
}

func (p *Pool) drop(h handle.Handle) mq.DropFunc {
	return func(msg mq.Message) {
		p.logger.Debug("dropped message on release",
			slog.String("handle", h.String()),
			slog.String("source", msg.Source.String()))
	}
}
