// Package runtime assembles the core subsystems into a single node:
// environment store, module registry, handle registry, mailbox/global
// queue, worker pool, and stall monitor, brought up in the leaf-first
// order of spec.md §2, plus a timer thread driving the wake protocol of
// §5. New enforces that order itself; cmd/fx.go provides the assembled
// Node as a single fx component.
package runtime

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/villager-coder/skynet-go/internal/actor"
	"github.com/villager-coder/skynet-go/internal/admin"
	"github.com/villager-coder/skynet-go/internal/env"
	"github.com/villager-coder/skynet-go/internal/handle"
	"github.com/villager-coder/skynet-go/internal/harbor"
	"github.com/villager-coder/skynet-go/internal/module"
	"github.com/villager-coder/skynet-go/internal/monitor"
	"github.com/villager-coder/skynet-go/internal/mq"
	"github.com/villager-coder/skynet-go/internal/worker"
)

// timerInterval is the source's timer-thread tick: wakeup(n-1) every
// ~2.5ms so a single sleeping worker always gets a chance to look for
// expired timeout callbacks, spec.md §5. This is the only periodic
// wakeup source; a message pushed while the whole pool sleeps would
// otherwise stall for up to one interval before a worker notices it.
const timerInterval = 2500 * time.Microsecond

// Node owns one node's full set of core components and their lifecycle.
type Node struct {
	NodeID uint8

	Registry *actor.Registry
	Global   *mq.Global
	Modules  *module.Registry
	Env      *env.Store
	Admin    *admin.Dispatcher
	Pool     *worker.Pool
	Monitor  *monitor.Monitor

	// Harbor is nil unless Config.HarborAMQPURL is set, in which case it
	// forwards Send calls addressed to a non-local node (spec.md §12.2).
	Harbor *harbor.Harbor

	logger *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// Config is the subset of config.Config the core needs to boot.
type Config struct {
	NodeID        uint8
	WorkerCount   int
	HarborAMQPURL string
}

// New builds every core component in dependency order but starts nothing.
// Independent ambient setup (here: nothing blocking beyond allocation) is
// still expressed through errgroup so the pattern generalizes the moment a
// component gains real I/O during construction (e.g. telemetry dialing a
// collector, or the module registry warming from a remote catalog).
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Node, error) {
	n := &Node{NodeID: cfg.NodeID, logger: logger}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error { n.Env = env.New(); return nil })
	g.Go(func() error { n.Modules = module.New(256); return nil })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	n.Registry = actor.NewRegistry(cfg.NodeID)
	n.Global = mq.NewGlobal()
	n.Admin = admin.New(n.Registry, n.Global, n.Modules, n.Env, time.Now())

	workers := cfg.WorkerCount
	if workers <= 0 {
		workers = 8
	}
	n.Pool = worker.New(workers, n.Registry, n.Global, logger)
	n.Monitor = monitor.New(n.Pool.Slots(), n.Registry, logger)

	if cfg.HarborAMQPURL != "" {
		h, err := harbor.New(cfg.NodeID, cfg.HarborAMQPURL, logger, n.deliverFromHarbor)
		if err != nil {
			return nil, err
		}
		n.Harbor = h
	}

	return n, nil
}

// Send routes msg to target: over the harbor if target is on another node
// and one is configured, falling back to (and otherwise always using) the
// local registry. Every successful local delivery also nudges the worker
// pool awake if it was fully asleep, the poll-thread side of spec.md §5's
// wake protocol (the timer thread is the only other wakeup source).
func (n *Node) Send(target handle.Handle, msg mq.Message) bool {
	if n.Harbor != nil {
		handled, err := n.Harbor.Send(target, msg)
		if err != nil {
			n.logger.Error("harbor send failed",
				slog.String("target", target.String()), slog.Any("err", err))
			return false
		}
		if handled {
			return true
		}
	}

	ok := actor.Send(n.Registry, target, msg)
	if ok && n.Pool.AllAsleep() {
		n.Pool.Wakeup(0)
	}
	return ok
}

// deliverFromHarbor is the Harbor's inbound callback: an envelope that
// crossed the wire is just another local send once decoded.
func (n *Node) deliverFromHarbor(target handle.Handle, msg mq.Message) {
	if !actor.Send(n.Registry, target, msg) {
		n.logger.Warn("harbor: target not found", slog.String("target", target.String()))
		return
	}
	if n.Pool.AllAsleep() {
		n.Pool.Wakeup(0)
	}
}

// Start launches the worker pool, stall monitor, and timer thread. It
// returns immediately; call Stop for graceful, reverse-order teardown.
func (n *Node) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	n.cancel = cancel
	n.done = make(chan struct{})

	n.Pool.Start(runCtx)
	go n.Monitor.Run(runCtx)
	go n.runTimer(runCtx)

	go func() {
		<-runCtx.Done()
		close(n.done)
	}()
}

// Stop cancels the timer and monitor, then stops the worker pool,
// reversing Start's order per spec.md §9's reverse-teardown note. Messages
// still queued in mailboxes are not dispatched.
func (n *Node) Stop(ctx context.Context) error {
	if n.cancel != nil {
		n.cancel()
	}
	if n.done != nil {
		select {
		case <-n.done:
		case <-ctx.Done():
		}
	}
	n.Pool.Stop()
	if n.Harbor != nil {
		return n.Harbor.Close()
	}
	return nil
}

// runTimer is the source's timer thread: every ~2.5ms, wake one sleeping
// worker (busy = workerCount-1) so it can notice expired timeouts — the
// timer wheel itself is out of scope (spec.md §1), only the wake side
// effect is modeled.
func (n *Node) runTimer(ctx context.Context) {
	ticker := time.NewTicker(timerInterval)
	defer ticker.Stop()

	workers := len(n.Pool.Slots())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.Pool.Wakeup(workers - 1)
		}
	}
}
