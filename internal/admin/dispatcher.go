// Package admin implements the administrative command surface of
// spec.md §6: a single string-keyed dispatcher callable from any service
// callback (the Go analogue of skynet_command). The commands are reached
// in-process only: internal/admin/http serves read-only registry/queue
// stats and internal/admin/grpcsrv serves gRPC health and reflection; neither
// runs these commands.
package admin

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/villager-coder/skynet-go/internal/actor"
	"github.com/villager-coder/skynet-go/internal/env"
	"github.com/villager-coder/skynet-go/internal/handle"
	"github.com/villager-coder/skynet-go/internal/module"
	"github.com/villager-coder/skynet-go/internal/mq"
)

// Dispatcher answers the fixed REG/QUERY/EXIT/KILL/LAUNCH/GETENV/SETENV/
// STARTTIME/TIME/NOW/CLEARSTALL/SIGNAL command set against a single node's
// registry, module table and environment store.
type Dispatcher struct {
	registry  *actor.Registry
	global    *mq.Global
	modules   *module.Registry
	store     *env.Store
	startTime time.Time
}

// New builds a dispatcher bound to one node's core components.
func New(registry *actor.Registry, global *mq.Global, modules *module.Registry, store *env.Store, startTime time.Time) *Dispatcher {
	return &Dispatcher{registry: registry, global: global, modules: modules, store: store, startTime: startTime}
}

// Dispatch runs cmd with a single space-separated argument string, in the
// service callback's own goroutine (skynet_command never blocks across a
// dispatch turn, and neither does any command here).
func (d *Dispatcher) Dispatch(caller *actor.Context, cmd, args string) (string, error) {
	switch cmd {
	case "REG":
		return d.reg(caller, args)
	case "QUERY":
		return d.query(args)
	case "EXIT":
		return d.exit(caller, args)
	case "KILL":
		return d.kill(args)
	case "LAUNCH":
		return d.launch(args)
	case "GETENV":
		return d.store.Get(args), nil
	case "SETENV":
		return d.setenv(args)
	case "STARTTIME":
		return strconv.FormatInt(d.startTime.Unix(), 10), nil
	case "TIME", "NOW":
		return strconv.FormatInt(time.Since(d.startTime).Milliseconds(), 10), nil
	case "CLEARSTALL":
		return d.clearStall(args)
	case "SIGNAL":
		return d.signal(args)
	default:
		return "", actorProtocolErr(cmd)
	}
}

func actorProtocolErr(cmd string) error {
	return fmt.Errorf("admin: unknown command %q", cmd)
}

// reg binds a name to a handle. A single "<name>" names the caller;
// "<name> <handle>" names an arbitrary handle. With no argument it
// returns an error.
func (d *Dispatcher) reg(caller *actor.Context, args string) (string, error) {
	fields := strings.Fields(args)
	switch len(fields) {
	case 0:
		return "", fmt.Errorf("admin: REG requires a name")
	case 1:
		if caller == nil {
			return "", fmt.Errorf("admin: REG with no handle requires a caller context")
		}
		if !d.registry.BindName(fields[0], caller.Handle()) {
			return "", fmt.Errorf("admin: name %q already bound", fields[0])
		}
		return caller.Handle().String(), nil
	default:
		h, err := parseHandle(fields[1])
		if err != nil {
			return "", err
		}
		if !d.registry.BindName(fields[0], h) {
			return "", fmt.Errorf("admin: name %q already bound", fields[0])
		}
		return h.String(), nil
	}
}

func (d *Dispatcher) query(name string) (string, error) {
	h, ok := d.registry.FindName(name)
	if !ok {
		return "", fmt.Errorf("admin: name %q not bound", name)
	}
	return h.String(), nil
}

// exit retires the caller's own handle, the common "I'm done" path a
// service callback uses on itself.
func (d *Dispatcher) exit(caller *actor.Context, _ string) (string, error) {
	if caller == nil {
		return "", fmt.Errorf("admin: EXIT requires a caller context")
	}
	caller.MarkRetiring()
	d.registry.Retire(caller.Handle())
	return "", nil
}

// kill retires an arbitrary handle, the operator-driven counterpart to EXIT.
func (d *Dispatcher) kill(args string) (string, error) {
	h, err := parseHandle(args)
	if err != nil {
		return "", err
	}
	ctx, ok := d.registry.Lookup(h)
	if !ok {
		return "", fmt.Errorf("admin: handle %s not found", h)
	}
	defer ctx.Release()
	ctx.MarkRetiring()
	d.registry.Retire(h)
	return "", nil
}

// launch instantiates a named module: "<module> [parm...]". The new
// service's context is created but its Init runs synchronously on this
// goroutine, matching Create's contract; init failure surfaces as an error
// rather than a handle.
func (d *Dispatcher) launch(args string) (string, error) {
	fields := strings.SplitN(strings.TrimSpace(args), " ", 2)
	if len(fields) == 0 || fields[0] == "" {
		return "", fmt.Errorf("admin: LAUNCH requires a module name")
	}
	name := fields[0]
	var parm string
	if len(fields) == 2 {
		parm = fields[1]
	}

	factory, ok := d.modules.Query(name)
	if !ok {
		return "", fmt.Errorf("admin: module %q not registered", name)
	}
	inst := factory()

	ctx, err := actor.Create(d.registry, d.global, newModuleCallback(inst), inst, func(c *actor.Context) error {
		return inst.Init(c, parm)
	})
	if err != nil {
		return "", err
	}
	return ctx.Handle().String(), nil
}

func (d *Dispatcher) setenv(args string) (string, error) {
	fields := strings.SplitN(args, " ", 2)
	if len(fields) != 2 {
		return "", fmt.Errorf("admin: SETENV requires a key and a value")
	}
	if !d.store.TrySet(fields[0], fields[1]) {
		return "", fmt.Errorf("admin: env key %q already set", fields[0])
	}
	return "", nil
}

func (d *Dispatcher) clearStall(args string) (string, error) {
	h, err := parseHandle(args)
	if err != nil {
		return "", err
	}
	ctx, ok := d.registry.Lookup(h)
	if !ok {
		return "", fmt.Errorf("admin: handle %s not found", h)
	}
	defer ctx.Release()
	ctx.SetEndlessLoop(false)
	return "", nil
}

// signal requests the interrupt trap on a handle (spec.md §4.6,
// skynet_module_instance_signal's administrative trigger): the next
// message the worker pool dispatches into that service surfaces the
// signal to its module instance, if one is registered and implements
// Signaler, and clears the trap once delivered.
func (d *Dispatcher) signal(args string) (string, error) {
	h, err := parseHandle(args)
	if err != nil {
		return "", err
	}
	ctx, ok := d.registry.Lookup(h)
	if !ok {
		return "", fmt.Errorf("admin: handle %s not found", h)
	}
	defer ctx.Release()
	if !ctx.Trap().Request() {
		return "", fmt.Errorf("admin: handle %s already has a pending trap", h)
	}
	return "", nil
}

func parseHandle(s string) (handle.Handle, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), ":")
	n, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("admin: invalid handle %q: %w", s, err)
	}
	return handle.Handle(n), nil
}

// newModuleCallback adapts a module.Instance's own message handling, if
// any, into an actor.Callback. Modules that don't implement Handler simply
// discard every message after Init (a config-only service).
func newModuleCallback(inst module.Instance) actor.Callback {
	handler, ok := inst.(Handler)
	if !ok {
		return func(*actor.Context, mq.Kind, uint32, handle.Handle, []byte) bool { return false }
	}
	return handler.Handle
}

// Handler is implemented by modules that process messages after Init,
// i.e. the vast majority of real services.
type Handler interface {
	Handle(ctx *actor.Context, kind mq.Kind, session uint32, source handle.Handle, payload []byte) bool
}
