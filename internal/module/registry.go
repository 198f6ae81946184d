// Package module is the native-module registry, spec.md §4.1/§6: the
// table of named service constructors a LAUNCH command instantiates.
// skynet_module.c resolves a module by dlopen'ing a shared object the
// first time its name is seen, then serving every later lookup from an
// in-process table; Go has no portable dlopen; a Factory is registered at
// process-init time instead, but the "resolve once, serve hits from cache"
// shape is kept via an LRU lookup cache in front of the constructor table.
package module

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/villager-coder/skynet-go/internal/actor"
)

// Instance is a native module's per-service object: the Go analogue of
// skynet_module's create/init/release/signal quartet. Create is implicit
// (the Factory itself is the constructor); Init runs inside actor.Create's
// initFn; Release and Signal are optional.
type Instance interface {
	// Init runs once, before the context's mailbox is activated. A
	// non-nil error aborts creation (spec.md §4.4, ServiceInitFailure).
	Init(ctx *actor.Context, parm string) error
}

// Releaser is implemented by instances that hold resources needing
// explicit teardown. Nothing in the runtime calls Release when a context
// is destroyed.
type Releaser interface {
	Release()
}

// Signaler is implemented by instances that react to the admin SIGNAL
// command (skynet_module_instance_signal), e.g. to interrupt a blocking
// native call.
type Signaler interface {
	Signal(code int)
}

// Factory constructs a fresh, uninitialized Instance for one service.
type Factory func() Instance

// Registry maps module names to factories and caches recent name lookups.
// The cache is an optimization only — Query always falls back to the
// authoritative map on a miss — mirroring skynet_module_query's
// double-checked lock around a linear scan.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory

	lookups *lru.Cache[string, Factory]
}

// New builds a registry whose lookup cache holds up to cacheSize recently
// resolved module names.
func New(cacheSize int) *Registry {
	c, _ := lru.New[string, Factory](cacheSize)
	return &Registry{
		factories: make(map[string]Factory),
		lookups:   c,
	}
}

// Register binds name to factory. Re-registering the same name is a
// programming error (module names are fixed at build time, unlike
// services), so it panics rather than silently shadowing.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		panic(fmt.Sprintf("module: %q already registered", name))
	}
	r.factories[name] = factory
}

// Query resolves name to a Factory, consulting the LRU cache first.
func (r *Registry) Query(name string) (Factory, bool) {
	if f, ok := r.lookups.Get(name); ok {
		return f, true
	}

	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}

	r.lookups.Add(name, f)
	return f, true
}

// Count returns the number of distinct registered module names.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories)
}
