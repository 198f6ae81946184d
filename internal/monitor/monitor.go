package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/villager-coder/skynet-go/internal/handle"
)

// Interval is how often the monitor samples every slot, matching
// spec.md §4.5's "every five seconds."
const Interval = 5 * time.Second

// Registry is the subset of actor.Registry the monitor needs: resolving a
// destination handle to flag it as stuck. Declared locally to avoid the
// monitor package depending on actor for anything but this one call.
type Registry interface {
	MarkEndlessLoop(h handle.Handle)
}

// Monitor watches a fixed set of worker Slots and flags a service whose
// worker has not advanced its slot's version across a full sampling
// interval — i.e. it has been processing the same message for at least
// that long. Detection is purely observational: the monitor never
// cancels the stuck callback (spec.md §4.5).
type Monitor struct {
	slots    []*Slot
	registry Registry
	logger   *slog.Logger
}

// New builds a monitor over the given slots (one per worker).
func New(slots []*Slot, registry Registry, logger *slog.Logger) *Monitor {
	return &Monitor{slots: slots, registry: registry, logger: logger}
}

// Run samples every slot once per Interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check()
		}
	}
}

func (m *Monitor) check() {
	for _, s := range m.slots {
		version, source, dest := s.snapshot()
		if version == s.checkVersion {
			if !dest.Zero() {
				m.logger.Warn("service appears stuck",
					slog.String("source", source.String()),
					slog.String("destination", dest.String()))
				if m.registry != nil {
					m.registry.MarkEndlessLoop(dest)
				}
			}
		} else {
			s.checkVersion = version
		}
	}
}
