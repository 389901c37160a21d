// Package reaper removes engine containers that carry our managed label but
// no longer belong to a live run. Orphans appear after a daemon crash or
// restart, and whenever an engine subprocess dies without taking its
// container along.
package reaper

import (
	"context"
	"log/slog"
	"time"

	"github.com/runbox-dev/runbox/internal/engine"
)

// Engine is the janitor's view of the container engine.
type Engine interface {
	ListManaged(ctx context.Context) ([]engine.ContainerInfo, error)
	RemoveByName(ctx context.Context, name string) error
}

// ActiveSet answers whether a run is currently live.
type ActiveSet interface {
	Has(runID string) bool
}

type Reaper struct {
	engine   Engine
	active   ActiveSet
	interval time.Duration
	logger   *slog.Logger
}

func New(eng Engine, active ActiveSet, interval time.Duration, logger *slog.Logger) *Reaper {
	return &Reaper{
		engine:   eng,
		active:   active,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps once immediately, then on every tick until the context ends.
// The startup sweep is the crash-recovery path: after a restart every
// managed container is an orphan.
func (r *Reaper) Run(ctx context.Context) {
	r.logger.Info("reaper started", "interval", r.interval)

	r.sweep(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reaper stopped")
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	containers, err := r.engine.ListManaged(ctx)
	if err != nil {
		r.logger.Error("reaper: list containers", "error", err)
		return
	}

	reaped := 0
	for _, ctr := range containers {
		if ctr.RunID != "" && r.active.Has(ctr.RunID) {
			continue
		}

		r.logger.Warn("reaping orphaned container", "container", ctr.Name, "run_id", ctr.RunID)
		if err := r.engine.RemoveByName(ctx, ctr.Name); err != nil {
			r.logger.Error("reaper: remove container", "container", ctr.Name, "error", err)
			continue
		}
		reaped++
	}

	if reaped > 0 {
		r.logger.Info("reaper: removed orphans", "count", reaped)
	}
}
