package sim

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler drives an engine from a wall-clock ticker.
type Scheduler struct {
	engine   *Engine
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler creates a scheduler ticking e every interval. A non-positive
// interval falls back to the default.
func NewScheduler(e *Engine, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultConfig().TickInterval
	}
	return &Scheduler{engine: e, interval: interval, logger: logger}
}

// Run ticks the engine until ctx is cancelled. Each tick passes the real time
// since the previous one, so a stalled loop produces a single clamped step
// rather than a burst.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler started", "interval_ms", s.interval.Milliseconds())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped", "ticks", s.engine.Snapshot().Tick)
			return
		case now := <-ticker.C:
			s.engine.Tick(now.Sub(last).Seconds())
			last = now
		}
	}
}
