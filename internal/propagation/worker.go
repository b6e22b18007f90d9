package propagation

import (
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// WorkerPool splits index ranges across a bounded number of goroutines.
// A nil *WorkerPool runs everything on the caller.
type WorkerPool struct {
	workers  int
	minSplit int
	logger   *slog.Logger
}

// NewWorkerPool creates a worker pool with the given number of workers.
func NewWorkerPool(workers int, logger *slog.Logger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{
		workers:  workers,
		minSplit: DefaultMinSplit,
		logger:   logger,
	}
}

// NewWorkerPoolWithConfig creates a worker pool from a PropConfig.
func NewWorkerPoolWithConfig(cfg PropConfig, logger *slog.Logger) *WorkerPool {
	wp := NewWorkerPool(cfg.Workers, logger)
	if cfg.MinSplit > 0 {
		wp.minSplit = cfg.MinSplit
	}
	return wp
}

// Workers returns the pool size.
func (wp *WorkerPool) Workers() int {
	if wp == nil {
		return 1
	}
	return wp.workers
}

// ForRange calls fn over disjoint sub-ranges [lo, hi) covering [0, n) and
// returns once every call has finished. Sub-ranges run concurrently when the
// pool has more than one worker and n is large enough to be worth it; fn must
// only touch indices inside its own range.
func (wp *WorkerPool) ForRange(n int, fn func(lo, hi int)) {
	if n <= 0 {
		return
	}
	if wp == nil || wp.workers == 1 || n < wp.minSplit {
		fn(0, n)
		return
	}

	parts := min(wp.workers, n/max(1, wp.minSplit/2))
	if parts < 2 {
		fn(0, n)
		return
	}

	var g errgroup.Group
	g.SetLimit(wp.workers)
	step := (n + parts - 1) / parts
	for lo := 0; lo < n; lo += step {
		lo, hi := lo, min(lo+step, n)
		g.Go(func() error {
			fn(lo, hi)
			return nil
		})
	}
	// fn cannot fail; Wait is only the join.
	_ = g.Wait()
}
