// Package propagation advances named bodies along their Kepler orbits and
// provides the worker pool shared with belt updates.
package propagation

import (
	"log/slog"
	"time"

	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/body"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/kepler"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/metrics"
)

// Propagator advances named bodies with the exact anomaly solve. It holds no
// state besides the gravitational parameter and the pool, so one instance can
// serve any number of bodies.
type Propagator struct {
	grav   kepler.Gravity
	pool   *WorkerPool
	config PropConfig
	logger *slog.Logger
}

// NewPropagator creates a propagator for the given gravity.
func NewPropagator(grav kepler.Gravity, config PropConfig, logger *slog.Logger) *Propagator {
	pool := NewWorkerPoolWithConfig(config, logger)
	metrics.SetWorkers(pool.Workers())
	return &Propagator{
		grav:   grav,
		pool:   pool,
		config: config,
		logger: logger,
	}
}

// Gravity returns the gravitational parameter in use.
func (p *Propagator) Gravity() kepler.Gravity {
	return p.grav
}

// Pool returns the shared worker pool.
func (p *Propagator) Pool() *WorkerPool {
	return p.pool
}

// Advance moves b forward by days: M ← wrap(M + n·days), then the position is
// recomputed. Revision is unchanged because the orbit itself is.
func (p *Propagator) Advance(b *body.Body, days float64) {
	n := p.grav.MeanMotion(b.Elements.A)
	b.Elements.M = kepler.Wrap(b.Elements.M + n*days)
	b.Refresh()
}

// AdvanceAll advances every body. Bodies are independent so the work is
// split across the pool when there are enough of them.
func (p *Propagator) AdvanceAll(bodies []*body.Body, days float64) {
	start := time.Now()
	p.pool.ForRange(len(bodies), func(lo, hi int) {
		for _, b := range bodies[lo:hi] {
			p.Advance(b, days)
		}
	})
	duration := time.Since(start)

	metrics.RecordPropagation(duration, len(bodies))
}

// AdvanceSatellites moves each satellite and re-anchors it on its parent's
// current position. Satellites whose parent is missing stay where they are
// and are logged once per call.
func (p *Propagator) AdvanceSatellites(sats []body.Satellite, bodies []*body.Body, index map[string]int, days float64) {
	for _, s := range sats {
		i, ok := index[s.Parent()]
		if !ok {
			p.logger.Warn("satellite parent not found", "satellite", s.Name(), "parent", s.Parent())
			continue
		}
		s.Advance(days, bodies[i].Position)
	}
}
