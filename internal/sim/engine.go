// Package sim wires the orbit model into a running scene: named bodies,
// their satellites and the belt populations, driven by a clock and mutated by
// operator edits.
package sim

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/belt"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/body"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/clock"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/editor"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/kepler"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/metrics"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/propagation"
)

// Controller is the set of inputs the engine accepts.
type Controller interface {
	Tick(elapsedSeconds float64)
	ApplyEdit(bodyID string, factor, tiltDeg float64) error
	ResetLast()
	ResetAll()
	SetBeltDensity(beltID string, count int) error
	SetSpeed(sliderPos float64) error
}

// Scene is the read side of the engine.
type Scene interface {
	Snapshot() *Snapshot
	BeltPositions(beltID string, dst []kepler.Vec3) ([]kepler.Vec3, error)
	Speed() float64
	Ready() bool
}

// jupiter is the reference body for the Trojan and Hilda swarms.
const jupiter = "Jupiter"

// Engine owns the scene. Every method is a single-writer critical section;
// readers that only need a consistent view use Snapshot, which never blocks.
type Engine struct {
	mu sync.Mutex

	cfg    Config
	logger *slog.Logger

	grav   kepler.Gravity
	prop   *propagation.Propagator
	editor *editor.Editor
	clock  *clock.Clock

	bodies    []*body.Body
	index     map[string]int
	sats      []body.Satellite
	belts     []*belt.Population
	beltIndex map[string]int
	rebuilds  uint64

	ticks uint64
	snap  atomic.Pointer[Snapshot]
}

// NewEngine builds the scene from cfg and publishes the initial snapshot.
func NewEngine(cfg Config, logger *slog.Logger) (*Engine, error) {
	if len(cfg.Planets) == 0 {
		cfg.Planets = body.Planets
	}
	if cfg.Chunk == (belt.ChunkPolicy{}) {
		cfg.Chunk = belt.DefaultChunkPolicy
	}
	if cfg.MaxBeltCount <= 0 {
		cfg.MaxBeltCount = DefaultConfig().MaxBeltCount
	}
	if cfg.AsteroidCount < 0 || cfg.KuiperCount < 0 {
		return nil, fmt.Errorf("belt counts %d/%d: %w", cfg.AsteroidCount, cfg.KuiperCount, ErrInvalidDensity)
	}

	grav := body.DefaultGravity()
	bodies := body.NewPlanets(cfg.Planets)
	index := body.Index(bodies)
	if _, ok := index[jupiter]; !ok {
		return nil, fmt.Errorf("planet catalog has no %s: %w", jupiter, ErrUnknownBody)
	}

	e := &Engine{
		cfg:    cfg,
		logger: logger,
		grav:   grav,
		prop:   propagation.NewPropagator(grav, cfg.Propagation, logger),
		editor: editor.New(grav, editor.SceneBound(bodies, belt.KuiperOuterEdgeAU*body.AUToScene)),
		clock:  clock.New(cfg.Clock),
		bodies: bodies,
		index:  index,
	}
	if cfg.Satellites {
		e.sats = body.DefaultSatellites()
		e.prop.AdvanceSatellites(e.sats, e.bodies, e.index, 0)
	}

	start := time.Now()
	specs := belt.Catalog(cfg.AsteroidCount, cfg.KuiperCount)
	e.belts = make([]*belt.Population, len(specs))
	e.beltIndex = make(map[string]int, len(specs))
	for i, spec := range specs {
		p, err := e.generate(spec, i)
		if err != nil {
			return nil, err
		}
		e.belts[i] = p
		e.beltIndex[spec.ID] = i
	}

	logger.Info("engine initialized",
		"bodies", len(bodies),
		"satellites", len(e.sats),
		"belts", len(e.belts),
		"scene_bound", e.editor.Bound(),
		"workers", e.prop.Pool().Workers(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	metrics.SetSpeed(e.clock.Rate())
	e.publish()
	return e, nil
}

// generate samples the population in catalog slot, phase-locked to Jupiter's
// current mean anomaly. Caller holds mu or has exclusive access.
func (e *Engine) generate(spec belt.Spec, slot int) (*belt.Population, error) {
	refM := e.bodies[e.index[jupiter]].Elements.M
	seed := e.cfg.Seed + e.rebuilds<<8 + uint64(slot)
	p, err := belt.Generate(spec, e.grav, refM, belt.NewSource(seed))
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", spec.ID, err)
	}
	p.SetChunkPolicy(e.cfg.Chunk)
	metrics.SetBeltPopulation(spec.ID, p.Len(), p.Chunk())
	return p, nil
}

// Tick advances the scene by elapsedSeconds of wall time: named bodies with
// the exact solver, then satellites, then one chunk of every belt.
func (e *Engine) Tick(elapsedSeconds float64) {
	start := time.Now()

	e.mu.Lock()
	days := e.clock.Step(elapsedSeconds)
	e.prop.AdvanceAll(e.bodies, days)
	e.prop.AdvanceSatellites(e.sats, e.bodies, e.index, days)
	for _, p := range e.belts {
		p.Advance(days, e.prop.Pool())
	}
	e.ticks++
	e.publish()
	e.mu.Unlock()

	metrics.ObserveTick(time.Since(start))
	metrics.SetSimulatedDays(e.clock.Days())
}

// ApplyEdit scales the tangential speed of bodyID by factor and sets its
// tilt in degrees. Out-of-range values are clamped; non-finite ones are
// rejected with ErrInvalidEdit.
func (e *Engine) ApplyEdit(bodyID string, factor, tiltDeg float64) error {
	if !finite(factor) || !finite(tiltDeg) {
		metrics.IncEdits("rejected")
		return fmt.Errorf("factor=%g tilt=%g: %w", factor, tiltDeg, ErrInvalidEdit)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	i, ok := e.index[bodyID]
	if !ok {
		metrics.IncEdits("rejected")
		return fmt.Errorf("%q: %w", bodyID, ErrUnknownBody)
	}
	b := e.bodies[i]
	before := b.Elements
	e.editor.Apply(b, factor, tiltDeg)
	e.prop.AdvanceSatellites(e.sats, e.bodies, e.index, 0)
	e.publish()

	metrics.IncEdits("applied")
	e.logger.Info("orbit edited",
		"body", bodyID,
		"factor", factor,
		"tilt_deg", tiltDeg,
		"a_before", before.A,
		"a_after", b.Elements.A,
		"e_after", b.Elements.E,
		"apoapsis", b.Elements.Apoapsis(),
	)
	return nil
}

// ResetLast restores the most recently edited body to its baseline.
func (e *Engine) ResetLast() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.editor.ResetLast() {
		return
	}
	e.prop.AdvanceSatellites(e.sats, e.bodies, e.index, 0)
	e.publish()
	metrics.IncEdits("reset")
	e.logger.Info("orbit reset", "body", e.editor.Last().Name)
}

// ResetAll restores every named body to its baseline.
func (e *Engine) ResetAll() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.editor.ResetAll(e.bodies)
	e.prop.AdvanceSatellites(e.sats, e.bodies, e.index, 0)
	e.publish()
	metrics.IncEdits("reset")
	e.logger.Info("all orbits reset", "bodies", len(e.bodies))
}

// SetBeltDensity rebuilds a belt with count members. Resizing the asteroid
// belt also rebuilds the Trojan and Hilda swarms, whose sizes follow it.
func (e *Engine) SetBeltDensity(beltID string, count int) error {
	if count < 0 || count > e.cfg.MaxBeltCount {
		return fmt.Errorf("%s count %d outside [0, %d]: %w", beltID, count, e.cfg.MaxBeltCount, ErrInvalidDensity)
	}

	var specs []belt.Spec
	switch beltID {
	case belt.Asteroid:
		specs = append([]belt.Spec{belt.AsteroidSpec(count)}, belt.DerivedSpecs(count)...)
	case belt.Kuiper:
		specs = []belt.Spec{belt.KuiperSpec(count)}
	default:
		if _, ok := e.beltIndex[beltID]; ok {
			return fmt.Errorf("%q follows the asteroid belt and cannot be sized directly: %w", beltID, ErrUnknownBelt)
		}
		return fmt.Errorf("%q: %w", beltID, ErrUnknownBelt)
	}

	start := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()

	e.rebuilds++
	built := make([]*belt.Population, len(specs))
	for i, spec := range specs {
		p, err := e.generate(spec, e.beltIndex[spec.ID])
		if err != nil {
			return err
		}
		built[i] = p
	}
	for i, spec := range specs {
		e.belts[e.beltIndex[spec.ID]] = built[i]
		metrics.IncBeltRebuilds(spec.ID)
	}
	switch beltID {
	case belt.Asteroid:
		e.cfg.AsteroidCount = count
	case belt.Kuiper:
		e.cfg.KuiperCount = count
	}
	e.publish()

	e.logger.Info("belt rebuilt",
		"belt", beltID,
		"count", count,
		"populations", len(specs),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// SetSpeed sets the rate from a slider position in [0, 100].
func (e *Engine) SetSpeed(sliderPos float64) error {
	if !finite(sliderPos) {
		return fmt.Errorf("slider %g: %w", sliderPos, ErrInvalidSpeed)
	}

	e.mu.Lock()
	e.clock.SetSlider(sliderPos)
	rate := e.clock.Rate()
	e.publish()
	e.mu.Unlock()

	metrics.SetSpeed(rate)
	e.logger.Info("speed changed", "slider", sliderPos, "days_per_second", rate)
	return nil
}

// Speed returns the current rate in days per second.
func (e *Engine) Speed() float64 {
	return e.Snapshot().Rate
}

// Ready reports whether at least one tick has run.
func (e *Engine) Ready() bool {
	return e.Snapshot().Tick > 0
}

// Snapshot returns the latest published view.
func (e *Engine) Snapshot() *Snapshot {
	return e.snap.Load()
}

// BodyPositions returns the current position of every named body.
func (e *Engine) BodyPositions() map[string]kepler.Vec3 {
	s := e.Snapshot()
	out := make(map[string]kepler.Vec3, len(s.Bodies)+len(s.Satellites))
	for _, b := range s.Bodies {
		out[b.Name] = b.Position
	}
	for _, sat := range s.Satellites {
		out[sat.Name] = sat.Position
	}
	return out
}

// BodyElements returns the live elements of every named body.
func (e *Engine) BodyElements() map[string]kepler.Elements {
	s := e.Snapshot()
	out := make(map[string]kepler.Elements, len(s.Bodies))
	for _, b := range s.Bodies {
		out[b.Name] = b.Elements
	}
	return out
}

// OrbitKeys returns the path key of every named body.
func (e *Engine) OrbitKeys() []body.PathKey {
	return e.Snapshot().OrbitKeys()
}

// BeltPositions copies the cached positions of a belt into dst, reusing its
// capacity.
func (e *Engine) BeltPositions(beltID string, dst []kepler.Vec3) ([]kepler.Vec3, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	i, ok := e.beltIndex[beltID]
	if !ok {
		return dst[:0], fmt.Errorf("%q: %w", beltID, ErrUnknownBelt)
	}
	return e.belts[i].CopyPositions(dst), nil
}

// BeltStats returns diagnostics for every population.
func (e *Engine) BeltStats() []belt.Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]belt.Stats, len(e.belts))
	for i, p := range e.belts {
		out[i] = p.Stats()
	}
	return out
}

// publish builds a new Snapshot. Caller holds mu.
func (e *Engine) publish() {
	s := &Snapshot{
		Tick:       e.ticks,
		Days:       e.clock.Days(),
		Date:       e.clock.Date(),
		Rate:       e.clock.Rate(),
		Slider:     e.clock.Slider(),
		Bound:      e.editor.Bound(),
		Bodies:     make([]BodyState, len(e.bodies)),
		Satellites: make([]SatelliteState, len(e.sats)),
		Belts:      make([]BeltState, len(e.belts)),
	}
	for i, b := range e.bodies {
		s.Bodies[i] = BodyState{
			Name:         b.Name,
			Position:     b.Position,
			Elements:     b.Elements,
			Baseline:     b.Baseline,
			VisualRadius: b.VisualRadius,
			Revision:     b.Revision,
		}
	}
	for i, sat := range e.sats {
		s.Satellites[i] = SatelliteState{Name: sat.Name(), Parent: sat.Parent(), Position: sat.Position()}
	}
	for i, p := range e.belts {
		s.Belts[i] = BeltState{ID: p.ID, Kind: p.Kind.String(), Count: p.Len(), Chunk: p.Chunk(), Cursor: p.Cursor()}
	}
	e.snap.Store(s)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
