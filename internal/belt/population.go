package belt

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/kepler"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/transform"
)

// Runner splits [0, n) into sub-ranges and runs fn over each, returning when
// all are done. *propagation.WorkerPool implements it.
type Runner interface {
	ForRange(n int, fn func(lo, hi int))
}

// Population is a fixed-size set of belt members in struct-of-arrays form.
// It is never resized; a density change builds a new Population.
type Population struct {
	ID   string
	Kind Kind

	a, e, inc, m, n []float64
	pos             []kepler.Vec3

	cursor int
	chunk  int

	// Per-tick scratch read by the prebuilt range funcs, so Advance does not
	// allocate closures.
	days     float64
	chunkLo  int
	advanceM func(lo, hi int)
	placeFn  func(lo, hi int)
}

func newPopulation(id string, kind Kind, count int) *Population {
	p := &Population{
		ID:    id,
		Kind:  kind,
		a:     make([]float64, count),
		e:     make([]float64, count),
		inc:   make([]float64, count),
		m:     make([]float64, count),
		n:     make([]float64, count),
		pos:   make([]kepler.Vec3, count),
		chunk: DefaultChunkPolicy.ChunkSize(count),
	}
	p.advanceM = p.advanceRange
	p.placeFn = p.placeChunk
	return p
}

// SetChunkPolicy recomputes the chunk size. The cursor is kept.
func (p *Population) SetChunkPolicy(cp ChunkPolicy) {
	p.chunk = cp.ChunkSize(len(p.m))
}

// Len returns the member count.
func (p *Population) Len() int { return len(p.m) }

// Chunk returns how many positions are recomputed per tick.
func (p *Population) Chunk() int { return p.chunk }

// Cursor returns the index of the next member whose position is recomputed.
func (p *Population) Cursor() int { return p.cursor }

// Advance moves every member's mean anomaly forward by days and recomputes
// positions for the members in [cursor, cursor+chunk). The cursor wraps to 0
// once it reaches the end. With a non-nil runner both passes are split
// across workers; the cursor is written once, after all work is done.
func (p *Population) Advance(days float64, r Runner) {
	n := len(p.m)
	if n == 0 {
		return
	}

	p.days = days
	run(r, n, p.advanceM)

	lo := p.cursor
	hi := min(n, lo+p.chunk)
	p.chunkLo = lo
	run(r, hi-lo, p.placeFn)

	if hi >= n {
		hi = 0
	}
	p.cursor = hi
}

func run(r Runner, n int, fn func(lo, hi int)) {
	if r == nil {
		fn(0, n)
		return
	}
	r.ForRange(n, fn)
}

func (p *Population) advanceRange(lo, hi int) {
	d := p.days
	for i := lo; i < hi; i++ {
		p.m[i] = kepler.Wrap(p.m[i] + p.n[i]*d)
	}
}

func (p *Population) placeChunk(lo, hi int) {
	p.placeRange(p.chunkLo+lo, p.chunkLo+hi)
}

// placeRange recomputes positions with the series true anomaly and the conic
// radius p/(1 + e·cos f), so every cached point lies on its member's ellipse.
func (p *Population) placeRange(lo, hi int) {
	for i := lo; i < hi; i++ {
		e := p.e[i]
		f := kepler.ApproxTrueAnomaly(p.m[i], e)
		s, c := math.Sincos(f)
		r := p.a[i] * (1 - e*e) / (1 + e*c)
		p.pos[i] = kepler.Vec3(transform.PlaneTilt(r*c, r*s, p.inc[i]))
	}
}

// Refresh recomputes every position. Used after generation and when a full,
// unchunked frame is requested.
func (p *Population) Refresh() {
	p.placeRange(0, len(p.m))
}

// Positions returns the cached positions. The slice is owned by the
// population and is overwritten by Advance.
func (p *Population) Positions() []kepler.Vec3 {
	return p.pos
}

// CopyPositions appends the cached positions to dst[:0] and returns it.
func (p *Population) CopyPositions(dst []kepler.Vec3) []kepler.Vec3 {
	return append(dst[:0], p.pos...)
}

// Member returns the elements of member i.
func (p *Population) Member(i int) kepler.Elements {
	return kepler.Elements{A: p.a[i], E: p.e[i], I: p.inc[i], M: p.m[i]}
}

// MeanMotion returns member i's mean motion in radians per day.
func (p *Population) MeanMotion(i int) float64 {
	return p.n[i]
}

// Stats summarises a population for diagnostics.
type Stats struct {
	ID     string  `json:"id"`
	Kind   string  `json:"kind"`
	Count  int     `json:"count"`
	Chunk  int     `json:"chunk"`
	Cursor int     `json:"cursor"`
	AMin   float64 `json:"a_min"`
	AMax   float64 `json:"a_max"`
	EMax   float64 `json:"e_max"`
}

// Stats returns range and scheduling information.
func (p *Population) Stats() Stats {
	st := Stats{ID: p.ID, Kind: p.Kind.String(), Count: len(p.m), Chunk: p.chunk, Cursor: p.cursor}
	if len(p.a) == 0 {
		return st
	}
	st.AMin, st.AMax = floats.Min(p.a), floats.Max(p.a)
	st.EMax = floats.Max(p.e)
	return st
}
