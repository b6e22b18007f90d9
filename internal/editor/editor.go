// Package editor re-derives orbital elements after an operator changes a
// body's tangential speed or plane tilt.
//
// An edit is an instantaneous impulse at the body's current position: the
// radius and radial velocity are kept, the tangential velocity is scaled, and
// the new ellipse through that point is solved from energy and angular
// momentum. Degenerate results (unbound energy, vanishing eccentricity,
// an apoapsis beyond the scene) are folded back into a bounded ellipse instead
// of being reported.
package editor

import (
	"math"

	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/body"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/kepler"
)

// Edit limits.
const (
	MinFactor  = 0.1
	MaxFactor  = 10.0
	MinTiltDeg = 0.0
	MaxTiltDeg = 30.0

	minSpeedRatio = 0.05
	maxSpeedRatio = 10.0
	boundEnergy   = -1e-9
	maxEccSq      = 0.999999
	circularEcc   = 1e-8
	boundMargin   = 1.2
	beltMargin    = 1.05
)

// SceneBound returns R_max: 1.2 times the larger of the widest baseline
// apoapsis and 1.05 times the outer belt edge. The result is fixed for the
// life of the scene; edits never move it.
func SceneBound(bodies []*body.Body, outerBeltEdge float64) float64 {
	return boundMargin * math.Max(body.MaxBaselineApoapsis(bodies), beltMargin*outerBeltEdge)
}

// Editor applies velocity and tilt edits. It remembers the last body it
// touched so ResetLast can undo it.
type Editor struct {
	grav  kepler.Gravity
	bound float64
	last  *body.Body
}

// New creates an editor bounded by rMax.
func New(grav kepler.Gravity, rMax float64) *Editor {
	return &Editor{grav: grav, bound: rMax}
}

// Bound returns R_max.
func (ed *Editor) Bound() float64 {
	return ed.bound
}

// Last returns the most recently edited body, or nil.
func (ed *Editor) Last() *body.Body {
	return ed.last
}

// Apply scales b's tangential speed by factor (clamped to [0.1, 10]) and sets
// its inclination to tiltDeg (clamped to [0, 30] degrees). The new apoapsis
// never exceeds the scene bound. Callers reject non-finite arguments.
func (ed *Editor) Apply(b *body.Body, factor, tiltDeg float64) {
	el := Solve(ed.grav, ed.bound, b.Elements, factor, tiltDeg)
	b.Commit(el)
	ed.last = b
}

// Solve returns the elements that result from an edit, without touching any
// body.
func Solve(grav kepler.Gravity, rMax float64, el kepler.Elements, factor, tiltDeg float64) kepler.Elements {
	mu := grav.Mu()
	a, e := el.A, el.E

	// Current state on the orbit.
	E := kepler.SolveEccentricAnomaly(el.M, e)
	theta := kepler.TrueAnomalyFromEccentric(E, e)
	r := kepler.Radius(a, e, E)

	p := a * (1 - e*e)
	h := math.Sqrt(mu * p)
	vt := h / r
	vr := (mu / h) * e * math.Sin(theta)

	// Impulse on the tangential component only.
	f := clamp(factor, MinFactor, MaxFactor)
	vt2 := clamp(vt*f, minSpeedRatio*vt, maxSpeedRatio*vt)

	eps := 0.5*(vt2*vt2+vr*vr) - mu/r
	if eps >= 0 {
		eps = boundEnergy
	}
	a2 := -mu / (2 * eps)

	h2 := r * vt2
	e2sq := clamp(1-h2*h2/(mu*a2), 0, maxEccSq)
	e2 := math.Sqrt(e2sq)

	if apo := a2 * (1 + e2); apo > rMax {
		a2 *= rMax / apo
	}

	// Place the body back on the new ellipse at the same radius.
	p2 := a2 * (1 - e2*e2)
	cosf := (p2/r - 1) / e2
	if e2 < circularEcc || math.IsNaN(cosf) || math.IsInf(cosf, 0) {
		cosf = math.Cos(theta)
	}
	cosf = clamp(cosf, -1, 1)
	sinf := math.Sqrt(1 - cosf*cosf)
	if vr < 0 {
		sinf = -sinf
	}
	f2 := math.Atan2(sinf, cosf)

	E2 := kepler.EccentricFromTrue(f2, e2)
	M2 := kepler.MeanFromEccentric(E2, e2)

	return kepler.Elements{
		A: a2,
		E: e2,
		I: clamp(tiltDeg, MinTiltDeg, MaxTiltDeg) * math.Pi / 180,
		M: M2,
	}
}

// ResetLast restores the most recently edited body to its baseline. It
// reports whether there was anything to reset.
func (ed *Editor) ResetLast() bool {
	if ed.last == nil {
		return false
	}
	ed.last.Reset()
	return true
}

// ResetAll restores every body to its baseline.
func (ed *Editor) ResetAll(bodies []*body.Body) {
	for _, b := range bodies {
		b.Reset()
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
