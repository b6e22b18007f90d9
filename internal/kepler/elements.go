// Package kepler implements the two-body orbit model shared by every body in
// the scene: element sets, the calibrated gravitational parameter, and the
// anomaly conversions needed to place a body on its ellipse.
//
// All functions are pure. Angles are radians, lengths are scene units and
// times are simulated days.
package kepler

import (
	"errors"
	"fmt"
	"math"
)

// Vec3 is a position in scene coordinates (X, Y, Z).
type Vec3 [3]float64

// Elements is the reduced element set used by the engine. The orbital plane
// is tilted about the fixed +X axis by I; there is no ascending node or
// argument of periapsis.
type Elements struct {
	A float64 `json:"a"` // semi-major axis
	E float64 `json:"e"` // eccentricity, [0, 1)
	I float64 `json:"i"` // inclination
	M float64 `json:"m"` // mean anomaly, [0, 2π)
}

// SemiParameter returns p = a(1 − e²).
func (el Elements) SemiParameter() float64 {
	return el.A * (1 - el.E*el.E)
}

// Apoapsis returns a(1 + e).
func (el Elements) Apoapsis() float64 {
	return el.A * (1 + el.E)
}

// Periapsis returns a(1 − e).
func (el Elements) Periapsis() float64 {
	return el.A * (1 - el.E)
}

// Validate reports whether the elements describe a bounded ellipse.
func (el Elements) Validate() error {
	for _, v := range []float64{el.A, el.E, el.I, el.M} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("non-finite orbital element")
		}
	}
	if el.A <= 0 {
		return fmt.Errorf("semi-major axis %g must be positive", el.A)
	}
	if el.E < 0 || el.E >= 1 {
		return fmt.Errorf("eccentricity %g outside [0, 1)", el.E)
	}
	return nil
}

// String implements fmt.Stringer.
func (el Elements) String() string {
	return fmt.Sprintf("a=%.4f e=%.6f i=%.3f° M=%.4f", el.A, el.E, el.I*180/math.Pi, el.M)
}
