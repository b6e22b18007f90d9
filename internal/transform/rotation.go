// Package transform provides the frame rotations used to place orbits in the
// scene.
//
// Scene axes: X and Z span the reference plane, Y is "up". Planet and belt
// orbits use a single tilt about +X (PlaneTilt). The lunar extension uses the
// full 3-1-3 orientation r = R3(Ω)·R1(i)·R3(ω)·r_pqw, applied to a
// perifocal vector whose Z component is zero.
//
// Reference: Vallado, "Fundamentals of Astrodynamics and Applications", Ch. 2
// (perifocal to inertial rotation).
package transform

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// PlaneTilt maps perifocal coordinates (xp, yp) into the scene with the orbital
// plane rotated about +X by i:
//
//	x = xp
//	y = yp·sin i
//	z = yp·cos i
//
// At i = 0 the orbit lies in the X–Z plane.
func PlaneTilt(xp, yp, i float64) [3]float64 {
	s, c := math.Sincos(i)
	return [3]float64{xp, yp * s, yp * c}
}

// R1 returns the rotation matrix about the X axis by angle a (radians).
func R1(a float64) *mat.Dense {
	s, c := math.Sincos(a)
	return mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, c, -s,
		0, s, c,
	})
}

// R3 returns the rotation matrix about the Z axis by angle a (radians).
func R3(a float64) *mat.Dense {
	s, c := math.Sincos(a)
	return mat.NewDense(3, 3, []float64{
		c, -s, 0,
		s, c, 0,
		0, 0, 1,
	})
}

// Orientation is a precomputed perifocal-to-parent rotation. Build it once per
// orbit; Apply is allocation free.
type Orientation struct {
	m [9]float64
}

// NewOrientation composes R3(node)·R1(inc)·R3(argPeri).
func NewOrientation(node, inc, argPeri float64) Orientation {
	var tmp, out mat.Dense
	tmp.Mul(R1(inc), R3(argPeri))
	out.Mul(R3(node), &tmp)

	var o Orientation
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			o.m[3*r+c] = out.At(r, c)
		}
	}
	return o
}

// Apply rotates the perifocal vector (x, y, 0).
func (o Orientation) Apply(x, y float64) [3]float64 {
	return [3]float64{
		o.m[0]*x + o.m[1]*y,
		o.m[3]*x + o.m[4]*y,
		o.m[6]*x + o.m[7]*y,
	}
}

// Matrix returns the rotation as a gonum matrix.
func (o Orientation) Matrix() *mat.Dense {
	m := o.m
	return mat.NewDense(3, 3, m[:])
}

// CircularTilted places a point on a circle of radius r at phase theta, with
// the circle's plane rotated about +X by inc:
//
//	(r cos θ, r sin θ sin inc, −r sin θ cos inc)
//
// This is a pivot spun about +Y by θ and then tilted about +X.
func CircularTilted(r, theta, inc float64) [3]float64 {
	st, ct := math.Sincos(theta)
	si, ci := math.Sincos(inc)
	return [3]float64{r * ct, r * st * si, -r * st * ci}
}
