package kepler

import (
	"fmt"
	"math"
)

// Gravity carries the gravitational parameter μ of the central body. It is
// built once and passed by value to everything that needs a mean motion.
type Gravity struct {
	mu float64
}

// Calibrate returns the Gravity under which a body at semi-major axis aRef
// has orbital period tRef exactly: μ = (2π/T)²·a³.
func Calibrate(aRef, tRef float64) (Gravity, error) {
	if !(aRef > 0) || !(tRef > 0) || math.IsInf(aRef, 0) || math.IsInf(tRef, 0) {
		return Gravity{}, fmt.Errorf("invalid calibration reference a=%g T=%g", aRef, tRef)
	}
	w := 2 * math.Pi / tRef
	return Gravity{mu: w * w * aRef * aRef * aRef}, nil
}

// MustCalibrate is like Calibrate but panics on invalid input.
func MustCalibrate(aRef, tRef float64) Gravity {
	g, err := Calibrate(aRef, tRef)
	if err != nil {
		panic(err)
	}
	return g
}

// Mu returns the gravitational parameter.
func (g Gravity) Mu() float64 {
	return g.mu
}

// MeanMotion returns n = sqrt(μ/a³) in radians per day.
func (g Gravity) MeanMotion(a float64) float64 {
	return math.Sqrt(g.mu / (a * a * a))
}

// Period returns the orbital period for semi-major axis a, in days.
func (g Gravity) Period(a float64) float64 {
	return 2 * math.Pi / g.MeanMotion(a)
}
