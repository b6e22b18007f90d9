package kepler

import (
	"math"

	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/transform"
)

const twoPi = 2 * math.Pi

// newtonIterations is the fixed Newton budget for Kepler's equation. Twelve
// steps cover e ≤ 0.99 from the π start, including M close to 0 or 2π where
// the first few steps only shrink the error geometrically.
const newtonIterations = 12

// highEccentricity is where the linear start E₀ = M stops being reliable.
const highEccentricity = 0.8

// Wrap maps an angle into [0, 2π).
func Wrap(x float64) float64 {
	x = math.Mod(x, twoPi)
	if x < 0 {
		x += twoPi
	}
	if x >= twoPi {
		// math.Mod(-tiny) + 2π can round up to exactly 2π.
		x = 0
	}
	return x
}

// SolveEccentricAnomaly solves E − e·sin E = M by Newton–Raphson with a fixed
// number of iterations. The start is M for e < 0.8 and π otherwise.
func SolveEccentricAnomaly(M, e float64) float64 {
	E := M
	if e >= highEccentricity {
		E = math.Pi
	}
	for k := 0; k < newtonIterations; k++ {
		s, c := math.Sincos(E)
		E -= (E - e*s - M) / (1 - e*c)
	}
	return E
}

// TrueAnomalyFromEccentric converts E to the true anomaly θ.
func TrueAnomalyFromEccentric(E, e float64) float64 {
	s, c := math.Sincos(E / 2)
	return 2 * math.Atan2(math.Sqrt(1+e)*s, math.Sqrt(1-e)*c)
}

// ApproxTrueAnomaly is the second-order series θ ≈ M + 2e·sin M + 1.25e²·sin 2M.
// Belt members use it instead of the Newton solve; named bodies never do.
func ApproxTrueAnomaly(M, e float64) float64 {
	return M + 2*e*math.Sin(M) + 1.25*e*e*math.Sin(2*M)
}

// EccentricFromTrue converts a true anomaly f to E with the half-angle
// relation tan(E/2) = sqrt((1−e)/(1+e))·tan(f/2), written with atan2 so
// f = ±π does not blow up.
func EccentricFromTrue(f, e float64) float64 {
	s, c := math.Sincos(f / 2)
	return 2 * math.Atan2(math.Sqrt(1-e)*s, math.Sqrt(1+e)*c)
}

// MeanFromEccentric applies Kepler's equation and wraps the result.
func MeanFromEccentric(E, e float64) float64 {
	return Wrap(E - e*math.Sin(E))
}

// Radius returns r = a(1 − e·cos E).
func Radius(a, e, E float64) float64 {
	return a * (1 - e*math.Cos(E))
}

// PlanarPosition places a body on its ellipse from the eccentric anomaly and
// tilts the orbital plane about +X by i. A tilted orbit keeps its line of
// nodes on the X axis; nothing here precesses.
func PlanarPosition(a, e, i, E float64) Vec3 {
	s, c := math.Sincos(E)
	xp := a * (c - e)
	yp := a * math.Sqrt(1-e*e) * s
	return Vec3(transform.PlaneTilt(xp, yp, i))
}

// Position is PlanarPosition for an element set, using the exact solver.
func (el Elements) Position() Vec3 {
	E := SolveEccentricAnomaly(el.M, el.E)
	return PlanarPosition(el.A, el.E, el.I, E)
}
