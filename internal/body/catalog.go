package body

import (
	"math"

	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/kepler"
)

// Scene scale and calibration. One astronomical unit is 30 scene units and
// the gravitational parameter is fixed so that a body at 1 AU has a period of
// one Julian year.
const (
	AUToScene = 30.0
	EarthA    = 1.0 * AUToScene
	EarthYear = 365.25 // days
	KmPerAU   = 149_597_870.0
	DegToRad  = math.Pi / 180
)

// PlanetSpec is one entry of the planet catalog, in natural units.
type PlanetSpec struct {
	Name         string
	AAU          float64 // semi-major axis, AU
	E            float64
	IDeg         float64
	M            float64 // initial mean anomaly, radians
	VisualRadius float64
}

// Elements converts the spec into scene-unit elements.
func (p PlanetSpec) Elements() kepler.Elements {
	return kepler.Elements{
		A: p.AAU * AUToScene,
		E: p.E,
		I: p.IDeg * DegToRad,
		M: kepler.Wrap(p.M),
	}
}

// Planets is the default catalog, in display order.
var Planets = []PlanetSpec{
	{Name: "Mercury", AAU: 0.3871, E: 0.2056, IDeg: 7.0, M: 0.0, VisualRadius: 1.0},
	{Name: "Venus", AAU: 0.7233, E: 0.0068, IDeg: 3.4, M: 0.6, VisualRadius: 1.8},
	{Name: "Earth", AAU: 1.0, E: 0.0167, IDeg: 0, M: 1.2, VisualRadius: 2.2},
	{Name: "Mars", AAU: 1.5237, E: 0.0934, IDeg: 1.8, M: 1.8, VisualRadius: 1.6},
	{Name: "Jupiter", AAU: 5.2028, E: 0.0489, IDeg: 1.3, M: 0.25, VisualRadius: 5.6},
	{Name: "Saturn", AAU: 9.5388, E: 0.0565, IDeg: 2.5, M: 1.10, VisualRadius: 4.2},
	{Name: "Uranus", AAU: 19.1914, E: 0.0457, IDeg: 0.8, M: 2.00, VisualRadius: 3.4},
	{Name: "Neptune", AAU: 30.0689, E: 0.0113, IDeg: 1.8, M: 2.70, VisualRadius: 3.1},
	{Name: "Pluto", AAU: 39.482, E: 0.2488, IDeg: 17.0, M: 0.0, VisualRadius: 1.2},
}

// DefaultGravity returns the Gravity calibrated on Earth.
func DefaultGravity() kepler.Gravity {
	return kepler.MustCalibrate(EarthA, EarthYear)
}

// NewPlanets builds fresh bodies from the catalog.
func NewPlanets(specs []PlanetSpec) []*Body {
	out := make([]*Body, len(specs))
	for i, s := range specs {
		out[i] = New(s.Name, s.Elements(), s.VisualRadius)
	}
	return out
}

// MaxBaselineApoapsis returns the largest baseline apoapsis in bodies.
func MaxBaselineApoapsis(bodies []*Body) float64 {
	var m float64
	for _, b := range bodies {
		m = math.Max(m, b.Baseline.Apoapsis())
	}
	return m
}

// Index maps body names to their position in a slice.
func Index(bodies []*Body) map[string]int {
	idx := make(map[string]int, len(bodies))
	for i, b := range bodies {
		idx[b.Name] = i
	}
	return idx
}

// KmToScene converts a distance in kilometres to scene units.
func KmToScene(km float64) float64 {
	return km / KmPerAU * AUToScene
}
