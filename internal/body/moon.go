package body

import (
	"math"

	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/kepler"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/transform"
)

// Satellite is a body that orbits a planet rather than the star. Position is
// in scene coordinates (parent position plus the local offset).
type Satellite interface {
	Name() string
	Parent() string
	Advance(days float64, parent kepler.Vec3)
	Position() kepler.Vec3
	Local() kepler.Vec3
}

// Moon is a satellite with a full element set oriented by node, inclination
// and argument of periapsis. Its mean motion comes from its own period, not
// from the star's gravitational parameter.
type Moon struct {
	name, parent string
	el           kepler.Elements
	n            float64
	orient       transform.Orientation
	local, pos   kepler.Vec3
}

// MoonSpec describes a Moon in natural units.
type MoonSpec struct {
	Name, Parent string
	AKm          float64
	E            float64
	IDeg         float64
	NodeDeg      float64
	ArgPeriDeg   float64
	PeriodDays   float64
}

// EarthMoon is the lunar orbit used by the scene.
var EarthMoon = MoonSpec{
	Name:       "Moon",
	Parent:     "Earth",
	AKm:        384_400,
	E:          0.0549,
	IDeg:       5.145,
	NodeDeg:    125.08,
	ArgPeriDeg: 318.15,
	PeriodDays: 27.321661,
}

// NewMoon builds a Moon at mean anomaly zero.
func NewMoon(s MoonSpec) *Moon {
	m := &Moon{
		name:   s.Name,
		parent: s.Parent,
		el: kepler.Elements{
			A: KmToScene(s.AKm),
			E: s.E,
			I: s.IDeg * DegToRad,
		},
		n:      2 * math.Pi / s.PeriodDays,
		orient: transform.NewOrientation(s.NodeDeg*DegToRad, s.IDeg*DegToRad, s.ArgPeriDeg*DegToRad),
	}
	m.place(kepler.Vec3{})
	return m
}

func (m *Moon) Name() string   { return m.name }
func (m *Moon) Parent() string { return m.parent }

// Advance moves the moon along its orbit and re-anchors it on parent.
func (m *Moon) Advance(days float64, parent kepler.Vec3) {
	m.el.M = kepler.Wrap(m.el.M + m.n*days)
	m.place(parent)
}

func (m *Moon) place(parent kepler.Vec3) {
	E := kepler.SolveEccentricAnomaly(m.el.M, m.el.E)
	f := kepler.TrueAnomalyFromEccentric(E, m.el.E)
	r := kepler.Radius(m.el.A, m.el.E, E)
	s, c := math.Sincos(f)
	m.local = kepler.Vec3(m.orient.Apply(r*c, r*s))
	m.pos = add(parent, m.local)
}

// Position returns the scene position.
func (m *Moon) Position() kepler.Vec3 { return m.pos }

// Local returns the offset from the parent.
func (m *Moon) Local() kepler.Vec3 { return m.local }

// Elements returns the moon's current elements. I is informational; the
// orientation is fixed at construction.
func (m *Moon) Elements() kepler.Elements { return m.el }

// SimpleMoon is a satellite on a circular orbit whose plane is tilted about
// +X. Used for the large outer-planet moons.
type SimpleMoon struct {
	name, parent string
	radius       float64
	omega        float64 // rad/day
	inc          float64
	theta        float64
	local, pos   kepler.Vec3
}

// SimpleMoonSpec describes a SimpleMoon in natural units.
type SimpleMoonSpec struct {
	Name, Parent string
	RadiusKm     float64
	PeriodDays   float64
	IncDeg       float64
}

// GalileanAndTitan are the large outer-planet satellites.
var GalileanAndTitan = []SimpleMoonSpec{
	{Name: "Ganymede", Parent: "Jupiter", RadiusKm: 1_070_400, PeriodDays: 7.154553, IncDeg: 2},
	{Name: "Titan", Parent: "Saturn", RadiusKm: 1_221_870, PeriodDays: 15.945, IncDeg: 3},
}

// NewSimpleMoon builds a SimpleMoon at phase zero.
func NewSimpleMoon(s SimpleMoonSpec) *SimpleMoon {
	m := &SimpleMoon{
		name:   s.Name,
		parent: s.Parent,
		radius: KmToScene(s.RadiusKm),
		omega:  2 * math.Pi / s.PeriodDays,
		inc:    s.IncDeg * DegToRad,
	}
	m.place(kepler.Vec3{})
	return m
}

func (m *SimpleMoon) Name() string   { return m.name }
func (m *SimpleMoon) Parent() string { return m.parent }

// Advance spins the moon by omega·days and re-anchors it on parent.
func (m *SimpleMoon) Advance(days float64, parent kepler.Vec3) {
	m.theta = kepler.Wrap(m.theta + m.omega*days)
	m.place(parent)
}

func (m *SimpleMoon) place(parent kepler.Vec3) {
	m.local = kepler.Vec3(transform.CircularTilted(m.radius, m.theta, m.inc))
	m.pos = add(parent, m.local)
}

func (m *SimpleMoon) Position() kepler.Vec3 { return m.pos }
func (m *SimpleMoon) Local() kepler.Vec3    { return m.local }

// Phase returns the current angle in radians.
func (m *SimpleMoon) Phase() float64 { return m.theta }

// Radius returns the orbit radius in scene units.
func (m *SimpleMoon) Radius() float64 { return m.radius }

// DefaultSatellites returns the Moon, Ganymede and Titan.
func DefaultSatellites() []Satellite {
	out := []Satellite{NewMoon(EarthMoon)}
	for _, s := range GalileanAndTitan {
		out = append(out, NewSimpleMoon(s))
	}
	return out
}

func add(a, b kepler.Vec3) kepler.Vec3 {
	return kepler.Vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}
