// Package belt generates and advances large populations of anonymous bodies:
// the asteroid and Kuiper rings, the Trojan swarms at Jupiter's L4 and L5
// points, and the three Hilda lobes.
//
// Members are stored as parallel slices. Every tick advances every member's
// mean anomaly, but only a bounded chunk has its position recomputed, using
// the series approximation of the true anomaly.
package belt

import (
	"fmt"
	"math"
)

// Kind selects the sampling model.
type Kind int

const (
	// Ring samples a, e, i and M independently.
	Ring Kind = iota
	// CoOrbital clusters members around a phase offset from a reference body
	// with a tight core and a trailing tail (Trojans).
	CoOrbital
	// Resonant scatters members normally around a phase offset (Hildas).
	Resonant
)

func (k Kind) String() string {
	switch k {
	case Ring:
		return "ring"
	case CoOrbital:
		return "co-orbital"
	case Resonant:
		return "resonant"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Population ids.
const (
	Asteroid = "asteroid"
	Kuiper   = "kuiper"
	TrojanL4 = "trojan-l4"
	TrojanL5 = "trojan-l5"
	Hilda1   = "hilda-1"
	Hilda2   = "hilda-2"
	Hilda3   = "hilda-3"
)

// Default member counts.
const (
	DefaultAsteroidCount = 150_000
	DefaultKuiperCount   = 120_000
)

// Spec describes one population. Distances are in AU and angles in degrees
// unless noted.
type Spec struct {
	ID          string
	Kind        Kind
	Count       int
	AMinAU      float64
	AMaxAU      float64
	EccMax      float64
	IncSigmaDeg float64

	// Offset is the phase offset in radians from the reference mean anomaly.
	// Its sign picks the side the CoOrbital tail trails on.
	Offset float64
	// CoreDeg is the CoOrbital core width, or the Resonant phase sigma.
	CoreDeg float64
}

// Validate checks a spec before generation.
func (s Spec) Validate() error {
	if s.Count < 0 {
		return fmt.Errorf("belt %q: negative count %d", s.ID, s.Count)
	}
	if !(s.AMinAU > 0) || s.AMaxAU < s.AMinAU {
		return fmt.Errorf("belt %q: invalid range [%g, %g] AU", s.ID, s.AMinAU, s.AMaxAU)
	}
	if s.EccMax < 0 || s.EccMax >= 1 {
		return fmt.Errorf("belt %q: eccentricity bound %g outside [0, 1)", s.ID, s.EccMax)
	}
	if s.IncSigmaDeg < 0 {
		return fmt.Errorf("belt %q: negative inclination sigma %g", s.ID, s.IncSigmaDeg)
	}
	return nil
}

// Swarm sizing relative to the asteroid belt.
const (
	trojanFraction = 0.2
	trojanMin      = 2000
	hildaFraction  = 0.08
	hildaMin       = 1000
)

// Hilda geometry: the 3:2 resonance with Jupiter.
var hildaAAU = 5.2028 * math.Pow(2.0/3.0, 2.0/3.0)

const (
	hildaHalfWidthAU = 0.35
	hildaPhaseDeg    = 18.0
	hildaEccMax      = 0.18
	hildaIncSigmaDeg = 1.5
)

// AsteroidSpec is the main belt between 2.1 and 3.3 AU.
func AsteroidSpec(count int) Spec {
	return Spec{ID: Asteroid, Kind: Ring, Count: count, AMinAU: 2.1, AMaxAU: 3.3, EccMax: 0.12, IncSigmaDeg: 2.5}
}

// KuiperSpec is the Kuiper belt between 42 and 48 AU.
func KuiperSpec(count int) Spec {
	return Spec{ID: Kuiper, Kind: Ring, Count: count, AMinAU: 42, AMaxAU: 48, EccMax: 0.10, IncSigmaDeg: 5.5}
}

// KuiperOuterEdgeAU is the outer edge of the Kuiper belt, used for the scene bound.
const KuiperOuterEdgeAU = 48.0

// TrojanTotal returns the combined L4+L5 count for an asteroid belt of n.
func TrojanTotal(n int) int {
	return max(trojanMin, int(math.Floor(float64(n)*trojanFraction)))
}

// HildaTotal returns the combined count of the three Hilda lobes.
func HildaTotal(n int) int {
	return max(hildaMin, int(math.Floor(float64(n)*hildaFraction)))
}

// TrojanSpecs returns the leading (L4) and trailing (L5) swarms.
func TrojanSpecs(asteroidCount int) [2]Spec {
	total := TrojanTotal(asteroidCount)
	base := Spec{Kind: CoOrbital, AMinAU: 4.9, AMaxAU: 5.5, EccMax: 0.08, IncSigmaDeg: 1.0, CoreDeg: 20}

	l4, l5 := base, base
	l4.ID, l4.Count, l4.Offset = TrojanL4, total/2, math.Pi/3
	l5.ID, l5.Count, l5.Offset = TrojanL5, total-total/2, -math.Pi/3
	return [2]Spec{l4, l5}
}

// HildaSpecs returns the three Hilda lobes at +60°, 180° and −60° from Jupiter.
func HildaSpecs(asteroidCount int) [3]Spec {
	total := HildaTotal(asteroidCount)
	third := total / 3
	base := Spec{
		Kind:        Resonant,
		AMinAU:      hildaAAU - hildaHalfWidthAU,
		AMaxAU:      hildaAAU + hildaHalfWidthAU,
		EccMax:      hildaEccMax,
		IncSigmaDeg: hildaIncSigmaDeg,
		CoreDeg:     hildaPhaseDeg,
	}

	h1, h2, h3 := base, base, base
	h1.ID, h1.Count, h1.Offset = Hilda1, third, math.Pi/3
	h2.ID, h2.Count, h2.Offset = Hilda2, third, math.Pi
	h3.ID, h3.Count, h3.Offset = Hilda3, total-2*third, -math.Pi/3
	return [3]Spec{h1, h2, h3}
}

// DerivedSpecs returns the swarms whose size follows the asteroid belt.
func DerivedSpecs(asteroidCount int) []Spec {
	t := TrojanSpecs(asteroidCount)
	h := HildaSpecs(asteroidCount)
	return []Spec{t[0], t[1], h[0], h[1], h[2]}
}

// Catalog returns every population spec in tick order.
func Catalog(asteroidCount, kuiperCount int) []Spec {
	return append([]Spec{AsteroidSpec(asteroidCount), KuiperSpec(kuiperCount)}, DerivedSpecs(asteroidCount)...)
}
