package belt

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/kepler"
)

const (
	auToScene = 30.0
	degToRad  = math.Pi / 180
	twoPi     = 2 * math.Pi

	coreProbability = 0.7
	coreSpread      = 0.55
	tailSpread      = 0.25
	tailDeg         = 60.0
)

// sampler bundles the distributions drawn from while generating.
type sampler struct {
	u distuv.Uniform
	n distuv.Normal
}

func newSampler(src rand.Source) sampler {
	return sampler{
		u: distuv.Uniform{Min: 0, Max: 1, Src: src},
		n: distuv.Normal{Mu: 0, Sigma: 1, Src: src},
	}
}

// halfNormalDeg returns rad(max(0, N(0,1)·sigma)).
func (s sampler) halfNormalDeg(sigma float64) float64 {
	return math.Max(0, s.n.Rand()*sigma) * degToRad
}

// NewSource returns the deterministic source used for a population seed.
func NewSource(seed uint64) rand.Source {
	return rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
}

// Generate samples a population for spec. refM is the reference body's mean
// anomaly (Jupiter's, for the swarms); Ring populations ignore it.
func Generate(spec Spec, grav kepler.Gravity, refM float64, src rand.Source) (*Population, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	p := newPopulation(spec.ID, spec.Kind, spec.Count)
	s := newSampler(src)
	aMin, aMax := spec.AMinAU*auToScene, spec.AMaxAU*auToScene

	for i := 0; i < spec.Count; i++ {
		var a, e, inc, m float64
		switch spec.Kind {
		case Ring:
			a = lerp(aMin, aMax, s.u.Rand())
			e = s.u.Rand() * spec.EccMax
			inc = s.halfNormalDeg(spec.IncSigmaDeg)
			m = s.u.Rand() * twoPi

		case CoOrbital:
			a, e, inc, m = s.coOrbital(spec, aMin, aMax, refM)

		case Resonant:
			m = kepler.Wrap(refM + spec.Offset + spec.CoreDeg*degToRad*s.n.Rand())
			a = lerp(aMin, aMax, s.u.Rand())
			e = clamp(0.08+math.Abs(s.n.Rand())*0.05, 0, spec.EccMax)
			inc = s.halfNormalDeg(spec.IncSigmaDeg)
		}

		p.a[i], p.e[i], p.inc[i] = a, e, inc
		p.m[i] = kepler.Wrap(m)
		p.n[i] = grav.MeanMotion(a)
	}

	p.placeRange(0, spec.Count)
	return p, nil
}

// coOrbital draws one Trojan member. 70% fall in a normal core around the
// Lagrange point; the rest trail away from Jupiter along a uniform tail. The
// semi-major axis is biased toward the middle of the range for the core and
// spreads outward with tail distance.
func (s sampler) coOrbital(spec Spec, aMin, aMax, refM float64) (a, e, inc, m float64) {
	width := spec.CoreDeg * degToRad
	tail := tailDeg * degToRad

	core := s.u.Rand() < coreProbability
	g := width * coreSpread * s.n.Rand()
	tailOff := s.u.Rand() * tail

	dTheta := g
	if !core {
		dTheta = width*tailSpread*s.n.Rand() + tailOff
	}
	sign := 1.0
	if spec.Offset < 0 {
		sign = -1
	}
	m = kepler.Wrap(refM + spec.Offset + sign*dTheta)

	frac := 0.25 + 0.70*clamp(tailOff/tail, 0, 1)
	if core {
		frac = 0.45 + 0.35*s.u.Rand()
	}
	a = lerp(aMin, aMax, frac)

	e = math.Min(spec.EccMax, math.Abs(s.n.Rand())*0.03+0.01*s.u.Rand())
	inc = s.halfNormalDeg(spec.IncSigmaDeg)
	return a, e, inc, m
}

func lerp(lo, hi, t float64) float64 {
	return lo + (hi-lo)*t
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
