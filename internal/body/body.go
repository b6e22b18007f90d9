// Package body holds the named bodies of the scene: planets with live and
// baseline element sets, and the satellites that ride on them.
package body

import (
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/kepler"
)

// Body is a named orbiting object. Elements are live and change under
// propagation and edits; Baseline is the element set loaded at startup and is
// never written after construction.
type Body struct {
	Name         string
	Elements     kepler.Elements
	Baseline     kepler.Elements
	VisualRadius float64
	Position     kepler.Vec3

	// Revision increments whenever a, e or i change. Pure mean-anomaly
	// advance does not bump it because the orbit path is unchanged.
	Revision uint64
}

// New creates a body with its baseline copied from el and its position set.
func New(name string, el kepler.Elements, visualRadius float64) *Body {
	b := &Body{
		Name:         name,
		Elements:     el,
		Baseline:     el,
		VisualRadius: visualRadius,
	}
	b.Refresh()
	return b
}

// Refresh recomputes the cached position from the live elements with the
// exact Kepler solve.
func (b *Body) Refresh() {
	b.Position = b.Elements.Position()
}

// Commit replaces the live elements, bumps the revision and refreshes the
// position.
func (b *Body) Commit(el kepler.Elements) {
	b.Elements = el
	b.Revision++
	b.Refresh()
}

// Reset restores the baseline elements.
func (b *Body) Reset() {
	b.Commit(b.Baseline)
}

// Path returns the (a, e, i) triple that defines the drawn orbit.
func (b *Body) Path() PathKey {
	return PathKey{Name: b.Name, A: b.Elements.A, E: b.Elements.E, I: b.Elements.I, Revision: b.Revision}
}

// PathKey identifies an orbit path. Two keys with the same Name and Revision
// describe the same ellipse.
type PathKey struct {
	Name     string
	A, E, I  float64
	Revision uint64
}
