package sim

import (
	"time"

	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/body"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/kepler"
)

// Snapshot is an immutable view of the scene published after every tick and
// every mutation. Readers must not modify it.
type Snapshot struct {
	Tick       uint64           `json:"tick"`
	Days       float64          `json:"days"`
	Date       time.Time        `json:"date"`
	Rate       float64          `json:"days_per_second"`
	Slider     float64          `json:"slider"`
	Bound      float64          `json:"scene_bound"`
	Bodies     []BodyState      `json:"bodies"`
	Satellites []SatelliteState `json:"satellites"`
	Belts      []BeltState      `json:"belts"`
}

// BodyState is one named body in a Snapshot.
type BodyState struct {
	Name         string          `json:"name"`
	Position     kepler.Vec3     `json:"position"`
	Elements     kepler.Elements `json:"elements"`
	Baseline     kepler.Elements `json:"baseline"`
	VisualRadius float64         `json:"visual_radius"`
	Revision     uint64          `json:"revision"`
}

// Path returns the orbit path key.
func (s BodyState) Path() body.PathKey {
	return body.PathKey{Name: s.Name, A: s.Elements.A, E: s.Elements.E, I: s.Elements.I, Revision: s.Revision}
}

// SatelliteState is one satellite in a Snapshot.
type SatelliteState struct {
	Name     string      `json:"name"`
	Parent   string      `json:"parent"`
	Position kepler.Vec3 `json:"position"`
}

// BeltState describes one population without its member positions.
type BeltState struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	Count  int    `json:"count"`
	Chunk  int    `json:"chunk"`
	Cursor int    `json:"cursor"`
}

// Body returns the named body state.
func (s *Snapshot) Body(name string) (BodyState, bool) {
	for _, b := range s.Bodies {
		if b.Name == name {
			return b, true
		}
	}
	return BodyState{}, false
}

// Belt returns the named belt state.
func (s *Snapshot) Belt(id string) (BeltState, bool) {
	for _, b := range s.Belts {
		if b.ID == id {
			return b, true
		}
	}
	return BeltState{}, false
}

// OrbitKeys returns the path key of every named body.
func (s *Snapshot) OrbitKeys() []body.PathKey {
	keys := make([]body.PathKey, len(s.Bodies))
	for i, b := range s.Bodies {
		keys[i] = b.Path()
	}
	return keys
}
