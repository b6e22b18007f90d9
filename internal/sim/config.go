package sim

import (
	"runtime"
	"time"

	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/belt"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/body"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/clock"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/propagation"
)

// Config holds engine configuration.
type Config struct {
	AsteroidCount int    // main belt members (default: 150000)
	KuiperCount   int    // Kuiper belt members (default: 120000)
	MaxBeltCount  int    // upper bound accepted by SetBeltDensity (default: 2000000)
	Seed          uint64 // base seed for belt sampling (default: 1)
	Satellites    bool   // include the Moon, Ganymede and Titan (default: true)

	Planets     []body.PlanetSpec
	Clock       clock.Config
	Chunk       belt.ChunkPolicy
	Propagation propagation.PropConfig

	TickInterval time.Duration // Scheduler period (default: 16ms)
}

// DefaultConfig returns the standard scene.
func DefaultConfig() Config {
	return Config{
		AsteroidCount: belt.DefaultAsteroidCount,
		KuiperCount:   belt.DefaultKuiperCount,
		MaxBeltCount:  2_000_000,
		Seed:          1,
		Satellites:    true,
		Planets:       body.Planets,
		Clock:         clock.DefaultConfig(),
		Chunk:         belt.DefaultChunkPolicy,
		Propagation: propagation.PropConfig{
			Workers:  runtime.NumCPU(),
			MinSplit: propagation.DefaultMinSplit,
		},
		TickInterval: 16 * time.Millisecond,
	}
}
