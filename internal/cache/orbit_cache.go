// Package cache holds sampled orbit paths for the renderer.
//
// A path depends only on a body's (a, e, i), so it is recomputed when the
// body's Revision changes and served from memory otherwise. A background
// refresher regenerates stale paths after edits and resets.
package cache

import (
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"gonum.org/v1/gonum/floats"

	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/body"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/kepler"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/metrics"
)

// Config holds orbit cache configuration.
type Config struct {
	Samples int           // Points per path (default: 256)
	Refresh time.Duration // Staleness check interval (default: 250ms)
}

// DefaultConfig returns the standard cache configuration.
func DefaultConfig() Config {
	return Config{Samples: 256, Refresh: 250 * time.Millisecond}
}

// Path is a sampled orbit. Points run once around the ellipse starting at
// periapsis; the renderer closes the loop.
type Path struct {
	Key         body.PathKey
	Points      []kepler.Vec3
	Extent      float64 // farthest point from the origin
	GeneratedAt time.Time
}

// OrbitCache maps body names to their latest sampled path.
// Safe for concurrent use by multiple goroutines.
type OrbitCache struct {
	mu      sync.RWMutex
	entries map[string]*Path

	config Config
	source Source
	logger *slog.Logger

	hits          atomic.Int64
	misses        atomic.Int64
	regenerations atomic.Int64
}

// NewOrbitCache creates an empty cache fed by source.
func NewOrbitCache(config Config, source Source, logger *slog.Logger) *OrbitCache {
	if config.Samples < 3 {
		config.Samples = DefaultConfig().Samples
	}
	if config.Refresh <= 0 {
		config.Refresh = DefaultConfig().Refresh
	}

	logger.Info("orbit cache initialized",
		"samples", config.Samples,
		"refresh_ms", config.Refresh.Milliseconds(),
	)

	return &OrbitCache{
		entries: make(map[string]*Path),
		config:  config,
		source:  source,
		logger:  logger,
	}
}

// Get returns the cached path for key, or nil if the cached path is missing
// or belongs to another revision.
func (c *OrbitCache) Get(key body.PathKey) *Path {
	c.mu.RLock()
	p, ok := c.entries[key.Name]
	c.mu.RUnlock()

	if ok && p.Key == key {
		c.hits.Add(1)
		metrics.IncCacheHits()
		return p
	}

	c.misses.Add(1)
	metrics.IncCacheMisses()
	return nil
}

// Lookup returns the path for key, sampling and storing it on a miss.
func (c *OrbitCache) Lookup(key body.PathKey) *Path {
	if p := c.Get(key); p != nil {
		return p
	}
	p := Sample(key, c.config.Samples)
	c.put(p)
	return p
}

// Sample computes a path of n points evenly spaced in eccentric anomaly.
func Sample(key body.PathKey, n int) *Path {
	pts := make([]kepler.Vec3, n)
	radii := make([]float64, n)
	for j := range pts {
		E := 2 * math.Pi * float64(j) / float64(n)
		pts[j] = kepler.PlanarPosition(key.A, key.E, key.I, E)
		radii[j] = math.Sqrt(pts[j][0]*pts[j][0] + pts[j][1]*pts[j][1] + pts[j][2]*pts[j][2])
	}
	return &Path{
		Key:         key,
		Points:      pts,
		Extent:      floats.Max(radii),
		GeneratedAt: time.Now(),
	}
}

// put stores a path unless a newer revision is already cached. Caller must
// not hold mu.
func (c *OrbitCache) put(p *Path) {
	c.mu.Lock()
	if old, ok := c.entries[p.Key.Name]; !ok || old.Key.Revision <= p.Key.Revision {
		c.entries[p.Key.Name] = p
	}
	c.mu.Unlock()

	c.regenerations.Add(1)
	c.updateMetrics()
}

// evictMissing removes paths for bodies not in keys.
func (c *OrbitCache) evictMissing(keys []body.PathKey) int {
	live := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		live[k.Name] = struct{}{}
	}

	var removed int
	c.mu.Lock()
	for name := range c.entries {
		if _, ok := live[name]; !ok {
			delete(c.entries, name)
			removed++
		}
	}
	c.mu.Unlock()

	if removed > 0 {
		c.updateMetrics()
		c.logger.Debug("orbit cache eviction", "entries_removed", removed)
	}
	return removed
}

// Stats returns current cache statistics.
func (c *OrbitCache) Stats() CacheStats {
	c.mu.RLock()
	count := len(c.entries)
	var points int
	for _, p := range c.entries {
		points += len(p.Points)
	}
	c.mu.RUnlock()

	return CacheStats{
		Entries:       count,
		SizeBytes:     int64(points) * int64(unsafe.Sizeof(kepler.Vec3{})),
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Regenerations: c.regenerations.Load(),
	}
}

// CacheStats holds cache statistics for the stats endpoint.
type CacheStats struct {
	Entries       int   `json:"entries"`
	SizeBytes     int64 `json:"size_bytes"`
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	Regenerations int64 `json:"regenerations"`
}

func (c *OrbitCache) updateMetrics() {
	c.mu.RLock()
	count := len(c.entries)
	c.mu.RUnlock()

	metrics.SetCacheEntries(count)
}
