package cache

import (
	"context"
	"time"

	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/body"
)

// Source supplies the current orbit keys. sim.Engine satisfies it.
type Source interface {
	OrbitKeys() []body.PathKey
	Ready() bool
}

// Start fills the cache with every current path, then regenerates stale
// paths on each refresh interval. Blocks until ctx is cancelled.
func (c *OrbitCache) Start(ctx context.Context) {
	if !c.waitForSource(ctx) {
		return
	}

	c.warmup(ctx)

	ticker := time.NewTicker(c.config.Refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("orbit cache refresher stopped")
			return
		case <-ticker.C:
			c.refresh(ctx)
		}
	}
}

// waitForSource blocks until the source has ticked at least once.
// Returns false if ctx is cancelled.
func (c *OrbitCache) waitForSource(ctx context.Context) bool {
	if c.source.Ready() {
		return true
	}

	c.logger.Info("orbit cache waiting for first tick...")
	ticker := time.NewTicker(c.config.Refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if c.source.Ready() {
				return true
			}
		}
	}
}

// warmup samples every current path.
func (c *OrbitCache) warmup(ctx context.Context) {
	start := time.Now()
	keys := c.source.OrbitKeys()
	generated := 0

	for _, k := range keys {
		select {
		case <-ctx.Done():
			return
		default:
		}
		c.put(Sample(k, c.config.Samples))
		generated++
	}

	c.logger.Info("orbit cache warmup complete",
		"generated", generated,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// refresh regenerates paths whose revision changed and drops paths for
// bodies that no longer exist. It returns how many paths were regenerated.
func (c *OrbitCache) refresh(ctx context.Context) int {
	keys := c.source.OrbitKeys()
	stale := make([]body.PathKey, 0, len(keys))

	c.mu.RLock()
	for _, k := range keys {
		if p, ok := c.entries[k.Name]; !ok || p.Key != k {
			stale = append(stale, k)
		}
	}
	c.mu.RUnlock()

	for _, k := range stale {
		if ctx.Err() != nil {
			return 0
		}
		c.put(Sample(k, c.config.Samples))
		c.logger.Debug("orbit path regenerated", "body", k.Name, "revision", k.Revision)
	}
	c.evictMissing(keys)
	return len(stale)
}
