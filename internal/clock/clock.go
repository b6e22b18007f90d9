// Package clock converts wall time into simulated days and maps the speed
// slider onto a days-per-second rate.
package clock

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

// Speed range and defaults, in simulated days per wall-clock second.
const (
	MinDaysPerSecond     = 1.0
	MaxDaysPerSecond     = 4000.0
	DefaultDaysPerSecond = 120.0
	DefaultMaxStep       = 250 * time.Millisecond
)

// J2000 is the default simulation epoch, 2000-01-01 12:00 TT, taken as UTC.
var J2000 = julian.JDToTime(2451545.0)

// SliderToDays maps a slider position p in [0, 100] to a rate on a log scale:
// lo·(hi/lo)^(p/100). Positions at or beyond the ends return lo or hi
// exactly.
func SliderToDays(p, lo, hi float64) float64 {
	if p <= 0 {
		return lo
	}
	if p >= 100 {
		return hi
	}
	return lo * math.Pow(hi/lo, p/100)
}

// DaysToSlider is the inverse of SliderToDays, rounded to the nearest
// integer position and clamped to [0, 100].
func DaysToSlider(days, lo, hi float64) float64 {
	if !(days > 0) {
		return 0
	}
	t := math.Log(days/lo) / math.Log(hi/lo)
	if math.IsNaN(t) {
		return 0
	}
	return math.Round(math.Max(0, math.Min(1, t)) * 100)
}

// Config holds clock parameters.
type Config struct {
	MinRate float64       // days per second at slider 0
	MaxRate float64       // days per second at slider 100
	Rate    float64       // initial days per second
	MaxStep time.Duration // largest wall-time step accepted per tick
	Epoch   time.Time     // calendar date at simulated day 0
}

// DefaultConfig returns the standard 1–4000 days/s range at 120 days/s.
func DefaultConfig() Config {
	return Config{
		MinRate: MinDaysPerSecond,
		MaxRate: MaxDaysPerSecond,
		Rate:    DefaultDaysPerSecond,
		MaxStep: DefaultMaxStep,
		Epoch:   J2000,
	}
}

// Clock accumulates simulated time. It is not safe for concurrent use; the
// engine serialises access.
type Clock struct {
	cfg     Config
	rate    float64
	days    float64
	epochJD float64
}

// New creates a clock. Zero fields in cfg take their defaults.
func New(cfg Config) *Clock {
	def := DefaultConfig()
	if cfg.MinRate <= 0 {
		cfg.MinRate = def.MinRate
	}
	if cfg.MaxRate <= cfg.MinRate {
		cfg.MaxRate = math.Max(def.MaxRate, cfg.MinRate)
	}
	if cfg.Rate <= 0 {
		cfg.Rate = def.Rate
	}
	if cfg.MaxStep <= 0 {
		cfg.MaxStep = def.MaxStep
	}
	if cfg.Epoch.IsZero() {
		cfg.Epoch = def.Epoch
	}
	return &Clock{
		cfg:     cfg,
		rate:    math.Max(cfg.MinRate, math.Min(cfg.MaxRate, cfg.Rate)),
		epochJD: julian.TimeToJD(cfg.Epoch),
	}
}

// Step converts elapsed wall seconds into simulated days, clamping elapsed to
// [0, MaxStep] so a stall does not produce a large jump. The result is added
// to the running total and returned.
func (c *Clock) Step(elapsedSeconds float64) float64 {
	dt := elapsedSeconds
	if !(dt > 0) {
		dt = 0
	}
	dt = math.Min(dt, c.cfg.MaxStep.Seconds())
	d := dt * c.rate
	c.days += d
	return d
}

// SetSlider sets the rate from a slider position.
func (c *Clock) SetSlider(p float64) {
	c.rate = SliderToDays(p, c.cfg.MinRate, c.cfg.MaxRate)
}

// Slider returns the slider position of the current rate.
func (c *Clock) Slider() float64 {
	return DaysToSlider(c.rate, c.cfg.MinRate, c.cfg.MaxRate)
}

// Rate returns the current days-per-second rate.
func (c *Clock) Rate() float64 {
	return c.rate
}

// Days returns the total simulated days.
func (c *Clock) Days() float64 {
	return c.days
}

// JD returns the Julian day of the current simulated instant.
func (c *Clock) JD() float64 {
	return c.epochJD + c.days
}

// Date returns the calendar instant of the current simulated time.
func (c *Clock) Date() time.Time {
	return julian.JDToTime(c.JD())
}
