package clock

import (
	"math"
	"testing"
	"time"
)

func TestSliderToDays_Endpoints(t *testing.T) {
	if got := SliderToDays(0, 1, 4000); got != 1 {
		t.Errorf("SliderToDays(0) = %g, want exactly 1", got)
	}
	if got := SliderToDays(100, 1, 4000); got != 4000 {
		t.Errorf("SliderToDays(100) = %g, want exactly 4000", got)
	}
	if got := SliderToDays(-5, 1, 4000); got != 1 {
		t.Errorf("SliderToDays(-5) = %g, want 1", got)
	}
	if got := SliderToDays(150, 1, 4000); got != 4000 {
		t.Errorf("SliderToDays(150) = %g, want 4000", got)
	}
	if got := SliderToDays(50, 1, 4000); math.Abs(got-math.Sqrt(4000)) > 1e-9 {
		t.Errorf("SliderToDays(50) = %g, want %g", got, math.Sqrt(4000))
	}
}

func TestSliderRoundTrip(t *testing.T) {
	ranges := [][2]float64{{1, 4000}, {0.5, 20}, {10, 10000}}
	for _, r := range ranges {
		for _, p := range []float64{0, 25, 50, 75, 100} {
			got := DaysToSlider(SliderToDays(p, r[0], r[1]), r[0], r[1])
			if math.Abs(got-p) > 2 {
				t.Errorf("range %v: round trip %g → %g", r, p, got)
			}
		}
	}
}

func TestSliderToDays_Monotonic(t *testing.T) {
	prev := SliderToDays(0, 1, 4000)
	for p := 1.0; p <= 100; p++ {
		d := SliderToDays(p, 1, 4000)
		if d <= prev {
			t.Fatalf("not increasing at p=%g: %g <= %g", p, d, prev)
		}
		prev = d
	}
}

func TestDaysToSlider_Clamps(t *testing.T) {
	tests := []struct {
		days, want float64
	}{
		{0.1, 0},
		{0, 0},
		{-3, 0},
		{1e6, 100},
		{120, 58},
	}
	for _, tt := range tests {
		if got := DaysToSlider(tt.days, 1, 4000); got != tt.want {
			t.Errorf("DaysToSlider(%g) = %g, want %g", tt.days, got, tt.want)
		}
	}
}

func TestClock_StepClamps(t *testing.T) {
	c := New(Config{Rate: 100, MaxStep: 250 * time.Millisecond})

	tests := []struct {
		name    string
		elapsed float64
		want    float64
	}{
		{"normal frame", 0.016, 1.6},
		{"stall", 3.0, 25},
		{"negative", -1, 0},
		{"nan", math.NaN(), 0},
		{"exact max", 0.25, 25},
	}

	var total float64
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Step(tt.elapsed)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Step(%g) = %g, want %g", tt.elapsed, got, tt.want)
			}
			total += got
		})
	}
	if math.Abs(c.Days()-total) > 1e-12 {
		t.Errorf("Days() = %g, want %g", c.Days(), total)
	}
}

func TestClock_Defaults(t *testing.T) {
	c := New(Config{})
	if c.Rate() != DefaultDaysPerSecond {
		t.Errorf("Rate() = %g, want %g", c.Rate(), DefaultDaysPerSecond)
	}
	if got := c.Step(10); math.Abs(got-0.25*DefaultDaysPerSecond) > 1e-12 {
		t.Errorf("Step(10) = %g, want %g", got, 0.25*DefaultDaysPerSecond)
	}
}

func TestClock_SetSlider(t *testing.T) {
	c := New(DefaultConfig())
	c.SetSlider(0)
	if c.Rate() != MinDaysPerSecond {
		t.Errorf("slider 0: rate %g, want %g", c.Rate(), MinDaysPerSecond)
	}
	c.SetSlider(100)
	if c.Rate() != MaxDaysPerSecond {
		t.Errorf("slider 100: rate %g, want %g", c.Rate(), MaxDaysPerSecond)
	}
	c.SetSlider(40)
	if got := c.Slider(); got != 40 {
		t.Errorf("Slider() = %g, want 40", got)
	}
}

func TestClock_Date(t *testing.T) {
	c := New(DefaultConfig())
	start := c.Date()
	if start.Year() != 2000 || start.Month() != time.January || start.Day() != 1 || start.Hour() != 12 {
		t.Errorf("epoch date = %v, want 2000-01-01 12:00", start)
	}

	// 0.25 s at 4000 d/s is 1000 days per step.
	c.SetSlider(100)
	for i := 0; i < 10; i++ {
		c.Step(1)
	}
	if c.Days() != 10000 {
		t.Fatalf("Days() = %g, want 10000", c.Days())
	}
	got := c.Date()
	want := start.Add(10000 * 24 * time.Hour)
	if d := got.Sub(want); d > time.Second || d < -time.Second {
		t.Errorf("Date() = %v, want %v", got, want)
	}
}
