package sim

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/belt"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/body"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/kepler"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/propagation"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.AsteroidCount = 3000
	cfg.KuiperCount = 2000
	cfg.MaxBeltCount = 100_000
	cfg.Propagation = propagation.PropConfig{Workers: 2, MinSplit: 256}
	return cfg
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(testConfig(), testLogger())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func angularDistance(a, b float64) float64 {
	d := math.Abs(kepler.Wrap(a) - kepler.Wrap(b))
	return math.Min(d, 2*math.Pi-d)
}

func TestNewEngine(t *testing.T) {
	e := newTestEngine(t)
	s := e.Snapshot()

	if len(s.Bodies) != len(body.Planets) {
		t.Errorf("bodies = %d, want %d", len(s.Bodies), len(body.Planets))
	}
	if len(s.Satellites) != 3 {
		t.Errorf("satellites = %d, want 3", len(s.Satellites))
	}
	if len(s.Belts) != 7 {
		t.Fatalf("belts = %d, want 7", len(s.Belts))
	}
	if s.Tick != 0 || e.Ready() {
		t.Errorf("fresh engine: tick=%d ready=%v", s.Tick, e.Ready())
	}
	if math.Abs(s.Bound-1814.4) > 1e-9 {
		t.Errorf("Bound = %g, want 1814.4", s.Bound)
	}

	want := map[string]int{
		belt.Asteroid: 3000,
		belt.Kuiper:   2000,
		belt.TrojanL4: 1000,
		belt.TrojanL5: 1000,
		belt.Hilda1:   333,
		belt.Hilda2:   333,
		belt.Hilda3:   334,
	}
	for id, n := range want {
		b, ok := s.Belt(id)
		if !ok {
			t.Errorf("belt %s missing", id)
			continue
		}
		if b.Count != n {
			t.Errorf("belt %s count = %d, want %d", id, b.Count, n)
		}
	}
}

func TestNewEngine_NegativeCount(t *testing.T) {
	cfg := testConfig()
	cfg.KuiperCount = -1
	if _, err := NewEngine(cfg, testLogger()); !errors.Is(err, ErrInvalidDensity) {
		t.Errorf("err = %v, want ErrInvalidDensity", err)
	}
}

func TestEngine_TickAdvancesBodies(t *testing.T) {
	e := newTestEngine(t)
	before, _ := e.Snapshot().Body("Earth")

	e.Tick(0.1)

	s := e.Snapshot()
	if s.Tick != 1 || !e.Ready() {
		t.Fatalf("tick=%d ready=%v, want 1 true", s.Tick, e.Ready())
	}
	days := 0.1 * s.Rate
	if math.Abs(s.Days-days) > 1e-9 {
		t.Errorf("Days = %g, want %g", s.Days, days)
	}

	after, _ := s.Body("Earth")
	n := body.DefaultGravity().MeanMotion(after.Elements.A)
	if d := angularDistance(after.Elements.M, before.Elements.M+n*days); d > 1e-9 {
		t.Errorf("Earth M off by %g rad", d)
	}
	if after.Position == before.Position {
		t.Error("Earth position did not change")
	}
}

func TestEngine_TickClampsStall(t *testing.T) {
	e := newTestEngine(t)
	e.Tick(30)
	s := e.Snapshot()
	if want := 0.25 * s.Rate; math.Abs(s.Days-want) > 1e-9 {
		t.Errorf("Days after stall = %g, want %g", s.Days, want)
	}
}

func TestEngine_SatellitesFollowParents(t *testing.T) {
	e := newTestEngine(t)
	e.Tick(0.05)
	s := e.Snapshot()

	for _, sat := range s.Satellites {
		parent, ok := s.Body(sat.Parent)
		if !ok {
			t.Fatalf("%s: parent %s missing", sat.Name, sat.Parent)
		}
		var d2 float64
		for k := range 3 {
			d := sat.Position[k] - parent.Position[k]
			d2 += d * d
		}
		if math.Sqrt(d2) > 10 {
			t.Errorf("%s is %g from %s", sat.Name, math.Sqrt(d2), sat.Parent)
		}
	}
}

func TestEngine_ApplyEditErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		factor  float64
		tilt    float64
		wantErr error
	}{
		{"unknown body", "Vulcan", 1.2, 5, ErrUnknownBody},
		{"nan factor", "Earth", math.NaN(), 5, ErrInvalidEdit},
		{"inf tilt", "Earth", 1.2, math.Inf(1), ErrInvalidEdit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t)
			before := e.Snapshot()

			err := e.ApplyEdit(tt.body, tt.factor, tt.tilt)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if e.Snapshot() != before {
				t.Error("rejected edit republished the scene")
			}
		})
	}
}

func TestEngine_ApplyEdit(t *testing.T) {
	e := newTestEngine(t)
	if err := e.ApplyEdit("Mars", 1.3, 12); err != nil {
		t.Fatalf("ApplyEdit: %v", err)
	}

	s := e.Snapshot()
	mars, _ := s.Body("Mars")
	if mars.Revision != 1 {
		t.Errorf("Revision = %d, want 1", mars.Revision)
	}
	if mars.Elements.A <= mars.Baseline.A {
		t.Errorf("a = %g, want > baseline %g", mars.Elements.A, mars.Baseline.A)
	}
	if math.Abs(mars.Elements.I-12*math.Pi/180) > 1e-12 {
		t.Errorf("i = %g, want 12 deg", mars.Elements.I)
	}
	if mars.Elements.Apoapsis() > s.Bound {
		t.Errorf("apoapsis %g exceeds bound %g", mars.Elements.Apoapsis(), s.Bound)
	}
}

func TestEngine_EditClampedToBound(t *testing.T) {
	e := newTestEngine(t)
	for _, name := range []string{"Mercury", "Neptune", "Pluto"} {
		if err := e.ApplyEdit(name, 10, 30); err != nil {
			t.Fatalf("ApplyEdit(%s): %v", name, err)
		}
	}
	s := e.Snapshot()
	for _, b := range s.Bodies {
		if apo := b.Elements.Apoapsis(); apo > s.Bound*(1+1e-12) {
			t.Errorf("%s apoapsis %g exceeds bound %g", b.Name, apo, s.Bound)
		}
	}
}

func TestEngine_ResetIdempotent(t *testing.T) {
	e := newTestEngine(t)
	e.Tick(0.1)
	if err := e.ApplyEdit("Earth", 0.6, 20); err != nil {
		t.Fatal(err)
	}
	if err := e.ApplyEdit("Saturn", 1.4, 3); err != nil {
		t.Fatal(err)
	}

	e.ResetLast()
	saturn, _ := e.Snapshot().Body("Saturn")
	if saturn.Elements != saturn.Baseline {
		t.Errorf("Saturn after ResetLast = %v, want %v", saturn.Elements, saturn.Baseline)
	}
	earth, _ := e.Snapshot().Body("Earth")
	if earth.Elements == earth.Baseline {
		t.Error("ResetLast also reset Earth")
	}

	e.ResetAll()
	first := e.BodyElements()
	e.ResetAll()
	second := e.BodyElements()

	for name, el := range first {
		b, _ := e.Snapshot().Body(name)
		if el != b.Baseline {
			t.Errorf("%s = %v, want baseline %v", name, el, b.Baseline)
		}
		if second[name] != el {
			t.Errorf("%s changed on second ResetAll: %v → %v", name, el, second[name])
		}
	}
}

func TestEngine_ResetLastWithoutEdit(t *testing.T) {
	e := newTestEngine(t)
	before := e.Snapshot()
	e.ResetLast()
	if e.Snapshot() != before {
		t.Error("ResetLast with no edit republished the scene")
	}
}

func TestEngine_SetBeltDensity(t *testing.T) {
	e := newTestEngine(t)

	if err := e.SetBeltDensity(belt.Asteroid, 50_000); err != nil {
		t.Fatalf("SetBeltDensity: %v", err)
	}
	s := e.Snapshot()

	counts := map[string]int{}
	for _, b := range s.Belts {
		counts[b.ID] = b.Count
	}
	if counts[belt.Asteroid] != 50_000 {
		t.Errorf("asteroid = %d, want 50000", counts[belt.Asteroid])
	}
	if got := counts[belt.TrojanL4] + counts[belt.TrojanL5]; got != belt.TrojanTotal(50_000) {
		t.Errorf("trojans = %d, want %d", got, belt.TrojanTotal(50_000))
	}
	if got := counts[belt.Hilda1] + counts[belt.Hilda2] + counts[belt.Hilda3]; got != belt.HildaTotal(50_000) {
		t.Errorf("hildas = %d, want %d", got, belt.HildaTotal(50_000))
	}
	if counts[belt.Kuiper] != 2000 {
		t.Errorf("kuiper = %d, want unchanged 2000", counts[belt.Kuiper])
	}

	if err := e.SetBeltDensity(belt.Kuiper, 0); err != nil {
		t.Fatalf("SetBeltDensity(kuiper, 0): %v", err)
	}
	kb, _ := e.Snapshot().Belt(belt.Kuiper)
	if kb.Count != 0 {
		t.Errorf("kuiper = %d, want 0", kb.Count)
	}
	e.Tick(0.016)
}

func TestEngine_SetBeltDensityErrors(t *testing.T) {
	tests := []struct {
		name    string
		belt    string
		count   int
		wantErr error
	}{
		{"negative", belt.Asteroid, -1, ErrInvalidDensity},
		{"too large", belt.Kuiper, 100_001, ErrInvalidDensity},
		{"unknown", "oort", 10, ErrUnknownBelt},
		{"derived swarm", belt.TrojanL4, 10, ErrUnknownBelt},
	}

	e := newTestEngine(t)
	before := e.Snapshot()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := e.SetBeltDensity(tt.belt, tt.count); !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
	if e.Snapshot() != before {
		t.Error("rejected density change republished the scene")
	}
}

func TestEngine_SetSpeed(t *testing.T) {
	e := newTestEngine(t)

	if err := e.SetSpeed(math.NaN()); !errors.Is(err, ErrInvalidSpeed) {
		t.Errorf("SetSpeed(NaN) err = %v, want ErrInvalidSpeed", err)
	}
	if err := e.SetSpeed(100); err != nil {
		t.Fatal(err)
	}
	if e.Speed() != 4000 {
		t.Errorf("Speed() = %g, want 4000", e.Speed())
	}
	if err := e.SetSpeed(-20); err != nil {
		t.Fatal(err)
	}
	if e.Speed() != 1 {
		t.Errorf("Speed() = %g, want 1", e.Speed())
	}
}

func TestEngine_BeltPositions(t *testing.T) {
	e := newTestEngine(t)
	e.Tick(0.016)

	buf, err := e.BeltPositions(belt.Asteroid, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(buf) != 3000 {
		t.Fatalf("len = %d, want 3000", len(buf))
	}
	for i, p := range buf {
		if r := math.Hypot(p[0], math.Hypot(p[1], p[2])); r < 1.8*body.AUToScene || r > 3.7*body.AUToScene {
			t.Fatalf("member %d at radius %g outside the main belt", i, r)
		}
	}

	again, err := e.BeltPositions(belt.Kuiper, buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(again) != 2000 || &again[0] != &buf[0] {
		t.Error("BeltPositions did not reuse dst")
	}

	if _, err := e.BeltPositions("oort", nil); !errors.Is(err, ErrUnknownBelt) {
		t.Errorf("err = %v, want ErrUnknownBelt", err)
	}
}

func TestEngine_BeltStats(t *testing.T) {
	e := newTestEngine(t)
	stats := e.BeltStats()
	if len(stats) != 7 {
		t.Fatalf("stats = %d, want 7", len(stats))
	}
	if stats[0].ID != belt.Asteroid || stats[0].AMin < 2.1*body.AUToScene {
		t.Errorf("asteroid stats = %+v", stats[0])
	}
}

func TestEngine_PositionsAndKeys(t *testing.T) {
	e := newTestEngine(t)
	pos := e.BodyPositions()
	if _, ok := pos["Moon"]; !ok {
		t.Error("BodyPositions missing the Moon")
	}
	if len(pos) != len(body.Planets)+3 {
		t.Errorf("BodyPositions = %d entries", len(pos))
	}

	keys := e.Snapshot().OrbitKeys()
	if err := e.ApplyEdit("Venus", 1.1, 0); err != nil {
		t.Fatal(err)
	}
	after := e.Snapshot().OrbitKeys()
	for i := range keys {
		changed := keys[i] != after[i]
		if changed != (keys[i].Name == "Venus") {
			t.Errorf("%s key changed=%v", keys[i].Name, changed)
		}
	}
}

func TestScheduler_Run(t *testing.T) {
	e := newTestEngine(t)
	sched := NewScheduler(e, time.Millisecond, testLogger())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	deadline := time.After(5 * time.Second)
	for !e.Ready() {
		select {
		case <-deadline:
			cancel()
			t.Fatal("scheduler never ticked")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
