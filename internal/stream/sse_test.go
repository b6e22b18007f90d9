package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/kepler"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/sim"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// fakeScene returns a fixed scene whose tick advances only when the test
// says so.
type fakeScene struct {
	tick atomic.Uint64
}

func (f *fakeScene) Snapshot() *sim.Snapshot {
	return testSnapshot(f.tick.Load())
}

func testSnapshot(tick uint64) *sim.Snapshot {
	return &sim.Snapshot{
		Tick:  tick,
		Days:  float64(tick) * 2,
		Date:  time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC),
		Rate:  120,
		Bound: 1814.4,
		Bodies: []sim.BodyState{
			{Name: "Earth", Position: kepler.Vec3{30, 0, 0}, Revision: 2},
			{Name: "Mars", Position: kepler.Vec3{0, 0, -45.7}},
		},
		Satellites: []sim.SatelliteState{
			{Name: "Moon", Parent: "Earth", Position: kepler.Vec3{30.07, 0, 0}},
		},
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MinInterval = time.Millisecond
	return cfg
}

// readDataLines returns the decoded JSON of every "data:" line in body.
func readDataLines(t *testing.T, body string) []map[string]any {
	t.Helper()
	var out []map[string]any
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var msg map[string]any
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &msg); err != nil {
			t.Errorf("invalid JSON in SSE data line: %v", err)
			continue
		}
		out = append(out, msg)
	}
	return out
}

// TestBuildFrame verifies the frame payload structure.
func TestBuildFrame(t *testing.T) {
	msg := buildFrame(testSnapshot(7), true)

	if msg.Type != "frame" {
		t.Errorf("type = %q, want frame", msg.Type)
	}
	if msg.Tick != 7 || msg.Days != 14 {
		t.Errorf("tick/days = %d/%g, want 7/14", msg.Tick, msg.Days)
	}
	if msg.Date != "2000-01-01T12:00:00Z" {
		t.Errorf("date = %q", msg.Date)
	}
	if len(msg.Bodies) != 2 || msg.Bodies[0].Name != "Earth" || msg.Bodies[0].P != (kepler.Vec3{30, 0, 0}) {
		t.Errorf("bodies = %+v", msg.Bodies)
	}
	if msg.Bodies[0].Rev != 2 {
		t.Errorf("rev = %d, want 2", msg.Bodies[0].Rev)
	}
	if len(msg.Satellites) != 1 {
		t.Errorf("satellites = %d, want 1", len(msg.Satellites))
	}

	if bare := buildFrame(testSnapshot(7), false); bare.Satellites != nil {
		t.Error("satellites included when disabled")
	}
}

// TestFrameJSON verifies the field names clients rely on.
func TestFrameJSON(t *testing.T) {
	data, err := json.Marshal(buildFrame(testSnapshot(3), false))
	if err != nil {
		t.Fatal(err)
	}

	var parsed map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"type", "tick", "days", "date", "days_per_second", "bodies"} {
		if _, ok := parsed[key]; !ok {
			t.Errorf("frame missing %q", key)
		}
	}
	if _, ok := parsed["satellites"]; ok {
		t.Error("empty satellites should be omitted")
	}

	body := parsed["bodies"].([]any)[0].(map[string]any)
	p := body["p"].([]any)
	if len(p) != 3 || p[0].(float64) != 30 {
		t.Errorf("p = %v, want [30 0 0]", p)
	}
}

// TestBuildMetadata verifies the metadata message lists every name.
func TestBuildMetadata(t *testing.T) {
	meta := buildMetadata(testSnapshot(0), true)
	if meta.Type != "metadata" || meta.SceneBound != 1814.4 {
		t.Errorf("meta = %+v", meta)
	}
	if len(meta.Bodies) != 2 || meta.Bodies[1] != "Mars" {
		t.Errorf("bodies = %v", meta.Bodies)
	}
	if len(meta.Satellites) != 1 || meta.Satellites[0] != "Moon" {
		t.Errorf("satellites = %v", meta.Satellites)
	}
}

// TestSSEMessageFormat verifies the SSE wire format: "[id: tick\n]data: {json}\n\n".
func TestSSEMessageFormat(t *testing.T) {
	scene := &fakeScene{}
	scene.tick.Store(1)
	handler := NewHandler(scene, testConfig(), testLogger())

	req := httptest.NewRequest("GET", "/api/v1/stream/frames?interval_ms=10", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	ctx, cancel := context.WithTimeout(req.Context(), 300*time.Millisecond)
	defer cancel()
	req = req.WithContext(ctx)

	// Advance the scene while the stream is open.
	go func() {
		for i := 0; i < 5; i++ {
			time.Sleep(30 * time.Millisecond)
			scene.tick.Add(1)
		}
	}()

	w := httptest.NewRecorder()
	handler.HandleFrames(w, req)

	resp := w.Result()
	if resp.Header.Get("Content-Type") != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", resp.Header.Get("Content-Type"))
	}
	if resp.Header.Get("Cache-Control") != "no-cache" {
		t.Errorf("Cache-Control = %q, want no-cache", resp.Header.Get("Cache-Control"))
	}

	body := w.Body.String()
	msgs := readDataLines(t, body)
	if len(msgs) < 2 {
		t.Fatalf("got %d messages, want metadata and at least one frame", len(msgs))
	}
	if msgs[0]["type"] != "metadata" {
		t.Errorf("first message type = %v, want metadata", msgs[0]["type"])
	}

	var lastTick float64
	for _, m := range msgs[1:] {
		if m["type"] != "frame" {
			t.Errorf("type = %v, want frame", m["type"])
			continue
		}
		tick := m["tick"].(float64)
		if tick <= lastTick && lastTick != 0 {
			t.Errorf("frame tick %g repeated after %g", tick, lastTick)
		}
		lastTick = tick
	}

	for _, line := range strings.Split(body, "\n") {
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "data: ") && !strings.HasPrefix(line, "id: ") &&
			!strings.HasPrefix(line, "retry: ") && line != ":" {
			t.Errorf("unexpected SSE line: %q", line)
		}
	}

	// Every frame is preceded by its tick as the event id.
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if !strings.HasPrefix(line, "id: ") {
			continue
		}
		if i+1 >= len(lines) || !strings.HasPrefix(lines[i+1], `data: {"type":"frame","tick":`+strings.TrimPrefix(line, "id: ")+",") {
			t.Errorf("id line %q not followed by the matching frame", line)
		}
	}
}

// TestKeepalive verifies that an idle stream sends SSE comments.
func TestKeepalive(t *testing.T) {
	scene := &fakeScene{}
	cfg := testConfig()
	cfg.KeepaliveInterval = 20 * time.Millisecond
	cfg.MaxInterval = time.Minute
	handler := NewHandler(scene, cfg, testLogger())

	req := httptest.NewRequest("GET", "/api/v1/stream/frames?interval_ms=60000", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	ctx, cancel := context.WithTimeout(req.Context(), 100*time.Millisecond)
	defer cancel()
	req = req.WithContext(ctx)

	w := httptest.NewRecorder()
	handler.HandleFrames(w, req)

	if !strings.Contains(w.Body.String(), "\n:\n\n") {
		t.Errorf("no keepalive in body %q", w.Body.String())
	}
}

// TestStreamSlots verifies per-IP concurrent stream limits.
func TestStreamSlots(t *testing.T) {
	slots := newStreamSlots(3, 0)

	var first func()
	for i := 0; i < 3; i++ {
		release, reason := slots.take("10.0.0.1")
		if release == nil {
			t.Fatalf("take %d rejected (%s), want success", i+1, reason)
		}
		if first == nil {
			first = release
		}
	}
	if release, reason := slots.take("10.0.0.1"); release != nil || reason != reasonPerIP {
		t.Errorf("take beyond per-IP limit: reason = %q, want %q", reason, reasonPerIP)
	}
	if release, _ := slots.take("10.0.0.2"); release == nil {
		t.Error("different IP should not be limited")
	}

	first()
	first() // second call is a no-op
	if release, _ := slots.take("10.0.0.1"); release == nil {
		t.Error("take after release should succeed")
	}

	if c := slots.held("10.0.0.1"); c != 3 {
		t.Errorf("held = %d, want 3", c)
	}
	if c := slots.held("10.0.0.2"); c != 1 {
		t.Errorf("held = %d, want 1", c)
	}
	if a := slots.inUse(); a != 4 {
		t.Errorf("inUse = %d, want 4", a)
	}
}

// TestStreamSlots_Global verifies the cap across all clients.
func TestStreamSlots_Global(t *testing.T) {
	slots := newStreamSlots(5, 2)
	a, _ := slots.take("a")
	b, _ := slots.take("b")
	if a == nil || b == nil {
		t.Fatal("first two takes should succeed")
	}
	if release, reason := slots.take("c"); release != nil || reason != reasonGlobal {
		t.Errorf("take beyond global limit: reason = %q, want %q", reason, reasonGlobal)
	}
}

// TestStreamSlots_Concurrent verifies thread safety.
func TestStreamSlots_Concurrent(t *testing.T) {
	slots := newStreamSlots(100, 0)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if release, _ := slots.take("10.0.0.1"); release != nil {
				defer release()
				time.Sleep(10 * time.Millisecond)
			}
		}()
	}
	wg.Wait()

	if c := slots.held("10.0.0.1"); c != 0 {
		t.Errorf("held after all released = %d, want 0", c)
	}
	if a := slots.inUse(); a != 0 {
		t.Errorf("inUse after all released = %d, want 0", a)
	}
}

// TestRateLimitHTTPResponse verifies 429 response when limit exceeded.
func TestRateLimitHTTPResponse(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrentPerIP = 1
	handler := NewHandler(&fakeScene{}, cfg, testLogger())

	ready := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		req := httptest.NewRequest("GET", "/api/v1/stream/frames", nil)
		req.RemoteAddr = "10.0.0.1:12345"
		ctx, cancel := context.WithCancel(req.Context())
		req = req.WithContext(ctx)
		w := httptest.NewRecorder()

		go func() {
			time.Sleep(50 * time.Millisecond)
			close(ready)
			time.Sleep(200 * time.Millisecond)
			cancel()
		}()

		handler.HandleFrames(w, req)
	}()

	<-ready

	req := httptest.NewRequest("GET", "/api/v1/stream/frames", nil)
	req.RemoteAddr = "10.0.0.1:54321"
	w := httptest.NewRecorder()
	handler.HandleFrames(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}

	<-done
	if n := handler.slots.inUse(); n != 0 {
		t.Errorf("inUse = %d after disconnect, want 0", n)
	}
}

// TestInvalidQueryParams verifies error responses for bad parameters.
func TestInvalidQueryParams(t *testing.T) {
	handler := NewHandler(&fakeScene{}, DefaultConfig(), testLogger())

	tests := []struct {
		name  string
		query string
	}{
		{"interval too small", "?interval_ms=1"},
		{"interval too large", "?interval_ms=60000"},
		{"interval non-numeric", "?interval_ms=abc"},
		{"satellites not bool", "?satellites=maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/stream/frames"+tt.query, nil)
			req.RemoteAddr = "127.0.0.1:12345"
			w := httptest.NewRecorder()
			handler.HandleFrames(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}
