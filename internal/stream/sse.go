// Package stream implements Server-Sent Events (SSE) streaming of scene
// frames. Clients connect via GET /api/v1/stream/frames and receive the
// positions of every named body and satellite at the requested interval.
//
// SSE message format:
//
//	id: 812\n
//	data: {"type":"frame","tick":812,"days":1624.5,"date":"...","bodies":[...],"satellites":[...]}\n\n
//
// First message is always metadata:
//
//	data: {"type":"metadata","bodies":["Mercury",...],"satellites":["Moon",...],"scene_bound":1814.4}\n\n
//
// A frame is only sent when the scene has ticked since the previous one.
// Keep-alive comments (:\n\n) are sent every KeepaliveInterval of silence.
package stream

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/httputil"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/kepler"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/metrics"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/sim"
)

// Config holds streaming configuration.
type Config struct {
	MaxConcurrentPerIP int           // Max concurrent streams per IP (default: 10)
	MaxConcurrent      int           // Max concurrent streams overall (default: 1000)
	KeepaliveInterval  time.Duration // Keep-alive ping interval (default: 30s)
	DefaultInterval    time.Duration // Frame interval when the client gives none (default: 100ms)
	MinInterval        time.Duration // Smallest accepted frame interval (default: 16ms)
	MaxInterval        time.Duration // Largest accepted frame interval (default: 10s)
	TrustProxy         bool          // Key limits on X-Forwarded-For / X-Real-IP
}

// DefaultConfig returns the standard streaming configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentPerIP: 10,
		MaxConcurrent:      defaultMaxTotal,
		KeepaliveInterval:  30 * time.Second,
		DefaultInterval:    100 * time.Millisecond,
		MinInterval:        16 * time.Millisecond,
		MaxInterval:        10 * time.Second,
	}
}

// Scene is the read side of the engine that frames are built from.
type Scene interface {
	Snapshot() *sim.Snapshot
}

// Handler manages SSE streaming connections.
type Handler struct {
	scene   Scene
	config  Config
	slots   *streamSlots
	logger  *slog.Logger
}

// NewHandler creates a new streaming handler.
func NewHandler(scene Scene, config Config, logger *slog.Logger) *Handler {
	return &Handler{
		scene:   scene,
		config:  config,
		slots:   newStreamSlots(config.MaxConcurrentPerIP, config.MaxConcurrent),
		logger:  logger,
	}
}

// HandleFrames serves the SSE frame stream.
// GET /api/v1/stream/frames?interval_ms=100&satellites=true
func (h *Handler) HandleFrames(w http.ResponseWriter, r *http.Request) {
	interval := h.config.DefaultInterval
	if v := r.URL.Query().Get("interval_ms"); v != "" {
		n, err := strconv.Atoi(v)
		d := time.Duration(n) * time.Millisecond
		if err != nil || d < h.config.MinInterval || d > h.config.MaxInterval {
			httputil.WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid interval_ms parameter, must be %d-%d",
				h.config.MinInterval.Milliseconds(), h.config.MaxInterval.Milliseconds()))
			return
		}
		interval = d
	}

	withSatellites := true
	if v := r.URL.Query().Get("satellites"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "invalid satellites parameter, must be a boolean")
			return
		}
		withSatellites = b
	}

	// Enforce the concurrent stream limits.
	ip := httputil.ClientIP(r, h.config.TrustProxy)
	release, reason := h.slots.take(ip)
	if release == nil {
		metrics.IncStreamErrors(reason)
		h.logger.Warn("stream limit exceeded",
			"remote_ip", ip,
			"reason", reason,
			"current_count", h.slots.held(ip),
		)
		w.Header().Set("Retry-After", "30")
		httputil.WriteError(w, http.StatusTooManyRequests, "too many concurrent streams")
		return
	}

	metrics.IncStreamConnections("connect")
	metrics.IncStreamsActive()

	startTime := time.Now()
	h.logger.Info("stream connected",
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
		"last_event_id", r.Header.Get("Last-Event-ID"),
		"interval_ms", interval.Milliseconds(),
		"satellites", withSatellites,
	)

	ew := newEventWriter(w, ip, h.logger)
	defer func() {
		release()
		metrics.IncStreamConnections("disconnect")
		metrics.DecStreamsActive()
		h.logger.Info("stream disconnected",
			"remote_ip", ip,
			"duration_seconds", int(time.Since(startTime).Seconds()),
			"events", ew.events,
			"bytes", ew.written,
		)
	}()

	if _, ok := w.(http.Flusher); !ok {
		httputil.WriteError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	// Jittered retry (3-7s) spreads reconnects after a restart.
	if err := ew.retry(time.Duration(3000+rand.IntN(4000)) * time.Millisecond); err != nil {
		h.logger.Debug("stream closed before first event", "remote_ip", ip, "error", err)
		return
	}

	snap := h.scene.Snapshot()
	if err := ew.event("", buildMetadata(snap, withSatellites)); err != nil {
		metrics.IncStreamErrors("send_error")
		h.logger.Warn("stream send error (metadata)", "remote_ip", ip, "error", err)
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	keepalive := time.NewTicker(h.config.KeepaliveInterval)
	defer keepalive.Stop()

	lastTick := snap.Tick
	sent := false
	ctx := r.Context()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			snap = h.scene.Snapshot()
			if sent && snap.Tick == lastTick {
				continue
			}
			if err := ew.event(strconv.FormatUint(snap.Tick, 10), buildFrame(snap, withSatellites)); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream send error", "remote_ip", ip, "error", err)
				return
			}
			lastTick, sent = snap.Tick, true
			keepalive.Reset(h.config.KeepaliveInterval)

		case <-keepalive.C:
			if err := ew.comment(); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream keepalive error", "remote_ip", ip, "error", err)
				return
			}
		}
	}
}

// buildMetadata lists the names a client will see in frames.
func buildMetadata(s *sim.Snapshot, withSatellites bool) metadataMessage {
	meta := metadataMessage{
		Type:       "metadata",
		Bodies:     make([]string, len(s.Bodies)),
		SceneBound: s.Bound,
	}
	for i, b := range s.Bodies {
		meta.Bodies[i] = b.Name
	}
	if withSatellites {
		meta.Satellites = make([]string, len(s.Satellites))
		for i, sat := range s.Satellites {
			meta.Satellites[i] = sat.Name
		}
	}
	return meta
}

// buildFrame formats a snapshot into the SSE frame payload.
func buildFrame(s *sim.Snapshot, withSatellites bool) frameMessage {
	msg := frameMessage{
		Type:   "frame",
		Tick:   s.Tick,
		Days:   s.Days,
		Date:   s.Date.UTC().Format(time.RFC3339),
		Rate:   s.Rate,
		Bodies: make([]bodyPayload, len(s.Bodies)),
	}
	for i, b := range s.Bodies {
		msg.Bodies[i] = bodyPayload{Name: b.Name, P: b.Position, Rev: b.Revision}
	}
	if withSatellites {
		msg.Satellites = make([]bodyPayload, len(s.Satellites))
		for i, sat := range s.Satellites {
			msg.Satellites[i] = bodyPayload{Name: sat.Name, P: sat.Position}
		}
	}
	return msg
}

// SSE message payload types.

type metadataMessage struct {
	Type       string   `json:"type"`
	Bodies     []string `json:"bodies"`
	Satellites []string `json:"satellites,omitempty"`
	SceneBound float64  `json:"scene_bound"`
}

type frameMessage struct {
	Type       string        `json:"type"`
	Tick       uint64        `json:"tick"`
	Days       float64       `json:"days"`
	Date       string        `json:"date"`
	Rate       float64       `json:"days_per_second"`
	Bodies     []bodyPayload `json:"bodies"`
	Satellites []bodyPayload `json:"satellites,omitempty"`
}

type bodyPayload struct {
	Name string      `json:"name"`
	P    kepler.Vec3 `json:"p"`
	Rev  uint64      `json:"rev,omitempty"`
}
