// Package api serves the control and read-out HTTP surface of the scene.
package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/auth"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/belt"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/body"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/cache"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/health"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/httputil"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/metrics"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/sim"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/stream"
)

// Config holds HTTP server configuration.
type Config struct {
	Addr       string  // Listen address (default: ":8080")
	EditRate   float64 // Sustained control requests per second per IP (default: 20)
	EditBurst  int     // Control request burst per IP (default: 40)
	MaxStride  int     // Largest accepted belt decimation stride (default: 1000)
	TrustProxy bool    // Key limits on X-Forwarded-For / X-Real-IP
}

// DefaultConfig returns the standard server configuration.
func DefaultConfig() Config {
	return Config{Addr: ":8080", EditRate: 20, EditBurst: 40, MaxStride: 1000}
}

// Engine is everything the API needs from the scene. *sim.Engine satisfies it.
type Engine interface {
	sim.Controller
	sim.Scene
	BeltStats() []belt.Stats
}

// Orbits supplies sampled orbit paths. *cache.OrbitCache satisfies it.
type Orbits interface {
	Lookup(key body.PathKey) *cache.Path
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	config     Config
	engine     Engine
	orbits     Orbits
	limiter    *ipRateLimiter
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(config Config, logger *slog.Logger, authCfg auth.Config, engine Engine, orbits Orbits, streamHandler *stream.Handler) *Server {
	def := DefaultConfig()
	if config.MaxStride < 1 {
		config.MaxStride = def.MaxStride
	}
	if config.EditRate <= 0 || config.EditBurst < 1 {
		config.EditRate, config.EditBurst = def.EditRate, def.EditBurst
	}

	s := &Server{
		config:  config,
		engine:  engine,
		orbits:  orbits,
		limiter: newIPRateLimiter(rate.Limit(config.EditRate), config.EditBurst),
		logger:  logger,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(engine))
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/v1/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /api/v1/bodies", s.handleBodies)
	mux.HandleFunc("GET /api/v1/bodies/{name}/orbit", s.handleOrbit)
	mux.HandleFunc("GET /api/v1/satellites", s.handleSatellites)
	mux.HandleFunc("GET /api/v1/belts", s.handleBelts)
	mux.HandleFunc("GET /api/v1/belts/{id}/positions", s.handleBeltPositions)
	mux.HandleFunc("GET /api/v1/speed", s.handleGetSpeed)
	mux.HandleFunc("GET /api/v1/stream/frames", streamHandler.HandleFrames)

	mux.HandleFunc("POST /api/v1/edits", s.limit(s.handleEdit))
	mux.HandleFunc("POST /api/v1/reset/last", s.limit(s.handleResetLast))
	mux.HandleFunc("POST /api/v1/reset/all", s.limit(s.handleResetAll))
	mux.HandleFunc("PUT /api/v1/belts/{id}/density", s.limit(s.handleDensity))
	mux.HandleFunc("PUT /api/v1/speed", s.limit(s.handleSetSpeed))

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(authCfg)(handler)
	handler = loggingMiddleware(logger, config.TrustProxy)(handler)
	handler = metrics.Middleware(handler)

	s.httpServer = &http.Server{
		Addr:              config.Addr,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz" || path == "/metrics"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func loggingMiddleware(logger *slog.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_ip", httputil.ClientIP(r, trustProxy),
			)
		})
	}
}
