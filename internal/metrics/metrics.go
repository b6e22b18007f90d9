package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solar_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "solar_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	tickDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "solar_tick_duration_seconds",
			Help:    "Wall time spent in one simulation tick.",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.016, 0.025, 0.05, 0.1},
		},
	)

	simulatedDays = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "solar_simulated_days",
			Help: "Total simulated days since the engine started.",
		},
	)

	speedDaysPerSecond = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "solar_speed_days_per_second",
			Help: "Current simulation rate.",
		},
	)

	propagationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "solar_propagation_duration_seconds",
			Help:    "Time spent propagating named bodies in one tick.",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005},
		},
	)

	propagatedBodies = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "solar_propagated_bodies",
			Help: "Named bodies propagated in the last tick.",
		},
	)

	workersConfigured = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "solar_workers",
			Help: "Configured worker pool size.",
		},
	)

	beltPopulation = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "solar_belt_population",
			Help: "Members in each belt population.",
		},
		[]string{"belt"},
	)

	beltChunkSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "solar_belt_chunk_size",
			Help: "Positions recomputed per tick for each belt population.",
		},
		[]string{"belt"},
	)

	beltRebuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solar_belt_rebuilds_total",
			Help: "Belt population rebuilds after density changes.",
		},
		[]string{"belt"},
	)

	editsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solar_edits_total",
			Help: "Orbit edit commands by result.",
		},
		[]string{"result"},
	)

	orbitCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "solar_orbit_cache_hits_total",
			Help: "Orbit path cache hits.",
		},
	)

	orbitCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "solar_orbit_cache_misses_total",
			Help: "Orbit path cache misses (path resampled).",
		},
	)

	orbitCacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "solar_orbit_cache_entries",
			Help: "Orbit paths currently cached.",
		},
	)

	streamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "solar_streams_active",
			Help: "Open SSE frame streams.",
		},
	)

	streamConnectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solar_stream_connections_total",
			Help: "SSE connection attempts by result.",
		},
		[]string{"result"},
	)

	streamMessagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "solar_stream_messages_total",
			Help: "SSE events written.",
		},
	)

	streamBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "solar_stream_bytes_total",
			Help: "SSE bytes written.",
		},
	)

	streamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solar_stream_errors_total",
			Help: "SSE errors by reason.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
	prometheus.MustRegister(tickDurationSeconds)
	prometheus.MustRegister(simulatedDays)
	prometheus.MustRegister(speedDaysPerSecond)
	prometheus.MustRegister(propagationDurationSeconds)
	prometheus.MustRegister(propagatedBodies)
	prometheus.MustRegister(workersConfigured)
	prometheus.MustRegister(beltPopulation)
	prometheus.MustRegister(beltChunkSize)
	prometheus.MustRegister(beltRebuildsTotal)
	prometheus.MustRegister(editsTotal)
	prometheus.MustRegister(orbitCacheHits)
	prometheus.MustRegister(orbitCacheMisses)
	prometheus.MustRegister(orbitCacheEntries)
	prometheus.MustRegister(streamsActive)
	prometheus.MustRegister(streamConnectionsTotal)
	prometheus.MustRegister(streamMessagesTotal)
	prometheus.MustRegister(streamBytesTotal)
	prometheus.MustRegister(streamErrorsTotal)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveTick records the wall time of one simulation tick.
func ObserveTick(d time.Duration) {
	tickDurationSeconds.Observe(d.Seconds())
}

// SetSimulatedDays sets the total simulated time.
func SetSimulatedDays(days float64) {
	simulatedDays.Set(days)
}

// SetSpeed sets the current days-per-second rate.
func SetSpeed(daysPerSecond float64) {
	speedDaysPerSecond.Set(daysPerSecond)
}

// RecordPropagation records a named-body propagation pass.
func RecordPropagation(d time.Duration, bodies int) {
	propagationDurationSeconds.Observe(d.Seconds())
	propagatedBodies.Set(float64(bodies))
}

// SetWorkers records the worker pool size.
func SetWorkers(n int) {
	workersConfigured.Set(float64(n))
}

// SetBeltPopulation records the size and chunk of one belt population.
func SetBeltPopulation(belt string, members, chunk int) {
	beltPopulation.WithLabelValues(belt).Set(float64(members))
	beltChunkSize.WithLabelValues(belt).Set(float64(chunk))
}

// IncBeltRebuilds counts a density-driven rebuild.
func IncBeltRebuilds(belt string) {
	beltRebuildsTotal.WithLabelValues(belt).Inc()
}

// IncEdits counts an edit command; result is "applied", "rejected" or "reset".
func IncEdits(result string) {
	editsTotal.WithLabelValues(result).Inc()
}

// IncCacheHits increments the orbit cache hit counter.
func IncCacheHits() {
	orbitCacheHits.Inc()
}

// IncCacheMisses increments the orbit cache miss counter.
func IncCacheMisses() {
	orbitCacheMisses.Inc()
}

// SetCacheEntries sets the number of cached orbit paths.
func SetCacheEntries(n int) {
	orbitCacheEntries.Set(float64(n))
}

// IncStreamsActive increments the active stream gauge.
func IncStreamsActive() {
	streamsActive.Inc()
}

// DecStreamsActive decrements the active stream gauge.
func DecStreamsActive() {
	streamsActive.Dec()
}

// IncStreamConnections counts an SSE connection attempt by result.
func IncStreamConnections(result string) {
	streamConnectionsTotal.WithLabelValues(result).Inc()
}

// IncStreamMessages counts one SSE event.
func IncStreamMessages() {
	streamMessagesTotal.Inc()
}

// AddStreamBytes adds written SSE bytes.
func AddStreamBytes(n int) {
	streamBytesTotal.Add(float64(n))
}

// IncStreamErrors counts an SSE error by reason.
func IncStreamErrors(reason string) {
	streamErrorsTotal.WithLabelValues(reason).Inc()
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush passes through to the wrapped writer so SSE works behind the middleware.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// knownRoutes are labelled as-is.
var knownRoutes = map[string]bool{
	"/":                     true,
	"/healthz":              true,
	"/readyz":               true,
	"/metrics":              true,
	"/api/v1/bodies":        true,
	"/api/v1/satellites":    true,
	"/api/v1/belts":         true,
	"/api/v1/snapshot":      true,
	"/api/v1/edits":         true,
	"/api/v1/reset/last":    true,
	"/api/v1/reset/all":     true,
	"/api/v1/speed":         true,
	"/api/v1/stream/frames": true,
}

// normalizeRoute maps a request path onto a bounded label set so bodies and
// belts do not each create a series.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	parts := strings.Split(strings.TrimPrefix(path, "/api/v1/"), "/")
	if !strings.HasPrefix(path, "/api/v1/") || len(parts) != 3 || parts[1] == "" {
		return "other"
	}
	switch {
	case parts[0] == "bodies" && parts[2] == "orbit":
		return "/api/v1/bodies/{name}/orbit"
	case parts[0] == "belts" && parts[2] == "positions":
		return "/api/v1/belts/{id}/positions"
	case parts[0] == "belts" && parts[2] == "density":
		return "/api/v1/belts/{id}/density"
	}
	return "other"
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
