package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/body"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/httputil"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/kepler"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/sim"
)

// maxBodyBytes caps control request bodies.
const maxBodyBytes = 1 << 16

var gravity = body.DefaultGravity()

// beltBuffers recycles position buffers between belt read-outs.
var beltBuffers = sync.Pool{
	New: func() any { return new([]kepler.Vec3) },
}

type bodyResponse struct {
	Name         string          `json:"name"`
	Position     kepler.Vec3     `json:"position"`
	Elements     kepler.Elements `json:"elements"`
	Baseline     kepler.Elements `json:"baseline"`
	Apoapsis     float64         `json:"apoapsis"`
	Periapsis    float64         `json:"periapsis"`
	PeriodDays   float64         `json:"period_days"`
	VisualRadius float64         `json:"visual_radius"`
	Revision     uint64          `json:"revision"`
	Edited       bool            `json:"edited"`
}

func newBodyResponse(b sim.BodyState) bodyResponse {
	return bodyResponse{
		Name:         b.Name,
		Position:     b.Position,
		Elements:     b.Elements,
		Baseline:     b.Baseline,
		Apoapsis:     b.Elements.Apoapsis(),
		Periapsis:    b.Elements.Periapsis(),
		PeriodDays:   gravity.Period(b.Elements.A),
		VisualRadius: b.VisualRadius,
		Revision:     b.Revision,
		Edited:       b.Elements != b.Baseline,
	}
}

type bodiesResponse struct {
	Tick       uint64         `json:"tick"`
	SceneBound float64        `json:"scene_bound"`
	Bodies     []bodyResponse `json:"bodies"`
}

func (s *Server) bodies() bodiesResponse {
	snap := s.engine.Snapshot()
	resp := bodiesResponse{
		Tick:       snap.Tick,
		SceneBound: snap.Bound,
		Bodies:     make([]bodyResponse, len(snap.Bodies)),
	}
	for i, b := range snap.Bodies {
		resp.Bodies[i] = newBodyResponse(b)
	}
	return resp
}

// handleSnapshot returns the whole published scene without belt members.
// GET /api/v1/snapshot
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, s.engine.Snapshot())
}

// GET /api/v1/bodies
func (s *Server) handleBodies(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, s.bodies())
}

// GET /api/v1/satellites
func (s *Server) handleSatellites(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"satellites": s.engine.Snapshot().Satellites})
}

type orbitResponse struct {
	Name     string        `json:"name"`
	Revision uint64        `json:"revision"`
	A        float64       `json:"a"`
	E        float64       `json:"e"`
	I        float64       `json:"i"`
	Extent   float64       `json:"extent"`
	Points   []kepler.Vec3 `json:"points"`
}

// handleOrbit returns the sampled orbit path of one body.
// GET /api/v1/bodies/{name}/orbit
func (s *Server) handleOrbit(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	b, ok := s.engine.Snapshot().Body(name)
	if !ok {
		s.writeEngineError(w, fmt.Errorf("%q: %w", name, sim.ErrUnknownBody))
		return
	}

	p := s.orbits.Lookup(b.Path())
	httputil.WriteJSON(w, http.StatusOK, orbitResponse{
		Name:     p.Key.Name,
		Revision: p.Key.Revision,
		A:        p.Key.A,
		E:        p.Key.E,
		I:        p.Key.I,
		Extent:   p.Extent,
		Points:   p.Points,
	})
}

// GET /api/v1/belts
func (s *Server) handleBelts(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"belts": s.engine.BeltStats()})
}

type beltPositionsResponse struct {
	ID        string        `json:"id"`
	Count     int           `json:"count"`
	Stride    int           `json:"stride"`
	Positions []kepler.Vec3 `json:"positions"`
}

// handleBeltPositions returns every stride-th member position of a belt.
// GET /api/v1/belts/{id}/positions?stride=1
func (s *Server) handleBeltPositions(w http.ResponseWriter, r *http.Request) {
	stride := 1
	if v := r.URL.Query().Get("stride"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > s.config.MaxStride {
			httputil.WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid stride parameter, must be 1-%d", s.config.MaxStride))
			return
		}
		stride = n
	}

	bufp := beltBuffers.Get().(*[]kepler.Vec3)
	defer beltBuffers.Put(bufp)

	id := r.PathValue("id")
	all, err := s.engine.BeltPositions(id, *bufp)
	*bufp = all
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	out := make([]kepler.Vec3, 0, (len(all)+stride-1)/stride)
	for i := 0; i < len(all); i += stride {
		out = append(out, all[i])
	}
	httputil.WriteJSON(w, http.StatusOK, beltPositionsResponse{
		ID:        id,
		Count:     len(all),
		Stride:    stride,
		Positions: out,
	})
}

type speedResponse struct {
	DaysPerSecond float64 `json:"days_per_second"`
	Slider        float64 `json:"slider"`
}

func (s *Server) speed() speedResponse {
	snap := s.engine.Snapshot()
	return speedResponse{DaysPerSecond: snap.Rate, Slider: snap.Slider}
}

// GET /api/v1/speed
func (s *Server) handleGetSpeed(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, s.speed())
}

type editRequest struct {
	Body    string   `json:"body"`
	Factor  *float64 `json:"factor"`
	TiltDeg *float64 `json:"tilt_deg"`
}

// handleEdit applies a velocity and tilt edit to one body.
// POST /api/v1/edits {"body":"Mars","factor":1.2,"tilt_deg":5}
func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Body == "" || req.Factor == nil || req.TiltDeg == nil {
		httputil.WriteError(w, http.StatusBadRequest, "body, factor and tilt_deg are required")
		return
	}

	if err := s.engine.ApplyEdit(req.Body, *req.Factor, *req.TiltDeg); err != nil {
		s.writeEngineError(w, err)
		return
	}

	b, _ := s.engine.Snapshot().Body(req.Body)
	httputil.WriteJSON(w, http.StatusOK, newBodyResponse(b))
}

// POST /api/v1/reset/last
func (s *Server) handleResetLast(w http.ResponseWriter, r *http.Request) {
	s.engine.ResetLast()
	httputil.WriteJSON(w, http.StatusOK, s.bodies())
}

// POST /api/v1/reset/all
func (s *Server) handleResetAll(w http.ResponseWriter, r *http.Request) {
	s.engine.ResetAll()
	httputil.WriteJSON(w, http.StatusOK, s.bodies())
}

type densityRequest struct {
	Count *int `json:"count"`
}

// handleDensity rebuilds a belt with a new member count.
// PUT /api/v1/belts/{id}/density {"count":200000}
func (s *Server) handleDensity(w http.ResponseWriter, r *http.Request) {
	var req densityRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Count == nil {
		httputil.WriteError(w, http.StatusBadRequest, "count is required")
		return
	}

	if err := s.engine.SetBeltDensity(r.PathValue("id"), *req.Count); err != nil {
		s.writeEngineError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"belts": s.engine.Snapshot().Belts})
}

type speedRequest struct {
	Slider *float64 `json:"slider"`
}

// handleSetSpeed moves the speed slider.
// PUT /api/v1/speed {"slider":58}
func (s *Server) handleSetSpeed(w http.ResponseWriter, r *http.Request) {
	var req speedRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Slider == nil {
		httputil.WriteError(w, http.StatusBadRequest, "slider is required")
		return
	}

	if err := s.engine.SetSpeed(*req.Slider); err != nil {
		s.writeEngineError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, s.speed())
}

// decode reads a JSON request body into v, writing a 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// writeEngineError maps engine errors onto HTTP status codes.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, sim.ErrUnknownBody), errors.Is(err, sim.ErrUnknownBelt):
		status = http.StatusNotFound
	case errors.Is(err, sim.ErrInvalidEdit), errors.Is(err, sim.ErrInvalidDensity), errors.Is(err, sim.ErrInvalidSpeed):
		status = http.StatusBadRequest
	default:
		s.logger.Error("engine error", "error", err)
	}
	httputil.WriteError(w, status, err.Error())
}
