package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"mime"
	"net/http"

	"saferoute/pkg/routing"
	"saferoute/pkg/zone"
)

// maxRequestBytes bounds the request body; zone rings can be sizable.
const maxRequestBytes = 1 << 20

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	planner   routing.Planner
	stats     StatsResponse
	tolerance float64 // default buffer when the request has none
}

// NewHandlers creates handlers with the given planner.
func NewHandlers(planner routing.Planner, stats StatsResponse, defaultTolerance float64) *Handlers {
	return &Handlers{
		planner:   planner,
		stats:     stats,
		tolerance: defaultTolerance,
	}
}

// HandleRoute handles POST /api/v1/route.
func (h *Handlers) HandleRoute(w http.ResponseWriter, r *http.Request) {
	// Enforce Content-Type.
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return
	}

	// Parse request.
	var req RouteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return
	}

	// Validate coordinates.
	if err := validateCoord(req.Start); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "start")
		return
	}
	if err := validateCoord(req.End); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "end")
		return
	}

	// Validate tolerance.
	tolerance := h.tolerance
	if req.ToleranceMeters != nil {
		t := *req.ToleranceMeters
		if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
			writeError(w, http.StatusBadRequest, "invalid_tolerance", "tolerance_meters")
			return
		}
		tolerance = t
	}

	// Validate and build zones.
	zones := make([]zone.Zone, 0, len(req.DangerZones))
	for _, ring := range req.DangerZones {
		if len(ring) < 3 {
			writeError(w, http.StatusBadRequest, "invalid_zone", "danger_zones")
			return
		}
		vertices := make([][2]float64, len(ring))
		for i, v := range ring {
			if err := validateCoord(v); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_zone", "danger_zones")
				return
			}
			vertices[i] = [2]float64{v.Lat, v.Lng}
		}
		zones = append(zones, zone.FromVertices(vertices))
	}

	// Plan.
	result, err := h.planner.Plan(r.Context(),
		routing.LatLng{Lat: req.Start.Lat, Lng: req.Start.Lng},
		routing.LatLng{Lat: req.End.Lat, Lng: req.End.Lng},
		zone.NewSet(tolerance, zones...))
	if err != nil {
		if errors.Is(err, routing.ErrPointTooFar) {
			writeError(w, http.StatusUnprocessableEntity, "point_too_far_from_road", "")
			return
		}
		if errors.Is(err, routing.ErrUnknownNode) {
			writeError(w, http.StatusUnprocessableEntity, "unknown_node", "")
			return
		}
		if errors.Is(err, routing.ErrNoSafeRoute) {
			writeError(w, http.StatusNotFound, "no_safe_route_found", "")
			return
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			writeError(w, http.StatusServiceUnavailable, "request_timeout", "")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	// Build response.
	resp := RouteResponse{
		TotalDistanceMeters: result.TotalDistanceMeters,
		NodeIDs:             make([]int64, len(result.NodeIDs)),
		Geometry:            make([]LatLngJSON, len(result.Points)),
	}
	for i, id := range result.NodeIDs {
		resp.NodeIDs[i] = int64(id)
	}
	for i, p := range result.Points {
		resp.Geometry[i] = LatLngJSON{Lat: p.Lat, Lng: p.Lng}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(HealthResponse{Status: "ok"})
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.stats)
}

func validateCoord(ll LatLngJSON) error {
	if math.IsNaN(ll.Lat) || math.IsNaN(ll.Lng) || math.IsInf(ll.Lat, 0) || math.IsInf(ll.Lng, 0) {
		return errors.New("coordinates must be finite numbers")
	}
	if ll.Lat < -90 || ll.Lat > 90 || ll.Lng < -180 || ll.Lng > 180 {
		return errors.New("coordinates out of range")
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, code, field string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: code, Field: field})
}
