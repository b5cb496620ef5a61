package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/paulmach/osm"

	"saferoute/pkg/routing"
	"saferoute/pkg/zone"
)

// stubPlanner records the last query and returns a canned result.
type stubPlanner struct {
	route    *routing.Route
	err      error
	gotStart routing.LatLng
	gotEnd   routing.LatLng
	gotZones *zone.Set
}

func (p *stubPlanner) Plan(_ context.Context, start, end routing.LatLng, zones *zone.Set) (*routing.Route, error) {
	p.gotStart, p.gotEnd, p.gotZones = start, end, zones
	return p.route, p.err
}

func testRoute() *routing.Route {
	return &routing.Route{
		NodeIDs: []osm.NodeID{1001, 1002},
		Points: []routing.LatLng{
			{Lat: 21.1700, Lng: 79.0500},
			{Lat: 21.1700, Lng: 79.0700},
		},
		TotalDistanceMeters: 2075.4,
	}
}

func postRoute(t *testing.T, h *Handlers, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/route", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.HandleRoute(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&e); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return e
}

func TestHandleRouteSuccess(t *testing.T) {
	planner := &stubPlanner{route: testRoute()}
	h := NewHandlers(planner, StatsResponse{}, 40)

	body := `{
		"start": {"lat": 21.1700, "lng": 79.0500},
		"end": {"lat": 21.1700, "lng": 79.0700},
		"danger_zones": [[
			{"lat": 21.1690, "lng": 79.0590},
			{"lat": 21.1690, "lng": 79.0610},
			{"lat": 21.1710, "lng": 79.0610}
		]],
		"tolerance_meters": 25
	}`
	w := postRoute(t, h, body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp RouteResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.TotalDistanceMeters != 2075.4 {
		t.Errorf("total_distance_meters = %f, want 2075.4", resp.TotalDistanceMeters)
	}
	if len(resp.NodeIDs) != 2 || resp.NodeIDs[0] != 1001 || resp.NodeIDs[1] != 1002 {
		t.Errorf("node_ids = %v, want [1001 1002]", resp.NodeIDs)
	}
	if len(resp.Geometry) != 2 || resp.Geometry[0].Lat != 21.1700 {
		t.Errorf("geometry = %v", resp.Geometry)
	}

	if planner.gotStart.Lat != 21.1700 || planner.gotStart.Lng != 79.0500 {
		t.Errorf("planner start = %+v", planner.gotStart)
	}
	if planner.gotEnd.Lng != 79.0700 {
		t.Errorf("planner end = %+v", planner.gotEnd)
	}
	if planner.gotZones == nil || len(planner.gotZones.Zones) != 1 {
		t.Fatalf("planner zones = %+v, want 1 zone", planner.gotZones)
	}
	if planner.gotZones.ToleranceMeters != 25 {
		t.Errorf("tolerance = %f, want request override 25", planner.gotZones.ToleranceMeters)
	}
}

func TestHandleRouteDefaultTolerance(t *testing.T) {
	planner := &stubPlanner{route: testRoute()}
	h := NewHandlers(planner, StatsResponse{}, 40)

	w := postRoute(t, h, `{"start": {"lat": 21.17, "lng": 79.05}, "end": {"lat": 21.17, "lng": 79.07}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if planner.gotZones.ToleranceMeters != 40 {
		t.Errorf("tolerance = %f, want server default 40", planner.gotZones.ToleranceMeters)
	}
	if len(planner.gotZones.Zones) != 0 {
		t.Errorf("zones = %d, want 0", len(planner.gotZones.Zones))
	}
}

func TestHandleRouteBadRequests(t *testing.T) {
	const validStartEnd = `"start": {"lat": 21.17, "lng": 79.05}, "end": {"lat": 21.17, "lng": 79.07}`

	tests := []struct {
		name      string
		body      string
		wantCode  string
		wantField string
	}{
		{
			name:     "malformed json",
			body:     `{"start": `,
			wantCode: "invalid_request",
		},
		{
			name:      "latitude out of range",
			body:      `{"start": {"lat": 95, "lng": 79.05}, "end": {"lat": 21.17, "lng": 79.07}}`,
			wantCode:  "invalid_coordinates",
			wantField: "start",
		},
		{
			name:      "longitude out of range",
			body:      `{"start": {"lat": 21.17, "lng": 79.05}, "end": {"lat": 21.17, "lng": 200}}`,
			wantCode:  "invalid_coordinates",
			wantField: "end",
		},
		{
			name:      "zone ring too short",
			body:      `{` + validStartEnd + `, "danger_zones": [[{"lat": 21.1, "lng": 79.0}, {"lat": 21.2, "lng": 79.1}]]}`,
			wantCode:  "invalid_zone",
			wantField: "danger_zones",
		},
		{
			name:      "zone vertex out of range",
			body:      `{` + validStartEnd + `, "danger_zones": [[{"lat": 91, "lng": 79.0}, {"lat": 21.2, "lng": 79.1}, {"lat": 21.3, "lng": 79.2}]]}`,
			wantCode:  "invalid_zone",
			wantField: "danger_zones",
		},
		{
			name:      "negative tolerance",
			body:      `{` + validStartEnd + `, "tolerance_meters": -5}`,
			wantCode:  "invalid_tolerance",
			wantField: "tolerance_meters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			planner := &stubPlanner{route: testRoute()}
			h := NewHandlers(planner, StatsResponse{}, 40)

			w := postRoute(t, h, tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			e := decodeError(t, w)
			if e.Error != tt.wantCode {
				t.Errorf("error = %q, want %q", e.Error, tt.wantCode)
			}
			if e.Field != tt.wantField {
				t.Errorf("field = %q, want %q", e.Field, tt.wantField)
			}
		})
	}
}

func TestHandleRouteRejectsWrongContentType(t *testing.T) {
	h := NewHandlers(&stubPlanner{route: testRoute()}, StatsResponse{}, 40)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/route",
		strings.NewReader(`{"start": {"lat": 21.17, "lng": 79.05}, "end": {"lat": 21.17, "lng": 79.07}}`))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	h.HandleRoute(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if e := decodeError(t, w); e.Error != "invalid_request" {
		t.Errorf("error = %q, want invalid_request", e.Error)
	}
}

func TestHandleRoutePlannerErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "point too far",
			err:        fmt.Errorf("start: %w", routing.ErrPointTooFar),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "point_too_far_from_road",
		},
		{
			name:       "unknown node",
			err:        routing.ErrUnknownNode,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "unknown_node",
		},
		{
			name:       "no safe route",
			err:        routing.ErrNoSafeRoute,
			wantStatus: http.StatusNotFound,
			wantCode:   "no_safe_route_found",
		},
		{
			name:       "deadline exceeded",
			err:        fmt.Errorf("search aborted: %w", context.DeadlineExceeded),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "request_timeout",
		},
		{
			name:       "unexpected failure",
			err:        errors.New("disk on fire"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandlers(&stubPlanner{err: tt.err}, StatsResponse{}, 40)
			w := postRoute(t, h, `{"start": {"lat": 21.17, "lng": 79.05}, "end": {"lat": 21.17, "lng": 79.07}}`)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if e := decodeError(t, w); e.Error != tt.wantCode {
				t.Errorf("error = %q, want %q", e.Error, tt.wantCode)
			}
		})
	}
}

func TestHandleHealth(t *testing.T) {
	h := NewHandlers(&stubPlanner{}, StatsResponse{}, 40)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	h.HandleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
}

func TestHandleStats(t *testing.T) {
	stats := StatsResponse{NumNodes: 1234, NumEdges: 5678, DefaultToleranceMeters: 40}
	h := NewHandlers(&stubPlanner{}, stats, 40)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	w := httptest.NewRecorder()
	h.HandleStats(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp StatsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp != stats {
		t.Errorf("stats = %+v, want %+v", resp, stats)
	}
}
