package api

// RouteRequest is the JSON body for POST /api/v1/route.
// Danger zones are polygon rings of lat/lng vertices; the first and last
// vertex are implicitly connected. tolerance_meters overrides the server's
// default buffer distance for this query only.
type RouteRequest struct {
	Start           LatLngJSON     `json:"start"`
	End             LatLngJSON     `json:"end"`
	DangerZones     [][]LatLngJSON `json:"danger_zones,omitempty"`
	ToleranceMeters *float64       `json:"tolerance_meters,omitempty"`
}

// LatLngJSON represents a lat/lng pair in JSON.
type LatLngJSON struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RouteResponse is the JSON response for a successful route query.
type RouteResponse struct {
	TotalDistanceMeters float64      `json:"total_distance_meters"`
	NodeIDs             []int64      `json:"node_ids"`
	Geometry            []LatLngJSON `json:"geometry"`
}

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// StatsResponse is the JSON response for GET /api/v1/stats.
type StatsResponse struct {
	NumNodes               uint32  `json:"num_nodes"`
	NumEdges               uint32  `json:"num_edges"`
	DefaultToleranceMeters float64 `json:"default_tolerance_meters"`
}

// HealthResponse is the JSON response for GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}
