package routing

import (
	"context"
	"errors"
	"fmt"

	"github.com/paulmach/osm"

	"saferoute/pkg/geo"
	"saferoute/pkg/graph"
	"saferoute/pkg/zone"
)

// ErrNoSafeRoute means no path exists that avoids every buffered danger
// zone. This is an expected outcome, not a fault: callers branch on it
// (relax the tolerance, try another goal) rather than treating it as failure.
var ErrNoSafeRoute = errors.New("no safe route found")

// ErrUnknownNode is returned when a start or goal node ID is not present
// in the routing table.
var ErrUnknownNode = errors.New("node not in routing table")

// LatLng represents a geographic coordinate.
type LatLng struct {
	Lat float64
	Lng float64
}

// Route is the result of a safe-route query: the ordered node sequence
// from start to goal and the accumulated path length.
type Route struct {
	NodeIDs             []osm.NodeID
	Points              []LatLng
	TotalDistanceMeters float64
}

// Planner is the interface for safe-route queries by coordinate.
type Planner interface {
	Plan(ctx context.Context, start, end LatLng, zones *zone.Set) (*Route, error)
}

// Engine answers safe-route queries against a read-only routing table.
// One Engine may serve concurrent queries; each query allocates its own
// search state.
type Engine struct {
	table   *graph.Table
	snapper *Snapper
}

// NewEngine creates a routing engine (and its snap index) for a table.
func NewEngine(t *graph.Table) *Engine {
	return &Engine{table: t, snapper: NewSnapper(t)}
}

// Plan snaps both coordinates to their nearest road nodes and finds the
// shortest route between them that avoids every buffered zone.
func (e *Engine) Plan(ctx context.Context, start, end LatLng, zones *zone.Set) (*Route, error) {
	s, err := e.snapper.NearestNode(start.Lat, start.Lng)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	g, err := e.snapper.NearestNode(end.Lat, end.Lng)
	if err != nil {
		return nil, fmt.Errorf("end: %w", err)
	}
	return e.findRoute(ctx, s, g, zones)
}

// FindRoute finds the shortest safe route between two known node IDs.
func (e *Engine) FindRoute(ctx context.Context, startID, goalID osm.NodeID, zones *zone.Set) (*Route, error) {
	s, ok := e.table.IndexOf(startID)
	if !ok {
		return nil, fmt.Errorf("start node %d: %w", startID, ErrUnknownNode)
	}
	g, ok := e.table.IndexOf(goalID)
	if !ok {
		return nil, fmt.Errorf("goal node %d: %w", goalID, ErrUnknownNode)
	}
	return e.findRoute(ctx, s, g, zones)
}

// findRoute runs A* over the table. The heuristic is the great-circle
// distance to the goal, truncated to millimeters: edge weights are
// geo-distances themselves, so any path between two nodes is at least as
// long as the great-circle distance between them and the heuristic never
// overestimates. Edges whose segment crosses a buffered zone are skipped
// before relaxation, so a blocked edge can never enter the open set.
func (e *Engine) findRoute(ctx context.Context, start, goal uint32, zones *zone.Set) (*Route, error) {
	t := e.table

	if start == goal {
		lat, lon := t.Coord(start)
		return &Route{
			NodeIDs: []osm.NodeID{t.NodeIDs[start]},
			Points:  []LatLng{{Lat: lat, Lng: lon}},
		}, nil
	}

	goalLat, goalLon := t.Coord(goal)
	h := func(u uint32) uint32 {
		lat, lon := t.Coord(u)
		// Truncate, never round up: keeps the estimate a lower bound.
		return uint32(geo.Haversine(lat, lon, goalLat, goalLon) * 1000)
	}

	qs := NewQueryState(t.NumNodes)
	qs.touch(start, 0, noNode)
	qs.PQ.Push(start, h(start), 0)

	pops := 0
	for qs.PQ.Len() > 0 {
		pops++
		if pops%128 == 0 && ctx.Err() != nil {
			return nil, fmt.Errorf("search aborted: %w", ctx.Err())
		}

		item := qs.PQ.Pop()
		u := item.Node
		if item.G > qs.Dist[u] {
			continue // stale entry
		}
		if u == goal {
			return e.reconstruct(qs, start, goal), nil
		}

		uLat, uLon := t.Coord(u)
		eStart, eEnd := t.EdgesFrom(u)
		for ei := eStart; ei < eEnd; ei++ {
			v := t.Head[ei]
			vLat, vLon := t.Coord(v)
			if zones.SegmentBlocked(uLat, uLon, vLat, vLon) {
				continue
			}
			ng := item.G + t.Weight[ei]
			if ng < qs.Dist[v] {
				qs.touch(v, ng, u)
				qs.PQ.Push(v, ng+h(v), ng)
			}
		}
	}

	return nil, ErrNoSafeRoute
}

// reconstruct walks predecessor links from goal back to start and builds
// the ordered route.
func (e *Engine) reconstruct(qs *QueryState, start, goal uint32) *Route {
	t := e.table

	var rev []uint32
	for u := goal; u != noNode; u = qs.Pred[u] {
		rev = append(rev, u)
	}

	route := &Route{
		NodeIDs:             make([]osm.NodeID, len(rev)),
		Points:              make([]LatLng, len(rev)),
		TotalDistanceMeters: float64(qs.Dist[goal]) / 1000.0,
	}
	for i, u := range rev {
		j := len(rev) - 1 - i
		lat, lon := t.Coord(u)
		route.NodeIDs[j] = t.NodeIDs[u]
		route.Points[j] = LatLng{Lat: lat, Lng: lon}
	}
	return route
}

// Stats reports table dimensions for the service stats endpoint.
func (e *Engine) Stats() (numNodes, numEdges uint32) {
	return e.table.NumNodes, e.table.NumEdges
}
