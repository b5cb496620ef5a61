package routing

import (
	"errors"
	"math"

	"github.com/tidwall/rtree"

	"saferoute/pkg/geo"
	"saferoute/pkg/graph"
)

const maxSnapDistMeters = 500.0

// ErrPointTooFar is returned when the query point is too far from any road.
var ErrPointTooFar = errors.New("point too far from road")

// SnapResult represents a point snapped to a road segment.
type SnapResult struct {
	EdgeIdx uint32  // index into the table's edge arrays
	NodeU   uint32  // source node of the edge
	NodeV   uint32  // target node of the edge
	Ratio   float64 // 0.0 = at NodeU, 1.0 = at NodeV
	Dist    float64 // distance in meters from query point to snapped point
}

// snapEdge is the R-tree payload: the edge and its source node.
type snapEdge struct {
	from uint32
	edge uint32
}

// Snapper resolves arbitrary coordinates to the nearest road segment using
// an R-tree over edge bounding boxes. Coordinates are indexed as (lon, lat)
// x/y pairs.
type Snapper struct {
	tr rtree.RTreeG[snapEdge]
	t  *graph.Table
}

// NewSnapper builds the spatial edge index for a table.
func NewSnapper(t *graph.Table) *Snapper {
	s := &Snapper{t: t}
	for u := uint32(0); u < t.NumNodes; u++ {
		start, end := t.EdgesFrom(u)
		for e := start; e < end; e++ {
			v := t.Head[e]
			uLat, uLon := t.Coord(u)
			vLat, vLon := t.Coord(v)
			s.tr.Insert(
				[2]float64{math.Min(uLon, vLon), math.Min(uLat, vLat)},
				[2]float64{math.Max(uLon, vLon), math.Max(uLat, vLat)},
				snapEdge{from: u, edge: e},
			)
		}
	}
	return s
}

// Snap finds the nearest road segment to the given coordinate.
func (s *Snapper) Snap(lat, lng float64) (SnapResult, error) {
	// Search box sized to the max snap distance, in degrees. Longitude is
	// widened by the latitude cosine so the box stays roughly square in
	// meters away from the equator.
	padLat := maxSnapDistMeters / 111_320.0
	padLon := padLat / math.Max(math.Cos(lat*math.Pi/180), 0.01)

	bestDist := math.Inf(1)
	var bestResult SnapResult

	s.tr.Search(
		[2]float64{lng - padLon, lat - padLat},
		[2]float64{lng + padLon, lat + padLat},
		func(_, _ [2]float64, se snapEdge) bool {
			u := se.from
			v := s.t.Head[se.edge]
			exactDist, ratio := geo.PointToSegmentDist(
				lat, lng,
				s.t.NodeLat[u], s.t.NodeLon[u],
				s.t.NodeLat[v], s.t.NodeLon[v],
			)
			if exactDist < bestDist {
				bestDist = exactDist
				bestResult = SnapResult{
					EdgeIdx: se.edge,
					NodeU:   u,
					NodeV:   v,
					Ratio:   ratio,
					Dist:    exactDist,
				}
			}
			return true
		},
	)

	if bestDist > maxSnapDistMeters {
		return SnapResult{}, ErrPointTooFar
	}
	return bestResult, nil
}

// NearestNode resolves a coordinate to the nearest routing-table node: the
// closer endpoint of the nearest road segment.
func (s *Snapper) NearestNode(lat, lng float64) (uint32, error) {
	snap, err := s.Snap(lat, lng)
	if err != nil {
		return noNode, err
	}
	if snap.Ratio > 0.5 {
		return snap.NodeV, nil
	}
	return snap.NodeU, nil
}
