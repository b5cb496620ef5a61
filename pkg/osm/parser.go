package osm

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
)

// carHighways lists highway tag values accessible by car.
var carHighways = map[string]bool{
	"motorway":       true,
	"motorway_link":  true,
	"trunk":          true,
	"trunk_link":     true,
	"primary":        true,
	"primary_link":   true,
	"secondary":      true,
	"secondary_link": true,
	"tertiary":       true,
	"tertiary_link":  true,
	"unclassified":   true,
	"residential":    true,
	"living_street":  true,
	"service":        true,
}

// isCarAccessible returns true if the way is drivable by car.
func isCarAccessible(tags osm.Tags) bool {
	hw := tags.Find("highway")
	if !carHighways[hw] {
		return false
	}

	// Skip area highways (pedestrian plazas).
	if tags.Find("area") == "yes" {
		return false
	}

	// Skip restricted access.
	access := tags.Find("access")
	if access == "no" || access == "private" {
		return false
	}
	if tags.Find("motor_vehicle") == "no" {
		return false
	}

	return true
}

// directionFlags returns (forward, backward) based on highway type and oneway tags.
func directionFlags(tags osm.Tags) (forward, backward bool) {
	// Default: bidirectional.
	forward = true
	backward = true

	hw := tags.Find("highway")

	// Implied oneway for motorways and roundabouts.
	if hw == "motorway" || hw == "motorway_link" || tags.Find("junction") == "roundabout" {
		backward = false
	}

	// Explicit oneway tag overrides.
	oneway := tags.Find("oneway")
	switch oneway {
	case "yes", "true", "1":
		forward = true
		backward = false
	case "-1", "reverse":
		forward = false
		backward = true
	case "no":
		forward = true
		backward = true
	case "reversible":
		// Time-dependent, skip entirely.
		forward = false
		backward = false
	}

	return forward, backward
}

// rawWayFromFlags turns a node sequence plus direction flags into a RawWay.
// Backward-only ways are stored reversed so traversal order is always the
// stored node order.
func rawWayFromFlags(nodeIDs []osm.NodeID, forward, backward bool) RawWay {
	if !forward && backward {
		rev := make([]osm.NodeID, len(nodeIDs))
		for i, id := range nodeIDs {
			rev[len(nodeIDs)-1-i] = id
		}
		return RawWay{NodeIDs: rev, OneWay: true}
	}
	return RawWay{NodeIDs: nodeIDs, OneWay: !backward}
}

// ParsePBF reads an OSM PBF file and returns the car-drivable road geometry.
// The reader is consumed twice (seeks back to start for the second pass),
// so it must implement io.ReadSeeker.
//
// Ways referencing nodes absent from the file (common near the cut line of
// a regional extract) are split at the missing references, so the returned
// RoadData never points at an unknown node.
func ParsePBF(ctx context.Context, rs io.ReadSeeker) (*RoadData, error) {
	// Pass 1: Scan ways to collect referenced node IDs and direction flags.
	referencedNodes := make(map[osm.NodeID]struct{})
	var ways []RawWay

	scanner := osmpbf.New(ctx, rs, 1)
	scanner.SkipNodes = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		obj := scanner.Object()
		w, ok := obj.(*osm.Way)
		if !ok {
			continue
		}

		if !isCarAccessible(w.Tags) {
			continue
		}

		if len(w.Nodes) < 2 {
			continue
		}

		fwd, bwd := directionFlags(w.Tags)
		if !fwd && !bwd {
			continue
		}

		nodeIDs := make([]osm.NodeID, len(w.Nodes))
		for i, wn := range w.Nodes {
			nodeIDs[i] = wn.ID
			referencedNodes[wn.ID] = struct{}{}
		}

		ways = append(ways, rawWayFromFlags(nodeIDs, fwd, bwd))
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 1 (ways): %w", err)
	}
	scanner.Close()

	log.Printf("Pass 1 complete: %d ways, %d referenced nodes", len(ways), len(referencedNodes))

	// Pass 2: Scan nodes to collect coordinates for referenced nodes only.
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek for pass 2: %w", err)
	}

	coords := make(map[osm.NodeID]RawNode, len(referencedNodes))

	scanner = osmpbf.New(ctx, rs, 1)
	scanner.SkipWays = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		obj := scanner.Object()
		n, ok := obj.(*osm.Node)
		if !ok {
			continue
		}

		if _, needed := referencedNodes[n.ID]; !needed {
			continue
		}

		coords[n.ID] = RawNode{ID: n.ID, Lat: n.Lat, Lon: n.Lon}
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 2 (nodes): %w", err)
	}
	scanner.Close()

	log.Printf("Pass 2 complete: %d node coordinates collected", len(coords))

	data := &RoadData{Nodes: make([]RawNode, 0, len(coords))}
	for _, w := range ways {
		data.Ways = append(data.Ways, splitAtMissing(w, coords)...)
	}
	// Collect nodes in first-referenced order for deterministic output.
	seen := make(map[osm.NodeID]bool, len(coords))
	for _, w := range data.Ways {
		for _, id := range w.NodeIDs {
			if !seen[id] {
				seen[id] = true
				data.Nodes = append(data.Nodes, coords[id])
			}
		}
	}

	if missing := len(referencedNodes) - len(coords); missing > 0 {
		log.Printf("Warning: %d way node references had no coordinates in the file", missing)
	}
	log.Printf("Parsed %d nodes, %d ways", len(data.Nodes), len(data.Ways))

	return data, nil
}

// splitAtMissing splits a way into runs whose nodes all have coordinates.
func splitAtMissing(w RawWay, coords map[osm.NodeID]RawNode) []RawWay {
	var out []RawWay
	var run []osm.NodeID
	flush := func() {
		if len(run) >= 2 {
			out = append(out, RawWay{NodeIDs: run, OneWay: w.OneWay})
		}
		run = nil
	}
	for _, id := range w.NodeIDs {
		if _, ok := coords[id]; ok {
			run = append(run, id)
		} else {
			flush()
		}
	}
	flush()
	return out
}
