package graph

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/osm"

	"saferoute/pkg/geo"
	roads "saferoute/pkg/osm"
)

// ErrMalformedInput is returned when a way references a node ID that is
// absent from the node collection. No partial table is produced.
var ErrMalformedInput = errors.New("malformed road data")

// Build creates a routing table from raw nodes and ways.
//
// For each consecutive node pair within a way an edge is inserted with
// weight equal to the Haversine distance between the endpoints. Ways are
// bidirectional unless marked one-way, in which case only the forward
// direction is inserted. The same pair appearing in multiple ways keeps the
// minimum weight seen; the graph stays simple. Nodes referenced by no way
// are dropped.
func Build(nodes []roads.RawNode, ways []roads.RawWay) (*Table, error) {
	coords := make(map[osm.NodeID]roads.RawNode, len(nodes))
	for _, n := range nodes {
		coords[n.ID] = n
	}

	// Compact index assignment in first-reference order, so identical input
	// always yields an identical table.
	idx := make(map[osm.NodeID]uint32)
	var ids []osm.NodeID
	addNode := func(id osm.NodeID) uint32 {
		if i, ok := idx[id]; ok {
			return i
		}
		i := uint32(len(ids))
		idx[id] = i
		ids = append(ids, id)
		return i
	}

	// uniqueEdges keys pack (from, to); value is the minimum weight seen.
	uniqueEdges := make(map[uint64]uint32)
	insert := func(from, to uint32, weight uint32) {
		key := uint64(from)<<32 | uint64(to)
		if w, ok := uniqueEdges[key]; !ok || weight < w {
			uniqueEdges[key] = weight
		}
	}

	for wi, w := range ways {
		for i := 0; i < len(w.NodeIDs)-1; i++ {
			fromID := w.NodeIDs[i]
			toID := w.NodeIDs[i+1]

			fromNode, fromOk := coords[fromID]
			toNode, toOk := coords[toID]
			if !fromOk {
				return nil, fmt.Errorf("way %d references node %d not in node collection: %w", wi, fromID, ErrMalformedInput)
			}
			if !toOk {
				return nil, fmt.Errorf("way %d references node %d not in node collection: %w", wi, toID, ErrMalformedInput)
			}
			if fromID == toID {
				continue // degenerate pair, keep the graph simple
			}

			dist := geo.Haversine(fromNode.Lat, fromNode.Lon, toNode.Lat, toNode.Lon)
			weightMM := uint32(math.Round(dist * 1000))
			if weightMM == 0 {
				weightMM = 1 // avoid zero-weight edges
			}

			from := addNode(fromID)
			to := addNode(toID)
			insert(from, to, weightMM)
			if !w.OneWay {
				insert(to, from, weightMM)
			}
		}
	}

	numNodes := uint32(len(ids))

	type compactEdge struct {
		from, to, weight uint32
	}
	compact := make([]compactEdge, 0, len(uniqueEdges))
	for key, weight := range uniqueEdges {
		compact = append(compact, compactEdge{
			from:   uint32(key >> 32),
			to:     uint32(key),
			weight: weight,
		})
	}
	sort.Slice(compact, func(i, j int) bool {
		if compact[i].from != compact[j].from {
			return compact[i].from < compact[j].from
		}
		return compact[i].to < compact[j].to
	})

	// Build CSR arrays.
	numEdges := uint32(len(compact))
	firstOut := make([]uint32, numNodes+1)
	head := make([]uint32, numEdges)
	weight := make([]uint32, numEdges)

	for _, e := range compact {
		firstOut[e.from+1]++
	}
	for i := uint32(1); i <= numNodes; i++ {
		firstOut[i] += firstOut[i-1]
	}
	for i, e := range compact {
		head[i] = e.to
		weight[i] = e.weight
	}

	nodeIDs := make([]osm.NodeID, numNodes)
	nodeLat := make([]float64, numNodes)
	nodeLon := make([]float64, numNodes)
	for i, id := range ids {
		nodeIDs[i] = id
		nodeLat[i] = coords[id].Lat
		nodeLon[i] = coords[id].Lon
	}

	t := &Table{
		NumNodes: numNodes,
		NumEdges: numEdges,
		NodeIDs:  nodeIDs,
		NodeLat:  nodeLat,
		NodeLon:  nodeLon,
		FirstOut: firstOut,
		Head:     head,
		Weight:   weight,
	}
	t.buildIndex()
	return t, nil
}
