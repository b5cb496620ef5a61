package graph

import "github.com/paulmach/osm"

// Table is the routing table: an undirected-by-construction road graph in
// CSR (Compressed Sparse Row) form. It is built once from a road-network
// snapshot and read-only afterwards, so any number of searches may share it
// concurrently as long as each search owns its own mutable state.
//
// External OSM node IDs are mapped to compact uint32 indices; the hot
// search loop only ever touches the dense arrays.
type Table struct {
	NumNodes uint32
	NumEdges uint32
	NodeIDs  []osm.NodeID // len: NumNodes; external source ID per index
	NodeLat  []float64    // len: NumNodes
	NodeLon  []float64    // len: NumNodes
	FirstOut []uint32     // len: NumNodes + 1; FirstOut[i]..FirstOut[i+1] are edges from node i
	Head     []uint32     // len: NumEdges; target node for each edge
	Weight   []uint32     // len: NumEdges; geo-distance in millimeters

	idIndex map[osm.NodeID]uint32
}

// EdgesFrom returns the range of edge indices for edges originating from node u.
func (t *Table) EdgesFrom(u uint32) (start, end uint32) {
	return t.FirstOut[u], t.FirstOut[u+1]
}

// IndexOf resolves an external node ID to its compact index.
func (t *Table) IndexOf(id osm.NodeID) (uint32, bool) {
	idx, ok := t.idIndex[id]
	return idx, ok
}

// Coord returns the latitude and longitude of node u.
func (t *Table) Coord(u uint32) (lat, lon float64) {
	return t.NodeLat[u], t.NodeLon[u]
}

// buildIndex populates the external-ID lookup. Called once at build/load
// time; the map is never mutated afterwards.
func (t *Table) buildIndex() {
	t.idIndex = make(map[osm.NodeID]uint32, t.NumNodes)
	for i, id := range t.NodeIDs {
		t.idIndex[id] = uint32(i)
	}
}
