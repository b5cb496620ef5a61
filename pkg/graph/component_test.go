package graph

import (
	"testing"

	"github.com/paulmach/osm"

	roads "saferoute/pkg/osm"
)

func TestUnionFind(t *testing.T) {
	uf := NewUnionFind(5)

	if !uf.Union(0, 1) {
		t.Error("first union returned false")
	}
	if !uf.Union(1, 2) {
		t.Error("second union returned false")
	}
	if uf.Union(0, 2) {
		t.Error("union of already-joined sets returned true")
	}

	if uf.Find(0) != uf.Find(2) {
		t.Error("0 and 2 not in the same set")
	}
	if uf.Find(3) == uf.Find(0) {
		t.Error("3 should be in its own set")
	}
}

// twoComponentTable builds a network with a 3-node component and a separate
// 2-node component.
func twoComponentTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := Build(
		[]roads.RawNode{
			{ID: 1, Lat: 21.10, Lon: 79.00},
			{ID: 2, Lat: 21.11, Lon: 79.00},
			{ID: 3, Lat: 21.12, Lon: 79.00},
			{ID: 4, Lat: 21.50, Lon: 79.50},
			{ID: 5, Lat: 21.51, Lon: 79.50},
		},
		[]roads.RawWay{
			{NodeIDs: []osm.NodeID{1, 2, 3}},
			{NodeIDs: []osm.NodeID{4, 5}},
		},
	)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return tbl
}

func TestLargestComponent(t *testing.T) {
	tbl := twoComponentTable(t)

	nodes := LargestComponent(tbl)
	if len(nodes) != 3 {
		t.Fatalf("largest component has %d nodes, want 3", len(nodes))
	}
	for _, u := range nodes {
		id := tbl.NodeIDs[u]
		if id != 1 && id != 2 && id != 3 {
			t.Errorf("node %d in largest component, expected IDs 1-3", id)
		}
	}
}

func TestFilterToComponent(t *testing.T) {
	tbl := twoComponentTable(t)

	filtered := FilterToComponent(tbl, LargestComponent(tbl))
	if filtered.NumNodes != 3 {
		t.Fatalf("filtered NumNodes = %d, want 3", filtered.NumNodes)
	}
	if filtered.NumEdges != 4 {
		t.Fatalf("filtered NumEdges = %d, want 4", filtered.NumEdges)
	}

	// External IDs survive filtering and the lookup index works.
	for _, id := range []osm.NodeID{1, 2, 3} {
		idx, ok := filtered.IndexOf(id)
		if !ok {
			t.Fatalf("IndexOf(%d) not found after filter", id)
		}
		if filtered.NodeIDs[idx] != id {
			t.Errorf("IndexOf(%d) maps back to %d", id, filtered.NodeIDs[idx])
		}
	}
	if _, ok := filtered.IndexOf(4); ok {
		t.Error("node 4 from the small component survived filtering")
	}

	// Weights carry over.
	if edgeWeight(filtered, 1, 2) != edgeWeight(tbl, 1, 2) {
		t.Error("edge weight changed during filtering")
	}
}

func TestFilterToComponentEmpty(t *testing.T) {
	tbl := twoComponentTable(t)
	filtered := FilterToComponent(tbl, nil)
	if filtered.NumNodes != 0 {
		t.Errorf("filtering to no nodes produced %d nodes", filtered.NumNodes)
	}
}
