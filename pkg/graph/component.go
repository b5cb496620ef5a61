package graph

import (
	"sort"

	"github.com/paulmach/osm"
)

// UnionFind implements a disjoint-set data structure with path halving
// and union by size.
type UnionFind struct {
	parent []uint32
	size   []uint32
}

// NewUnionFind creates a UnionFind for n elements.
func NewUnionFind(n uint32) *UnionFind {
	parent := make([]uint32, n)
	size := make([]uint32, n)
	for i := uint32(0); i < n; i++ {
		parent[i] = i
		size[i] = 1
	}
	return &UnionFind{parent: parent, size: size}
}

// Find returns the representative of the set containing x, with path halving.
func (uf *UnionFind) Find(x uint32) uint32 {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]] // path halving
		x = uf.parent[x]
	}
	return x
}

// Union merges the sets containing x and y. Returns false if already same set.
func (uf *UnionFind) Union(x, y uint32) bool {
	rx := uf.Find(x)
	ry := uf.Find(y)
	if rx == ry {
		return false
	}
	if uf.size[rx] < uf.size[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	return true
}

// LargestComponent returns the node indices of the largest weakly connected
// component, in ascending index order. One-way edges are treated as
// undirected for connectivity.
func LargestComponent(t *Table) []uint32 {
	if t.NumNodes == 0 {
		return nil
	}

	uf := NewUnionFind(t.NumNodes)
	for u := uint32(0); u < t.NumNodes; u++ {
		start, end := t.EdgesFrom(u)
		for e := start; e < end; e++ {
			uf.Union(u, t.Head[e])
		}
	}

	bestRoot := uint32(0)
	bestSize := uint32(0)
	for i := uint32(0); i < t.NumNodes; i++ {
		root := uf.Find(i)
		if uf.size[root] > bestSize {
			bestRoot = root
			bestSize = uf.size[root]
		}
	}

	nodes := make([]uint32, 0, bestSize)
	for i := uint32(0); i < t.NumNodes; i++ {
		if uf.Find(i) == bestRoot {
			nodes = append(nodes, i)
		}
	}
	return nodes
}

// FilterToComponent creates a new table containing only the given nodes and
// the edges fully between them. External node IDs are preserved.
func FilterToComponent(t *Table, nodes []uint32) *Table {
	if len(nodes) == 0 {
		return &Table{FirstOut: []uint32{0}}
	}

	sorted := make([]uint32, len(nodes))
	copy(sorted, nodes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	oldToNew := make(map[uint32]uint32, len(sorted))
	for newIdx, oldIdx := range sorted {
		oldToNew[oldIdx] = uint32(newIdx)
	}

	numNodes := uint32(len(sorted))

	type edge struct {
		from, to, weight uint32
	}
	var edges []edge
	for _, oldU := range sorted {
		start, end := t.EdgesFrom(oldU)
		for e := start; e < end; e++ {
			if newV, ok := oldToNew[t.Head[e]]; ok {
				edges = append(edges, edge{
					from:   oldToNew[oldU],
					to:     newV,
					weight: t.Weight[e],
				})
			}
		}
	}

	numEdges := uint32(len(edges))
	firstOut := make([]uint32, numNodes+1)
	head := make([]uint32, numEdges)
	weight := make([]uint32, numEdges)

	for _, e := range edges {
		firstOut[e.from+1]++
	}
	for i := uint32(1); i <= numNodes; i++ {
		firstOut[i] += firstOut[i-1]
	}

	pos := make([]uint32, numNodes)
	copy(pos, firstOut[:numNodes])
	for _, e := range edges {
		idx := pos[e.from]
		head[idx] = e.to
		weight[idx] = e.weight
		pos[e.from]++
	}

	nodeIDs := make([]osm.NodeID, numNodes)
	nodeLat := make([]float64, numNodes)
	nodeLon := make([]float64, numNodes)
	for newIdx, oldIdx := range sorted {
		nodeIDs[newIdx] = t.NodeIDs[oldIdx]
		nodeLat[newIdx] = t.NodeLat[oldIdx]
		nodeLon[newIdx] = t.NodeLon[oldIdx]
	}

	out := &Table{
		NumNodes: numNodes,
		NumEdges: numEdges,
		NodeIDs:  nodeIDs,
		NodeLat:  nodeLat,
		NodeLon:  nodeLon,
		FirstOut: firstOut,
		Head:     head,
		Weight:   weight,
	}
	out.buildIndex()
	return out
}
