package routing

import "math"

// noNode marks the absence of a node / predecessor.
const noNode = ^uint32(0)

// PQItem is a priority queue entry for the A* open set.
// F is the estimated total cost (g + heuristic), G the accumulated cost
// from the start, both in millimeters. Order is the insertion sequence
// number, the final tie-break that makes searches fully deterministic.
type PQItem struct {
	Node  uint32
	F     uint32
	G     uint32
	Order uint32
}

// MinHeap is a concrete-typed min-heap for the A* open set.
// Avoids interface boxing overhead of container/heap.
// Ordering: smallest F first, then smallest G, then insertion order.
type MinHeap struct {
	items []PQItem
	seq   uint32
}

func (h *MinHeap) Len() int { return len(h.items) }

func (h *MinHeap) Push(node, f, g uint32) {
	h.items = append(h.items, PQItem{Node: node, F: f, G: g, Order: h.seq})
	h.seq++
	h.siftUp(len(h.items) - 1)
}

func (h *MinHeap) Pop() PQItem {
	n := len(h.items)
	item := h.items[0]
	h.items[0] = h.items[n-1]
	h.items = h.items[:n-1]
	if len(h.items) > 0 {
		h.siftDown(0)
	}
	return item
}

func (h *MinHeap) Reset() {
	h.items = h.items[:0]
	h.seq = 0
}

func (h *MinHeap) less(i, j int) bool {
	a, b := h.items[i], h.items[j]
	if a.F != b.F {
		return a.F < b.F
	}
	if a.G != b.G {
		return a.G < b.G
	}
	return a.Order < b.Order
}

func (h *MinHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.less(i, parent) {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *MinHeap) siftDown(i int) {
	n := len(h.items)
	for {
		smallest := i
		left := 2*i + 1
		right := 2*i + 2
		if left < n && h.less(left, smallest) {
			smallest = left
		}
		if right < n && h.less(right, smallest) {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}

// QueryState holds the mutable per-query state of one A* search. All
// search-local mutation lives here, so concurrent searches over the same
// table only need separate QueryStates.
type QueryState struct {
	Dist    []uint32 // best known g per node, millimeters
	Pred    []uint32 // predecessor node (noNode = none)
	Touched []uint32 // nodes touched during this query (for fast reset)
	PQ      MinHeap
}

// NewQueryState creates a QueryState for a table with n nodes.
func NewQueryState(n uint32) *QueryState {
	dist := make([]uint32, n)
	pred := make([]uint32, n)
	for i := range dist {
		dist[i] = math.MaxUint32
		pred[i] = noNode
	}
	return &QueryState{
		Dist:    dist,
		Pred:    pred,
		Touched: make([]uint32, 0, 1024),
		PQ:      MinHeap{items: make([]PQItem, 0, 256)},
	}
}

// Reset clears only the touched entries for fast reuse.
func (qs *QueryState) Reset() {
	for _, node := range qs.Touched {
		qs.Dist[node] = math.MaxUint32
		qs.Pred[node] = noNode
	}
	qs.Touched = qs.Touched[:0]
	qs.PQ.Reset()
}

func (qs *QueryState) touch(node, dist, pred uint32) {
	if qs.Dist[node] == math.MaxUint32 {
		qs.Touched = append(qs.Touched, node)
	}
	qs.Dist[node] = dist
	qs.Pred[node] = pred
}
