package osm

import "github.com/paulmach/osm"

// RawNode is a road-network vertex as delivered by a map-data source.
type RawNode struct {
	ID  osm.NodeID
	Lat float64
	Lon float64
}

// RawWay is an ordered run of node references describing a traversable road.
// When OneWay is set, the road may only be traversed in node order.
type RawWay struct {
	NodeIDs []osm.NodeID
	OneWay  bool
}

// RoadData is the raw road geometry consumed by the routing table builder.
type RoadData struct {
	Nodes []RawNode
	Ways  []RawWay
}

// BBox defines a geographic bounding box for filtering.
type BBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// IsZero returns true if the bbox is unset.
func (b BBox) IsZero() bool {
	return b.MinLat == 0 && b.MaxLat == 0 && b.MinLng == 0 && b.MaxLng == 0
}

// Contains returns true if the point is inside the bounding box.
func (b BBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// FilterBBox returns a copy of the data restricted to the bounding box.
// Nodes outside the box are dropped and each way is split into maximal
// runs whose nodes all survived, so no way ends up referencing a dropped
// node. Runs shorter than two nodes carry no edges and are discarded.
func FilterBBox(data *RoadData, bbox BBox) *RoadData {
	if bbox.IsZero() {
		return data
	}

	kept := make(map[osm.NodeID]bool, len(data.Nodes))
	out := &RoadData{Nodes: make([]RawNode, 0, len(data.Nodes))}
	for _, n := range data.Nodes {
		if bbox.Contains(n.Lat, n.Lon) {
			kept[n.ID] = true
			out.Nodes = append(out.Nodes, n)
		}
	}

	for _, w := range data.Ways {
		var run []osm.NodeID
		flush := func() {
			if len(run) >= 2 {
				out.Ways = append(out.Ways, RawWay{NodeIDs: run, OneWay: w.OneWay})
			}
			run = nil
		}
		for _, id := range w.NodeIDs {
			if kept[id] {
				run = append(run, id)
			} else {
				flush()
			}
		}
		flush()
	}

	return out
}
