package zone

import (
	"os"
	"path/filepath"
	"testing"
)

// squareZone is a ~550 m square centered on (21.1775, 79.0600), matching
// the scale of a real urban danger zone.
func squareZone() Zone {
	return FromVertices([][2]float64{
		{21.1750, 79.0575},
		{21.1750, 79.0625},
		{21.1800, 79.0625},
		{21.1800, 79.0575},
	})
}

func TestFromVerticesClosesRing(t *testing.T) {
	z := squareZone()
	ring := z.Ring()
	if len(ring) != 5 {
		t.Fatalf("ring has %d points, want 5 (closed)", len(ring))
	}
	if ring[0] != ring[len(ring)-1] {
		t.Error("ring not closed")
	}

	// Already-closed input is not double-closed.
	closed := FromVertices([][2]float64{
		{21.1750, 79.0575},
		{21.1750, 79.0625},
		{21.1800, 79.0625},
		{21.1750, 79.0575},
	})
	if len(closed.Ring()) != 4 {
		t.Errorf("closed ring re-closed: %d points", len(closed.Ring()))
	}
}

func TestUnsafePoint(t *testing.T) {
	tests := []struct {
		name      string
		tolerance float64
		lat, lon  float64
		want      bool
	}{
		{
			name:      "center of zone, zero tolerance",
			tolerance: 0,
			lat:       21.1775, lon: 79.0600,
			want: true,
		},
		{
			name:      "center of zone, default tolerance",
			tolerance: DefaultToleranceMeters,
			lat:       21.1775, lon: 79.0600,
			want: true,
		},
		{
			name:      "just outside boundary, within 40m buffer",
			tolerance: 40,
			lat:       21.18002, lon: 79.0600, // ~2 m north of the north edge
			want:      true,
		},
		{
			name:      "just outside boundary, zero tolerance",
			tolerance: 0,
			lat:       21.18002, lon: 79.0600,
			want:      false,
		},
		{
			name:      "far from zone",
			tolerance: 40,
			lat:       21.2000, lon: 79.1000,
			want:      false,
		},
		{
			name:      "~100m outside, 40m tolerance",
			tolerance: 40,
			lat:       21.1809, lon: 79.0600,
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSet(tt.tolerance, squareZone())
			if got := s.UnsafePoint(tt.lat, tt.lon); got != tt.want {
				t.Errorf("UnsafePoint(%f, %f) = %v, want %v", tt.lat, tt.lon, got, tt.want)
			}
		})
	}
}

func TestUnsafePointNoZones(t *testing.T) {
	if NewSet(40).UnsafePoint(21.1775, 79.0600) {
		t.Error("point unsafe with zero zones")
	}

	var nilSet *Set
	if nilSet.UnsafePoint(21.1775, 79.0600) {
		t.Error("point unsafe for nil set")
	}
}

func TestSegmentBlocked(t *testing.T) {
	s := NewSet(40, squareZone())

	// Segment passing straight through the zone, both endpoints far outside.
	if !s.SegmentBlocked(21.1775, 79.0400, 21.1775, 79.0800) {
		t.Error("segment through the zone not blocked")
	}

	// Segment with one endpoint inside.
	if !s.SegmentBlocked(21.1775, 79.0600, 21.2000, 79.1000) {
		t.Error("segment from inside the zone not blocked")
	}

	// Segment far from the zone.
	if s.SegmentBlocked(21.2000, 79.0400, 21.2000, 79.0800) {
		t.Error("distant segment blocked")
	}

	// Segment skirting the boundary within tolerance: passes ~20 m north
	// of the north edge, inside the 40 m buffer.
	if !s.SegmentBlocked(21.18018, 79.0500, 21.18018, 79.0700) {
		t.Error("segment inside the buffer not blocked")
	}

	// Same segment with zero tolerance is fine.
	if NewSet(0, squareZone()).SegmentBlocked(21.18018, 79.0500, 21.18018, 79.0700) {
		t.Error("segment outside the polygon blocked at zero tolerance")
	}
}

func TestSegmentBlockedShortSegment(t *testing.T) {
	// Shorter than the sampling step: endpoint checks still apply.
	s := NewSet(40, squareZone())
	if !s.SegmentBlocked(21.1775, 79.0600, 21.17751, 79.06001) {
		t.Error("short segment inside the zone not blocked")
	}
}

func TestSegmentBlockedNoZones(t *testing.T) {
	var nilSet *Set
	if nilSet.SegmentBlocked(21.17, 79.05, 21.18, 79.06) {
		t.Error("segment blocked for nil set")
	}
	if NewSet(40).SegmentBlocked(21.17, 79.05, 21.18, 79.06) {
		t.Error("segment blocked with zero zones")
	}
}

func TestNewSetNegativeToleranceDefaults(t *testing.T) {
	s := NewSet(-1)
	if s.ToleranceMeters != DefaultToleranceMeters {
		t.Errorf("tolerance = %f, want default %f", s.ToleranceMeters, DefaultToleranceMeters)
	}
}

func TestLoadGeoJSON(t *testing.T) {
	const doc = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"name": "flood area"},
      "geometry": {
        "type": "Polygon",
        "coordinates": [[
          [79.0575, 21.1750],
          [79.0625, 21.1750],
          [79.0625, 21.1800],
          [79.0575, 21.1800],
          [79.0575, 21.1750]
        ]]
      }
    },
    {
      "type": "Feature",
      "properties": {},
      "geometry": {"type": "Point", "coordinates": [79.0, 21.0]}
    }
  ]
}`
	path := filepath.Join(t.TempDir(), "zones.geojson")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	zones, err := LoadGeoJSON(path)
	if err != nil {
		t.Fatalf("LoadGeoJSON: %v", err)
	}
	if len(zones) != 1 {
		t.Fatalf("got %d zones, want 1 (point feature ignored)", len(zones))
	}

	s := NewSet(40, zones...)
	if !s.UnsafePoint(21.1775, 79.0600) {
		t.Error("center of loaded zone reported safe")
	}
	if s.UnsafePoint(21.2000, 79.1000) {
		t.Error("distant point reported unsafe")
	}
}

func TestLoadGeoJSONMissingFile(t *testing.T) {
	if _, err := LoadGeoJSON(filepath.Join(t.TempDir(), "nope.geojson")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
