package zone

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// FromFeatureCollection extracts zones from the outer rings of every
// Polygon and MultiPolygon feature. Other geometry types are ignored.
// Holes in a danger zone are not supported, the hole is simply forbidden
// along with the rest of the polygon.
func FromFeatureCollection(fc *geojson.FeatureCollection) []Zone {
	var zones []Zone
	for _, f := range fc.Features {
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			if len(g) > 0 {
				zones = append(zones, FromRing(g[0]))
			}
		case orb.MultiPolygon:
			for _, poly := range g {
				if len(poly) > 0 {
					zones = append(zones, FromRing(poly[0]))
				}
			}
		}
	}
	return zones
}

// LoadGeoJSON reads danger zones from a GeoJSON FeatureCollection file.
func LoadGeoJSON(path string) ([]Zone, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read zones file: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse zones file: %w", err)
	}
	return FromFeatureCollection(fc), nil
}
