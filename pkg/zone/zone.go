package zone

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"saferoute/pkg/geo"
)

// DefaultToleranceMeters is the buffer distance added around every zone
// boundary when the caller does not supply one.
const DefaultToleranceMeters = 40.0

// sampleStepMeters is the resolution at which a road segment is sampled
// when testing it against zone buffers. Chosen well below the default
// tolerance so a segment passing through a buffered region always yields
// at least one unsafe sample. Deliberately conservative: false positives
// on marginally-safe segments are fine, missed violations are not.
const sampleStepMeters = 5.0

// metersPerDegreeLat is the approximate north-south span of one degree.
const metersPerDegreeLat = 111_320.0

// Zone is one forbidden region: a closed polygon boundary in lat/lon.
// Zones are small relative to Earth's radius, so containment is tested in
// a locally-flat approximation over the raw coordinates.
type Zone struct {
	ring  orb.Ring
	bound orb.Bound
}

// FromVertices builds a Zone from an ordered (lat, lng) vertex sequence.
// The first and last vertex are implicitly connected; an already-closed
// ring is accepted as-is.
func FromVertices(vertices [][2]float64) Zone {
	ring := make(orb.Ring, 0, len(vertices)+1)
	for _, v := range vertices {
		ring = append(ring, orb.Point{v[1], v[0]}) // orb is (lon, lat)
	}
	return FromRing(ring)
}

// FromRing builds a Zone from an orb ring, closing it if needed.
func FromRing(ring orb.Ring) Zone {
	if len(ring) > 0 && ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	return Zone{ring: ring, bound: ring.Bound()}
}

// Ring returns the zone's closed boundary.
func (z Zone) Ring() orb.Ring {
	return z.ring
}

// contains reports whether the point lies strictly inside the polygon (or
// on its boundary).
func (z Zone) contains(lat, lon float64) bool {
	return planar.RingContains(z.ring, orb.Point{lon, lat})
}

// boundaryWithin reports whether the point is within tol meters of the
// polygon boundary.
func (z Zone) boundaryWithin(lat, lon, tol float64) bool {
	for i := 0; i < len(z.ring)-1; i++ {
		a := z.ring[i]
		b := z.ring[i+1]
		d, _ := geo.PointToSegmentDist(lat, lon, a[1], a[0], b[1], b[0])
		if d <= tol {
			return true
		}
	}
	return false
}

// nearBound is a cheap reject: false when the point is farther from the
// zone's bounding box than tol meters, padded in degrees.
func (z Zone) nearBound(lat, lon, tol float64) bool {
	padLat := tol / metersPerDegreeLat
	padLon := padLat / math.Max(math.Cos(lat*math.Pi/180), 0.01)
	return lat >= z.bound.Min[1]-padLat && lat <= z.bound.Max[1]+padLat &&
		lon >= z.bound.Min[0]-padLon && lon <= z.bound.Max[0]+padLon
}

// Set is the danger-zone model supplied to a search: a collection of
// forbidden polygons plus the shared buffer tolerance. A nil or empty Set
// declares every point and segment safe. Sets are never mutated by a
// search, so one Set may serve concurrent queries.
type Set struct {
	Zones           []Zone
	ToleranceMeters float64
}

// NewSet creates a Set with the given tolerance. A negative tolerance
// selects the default.
func NewSet(toleranceMeters float64, zones ...Zone) *Set {
	if toleranceMeters < 0 {
		toleranceMeters = DefaultToleranceMeters
	}
	return &Set{Zones: zones, ToleranceMeters: toleranceMeters}
}

// UnsafePoint reports whether the point lies inside any zone polygon or
// within the tolerance buffer of any zone boundary.
func (s *Set) UnsafePoint(lat, lon float64) bool {
	if s == nil {
		return false
	}
	for _, z := range s.Zones {
		if !z.nearBound(lat, lon, s.ToleranceMeters) {
			continue
		}
		if z.contains(lat, lon) {
			return true
		}
		if z.boundaryWithin(lat, lon, s.ToleranceMeters) {
			return true
		}
	}
	return false
}

// SegmentBlocked reports whether the segment from A to B touches any
// buffered zone: either endpoint is unsafe, or any sample along the
// segment at sampleStepMeters resolution is unsafe.
func (s *Set) SegmentBlocked(aLat, aLon, bLat, bLon float64) bool {
	if s == nil || len(s.Zones) == 0 {
		return false
	}
	if s.UnsafePoint(aLat, aLon) || s.UnsafePoint(bLat, bLon) {
		return true
	}

	length := geo.EquirectangularDist(aLat, aLon, bLat, bLon)
	steps := int(length / sampleStepMeters)
	for i := 1; i < steps; i++ {
		f := float64(i) / float64(steps)
		if s.UnsafePoint(aLat+(bLat-aLat)*f, aLon+(bLon-aLon)*f) {
			return true
		}
	}
	return false
}
