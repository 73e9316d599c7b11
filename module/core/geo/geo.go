// Package geo holds the pure containment primitives used by the violation
// detector. Points are (longitude, latitude) to match the order geofence
// definitions carry on the wire.
package geo

import "math"

const earthRadiusMeters = 6371000

// Point is a (longitude, latitude) pair in degrees.
type Point struct {
	Lon float64
	Lat float64
}

func (p Point) finite() bool {
	return !math.IsNaN(p.Lon) && !math.IsInf(p.Lon, 0) &&
		!math.IsNaN(p.Lat) && !math.IsInf(p.Lat, 0)
}

// HaversineMeters returns the great-circle distance between two points on a
// spherical Earth approximation.
func HaversineMeters(a, b Point) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// CircleContains reports whether pt lies within radiusMeters of center.
// Non-finite inputs yield false.
func CircleContains(pt, center Point, radiusMeters float64) bool {
	if !pt.finite() || !center.finite() ||
		math.IsNaN(radiusMeters) || math.IsInf(radiusMeters, 0) {
		return false
	}
	return HaversineMeters(pt, center) <= radiusMeters
}

// PolygonContains reports whether pt lies inside the ordered vertex ring,
// using the even-odd rule. Winding direction does not matter. Behavior for
// points exactly on the boundary is undefined. Non-finite inputs yield false.
func PolygonContains(pt Point, ring []Point) bool {
	if len(ring) < 3 || !pt.finite() {
		return false
	}
	for _, v := range ring {
		if !v.finite() {
			return false
		}
	}

	inside := false
	j := len(ring) - 1
	for i := 0; i < len(ring); i++ {
		vi, vj := ring[i], ring[j]
		if (vi.Lat > pt.Lat) != (vj.Lat > pt.Lat) &&
			pt.Lon < (vj.Lon-vi.Lon)*(pt.Lat-vi.Lat)/(vj.Lat-vi.Lat)+vi.Lon {
			inside = !inside
		}
		j = i
	}
	return inside
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
