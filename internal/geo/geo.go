// Package geo holds the distance and bounding-box helpers used to rank
// results and size search areas.
package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// EarthRadiusM is the mean Earth radius used by Haversine.
const EarthRadiusM = 6_371_000.0

const (
	metersPerDegree = 111_000.0
	minBBoxRadiusM  = 400.0
	maxBBoxRadiusM  = 2000.0
)

// Haversine returns the great-circle distance in meters between two points.
func Haversine(a, b orb.Point) float64 {
	lat1 := toRad(a.Lat())
	lat2 := toRad(b.Lat())
	dLat := toRad(b.Lat() - a.Lat())
	dLon := toRad(b.Lon() - a.Lon())

	h := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dLon/2), 2)
	return 2 * EarthRadiusM * math.Asin(math.Min(1, math.Sqrt(h)))
}

// ValidCoordinate reports whether p is a WGS84 lon/lat pair.
func ValidCoordinate(p orb.Point) bool {
	lon, lat := p.Lon(), p.Lat()
	if math.IsNaN(lon) || math.IsNaN(lat) {
		return false
	}
	return lon >= -180 && lon <= 180 && lat >= -90 && lat <= 90
}

// IsArea reports whether g is a polygonal geometry.
func IsArea(g orb.Geometry) bool {
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon:
		return true
	default:
		return false
	}
}

// VertexBound is the bounding box of every vertex of every ring of a
// polygonal geometry. ok is false for other geometries or empty polygons.
func VertexBound(g orb.Geometry) (b orb.Bound, ok bool) {
	var rings []orb.Ring
	switch v := g.(type) {
	case orb.Polygon:
		rings = v
	case orb.MultiPolygon:
		for _, poly := range v {
			rings = append(rings, poly...)
		}
	default:
		return orb.Bound{}, false
	}

	for _, ring := range rings {
		for _, p := range ring {
			if !ok {
				b = orb.Bound{Min: p, Max: p}
				ok = true
				continue
			}
			b = b.Extend(p)
		}
	}
	return b, ok
}

// BBoxCentroid is the midpoint of the area's vertex bounding box.
func BBoxCentroid(g orb.Geometry) (orb.Point, bool) {
	b, ok := VertexBound(g)
	if !ok {
		return orb.Point{}, false
	}
	return midpoint(b), true
}

// ApproximateRadius is the distance from the bounding-box centroid to the
// (max lon, max lat) corner: a half-diagonal proxy for the area's size.
func ApproximateRadius(g orb.Geometry) (float64, bool) {
	b, ok := VertexBound(g)
	if !ok {
		return 0, false
	}
	return Haversine(midpoint(b), b.Max), true
}

// RadiusFromBBox estimates a search radius from a provider bounding box using
// a flat-earth approximation, clamped to [400, 2000] meters.
func RadiusFromBBox(b orb.Bound) float64 {
	midLat := (b.Min.Lat() + b.Max.Lat()) / 2
	dLat := (b.Max.Lat() - b.Min.Lat()) * metersPerDegree
	dLon := (b.Max.Lon() - b.Min.Lon()) * metersPerDegree * math.Cos(toRad(midLat))
	r := math.Round(math.Hypot(dLat, dLon) / 2)
	return math.Max(minBBoxRadiusM, math.Min(maxBBoxRadiusM, r))
}

func midpoint(b orb.Bound) orb.Point {
	return orb.Point{(b.Min.Lon() + b.Max.Lon()) / 2, (b.Min.Lat() + b.Max.Lat()) / 2}
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
