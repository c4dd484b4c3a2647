// Package geo holds the great-circle helpers used by the map view.
package geo

import (
	"math"

	"github.com/golang/geo/s2"
)

// EarthRadiusKm is the mean Earth radius.
const EarthRadiusKm = 6371.0

// Point is a WGS84 position in degrees.
type Point struct {
	Lat float64
	Lng float64
}

func (p Point) latLng() s2.LatLng { return s2.LatLngFromDegrees(p.Lat, p.Lng) }

// DistanceKm returns the great-circle distance between a and b.
func DistanceKm(a, b Point) float64 {
	return a.latLng().Distance(b.latLng()).Radians() * EarthRadiusKm
}

// Bearing returns the initial bearing from a to b in degrees, 0-360 with 0 = north.
func Bearing(a, b Point) float64 {
	p1, p2 := a.latLng(), b.latLng()
	lat1 := p1.Lat.Radians()
	lat2 := p2.Lat.Radians()
	lonDiff := p2.Lng.Radians() - p1.Lng.Radians()

	y := math.Sin(lonDiff) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(lonDiff)
	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

// Midpoint is the point halfway along the great circle from a to b.
func Midpoint(a, b Point) Point {
	mid := s2.Interpolate(0.5, s2.PointFromLatLng(a.latLng()), s2.PointFromLatLng(b.latLng()))
	ll := s2.LatLngFromPoint(mid)
	return Point{Lat: ll.Lat.Degrees(), Lng: ll.Lng.Degrees()}
}

// Bounds is the smallest lat/lng rectangle containing a set of points.
type Bounds struct {
	SouthWest Point
	NorthEast Point
	Center    Point
}

// BoundsOf returns the bounding rectangle of pts, or false when pts is empty.
// Rectangles crossing the antimeridian keep s2's convention: SouthWest.Lng > NorthEast.Lng.
func BoundsOf(pts []Point) (Bounds, bool) {
	if len(pts) == 0 {
		return Bounds{}, false
	}
	r := s2.EmptyRect()
	for _, p := range pts {
		r = r.AddPoint(p.latLng())
	}
	lo, hi, c := r.Lo(), r.Hi(), r.Center()
	return Bounds{
		SouthWest: Point{Lat: lo.Lat.Degrees(), Lng: lo.Lng.Degrees()},
		NorthEast: Point{Lat: hi.Lat.Degrees(), Lng: hi.Lng.Degrees()},
		Center:    Point{Lat: c.Lat.Degrees(), Lng: c.Lng.Degrees()},
	}, true
}
