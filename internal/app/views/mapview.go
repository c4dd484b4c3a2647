package views

import (
	"github.com/travelplan/itinerary-api/internal/domain"
	"github.com/travelplan/itinerary-api/internal/platform/geo"
)

// DefaultCenter is shown when no city has coordinates.
var DefaultCenter = geo.Point{Lat: 48.8566, Lng: 2.3522}

const DefaultZoom = 4

type Marker struct {
	Order  int // 1-based position in the itinerary
	CityID domain.CityID
	Name   string
	Days   int
	At     geo.Point
}

// Leg joins two consecutive located cities. Cities without coordinates are skipped,
// so a leg may bridge over them.
type Leg struct {
	From       domain.CityID
	To         domain.CityID
	DistanceKm float64
	BearingDeg float64
	Midpoint   geo.Point
}

type MapView struct {
	Markers         []Marker
	Legs            []Leg
	TotalDistanceKm float64
	Bounds          *geo.Bounds
	Center          geo.Point
	Zoom            int
}

// BuildMap places the itinerary's located cities and the route between them.
func BuildMap(it domain.Itinerary) MapView {
	cities := it.Cities()
	v := MapView{
		Markers: make([]Marker, 0, len(cities)),
		Legs:    make([]Leg, 0),
		Center:  DefaultCenter,
		Zoom:    DefaultZoom,
	}

	pts := make([]geo.Point, 0, len(cities))
	for i, c := range cities {
		if c.Coordinates == nil {
			continue
		}
		p := geo.Point{Lat: c.Coordinates.Latitude, Lng: c.Coordinates.Longitude}
		if n := len(v.Markers); n > 0 {
			prev := v.Markers[n-1]
			leg := Leg{
				From:       prev.CityID,
				To:         c.ID,
				DistanceKm: geo.DistanceKm(prev.At, p),
				BearingDeg: geo.Bearing(prev.At, p),
				Midpoint:   geo.Midpoint(prev.At, p),
			}
			v.Legs = append(v.Legs, leg)
			v.TotalDistanceKm += leg.DistanceKm
		}
		v.Markers = append(v.Markers, Marker{Order: i + 1, CityID: c.ID, Name: c.Name, Days: c.Days, At: p})
		pts = append(pts, p)
	}

	if b, ok := geo.BoundsOf(pts); ok {
		v.Bounds = &b
		v.Center = v.Markers[0].At
	}
	return v
}
