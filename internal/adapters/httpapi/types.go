package httpapi

import (
	"time"

	"github.com/oapi-codegen/nullable"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/travelplan/itinerary-api/internal/adapters/snapshot"
	"github.com/travelplan/itinerary-api/internal/app/editor"
	"github.com/travelplan/itinerary-api/internal/app/views"
	"github.com/travelplan/itinerary-api/internal/domain"
)

// Requests.

type CreateTripRequest struct {
	Name      string              `json:"name"`
	StartDate *openapi_types.Date `json:"startDate,omitempty"`
	DayBudget *int                `json:"dayBudget,omitempty"`
}

// UpdateTripRequest distinguishes an omitted field from an explicit null.
type UpdateTripRequest struct {
	Name      nullable.Nullable[string]             `json:"name,omitempty"`
	StartDate nullable.Nullable[openapi_types.Date] `json:"startDate,omitempty"`
	DayBudget nullable.Nullable[int]                `json:"dayBudget,omitempty"`
}

type AddCityRequest struct {
	Name        string   `json:"name"`
	CountryCode *string  `json:"countryCode,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
}

type SetDaysRequest struct {
	Days *int `json:"days"`
}

type MoveCityRequest struct {
	FromIndex *int `json:"fromIndex"`
	ToIndex   *int `json:"toIndex"`
}

// Responses.

type TripSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ListTripsResponse struct {
	Trips []TripSummary `json:"trips"`
}

type Trip struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Cities    []snapshot.City     `json:"cities"`
	StartDate *openapi_types.Date `json:"startDate"`
	DayBudget *int                `json:"dayBudget"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

type TimelineEntry struct {
	CityID      string              `json:"cityId"`
	Name        string              `json:"name"`
	Days        int                 `json:"days"`
	StartOffset int                 `json:"startOffset"`
	EndOffset   int                 `json:"endOffset"`
	StartDay    int                 `json:"startDay"`
	StartDate   *openapi_types.Date `json:"startDate"`
	EndDate     *openapi_types.Date `json:"endDate"`
}

type TripStats struct {
	TotalDays           int                 `json:"totalDays"`
	IsOverBudget        bool                `json:"isOverBudget"`
	RemainingOrOverDays *int                `json:"remainingOrOverDays"`
	EndDate             *openapi_types.Date `json:"endDate"`
}

type Timeline struct {
	Entries []TimelineEntry `json:"entries"`
	Stats   TripStats       `json:"stats"`
}

type SaveStatus struct {
	Pending     bool       `json:"pending"`
	LastSavedAt *time.Time `json:"lastSavedAt"`
	LastError   *string    `json:"lastError"`
}

type TripView struct {
	Trip       Trip       `json:"trip"`
	Timeline   Timeline   `json:"timeline"`
	SaveStatus SaveStatus `json:"saveStatus"`
}

type AddCityResponse struct {
	CityID string   `json:"cityId"`
	Trip   TripView `json:"trip"`
}

type ChartBar struct {
	CityID        string `json:"cityId"`
	Name          string `json:"name"`
	Days          int    `json:"days"`
	ColorSlot     int    `json:"colorSlot"`
	Color         string `json:"color"`
	OffsetPx      int    `json:"offsetPx"`
	WidthPx       int    `json:"widthPx"`
	StartLabel    string `json:"startLabel"`
	DurationLabel string `json:"durationLabel"`
}

type Chart struct {
	DayWidth  int        `json:"dayWidth"`
	WidthPx   int        `json:"widthPx"`
	TotalDays int        `json:"totalDays"`
	Bars      []ChartBar `json:"bars"`
	EndLabel  string     `json:"endLabel,omitempty"`
}

type TimelineResponse struct {
	Timeline Timeline `json:"timeline"`
	Chart    Chart    `json:"chart"`
}

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type MapMarker struct {
	Order  int    `json:"order"`
	CityID string `json:"cityId"`
	Name   string `json:"name"`
	Days   int    `json:"days"`
	At     LatLng `json:"position"`
}

type MapLeg struct {
	From       string  `json:"fromCityId"`
	To         string  `json:"toCityId"`
	DistanceKm float64 `json:"distanceKm"`
	BearingDeg float64 `json:"bearingDeg"`
	Midpoint   LatLng  `json:"midpoint"`
}

type MapBounds struct {
	SouthWest LatLng `json:"southWest"`
	NorthEast LatLng `json:"northEast"`
}

type MapResponse struct {
	Markers         []MapMarker `json:"markers"`
	Legs            []MapLeg    `json:"legs"`
	TotalDistanceKm float64     `json:"totalDistanceKm"`
	Bounds          *MapBounds  `json:"bounds"`
	Center          LatLng      `json:"center"`
	Zoom            int         `json:"zoom"`
}

type PlaceCandidate struct {
	Name        string   `json:"name"`
	CountryCode *string  `json:"countryCode,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
}

type SearchCitiesResponse struct {
	Candidates []PlaceCandidate `json:"candidates"`
}

// Mapping.

func toDate(t *time.Time) *openapi_types.Date {
	if t == nil {
		return nil
	}
	return &openapi_types.Date{Time: *t}
}

func toTrip(t domain.Trip) Trip {
	return Trip{
		ID:        string(t.ID),
		Name:      t.Name,
		Cities:    snapshot.FromCities(t.Itinerary.Cities()),
		StartDate: toDate(t.Config.StartDate),
		DayBudget: t.Config.DayBudget,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func toTimeline(tl domain.Timeline) Timeline {
	out := Timeline{
		Entries: make([]TimelineEntry, 0, len(tl.Entries)),
		Stats: TripStats{
			TotalDays:           tl.Stats.TotalDays,
			IsOverBudget:        tl.Stats.IsOverBudget,
			RemainingOrOverDays: tl.Stats.RemainingOrOverDays,
			EndDate:             toDate(tl.Stats.EndDate),
		},
	}
	for _, e := range tl.Entries {
		out.Entries = append(out.Entries, TimelineEntry{
			CityID:      string(e.City.ID),
			Name:        e.City.Name,
			Days:        e.Days(),
			StartOffset: e.StartOffset,
			EndOffset:   e.EndOffset,
			StartDay:    e.StartDay(),
			StartDate:   toDate(e.StartDate),
			EndDate:     toDate(e.EndDate),
		})
	}
	return out
}

func toTripView(v editor.View) TripView {
	st := SaveStatus{Pending: v.Status.Pending, LastSavedAt: v.Status.LastSavedAt}
	if v.Status.LastError != "" {
		msg := v.Status.LastError
		st.LastError = &msg
	}
	return TripView{Trip: toTrip(v.Trip), Timeline: toTimeline(v.Timeline), SaveStatus: st}
}

func toChart(c views.Chart) Chart {
	out := Chart{
		DayWidth:  c.DayWidth,
		WidthPx:   c.WidthPx,
		TotalDays: c.TotalDays,
		Bars:      make([]ChartBar, 0, len(c.Bars)),
		EndLabel:  c.EndLabel,
	}
	for _, b := range c.Bars {
		out.Bars = append(out.Bars, ChartBar{
			CityID:        string(b.CityID),
			Name:          b.Name,
			Days:          b.Days,
			ColorSlot:     b.ColorSlot,
			Color:         b.Color,
			OffsetPx:      b.OffsetPx,
			WidthPx:       b.WidthPx,
			StartLabel:    b.StartLabel,
			DurationLabel: b.DurationLabel,
		})
	}
	return out
}

func toMap(m views.MapView) MapResponse {
	out := MapResponse{
		Markers:         make([]MapMarker, 0, len(m.Markers)),
		Legs:            make([]MapLeg, 0, len(m.Legs)),
		TotalDistanceKm: m.TotalDistanceKm,
		Center:          LatLng{Lat: m.Center.Lat, Lng: m.Center.Lng},
		Zoom:            m.Zoom,
	}
	for _, mk := range m.Markers {
		out.Markers = append(out.Markers, MapMarker{
			Order:  mk.Order,
			CityID: string(mk.CityID),
			Name:   mk.Name,
			Days:   mk.Days,
			At:     LatLng{Lat: mk.At.Lat, Lng: mk.At.Lng},
		})
	}
	for _, l := range m.Legs {
		out.Legs = append(out.Legs, MapLeg{
			From:       string(l.From),
			To:         string(l.To),
			DistanceKm: l.DistanceKm,
			BearingDeg: l.BearingDeg,
			Midpoint:   LatLng{Lat: l.Midpoint.Lat, Lng: l.Midpoint.Lng},
		})
	}
	if m.Bounds != nil {
		out.Bounds = &MapBounds{
			SouthWest: LatLng{Lat: m.Bounds.SouthWest.Lat, Lng: m.Bounds.SouthWest.Lng},
			NorthEast: LatLng{Lat: m.Bounds.NorthEast.Lat, Lng: m.Bounds.NorthEast.Lng},
		}
	}
	return out
}

func toCandidates(ps []domain.Place) []PlaceCandidate {
	out := make([]PlaceCandidate, 0, len(ps))
	for _, p := range ps {
		c := PlaceCandidate{Name: p.Name, CountryCode: p.CountryCode}
		if p.Coordinates != nil {
			lat, lng := p.Coordinates.Latitude, p.Coordinates.Longitude
			c.Latitude, c.Longitude = &lat, &lng
		}
		out = append(out, c)
	}
	return out
}
