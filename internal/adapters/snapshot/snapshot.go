// Package snapshot encodes trips in the persisted document format:
//
//	{"id", "name", "cities": [...], "startDate": RFC3339|null, "totalDays": int|null, "updatedAt": RFC3339}
//
// totalDays carries the day budget; the field name is kept for compatibility
// with documents written by earlier clients.
//
// startDate is an instant, not a calendar date. Decode keeps the calendar
// date the timestamp names in its own offset, so "2024-06-01T00:00:00+02:00"
// is June 1 while a client that serialized local midnight June 1 as
// "2024-05-31T22:00:00Z" reads back as May 31. Writers should send the date
// at midnight UTC, which is what Encode produces.
package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/travelplan/itinerary-api/internal/domain"
	"github.com/travelplan/itinerary-api/internal/ports/out/triprepo"
)

// City is the wire shape of one itinerary stop.
type City struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	CountryCode *string  `json:"countryCode,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	Days        int      `json:"days"`
}

// Document is the wire shape of a whole trip snapshot.
type Document struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Cities    []City     `json:"cities"`
	StartDate *time.Time `json:"startDate"`
	TotalDays *int       `json:"totalDays"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func FromCities(cs []domain.CityEntry) []City {
	out := make([]City, 0, len(cs))
	for _, c := range cs {
		w := City{ID: string(c.ID), Name: c.Name, CountryCode: c.CountryCode, Days: c.Days}
		if c.Coordinates != nil {
			lat, lng := c.Coordinates.Latitude, c.Coordinates.Longitude
			w.Latitude, w.Longitude = &lat, &lng
		}
		out = append(out, w)
	}
	return out
}

// ToCities converts wire cities back to entries. A coordinate pair is kept only
// when both halves are present.
func ToCities(ws []City) []domain.CityEntry {
	out := make([]domain.CityEntry, 0, len(ws))
	for _, w := range ws {
		c := domain.CityEntry{ID: domain.CityID(w.ID), Name: w.Name, CountryCode: w.CountryCode, Days: w.Days}
		if w.Latitude != nil && w.Longitude != nil {
			c.Coordinates = &domain.Coordinates{Latitude: *w.Latitude, Longitude: *w.Longitude}
		}
		out = append(out, c)
	}
	return out
}

// MarshalCities renders the cities column. An empty itinerary encodes as [].
func MarshalCities(cs []domain.CityEntry) ([]byte, error) {
	return json.Marshal(FromCities(cs))
}

func UnmarshalCities(b []byte) ([]domain.CityEntry, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var ws []City
	if err := json.Unmarshal(b, &ws); err != nil {
		return nil, fmt.Errorf("decode cities: %w", err)
	}
	return ToCities(ws), nil
}

func FromRecord(t triprepo.Trip) Document {
	return Document{
		ID:        string(t.ID),
		Name:      t.Name,
		Cities:    FromCities(t.Cities),
		StartDate: t.StartDate,
		TotalDays: t.DayBudget,
		UpdatedAt: t.UpdatedAt,
	}
}

// Decode reads one snapshot document and converts it to a domain trip. Day
// counts below 1 are clamped, as on every load.
func Decode(r io.Reader) (domain.Trip, error) {
	var doc Document
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return domain.Trip{}, fmt.Errorf("decode snapshot: %w", err)
	}
	it, err := domain.NewItinerary(ToCities(doc.Cities))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("snapshot %s: %w", doc.ID, err)
	}
	t := domain.Trip{
		ID:        domain.TripID(doc.ID),
		Name:      domain.NormalizeTripName(doc.Name),
		Itinerary: it,
		UpdatedAt: doc.UpdatedAt,
	}.WithStartDate(doc.StartDate)
	if doc.TotalDays != nil && *doc.TotalDays >= 1 {
		t, _ = t.WithDayBudget(doc.TotalDays)
	}
	return t, nil
}

func Encode(w io.Writer, t domain.Trip) error {
	doc := Document{
		ID:        string(t.ID),
		Name:      t.Name,
		Cities:    FromCities(t.Itinerary.Cities()),
		StartDate: t.Config.StartDate,
		TotalDays: t.Config.DayBudget,
		UpdatedAt: t.UpdatedAt,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
