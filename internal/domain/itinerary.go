package domain

import (
	"errors"
	"fmt"
)

// DefaultCityDays is the stay length given to a newly appended city.
const DefaultCityDays = 3

// MaxCityDays caps a single stay at a hundred years. Day sums and calendar
// arithmetic stay far from integer overflow under this cap.
const MaxCityDays = 36500

var (
	// ErrIndexOutOfRange is returned by Move when either index does not address
	// an entry of the current sequence.
	ErrIndexOutOfRange = errors.New("itinerary index out of range")

	// ErrDuplicateCityID indicates an entry id already present in the itinerary.
	ErrDuplicateCityID = errors.New("duplicate city id")
)

// Coordinates is a display-only WGS84 position.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// Place is what a caller knows about a city before it joins an itinerary,
// typically a geocoding candidate.
type Place struct {
	Name        string
	CountryCode *string
	Coordinates *Coordinates
}

// CityEntry is one stop of an itinerary.
type CityEntry struct {
	ID          CityID
	Name        string
	CountryCode *string
	Coordinates *Coordinates
	// Days is the stay length; always >= 1.
	Days int
}

// Itinerary is an ordered sequence of city stops; order is visit order.
//
// An Itinerary is a value: every mutation returns a new Itinerary and leaves the
// receiver untouched, so snapshots can be shared between readers without copying.
// Offsets are never stored here; see Project.
type Itinerary struct {
	cities []CityEntry
}

// NewItinerary builds an itinerary from persisted entries. Day counts are clamped
// into [1, MaxCityDays]. Entries must have unique, non-empty ids.
func NewItinerary(cities []CityEntry) (Itinerary, error) {
	seen := make(map[CityID]struct{}, len(cities))
	out := make([]CityEntry, 0, len(cities))
	for i, c := range cities {
		if c.ID == "" {
			return Itinerary{}, fmt.Errorf("city at index %d: empty id", i)
		}
		if _, dup := seen[c.ID]; dup {
			return Itinerary{}, fmt.Errorf("city %q: %w", c.ID, ErrDuplicateCityID)
		}
		seen[c.ID] = struct{}{}
		c = cloneCity(c)
		c.Days = clampDays(c.Days)
		out = append(out, c)
	}
	return Itinerary{cities: out}, nil
}

// Len returns the number of stops.
func (it Itinerary) Len() int { return len(it.cities) }

// Cities returns a copy of the stops in visit order.
func (it Itinerary) Cities() []CityEntry {
	out := make([]CityEntry, len(it.cities))
	for i, c := range it.cities {
		out[i] = cloneCity(c)
	}
	return out
}

// Find returns the entry with the given id.
func (it Itinerary) Find(id CityID) (CityEntry, bool) {
	if i := it.IndexOf(id); i >= 0 {
		return cloneCity(it.cities[i]), true
	}
	return CityEntry{}, false
}

// IndexOf returns the position of id, or -1.
func (it Itinerary) IndexOf(id CityID) int {
	for i, c := range it.cities {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// TotalDays is the sum of all stay lengths.
func (it Itinerary) TotalDays() int {
	n := 0
	for _, c := range it.cities {
		n += c.Days
	}
	return n
}

// Append adds a stop for p at the end with DefaultCityDays. The caller supplies a
// fresh id; reusing an id already in the itinerary is rejected.
func (it Itinerary) Append(id CityID, p Place) (Itinerary, error) {
	if id == "" {
		return it, errors.New("empty city id")
	}
	if it.IndexOf(id) >= 0 {
		return it, fmt.Errorf("city %q: %w", id, ErrDuplicateCityID)
	}
	next := make([]CityEntry, 0, len(it.cities)+1)
	next = append(next, it.cities...)
	next = append(next, CityEntry{
		ID:          id,
		Name:        NormalizeName(p.Name),
		CountryCode: cloneStringPtr(p.CountryCode),
		Coordinates: cloneCoordinates(p.Coordinates),
		Days:        DefaultCityDays,
	})
	return Itinerary{cities: next}, nil
}

// Remove drops the stop with the given id. Unknown ids are ignored.
func (it Itinerary) Remove(id CityID) Itinerary {
	i := it.IndexOf(id)
	if i < 0 {
		return it
	}
	next := make([]CityEntry, 0, len(it.cities)-1)
	next = append(next, it.cities[:i]...)
	next = append(next, it.cities[i+1:]...)
	return Itinerary{cities: next}
}

// SetDays sets the stay length of id to days clamped into [1, MaxCityDays].
// Unknown ids are ignored.
func (it Itinerary) SetDays(id CityID, days int) Itinerary {
	i := it.IndexOf(id)
	if i < 0 {
		return it
	}
	next := append([]CityEntry(nil), it.cities...)
	next[i].Days = clampDays(days)
	return Itinerary{cities: next}
}

// Move takes the stop at from out of the sequence and reinserts it at to, where
// to indexes the sequence after removal. Both indices must lie in [0, Len()-1].
func (it Itinerary) Move(from, to int) (Itinerary, error) {
	n := len(it.cities)
	if from < 0 || from >= n || to < 0 || to >= n {
		return it, fmt.Errorf("move %d -> %d on %d entries: %w", from, to, n, ErrIndexOutOfRange)
	}
	moved := it.cities[from]
	rest := make([]CityEntry, 0, n)
	rest = append(rest, it.cities[:from]...)
	rest = append(rest, it.cities[from+1:]...)

	next := make([]CityEntry, 0, n)
	next = append(next, rest[:to]...)
	next = append(next, moved)
	next = append(next, rest[to:]...)
	return Itinerary{cities: next}, nil
}

func clampDays(d int) int {
	return min(max(d, 1), MaxCityDays)
}

func cloneCity(c CityEntry) CityEntry {
	c.CountryCode = cloneStringPtr(c.CountryCode)
	c.Coordinates = cloneCoordinates(c.Coordinates)
	return c
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneCoordinates(p *Coordinates) *Coordinates {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
