package domain

import (
	"errors"
	"time"
)

// DefaultTripName is used whenever a trip is created or renamed with a blank name.
const DefaultTripName = "New Trip"

// ErrInvalidDayBudget is returned when a day budget below 1 is set.
var ErrInvalidDayBudget = errors.New("day budget must be at least 1")

// Trip is an owned itinerary plus its configuration.
type Trip struct {
	ID    TripID
	Owner SubjectID
	Name  string

	Itinerary Itinerary
	Config    TripConfig

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TripSummary is the list-view projection of a trip.
type TripSummary struct {
	ID        TripID
	Name      string
	UpdatedAt time.Time
}

func (t Trip) Summary() TripSummary {
	return TripSummary{ID: t.ID, Name: t.Name, UpdatedAt: t.UpdatedAt}
}

// Timeline projects the trip's itinerary under its configuration.
func (t Trip) Timeline() Timeline { return Project(t.Itinerary, t.Config) }

func (t Trip) WithItinerary(it Itinerary) Trip {
	t.Itinerary = it
	return t
}

func (t Trip) WithName(name string) Trip {
	t.Name = NormalizeTripName(name)
	return t
}

// WithStartDate sets (or clears, with nil) the start date, truncated to a date.
func (t Trip) WithStartDate(d *time.Time) Trip {
	if d == nil {
		t.Config.StartDate = nil
		return t
	}
	v := DateOnly(*d)
	t.Config.StartDate = &v
	return t
}

// WithDayBudget sets (or clears, with nil) the day budget.
func (t Trip) WithDayBudget(budget *int) (Trip, error) {
	if budget == nil {
		t.Config.DayBudget = nil
		return t, nil
	}
	if *budget < 1 {
		return t, ErrInvalidDayBudget
	}
	v := *budget
	t.Config.DayBudget = &v
	return t, nil
}
