package domain

import "time"

// TripConfig holds the trip-level scalars the timeline depends on.
type TripConfig struct {
	StartDate *time.Time // date-only semantics; see DateOnly
	DayBudget *int
}

// TimelineEntry places one city on the trip's day axis.
type TimelineEntry struct {
	City CityEntry

	StartOffset int // days from trip start
	EndOffset   int // StartOffset + Days, exclusive

	// Calendar dates, set only when the trip has a start date. EndDate is inclusive.
	StartDate *time.Time
	EndDate   *time.Time
}

// StartDay is the 1-based day index of the entry's first day.
func (e TimelineEntry) StartDay() int { return e.StartOffset + 1 }

// Days is the span covered by the entry.
func (e TimelineEntry) Days() int { return e.EndOffset - e.StartOffset }

type TripStats struct {
	TotalDays    int
	IsOverBudget bool

	// RemainingOrOverDays is DayBudget - TotalDays; negative means over budget.
	// Nil without a budget.
	RemainingOrOverDays *int

	// EndDate is the departure day, StartDate + TotalDays. Nil without a start date.
	EndDate *time.Time
}

type Timeline struct {
	Entries []TimelineEntry
	Stats   TripStats
}

// Project computes the timeline of it under cfg in a single pass. It is pure:
// the same inputs always produce the same output and nothing is retained.
func Project(it Itinerary, cfg TripConfig) Timeline {
	var start *time.Time
	if cfg.StartDate != nil {
		d := DateOnly(*cfg.StartDate)
		start = &d
	}

	entries := make([]TimelineEntry, 0, len(it.cities))
	offset := 0
	for _, c := range it.cities {
		e := TimelineEntry{
			City:        cloneCity(c),
			StartOffset: offset,
			EndOffset:   offset + c.Days,
		}
		if start != nil {
			s := start.AddDate(0, 0, e.StartOffset)
			end := start.AddDate(0, 0, e.EndOffset-1)
			e.StartDate = &s
			e.EndDate = &end
		}
		entries = append(entries, e)
		offset = e.EndOffset
	}

	stats := TripStats{TotalDays: offset}
	if cfg.DayBudget != nil {
		remaining := *cfg.DayBudget - offset
		stats.RemainingOrOverDays = &remaining
		stats.IsOverBudget = offset > *cfg.DayBudget
	}
	if start != nil {
		end := start.AddDate(0, 0, offset)
		stats.EndDate = &end
	}

	return Timeline{Entries: entries, Stats: stats}
}

// DateOnly truncates t to midnight UTC of its own calendar date. The location of t
// is honoured when reading the date, so 2024-06-01T23:30-05:00 stays June 1.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
