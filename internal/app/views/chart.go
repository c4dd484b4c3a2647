// Package views derives presentation data (the day-axis chart and the route map)
// from a trip's timeline. Nothing here is persisted.
package views

import (
	"fmt"
	"time"

	"github.com/travelplan/itinerary-api/internal/domain"
)

// DefaultDayWidth is the horizontal size of one day on the chart, in pixels.
const DefaultDayWidth = 60

const minChartWidth = 100

// Palette holds the bar colours; a bar takes Palette[index % len(Palette)].
var Palette = [...]string{
	"#3b82f6", // blue
	"#10b981", // emerald
	"#f59e0b", // amber
	"#a855f7", // purple
	"#f43f5e", // rose
	"#6366f1", // indigo
	"#06b6d4", // cyan
	"#f97316", // orange
}

type ChartBar struct {
	CityID    domain.CityID
	Name      string
	Days      int
	ColorSlot int
	Color     string

	OffsetPx int
	WidthPx  int

	StartLabel    string // "Jun 1" with a start date, else "Day N"
	DurationLabel string
}

type Chart struct {
	DayWidth  int
	WidthPx   int
	TotalDays int
	Bars      []ChartBar

	// EndLabel marks the departure day. Empty for an empty itinerary.
	EndLabel string
}

// BuildChart lays tl out on a horizontal day axis. dayWidth <= 0 uses DefaultDayWidth.
func BuildChart(tl domain.Timeline, dayWidth int) Chart {
	if dayWidth <= 0 {
		dayWidth = DefaultDayWidth
	}
	total := tl.Stats.TotalDays
	c := Chart{
		DayWidth:  dayWidth,
		WidthPx:   max(minChartWidth, total*dayWidth),
		TotalDays: total,
		Bars:      make([]ChartBar, 0, len(tl.Entries)),
	}

	for i, e := range tl.Entries {
		slot := i % len(Palette)
		bar := ChartBar{
			CityID:        e.City.ID,
			Name:          e.City.Name,
			Days:          e.Days(),
			ColorSlot:     slot,
			Color:         Palette[slot],
			OffsetPx:      e.StartOffset * dayWidth,
			WidthPx:       e.Days() * dayWidth,
			DurationLabel: daysLabel(e.Days()),
		}
		if e.StartDate != nil {
			bar.StartLabel = shortDate(*e.StartDate)
		} else {
			bar.StartLabel = fmt.Sprintf("Day %d", e.StartDay())
		}
		c.Bars = append(c.Bars, bar)
	}

	if len(tl.Entries) > 0 {
		if tl.Stats.EndDate != nil {
			c.EndLabel = shortDate(*tl.Stats.EndDate)
		} else {
			c.EndLabel = fmt.Sprintf("Day %d", total+1)
		}
	}
	return c
}

func shortDate(t time.Time) string { return t.Format("Jan 2") }

func daysLabel(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
