package domain_test

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/travelplan/itinerary-api/internal/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

type span struct{ Start, End int }

func spans(tl domain.Timeline) []span {
	out := make([]span, 0, len(tl.Entries))
	for _, e := range tl.Entries {
		out = append(out, span{e.StartOffset, e.EndOffset})
	}
	return out
}

func TestProject_OffsetsWithoutStartDate(t *testing.T) {
	t.Parallel()

	tl := domain.Project(mustItinerary(t, 3, 5, 2), domain.TripConfig{})

	if diff := cmp.Diff([]span{{0, 3}, {3, 8}, {8, 10}}, spans(tl)); diff != "" {
		t.Fatalf("offsets (-want +got):\n%s", diff)
	}
	if tl.Stats.TotalDays != 10 {
		t.Fatalf("total=%d", tl.Stats.TotalDays)
	}
	for _, e := range tl.Entries {
		if e.StartDate != nil || e.EndDate != nil {
			t.Fatalf("dates set without start date: %+v", e)
		}
	}
	if tl.Stats.EndDate != nil || tl.Stats.RemainingOrOverDays != nil || tl.Stats.IsOverBudget {
		t.Fatalf("stats=%+v", tl.Stats)
	}
	if got := tl.Entries[2].StartDay(); got != 9 {
		t.Fatalf("StartDay=%d", got)
	}
	if got := tl.Entries[1].Days(); got != 5 {
		t.Fatalf("Days=%d", got)
	}
}

func TestProject_DatesAreInclusive(t *testing.T) {
	t.Parallel()

	start := date(2024, time.June, 1)
	tl := domain.Project(mustItinerary(t, 3, 5), domain.TripConfig{StartDate: &start})

	type dates struct{ Start, End time.Time }
	got := make([]dates, 0, len(tl.Entries))
	for _, e := range tl.Entries {
		got = append(got, dates{*e.StartDate, *e.EndDate})
	}
	want := []dates{
		{date(2024, time.June, 1), date(2024, time.June, 3)},
		{date(2024, time.June, 4), date(2024, time.June, 8)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("dates (-want +got):\n%s", diff)
	}
	if !tl.Stats.EndDate.Equal(date(2024, time.June, 9)) {
		t.Fatalf("trip end=%s", tl.Stats.EndDate)
	}
}

func TestProject_CrossesMonthAndLeapDay(t *testing.T) {
	t.Parallel()

	start := date(2024, time.February, 27)
	tl := domain.Project(mustItinerary(t, 4), domain.TripConfig{StartDate: &start})
	if !tl.Entries[0].EndDate.Equal(date(2024, time.March, 1)) {
		t.Fatalf("end=%s", tl.Entries[0].EndDate)
	}
}

func TestProject_StartDateUsesOwnCalendarDate(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC-5", -5*3600)
	start := time.Date(2024, time.June, 1, 23, 30, 0, 0, loc)
	tl := domain.Project(mustItinerary(t, 1), domain.TripConfig{StartDate: &start})
	if !tl.Entries[0].StartDate.Equal(date(2024, time.June, 1)) {
		t.Fatalf("start=%s", tl.Entries[0].StartDate)
	}
}

func TestProject_BudgetEdges(t *testing.T) {
	t.Parallel()

	it := mustItinerary(t, 3, 5, 2)

	onBudget := domain.Project(it, domain.TripConfig{DayBudget: ptr(10)})
	if onBudget.Stats.IsOverBudget || *onBudget.Stats.RemainingOrOverDays != 0 {
		t.Fatalf("on budget stats=%+v", onBudget.Stats)
	}

	over := domain.Project(it, domain.TripConfig{DayBudget: ptr(9)})
	if !over.Stats.IsOverBudget || *over.Stats.RemainingOrOverDays != -1 {
		t.Fatalf("over budget stats=%+v", over.Stats)
	}

	under := domain.Project(it, domain.TripConfig{DayBudget: ptr(14)})
	if under.Stats.IsOverBudget || *under.Stats.RemainingOrOverDays != 4 {
		t.Fatalf("under budget stats=%+v", under.Stats)
	}
}

func TestProject_HugeStaysKeepInvariants(t *testing.T) {
	t.Parallel()

	start := date(2024, time.June, 1)
	it := mustItinerary(t, 1, 1).SetDays("A", math.MaxInt).SetDays("B", math.MaxInt)
	tl := domain.Project(it, domain.TripConfig{StartDate: &start, DayBudget: ptr(5)})

	if diff := cmp.Diff([]span{{0, domain.MaxCityDays}, {domain.MaxCityDays, 2 * domain.MaxCityDays}}, spans(tl)); diff != "" {
		t.Fatalf("offsets (-want +got):\n%s", diff)
	}
	if tl.Stats.TotalDays != 2*domain.MaxCityDays || !tl.Stats.IsOverBudget {
		t.Fatalf("stats=%+v", tl.Stats)
	}
	if *tl.Stats.RemainingOrOverDays != 5-2*domain.MaxCityDays {
		t.Fatalf("remaining=%d", *tl.Stats.RemainingOrOverDays)
	}
	if want := start.AddDate(0, 0, 2*domain.MaxCityDays); !tl.Stats.EndDate.Equal(want) {
		t.Fatalf("end=%s want %s", tl.Stats.EndDate, want)
	}
}

func TestProject_EmptyItinerary(t *testing.T) {
	t.Parallel()

	start := date(2024, time.June, 1)
	for _, budget := range []int{0, 1, 30} {
		tl := domain.Project(domain.Itinerary{}, domain.TripConfig{StartDate: &start, DayBudget: ptr(budget)})
		if len(tl.Entries) != 0 || tl.Stats.TotalDays != 0 || tl.Stats.IsOverBudget {
			t.Fatalf("budget %d: %+v", budget, tl)
		}
		if !tl.Stats.EndDate.Equal(start) {
			t.Fatalf("budget %d: end=%s", budget, tl.Stats.EndDate)
		}
	}
}

func TestProject_OffsetsAreContiguous(t *testing.T) {
	t.Parallel()

	it := mustItinerary(t, 1, 4, 1, 9, 2, 6, 3)
	tl := domain.Project(it, domain.TripConfig{})

	if tl.Entries[0].StartOffset != 0 {
		t.Fatalf("first start=%d", tl.Entries[0].StartOffset)
	}
	sum := 0
	for i, e := range tl.Entries {
		sum += e.EndOffset - e.StartOffset
		if i > 0 && tl.Entries[i-1].EndOffset != e.StartOffset {
			t.Fatalf("gap before entry %d", i)
		}
	}
	if sum != tl.Stats.TotalDays || sum != it.TotalDays() {
		t.Fatalf("sum=%d total=%d", sum, tl.Stats.TotalDays)
	}

	again := domain.Project(it, domain.TripConfig{})
	if diff := cmp.Diff(tl, again); diff != "" {
		t.Fatalf("projection not deterministic:\n%s", diff)
	}
}

func TestProject_ReflectsMoveWithoutStaleOffsets(t *testing.T) {
	t.Parallel()

	it := mustItinerary(t, 3, 5, 2)
	moved, err := it.Move(0, 2)
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	tl := domain.Project(moved, domain.TripConfig{})
	if diff := cmp.Diff([]span{{0, 5}, {5, 7}, {7, 10}}, spans(tl)); diff != "" {
		t.Fatalf("offsets after move (-want +got):\n%s", diff)
	}
}
