package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	memclock "github.com/travelplan/itinerary-api/internal/adapters/memory/clock"
	memgeo "github.com/travelplan/itinerary-api/internal/adapters/memory/geocoder"
	memidempotency "github.com/travelplan/itinerary-api/internal/adapters/memory/idempotency"
	memtriprepo "github.com/travelplan/itinerary-api/internal/adapters/memory/triprepo"
	"github.com/travelplan/itinerary-api/internal/app/editor"
	"github.com/travelplan/itinerary-api/internal/app/places"
	"github.com/travelplan/itinerary-api/internal/app/trips"
	"github.com/travelplan/itinerary-api/internal/domain"
)

type testAPI struct {
	h    http.Handler
	repo *memtriprepo.Repo
	clk  *memclock.ManualClock
}

func newTestAPI(t *testing.T, auth func(http.Handler) http.Handler) *testAPI {
	t.Helper()
	clk := memclock.NewManualClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	repo := memtriprepo.NewRepo()
	svc := trips.NewService(repo, clk)
	ed := editor.NewManager(svc, clk, zap.NewNop(), editor.Options{Delay: 2 * time.Second})
	pl := places.NewService(memgeo.NewCatalog(), zap.NewNop())
	srv := NewServer(svc, ed, pl, memidempotency.NewStore(), clk, zap.NewNop())
	if auth == nil {
		auth = NewDevAuthMiddleware("")
	}
	h := NewRouter(srv, RouterOptions{
		AuthMiddleware: auth,
		MaxBodyBytes:   1 << 16,
		CORSOrigins:    []string{"http://localhost:3000"},
	})
	return &testAPI{h: h, repo: repo, clk: clk}
}

// do sends a request as sub. Extra headers come as name/value pairs.
func (a *testAPI) do(t *testing.T, method, path, sub, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if sub != "" {
		req.Header.Set("X-Debug-Subject", sub)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	a.h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body=%s", rec.Body.String())
	return v
}

func requireError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rec.Code, "body=%s", rec.Body.String())
	er := decode[ErrorResponse](t, rec)
	require.Equal(t, code, er.Error.Code)
}

func (a *testAPI) createTrip(t *testing.T, sub, body string) TripView {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/trips", sub, body)
	require.Equal(t, http.StatusCreated, rec.Code, "body=%s", rec.Body.String())
	return decode[TripView](t, rec)
}

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func TestCreateAndListTrips(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t, nil)

	first := api.createTrip(t, "alice", "")
	require.Equal(t, domain.DefaultTripName, first.Trip.Name)
	require.NotNil(t, first.Trip.Cities)
	require.Empty(t, first.Trip.Cities)
	require.Nil(t, first.Trip.StartDate)
	require.Nil(t, first.Trip.DayBudget)
	require.Zero(t, first.Timeline.Stats.TotalDays)

	api.clk.Advance(time.Minute)
	second := api.createTrip(t, "alice", `{"name":"  Summer   Loop ","startDate":"2025-06-01","dayBudget":7}`)
	require.Equal(t, "Summer Loop", second.Trip.Name)
	require.NotNil(t, second.Trip.StartDate)
	require.True(t, second.Trip.StartDate.Time.Equal(day(2025, 6, 1)))
	require.Equal(t, 7, *second.Trip.DayBudget)
	require.Equal(t, 7, *second.Timeline.Stats.RemainingOrOverDays)

	list := decode[ListTripsResponse](t, api.do(t, http.MethodGet, "/trips", "alice", ""))
	require.Len(t, list.Trips, 2)
	require.Equal(t, second.Trip.ID, list.Trips[0].ID, "most recently updated first")
	require.Equal(t, first.Trip.ID, list.Trips[1].ID)

	other := decode[ListTripsResponse](t, api.do(t, http.MethodGet, "/trips", "bob", ""))
	require.NotNil(t, other.Trips)
	require.Empty(t, other.Trips)
}

func TestItineraryEditingFlow(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t, nil)
	created := api.createTrip(t, "alice", `{"startDate":"2024-06-01","dayBudget":5}`)
	base := "/trips/" + created.Trip.ID

	rec := api.do(t, http.MethodPost, base+"/cities", "alice", `{"name":"Paris, France","countryCode":"FR","latitude":48.8566,"longitude":2.3522}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	paris := decode[AddCityResponse](t, rec)
	require.NotEmpty(t, paris.CityID)
	require.Equal(t, 3, paris.Trip.Timeline.Stats.TotalDays)
	require.True(t, paris.Trip.SaveStatus.Pending)

	rec = api.do(t, http.MethodPost, base+"/cities", "alice", `{"name":"  Lyon "}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	lyon := decode[AddCityResponse](t, rec)
	require.Equal(t, "Lyon", lyon.Trip.Trip.Cities[1].Name)

	rec = api.do(t, http.MethodPut, base+"/cities/"+lyon.CityID+"/days", "alice", `{"days":4}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	v := decode[TripView](t, rec)
	require.Equal(t, 7, v.Timeline.Stats.TotalDays)
	require.True(t, v.Timeline.Stats.IsOverBudget)
	require.Equal(t, -2, *v.Timeline.Stats.RemainingOrOverDays)
	require.True(t, v.Timeline.Stats.EndDate.Time.Equal(day(2024, 6, 8)))

	// Zero clamps to one day.
	v = decode[TripView](t, api.do(t, http.MethodPut, base+"/cities/"+lyon.CityID+"/days", "alice", `{"days":0}`))
	require.Equal(t, 4, v.Timeline.Stats.TotalDays)
	require.False(t, v.Timeline.Stats.IsOverBudget)
	require.Equal(t, 1, *v.Timeline.Stats.RemainingOrOverDays)

	rec = api.do(t, http.MethodPost, base+"/cities/move", "alice", `{"fromIndex":1,"toIndex":0}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	v = decode[TripView](t, rec)
	require.Equal(t, lyon.CityID, v.Trip.Cities[0].ID)
	require.Equal(t, 0, v.Timeline.Entries[0].StartOffset)
	require.True(t, v.Timeline.Entries[0].StartDate.Time.Equal(day(2024, 6, 1)))
	require.True(t, v.Timeline.Entries[0].EndDate.Time.Equal(day(2024, 6, 1)))
	require.Equal(t, 2, v.Timeline.Entries[1].StartDay)
	require.True(t, v.Timeline.Entries[1].EndDate.Time.Equal(day(2024, 6, 4)))

	tl := decode[TimelineResponse](t, api.do(t, http.MethodGet, base+"/timeline", "alice", ""))
	require.Len(t, tl.Chart.Bars, 2)
	require.Equal(t, "Jun 1", tl.Chart.Bars[0].StartLabel)
	require.Equal(t, "Jun 2", tl.Chart.Bars[1].StartLabel)
	require.Equal(t, "Jun 5", tl.Chart.EndLabel)
	require.Equal(t, 240, tl.Chart.WidthPx)

	m := decode[MapResponse](t, api.do(t, http.MethodGet, base+"/map", "alice", ""))
	require.Len(t, m.Markers, 1)
	require.Equal(t, 2, m.Markers[0].Order)
	require.Empty(t, m.Legs)
	require.NotNil(t, m.Bounds)

	// Nothing has been written during the burst.
	stored, err := api.repo.GetByID(context.Background(), domain.TripID(created.Trip.ID))
	require.NoError(t, err)
	require.Empty(t, stored.Cities)

	api.clk.Advance(2 * time.Second)
	stored, err = api.repo.GetByID(context.Background(), domain.TripID(created.Trip.ID))
	require.NoError(t, err)
	require.Len(t, stored.Cities, 2)
	v = decode[TripView](t, api.do(t, http.MethodGet, base, "alice", ""))
	require.False(t, v.SaveStatus.Pending)
	require.NotNil(t, v.SaveStatus.LastSavedAt)
	require.Nil(t, v.SaveStatus.LastError)

	v = decode[TripView](t, api.do(t, http.MethodDelete, base+"/cities/"+paris.CityID, "alice", ""))
	require.Len(t, v.Trip.Cities, 1)
	require.True(t, v.SaveStatus.Pending)

	rec = api.do(t, http.MethodPost, base+"/save", "alice", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	v = decode[TripView](t, rec)
	require.False(t, v.SaveStatus.Pending)
	stored, err = api.repo.GetByID(context.Background(), domain.TripID(created.Trip.ID))
	require.NoError(t, err)
	require.Len(t, stored.Cities, 1)
}

func TestSetCityDays_UpperBound(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t, nil)
	created := api.createTrip(t, "alice", `{"startDate":"2024-06-01","dayBudget":5}`)
	base := "/trips/" + created.Trip.ID
	added := decode[AddCityResponse](t, api.do(t, http.MethodPost, base+"/cities", "alice", `{"name":"Rome"}`))
	decode[AddCityResponse](t, api.do(t, http.MethodPost, base+"/cities", "alice", `{"name":"Oslo"}`))
	daysPath := base + "/cities/" + added.CityID + "/days"

	requireError(t, api.do(t, http.MethodPut, daysPath, "alice", `{"days":9223372036854775807}`), http.StatusUnprocessableEntity, "VALIDATION_ERROR")
	requireError(t, api.do(t, http.MethodPut, daysPath, "alice", fmt.Sprintf(`{"days":%d}`, domain.MaxCityDays+1)), http.StatusUnprocessableEntity, "VALIDATION_ERROR")

	rec := api.do(t, http.MethodPut, daysPath, "alice", fmt.Sprintf(`{"days":%d}`, domain.MaxCityDays))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	v := decode[TripView](t, rec)
	require.Equal(t, domain.MaxCityDays+3, v.Timeline.Stats.TotalDays)
	require.True(t, v.Timeline.Stats.IsOverBudget)
	require.Equal(t, 5-domain.MaxCityDays-3, *v.Timeline.Stats.RemainingOrOverDays)
	require.Greater(t, v.Timeline.Entries[1].StartOffset, v.Timeline.Entries[0].StartOffset)

	tl := decode[TimelineResponse](t, api.do(t, http.MethodGet, base+"/timeline", "alice", ""))
	for _, b := range tl.Chart.Bars {
		require.Positive(t, b.WidthPx)
	}
}

func TestPatchTrip_TriState(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t, nil)
	created := api.createTrip(t, "alice", `{"name":"Trip","startDate":"2025-06-01","dayBudget":10}`)
	path := "/trips/" + created.Trip.ID

	v := decode[TripView](t, api.do(t, http.MethodPatch, path, "alice", `{"name":"  Renamed  "}`))
	require.Equal(t, "Renamed", v.Trip.Name)
	require.NotNil(t, v.Trip.StartDate)
	require.NotNil(t, v.Trip.DayBudget)

	v = decode[TripView](t, api.do(t, http.MethodPatch, path, "alice", `{"startDate":null}`))
	require.Nil(t, v.Trip.StartDate)
	require.Nil(t, v.Timeline.Stats.EndDate)
	require.NotNil(t, v.Trip.DayBudget)

	v = decode[TripView](t, api.do(t, http.MethodPatch, path, "alice", `{"dayBudget":null,"startDate":"2025-07-04"}`))
	require.Nil(t, v.Trip.DayBudget)
	require.Nil(t, v.Timeline.Stats.RemainingOrOverDays)
	require.True(t, v.Trip.StartDate.Time.Equal(day(2025, 7, 4)))

	v = decode[TripView](t, api.do(t, http.MethodPatch, path, "alice", `{"name":""}`))
	require.Equal(t, domain.DefaultTripName, v.Trip.Name)
}

func TestForeignTripsAreNotFound(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t, nil)
	created := api.createTrip(t, "alice", "")
	base := "/trips/" + created.Trip.ID

	cases := []struct{ method, path, body string }{
		{http.MethodGet, base, ""},
		{http.MethodPatch, base, `{"name":"mine"}`},
		{http.MethodPost, base + "/cities", `{"name":"Rome"}`},
		{http.MethodPut, base + "/cities/c1/days", `{"days":2}`},
		{http.MethodDelete, base + "/cities/c1", ""},
		{http.MethodPost, base + "/cities/move", `{"fromIndex":0,"toIndex":0}`},
		{http.MethodGet, base + "/timeline", ""},
		{http.MethodGet, base + "/map", ""},
		{http.MethodPost, base + "/save", ""},
		{http.MethodDelete, base + "/session", ""},
		{http.MethodDelete, base, ""},
		{http.MethodGet, "/trips/does-not-exist", ""},
	}
	for _, tc := range cases {
		rec := api.do(t, tc.method, tc.path, "bob", tc.body)
		requireError(t, rec, http.StatusNotFound, "TRIP_NOT_FOUND")
	}

	// Alice's trip is untouched.
	v := decode[TripView](t, api.do(t, http.MethodGet, base, "alice", ""))
	require.Equal(t, domain.DefaultTripName, v.Trip.Name)
}

func TestValidationErrors(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t, nil)
	created := api.createTrip(t, "alice", "")
	base := "/trips/" + created.Trip.ID

	cases := []struct {
		name         string
		method, path string
		body         string
		status       int
		code         string
	}{
		{"zero budget", http.MethodPatch, base, `{"dayBudget":0}`, 422, "VALIDATION_ERROR"},
		{"null name", http.MethodPatch, base, `{"name":null}`, 422, "VALIDATION_ERROR"},
		{"create zero budget", http.MethodPost, "/trips", `{"dayBudget":0}`, 422, "VALIDATION_ERROR"},
		{"blank city", http.MethodPost, base + "/cities", `{"name":"   "}`, 422, "VALIDATION_ERROR"},
		{"half coordinates", http.MethodPost, base + "/cities", `{"name":"X","latitude":10}`, 422, "VALIDATION_ERROR"},
		{"latitude range", http.MethodPost, base + "/cities", `{"name":"X","latitude":95,"longitude":0}`, 422, "VALIDATION_ERROR"},
		{"missing body", http.MethodPost, base + "/cities", "", 422, "VALIDATION_ERROR"},
		{"move on empty", http.MethodPost, base + "/cities/move", `{"fromIndex":0,"toIndex":0}`, 422, "INDEX_OUT_OF_RANGE"},
		{"move missing index", http.MethodPost, base + "/cities/move", `{"fromIndex":0}`, 422, "VALIDATION_ERROR"},
		{"days missing", http.MethodPut, base + "/cities/c1/days", `{}`, 422, "VALIDATION_ERROR"},
		{"days too large", http.MethodPut, base + "/cities/c1/days", `{"days":9223372036854775807}`, 422, "VALIDATION_ERROR"},
		{"bad json", http.MethodPatch, base, `{`, 400, "INVALID_JSON"},
		{"bad dayWidth", http.MethodGet, base + "/timeline?dayWidth=wide", "", 422, "VALIDATION_ERROR"},
		{"bad limit", http.MethodGet, "/cities/search?q=rome&limit=x", "", 422, "VALIDATION_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			requireError(t, api.do(t, tc.method, tc.path, "alice", tc.body), tc.status, tc.code)
		})
	}

	v := decode[TripView](t, api.do(t, http.MethodGet, base, "alice", ""))
	require.Empty(t, v.Trip.Cities)
	require.False(t, v.SaveStatus.Pending, "rejected edits schedule no write")
}

func TestIdempotentCreateTrip(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t, nil)

	first := api.do(t, http.MethodPost, "/trips", "alice", `{"name":"Alps"}`, "Idempotency-Key", "k1")
	require.Equal(t, http.StatusCreated, first.Code)
	again := api.do(t, http.MethodPost, "/trips", "alice", `{"name":"  Alps "}`, "Idempotency-Key", "k1")
	require.Equal(t, http.StatusCreated, again.Code)
	require.Equal(t, "true", again.Header().Get("Idempotent-Replayed"))
	require.Equal(t, decode[TripView](t, first).Trip.ID, decode[TripView](t, again).Trip.ID)

	requireError(t,
		api.do(t, http.MethodPost, "/trips", "alice", `{"name":"Pyrenees"}`, "Idempotency-Key", "k1"),
		http.StatusConflict, "IDEMPOTENCY_KEY_REUSE")

	// Keys are scoped per owner.
	bobs := api.do(t, http.MethodPost, "/trips", "bob", `{"name":"Alps"}`, "Idempotency-Key", "k1")
	require.Equal(t, http.StatusCreated, bobs.Code)
	require.NotEqual(t, decode[TripView](t, first).Trip.ID, decode[TripView](t, bobs).Trip.ID)

	list := decode[ListTripsResponse](t, api.do(t, http.MethodGet, "/trips", "alice", ""))
	require.Len(t, list.Trips, 1)
}

func TestIdempotentAddCity(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t, nil)
	created := api.createTrip(t, "alice", "")
	path := "/trips/" + created.Trip.ID + "/cities"

	a := api.do(t, http.MethodPost, path, "alice", `{"name":"Rome"}`, "Idempotency-Key", "add-1")
	b := api.do(t, http.MethodPost, path, "alice", `{"name":"Rome"}`, "Idempotency-Key", "add-1")
	require.Equal(t, http.StatusCreated, a.Code)
	require.Equal(t, http.StatusCreated, b.Code)
	require.Equal(t, decode[AddCityResponse](t, a).CityID, decode[AddCityResponse](t, b).CityID)

	v := decode[TripView](t, api.do(t, http.MethodGet, "/trips/"+created.Trip.ID, "alice", ""))
	require.Len(t, v.Trip.Cities, 1)
}

func TestCloseSessionAndDeleteTrip(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t, nil)
	created := api.createTrip(t, "alice", "")
	base := "/trips/" + created.Trip.ID

	require.Equal(t, http.StatusCreated, api.do(t, http.MethodPost, base+"/cities", "alice", `{"name":"Rome"}`).Code)
	require.Equal(t, http.StatusNoContent, api.do(t, http.MethodDelete, base+"/session", "alice", "").Code)
	api.clk.Advance(time.Minute)

	v := decode[TripView](t, api.do(t, http.MethodGet, base, "alice", ""))
	require.Empty(t, v.Trip.Cities, "closing the session discards the unsaved city")

	// Closing without an open session is fine while the trip exists.
	require.Equal(t, http.StatusNoContent, api.do(t, http.MethodDelete, base+"/session", "alice", "").Code)

	require.Equal(t, http.StatusCreated, api.do(t, http.MethodPost, base+"/cities", "alice", `{"name":"Oslo"}`).Code)
	require.Equal(t, http.StatusNoContent, api.do(t, http.MethodDelete, base, "alice", "").Code)
	api.clk.Advance(time.Minute)

	requireError(t, api.do(t, http.MethodGet, base, "alice", ""), http.StatusNotFound, "TRIP_NOT_FOUND")
	requireError(t, api.do(t, http.MethodDelete, base+"/session", "alice", ""), http.StatusNotFound, "TRIP_NOT_FOUND")
	require.Empty(t, decode[ListTripsResponse](t, api.do(t, http.MethodGet, "/trips", "alice", "")).Trips)
}

func TestSearchCities(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t, nil)

	resp := decode[SearchCitiesResponse](t, api.do(t, http.MethodGet, "/cities/search?q=japan&limit=2", "alice", ""))
	require.Len(t, resp.Candidates, 2)
	require.Equal(t, "Tokyo, Japan", resp.Candidates[0].Name)
	require.Equal(t, "JP", *resp.Candidates[0].CountryCode)
	require.NotNil(t, resp.Candidates[0].Latitude)

	rec := api.do(t, http.MethodGet, "/cities/search?q=", "alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"candidates":[]}`, rec.Body.String())
}

func TestRouter_UnauthenticatedAndLimits(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t, nil)

	requireError(t, api.do(t, http.MethodGet, "/trips", "", ""), http.StatusUnauthorized, "UNAUTHORIZED")

	big := `{"name":"` + strings.Repeat("x", 70000) + `"}`
	requireError(t, api.do(t, http.MethodPost, "/trips", "alice", big), http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE")
}

func TestRouter_CORSPreflight(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/trips", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Idempotency-Key")
	rec := httptest.NewRecorder()
	api.h.ServeHTTP(rec, req)

	require.Less(t, rec.Code, 300)
	require.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/trips", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	api.h.ServeHTTP(rec, req)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
