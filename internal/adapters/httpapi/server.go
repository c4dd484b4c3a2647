package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/travelplan/itinerary-api/internal/app/editor"
	"github.com/travelplan/itinerary-api/internal/app/places"
	"github.com/travelplan/itinerary-api/internal/app/trips"
	"github.com/travelplan/itinerary-api/internal/app/views"
	"github.com/travelplan/itinerary-api/internal/domain"
	"github.com/travelplan/itinerary-api/internal/ports/out/clock"
	"github.com/travelplan/itinerary-api/internal/ports/out/idempotency"
)

// Server holds the HTTP handlers. Handlers decode, call one application
// operation and encode; they hold no state of their own.
type Server struct {
	Trips  *trips.Service
	Editor *editor.Manager
	Places *places.Service
	Idem   idempotency.Store
	Clock  clock.Clock
	Log    *zap.Logger
}

func NewServer(tripsSvc *trips.Service, ed *editor.Manager, placesSvc *places.Service, idem idempotency.Store, clk clock.Clock, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{Trips: tripsSvc, Editor: ed, Places: placesSvc, Idem: idem, Clock: clk, Log: log}
}

func (s *Server) ListTrips(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	ts, err := s.Trips.ListMyTrips(r.Context(), sub)
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	resp := ListTripsResponse{Trips: make([]TripSummary, 0, len(ts))}
	for _, t := range ts {
		resp.Trips = append(resp.Trips, TripSummary{ID: string(t.ID), Name: t.Name, UpdatedAt: t.UpdatedAt})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) CreateTrip(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	var body CreateTripRequest
	if !decodeBody(w, r, &body, true) {
		return
	}
	in := trips.CreateTripInput{Name: body.Name, DayBudget: body.DayBudget}
	if body.StartDate != nil {
		d := body.StartDate.Time
		in.StartDate = &d
	}

	canon := body
	canon.Name = domain.NormalizeTripName(canon.Name)
	s.idempotent(w, r, sub, "/trips", canon, http.StatusCreated, func() (any, error) {
		created, err := s.Trips.CreateTrip(r.Context(), sub, in)
		if err != nil {
			return nil, err
		}
		return toTripView(editor.View{Trip: created, Timeline: created.Timeline()}), nil
	})
}

func (s *Server) GetTrip(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	v, err := s.Editor.View(r.Context(), sub, tripID(r))
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toTripView(v))
}

func (s *Server) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	var body UpdateTripRequest
	s.edit(w, r, &body, func(sess *editor.Session) error {
		_, err := sess.Update(updateInput(body))
		return err
	})
}

func (s *Server) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	if err := s.Editor.Delete(r.Context(), sub, tripID(r)); err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) AddCity(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	var body AddCityRequest
	if !decodeBody(w, r, &body, false) {
		return
	}
	place, details := placeFromRequest(body)
	if details != nil {
		validation(w, r, "invalid city", details)
		return
	}

	id := tripID(r)
	canon := body
	canon.Name = place.Name
	s.idempotent(w, r, sub, "/trips/"+string(id)+"/cities", canon, http.StatusCreated, func() (any, error) {
		sess, err := s.Editor.Open(r.Context(), sub, id)
		if err != nil {
			return nil, err
		}
		cityID, _, err := sess.AddCity(place)
		if err != nil {
			return nil, err
		}
		return AddCityResponse{CityID: string(cityID), Trip: toTripView(sess.View())}, nil
	})
}

func (s *Server) RemoveCity(w http.ResponseWriter, r *http.Request) {
	cityID := domain.CityID(chi.URLParam(r, "cityId"))
	s.edit(w, r, nil, func(sess *editor.Session) error {
		_, err := sess.RemoveCity(cityID)
		return err
	})
}

func (s *Server) SetCityDays(w http.ResponseWriter, r *http.Request) {
	cityID := domain.CityID(chi.URLParam(r, "cityId"))
	var body SetDaysRequest
	s.edit(w, r, &body, func(sess *editor.Session) error {
		if body.Days == nil {
			return trips.ValidationError("invalid days", map[string]any{"days": "is required"})
		}
		if *body.Days > domain.MaxCityDays {
			return trips.ValidationError("invalid days", map[string]any{"days": fmt.Sprintf("must be <= %d", domain.MaxCityDays)})
		}
		_, err := sess.SetDays(cityID, *body.Days)
		return err
	})
}

func (s *Server) MoveCity(w http.ResponseWriter, r *http.Request) {
	var body MoveCityRequest
	s.edit(w, r, &body, func(sess *editor.Session) error {
		if body.FromIndex == nil || body.ToIndex == nil {
			return trips.ValidationError("invalid move", map[string]any{"fromIndex": "is required", "toIndex": "is required"})
		}
		_, err := sess.MoveCity(*body.FromIndex, *body.ToIndex)
		return err
	})
}

func (s *Server) GetTimeline(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	dayWidth := 0
	if raw := r.URL.Query().Get("dayWidth"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			validation(w, r, "invalid dayWidth", map[string]any{"dayWidth": "must be a positive integer"})
			return
		}
		dayWidth = n
	}
	v, err := s.Editor.View(r.Context(), sub, tripID(r))
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, TimelineResponse{
		Timeline: toTimeline(v.Timeline),
		Chart:    toChart(views.BuildChart(v.Timeline, dayWidth)),
	})
}

func (s *Server) GetMap(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	v, err := s.Editor.View(r.Context(), sub, tripID(r))
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toMap(views.BuildMap(v.Trip.Itinerary)))
}

// SaveTrip flushes the session now instead of waiting for the quiet period.
func (s *Server) SaveTrip(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	sess, err := s.Editor.Open(r.Context(), sub, tripID(r))
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	v, err := sess.Flush(r.Context())
	if err != nil {
		if ae := (*trips.Error)(nil); errors.As(err, &ae) {
			writeError(w, r, ae.Status, ae.Code, ae.Message, ae.Details)
			return
		}
		s.Log.Warn("explicit save failed", zap.String("trip_id", string(sess.ID())), zap.Error(err))
		writeError(w, r, http.StatusServiceUnavailable, "SAVE_FAILED", "trip could not be saved", nil)
		return
	}
	writeJSON(w, http.StatusOK, toTripView(v))
}

// CloseSession discards the live session, including any unsaved edits.
func (s *Server) CloseSession(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	id := tripID(r)
	if !s.Editor.Close(sub, id) {
		if _, err := s.Trips.GetTrip(r.Context(), sub, id); err != nil {
			writeAppError(w, r, s.Log, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) SearchCities(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.subject(w, r); !ok {
		return
	}
	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			validation(w, r, "invalid limit", map[string]any{"limit": "must be an integer"})
			return
		}
		limit = n
	}
	found := s.Places.Search(r.Context(), q.Get("q"), limit)
	writeJSON(w, http.StatusOK, SearchCitiesResponse{Candidates: toCandidates(found)})
}

// edit runs one session mutation and responds with the resulting trip view.
// A nil body means the request carries none.
func (s *Server) edit(w http.ResponseWriter, r *http.Request, body any, apply func(*editor.Session) error) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	if body != nil && !decodeBody(w, r, body, false) {
		return
	}
	sess, err := s.Editor.Open(r.Context(), sub, tripID(r))
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	if err := apply(sess); err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toTripView(sess.View()))
}

func (s *Server) subject(w http.ResponseWriter, r *http.Request) (domain.SubjectID, bool) {
	sub, ok := SubjectFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
	}
	return sub, ok
}

func (s *Server) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

func tripID(r *http.Request) domain.TripID {
	return domain.TripID(chi.URLParam(r, "tripId"))
}

// decodeBody decodes a JSON request body into dst. An empty body is accepted only
// when allowEmpty is set.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) {
		if allowEmpty {
			return true
		}
		validation(w, r, "missing request body", nil)
		return false
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large", map[string]any{"limitBytes": tooLarge.Limit})
		return false
	}
	writeError(w, r, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON", nil)
	return false
}

func updateInput(body UpdateTripRequest) trips.UpdateTripInput {
	var in trips.UpdateTripInput
	if body.Name.IsSpecified() {
		if body.Name.IsNull() {
			in.Name = trips.Null[string]()
		} else {
			in.Name = trips.Some(body.Name.MustGet())
		}
	}
	if body.StartDate.IsSpecified() {
		if body.StartDate.IsNull() {
			in.StartDate = trips.Null[time.Time]()
		} else {
			in.StartDate = trips.Some(body.StartDate.MustGet().Time)
		}
	}
	if body.DayBudget.IsSpecified() {
		if body.DayBudget.IsNull() {
			in.DayBudget = trips.Null[int]()
		} else {
			in.DayBudget = trips.Some(body.DayBudget.MustGet())
		}
	}
	return in
}

func placeFromRequest(b AddCityRequest) (domain.Place, map[string]any) {
	p := domain.Place{Name: domain.NormalizeName(b.Name), CountryCode: b.CountryCode}
	details := map[string]any{}
	if p.Name == "" {
		details["name"] = "is required"
	}
	switch {
	case b.Latitude != nil && b.Longitude != nil:
		lat, lng := *b.Latitude, *b.Longitude
		if lat < -90 || lat > 90 {
			details["latitude"] = "must be within [-90, 90]"
		}
		if lng < -180 || lng > 180 {
			details["longitude"] = "must be within [-180, 180]"
		}
		p.Coordinates = &domain.Coordinates{Latitude: lat, Longitude: lng}
	case b.Latitude != nil || b.Longitude != nil:
		details["coordinates"] = "latitude and longitude must be given together"
	}
	if len(details) > 0 {
		return domain.Place{}, details
	}
	return p, nil
}
