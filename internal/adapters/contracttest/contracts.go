package contracttest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/travelplan/itinerary-api/internal/domain"
	idempotencyport "github.com/travelplan/itinerary-api/internal/ports/out/idempotency"
	triprepoport "github.com/travelplan/itinerary-api/internal/ports/out/triprepo"
)

type CleanupFunc = func()

type TripRepoFactory func(t *testing.T) (triprepoport.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:      idempotencyport.Key("k-" + uuid.NewString()),
		Owner:    domain.SubjectID("sub-1"),
		Method:   "POST",
		Route:    "/trips",
		BodyHash: "",
	}
	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("Get before Put: ok=%v err=%v", ok, err)
	}

	rec := idempotencyport.Record{
		StatusCode:  0,
		ContentType: "text/plain",
		Body:        []byte("hash-abc"),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != "hash-abc" || got.ContentType != "text/plain" || got.StatusCode != 0 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte("hash-def")
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != "hash-def" {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}

	// The body hash is part of the identity.
	respFP := fp
	respFP.BodyHash = "hash-def"
	if _, ok, err := store.Get(ctx, respFP); err != nil || ok {
		t.Fatalf("Get distinct fingerprint: ok=%v err=%v", ok, err)
	}
}

// RunTripRepo exercises the repository contract shared by every storage backend.
func RunTripRepo(t *testing.T, newRepo TripRepoFactory) {
	t.Helper()
	ctx := context.Background()

	trips, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	owner := domain.SubjectID("sub-" + uuid.NewString())
	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	budget := 10
	fr := "FR"

	tripID := domain.TripID(uuid.NewString())
	in := triprepoport.Trip{
		ID:    tripID,
		Owner: owner,
		Name:  "Summer",
		Cities: []domain.CityEntry{
			{ID: domain.CityID(uuid.NewString()), Name: "Paris, France", CountryCode: &fr, Coordinates: &domain.Coordinates{Latitude: 48.8566, Longitude: 2.3522}, Days: 3},
			{ID: domain.CityID(uuid.NewString()), Name: "Lyon", Days: 2},
		},
		StartDate: &start,
		DayBudget: &budget,
		CreatedAt: created,
		UpdatedAt: created,
	}
	if err := trips.Create(ctx, in); err != nil {
		t.Fatalf("Create trip: %v", err)
	}
	if err := trips.Create(ctx, in); !errors.Is(err, triprepoport.ErrAlreadyExists) {
		t.Fatalf("Create duplicate: err=%v, want ErrAlreadyExists", err)
	}

	got, err := trips.GetByID(ctx, tripID)
	if err != nil {
		t.Fatalf("GetByID trip: %v", err)
	}
	if got.ID != tripID || got.Owner != owner || got.Name != "Summer" {
		t.Fatalf("unexpected trip: %#v", got)
	}
	if len(got.Cities) != 2 || got.Cities[0].Name != "Paris, France" || got.Cities[0].Days != 3 || got.Cities[1].Days != 2 {
		t.Fatalf("unexpected cities: %#v", got.Cities)
	}
	if got.Cities[0].CountryCode == nil || *got.Cities[0].CountryCode != "FR" || got.Cities[0].Coordinates == nil {
		t.Fatalf("optional city fields lost: %#v", got.Cities[0])
	}
	if got.Cities[1].CountryCode != nil || got.Cities[1].Coordinates != nil {
		t.Fatalf("absent city fields materialized: %#v", got.Cities[1])
	}
	if got.StartDate == nil || !got.StartDate.Equal(start) || got.DayBudget == nil || *got.DayBudget != 10 {
		t.Fatalf("unexpected config: start=%v budget=%v", got.StartDate, got.DayBudget)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("createdAt=%s", got.CreatedAt)
	}

	// Save is a whole-snapshot overwrite, including clearing optional fields.
	updated := got
	updated.Name = "Summer v2"
	updated.Cities = []domain.CityEntry{got.Cities[1], got.Cities[0]}
	updated.StartDate = nil
	updated.DayBudget = nil
	updated.UpdatedAt = created.Add(time.Hour)
	if err := trips.Save(ctx, updated); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err = trips.GetByID(ctx, tripID)
	if err != nil {
		t.Fatalf("GetByID after save: %v", err)
	}
	if got.Name != "Summer v2" || got.Cities[0].Name != "Lyon" || got.StartDate != nil || got.DayBudget != nil {
		t.Fatalf("unexpected trip after save: %#v", got)
	}

	// Empty itinerary round-trips as empty.
	emptyID := domain.TripID(uuid.NewString())
	if err := trips.Create(ctx, triprepoport.Trip{
		ID:        emptyID,
		Owner:     owner,
		Name:      "New Trip",
		CreatedAt: created,
		UpdatedAt: created.Add(2 * time.Hour),
	}); err != nil {
		t.Fatalf("Create empty trip: %v", err)
	}
	empty, err := trips.GetByID(ctx, emptyID)
	if err != nil {
		t.Fatalf("GetByID empty: %v", err)
	}
	if len(empty.Cities) != 0 {
		t.Fatalf("empty trip cities: %#v", empty.Cities)
	}

	// Another owner's trip does not show up in the listing.
	if err := trips.Create(ctx, triprepoport.Trip{
		ID:        domain.TripID(uuid.NewString()),
		Owner:     domain.SubjectID("sub-" + uuid.NewString()),
		Name:      "Foreign",
		CreatedAt: created,
		UpdatedAt: created.Add(3 * time.Hour),
	}); err != nil {
		t.Fatalf("Create foreign trip: %v", err)
	}

	list, err := trips.ListByOwner(ctx, owner)
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if len(list) != 2 || list[0].ID != emptyID || list[1].ID != tripID {
		t.Fatalf("unexpected listing order: %#v", list)
	}

	if err := trips.Delete(ctx, tripID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := trips.GetByID(ctx, tripID); !errors.Is(err, triprepoport.ErrNotFound) {
		t.Fatalf("GetByID after delete: err=%v, want ErrNotFound", err)
	}
	if err := trips.Delete(ctx, tripID); !errors.Is(err, triprepoport.ErrNotFound) {
		t.Fatalf("Delete twice: err=%v, want ErrNotFound", err)
	}
	// A late autosave must not resurrect a deleted trip.
	if err := trips.Save(ctx, updated); !errors.Is(err, triprepoport.ErrNotFound) {
		t.Fatalf("Save after delete: err=%v, want ErrNotFound", err)
	}
}
