package triprepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/travelplan/itinerary-api/internal/adapters/postgres"
	"github.com/travelplan/itinerary-api/internal/adapters/snapshot"
	"github.com/travelplan/itinerary-api/internal/domain"
	"github.com/travelplan/itinerary-api/internal/ports/out/triprepo"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repo is a Postgres implementation of triprepo.Repository.
// The itinerary is stored whole in a jsonb column.
type Repo struct {
	db db
}

func NewRepo(db db) *Repo {
	return &Repo{db: db}
}

const selectColumns = `id, owner_subject, name, cities, start_date, total_days, created_at, updated_at`

func (r *Repo) Create(ctx context.Context, t triprepo.Trip) error {
	args, err := namedArgs(t)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO trips (`+selectColumns+`)
		VALUES (@id, @owner_subject, @name, @cities, @start_date, @total_days, @created_at, @updated_at)
	`, args)
	if err != nil {
		if postgres.IsUniqueViolation(err, "trips_pkey") {
			return triprepo.ErrAlreadyExists
		}
		return fmt.Errorf("triprepo.Create: %w", err)
	}
	return nil
}

// Save overwrites the snapshot columns. Owner and created_at are immutable.
func (r *Repo) Save(ctx context.Context, t triprepo.Trip) error {
	args, err := namedArgs(t)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE trips
		SET name = @name,
		    cities = @cities,
		    start_date = @start_date,
		    total_days = @total_days,
		    updated_at = @updated_at
		WHERE id = @id
	`, args)
	if err != nil {
		return fmt.Errorf("triprepo.Save: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return triprepo.ErrNotFound
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.TripID) (triprepo.Trip, error) {
	tripUUID, err := uuid.Parse(string(id))
	if err != nil {
		// Not a valid id for this store, so it cannot exist.
		return triprepo.Trip{}, triprepo.ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM trips WHERE id = $1`, tripUUID)
	t, err := scanTrip(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return triprepo.Trip{}, triprepo.ErrNotFound
		}
		return triprepo.Trip{}, fmt.Errorf("triprepo.GetByID: %w", err)
	}
	return t, nil
}

func (r *Repo) ListByOwner(ctx context.Context, owner domain.SubjectID) ([]triprepo.Trip, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+selectColumns+`
		FROM trips
		WHERE owner_subject = $1
		ORDER BY updated_at DESC, id ASC
	`, string(owner))
	if err != nil {
		return nil, fmt.Errorf("triprepo.ListByOwner: %w", err)
	}
	defer rows.Close()

	out := make([]triprepo.Trip, 0)
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("triprepo.ListByOwner: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("triprepo.ListByOwner: %w", err)
	}
	return out, nil
}

func (r *Repo) Delete(ctx context.Context, id domain.TripID) error {
	tripUUID, err := uuid.Parse(string(id))
	if err != nil {
		return triprepo.ErrNotFound
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM trips WHERE id = $1`, tripUUID)
	if err != nil {
		return fmt.Errorf("triprepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return triprepo.ErrNotFound
	}
	return nil
}

func namedArgs(t triprepo.Trip) (pgx.NamedArgs, error) {
	tripUUID, err := uuid.Parse(string(t.ID))
	if err != nil {
		return nil, fmt.Errorf("invalid trip id: %w", err)
	}
	cities, err := snapshot.MarshalCities(t.Cities)
	if err != nil {
		return nil, err
	}
	return pgx.NamedArgs{
		"id":            tripUUID,
		"owner_subject": string(t.Owner),
		"name":          t.Name,
		"cities":        cities,
		"start_date":    datePtr(t.StartDate),
		"total_days":    t.DayBudget, // nil becomes NULL
		"created_at":    t.CreatedAt.UTC(),
		"updated_at":    t.UpdatedAt.UTC(),
	}, nil
}

func scanTrip(row pgx.Row) (triprepo.Trip, error) {
	var (
		id        uuid.UUID
		owner     string
		name      string
		cities    []byte
		startDate pgtype.Date
		totalDays *int
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&id, &owner, &name, &cities, &startDate, &totalDays, &createdAt, &updatedAt); err != nil {
		return triprepo.Trip{}, err
	}
	cs, err := snapshot.UnmarshalCities(cities)
	if err != nil {
		return triprepo.Trip{}, err
	}
	return triprepo.Trip{
		ID:        domain.TripID(id.String()),
		Owner:     domain.SubjectID(owner),
		Name:      name,
		Cities:    cs,
		StartDate: dateToTimePtr(startDate),
		DayBudget: totalDays,
		CreatedAt: createdAt.UTC(),
		UpdatedAt: updatedAt.UTC(),
	}, nil
}

func datePtr(t *time.Time) pgtype.Date {
	var d pgtype.Date
	if t == nil {
		return d
	}
	d.Time = domain.DateOnly(*t)
	d.Valid = true
	return d
}

func dateToTimePtr(d pgtype.Date) *time.Time {
	if !d.Valid {
		return nil
	}
	v := time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
	return &v
}
