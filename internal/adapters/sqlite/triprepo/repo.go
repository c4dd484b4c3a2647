package triprepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/travelplan/itinerary-api/internal/adapters/snapshot"
	"github.com/travelplan/itinerary-api/internal/adapters/sqlite"
	"github.com/travelplan/itinerary-api/internal/domain"
	"github.com/travelplan/itinerary-api/internal/ports/out/triprepo"
)

const (
	// Fixed-width UTC timestamps so lexical order equals time order.
	timestampLayout = "2006-01-02T15:04:05.000000000Z"
	dateLayout      = "2006-01-02"
)

// Repo is a SQLite implementation of triprepo.Repository.
type Repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

const selectColumns = `id, owner_subject, name, cities, start_date, total_days, created_at, updated_at`

func (r *Repo) Create(ctx context.Context, t triprepo.Trip) error {
	cities, err := snapshot.MarshalCities(t.Cities)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO trips (`+selectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(t.ID), string(t.Owner), t.Name, string(cities),
		formatDate(t.StartDate), t.DayBudget,
		formatTimestamp(t.CreatedAt), formatTimestamp(t.UpdatedAt),
	)
	if err != nil {
		if sqlite.IsConstraintViolation(err) {
			return triprepo.ErrAlreadyExists
		}
		return fmt.Errorf("triprepo.Create: %w", err)
	}
	return nil
}

func (r *Repo) Save(ctx context.Context, t triprepo.Trip) error {
	cities, err := snapshot.MarshalCities(t.Cities)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE trips
		SET name = ?, cities = ?, start_date = ?, total_days = ?, updated_at = ?
		WHERE id = ?`,
		t.Name, string(cities), formatDate(t.StartDate), t.DayBudget, formatTimestamp(t.UpdatedAt),
		string(t.ID),
	)
	if err != nil {
		return fmt.Errorf("triprepo.Save: %w", err)
	}
	return requireOneRow(res)
}

func (r *Repo) GetByID(ctx context.Context, id domain.TripID) (triprepo.Trip, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM trips WHERE id = ?`, string(id))
	t, err := scanTrip(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return triprepo.Trip{}, triprepo.ErrNotFound
		}
		return triprepo.Trip{}, fmt.Errorf("triprepo.GetByID: %w", err)
	}
	return t, nil
}

func (r *Repo) ListByOwner(ctx context.Context, owner domain.SubjectID) ([]triprepo.Trip, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+selectColumns+`
		FROM trips
		WHERE owner_subject = ?
		ORDER BY updated_at DESC, id ASC`, string(owner))
	if err != nil {
		return nil, fmt.Errorf("triprepo.ListByOwner: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]triprepo.Trip, 0)
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("triprepo.ListByOwner: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repo) Delete(ctx context.Context, id domain.TripID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM trips WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("triprepo.Delete: %w", err)
	}
	return requireOneRow(res)
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return triprepo.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrip(row scanner) (triprepo.Trip, error) {
	var (
		id, owner, name, cities string
		startDate               sql.NullString
		totalDays               sql.NullInt64
		createdAt, updatedAt    string
	)
	if err := row.Scan(&id, &owner, &name, &cities, &startDate, &totalDays, &createdAt, &updatedAt); err != nil {
		return triprepo.Trip{}, err
	}

	cs, err := snapshot.UnmarshalCities([]byte(cities))
	if err != nil {
		return triprepo.Trip{}, err
	}
	t := triprepo.Trip{
		ID:     domain.TripID(id),
		Owner:  domain.SubjectID(owner),
		Name:   name,
		Cities: cs,
	}
	if startDate.Valid {
		d, err := time.Parse(dateLayout, startDate.String)
		if err != nil {
			return triprepo.Trip{}, fmt.Errorf("start_date: %w", err)
		}
		t.StartDate = &d
	}
	if totalDays.Valid {
		v := int(totalDays.Int64)
		t.DayBudget = &v
	}
	if t.CreatedAt, err = time.Parse(timestampLayout, createdAt); err != nil {
		return triprepo.Trip{}, fmt.Errorf("created_at: %w", err)
	}
	if t.UpdatedAt, err = time.Parse(timestampLayout, updatedAt); err != nil {
		return triprepo.Trip{}, fmt.Errorf("updated_at: %w", err)
	}
	return t, nil
}

func formatDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return domain.DateOnly(*t).Format(dateLayout)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
