// Package testutil provides shared helpers for postgres integration tests.
// Helpers skip automatically when TEST_DATABASE_URL is not set, so unit tests
// run without a database.
package testutil

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/travelplan/itinerary-api/internal/adapters/postgres"
)

var (
	migrateOnce sync.Once
	migrateErr  error
)

// OpenMigratedPool returns a pool on TEST_DATABASE_URL with all migrations
// applied once per test binary. The pool is closed when the test finishes.
func OpenMigratedPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping integration test")
	}

	ctx := context.Background()
	migrateOnce.Do(func() {
		_, migrateErr = postgres.Migrate(ctx, dsn)
	})
	if migrateErr != nil {
		t.Fatalf("testutil.OpenMigratedPool: migrate: %v", migrateErr)
	}

	pool, err := postgres.NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("testutil.OpenMigratedPool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}
