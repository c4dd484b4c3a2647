package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/travelplan/itinerary-api/internal/adapters/postgres"
	"github.com/travelplan/itinerary-api/internal/adapters/sqlite"
	"github.com/travelplan/itinerary-api/internal/platform/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long: `Apply pending migrations to the configured storage backend.

Only the postgres and sqlite backends have a schema; memory storage is a no-op.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		ctx := cmd.Context()

		switch cfg.Storage {
		case config.StoragePostgres:
			results, err := postgres.Migrate(ctx, cfg.DatabaseURL)
			for _, r := range results {
				fmt.Fprintf(out, "applied %s (%s)\n", r.Source.Path, r.Duration)
			}
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintln(out, "postgres: up to date")
			}
		case config.StorageSQLite:
			// Open migrates as part of opening.
			db, err := sqlite.Open(ctx, cfg.SQLitePath)
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Fprintf(out, "sqlite: %s up to date\n", cfg.SQLitePath)
		default:
			fmt.Fprintf(out, "storage %q has no schema\n", cfg.Storage)
		}
		return nil
	},
}
