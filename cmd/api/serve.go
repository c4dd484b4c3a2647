package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/travelplan/itinerary-api/internal/adapters/httpapi"
	memgeo "github.com/travelplan/itinerary-api/internal/adapters/memory/geocoder"
	memidempotency "github.com/travelplan/itinerary-api/internal/adapters/memory/idempotency"
	memtriprepo "github.com/travelplan/itinerary-api/internal/adapters/memory/triprepo"
	"github.com/travelplan/itinerary-api/internal/adapters/nominatim"
	"github.com/travelplan/itinerary-api/internal/adapters/postgres"
	pgidempotency "github.com/travelplan/itinerary-api/internal/adapters/postgres/idempotency"
	pgtriprepo "github.com/travelplan/itinerary-api/internal/adapters/postgres/triprepo"
	"github.com/travelplan/itinerary-api/internal/adapters/sqlite"
	sqlitetriprepo "github.com/travelplan/itinerary-api/internal/adapters/sqlite/triprepo"
	"github.com/travelplan/itinerary-api/internal/app/editor"
	"github.com/travelplan/itinerary-api/internal/app/places"
	"github.com/travelplan/itinerary-api/internal/app/trips"
	"github.com/travelplan/itinerary-api/internal/platform/auth/jwtverifier"
	platformclock "github.com/travelplan/itinerary-api/internal/platform/clock"
	"github.com/travelplan/itinerary-api/internal/platform/config"
	"github.com/travelplan/itinerary-api/internal/platform/logging"
	geocoderport "github.com/travelplan/itinerary-api/internal/ports/out/geocoder"
	idempotencyport "github.com/travelplan/itinerary-api/internal/ports/out/idempotency"
	triprepoport "github.com/travelplan/itinerary-api/internal/ports/out/triprepo"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long: `Run the HTTP server until SIGINT or SIGTERM.

Configuration comes from defaults, the optional CONFIG_FILE (TOML or YAML)
and then the environment. On shutdown every pending autosave is flushed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()
		return serve(cmd.Context(), cfg, log)
	},
}

// storage is the set of adapters selected by the storage backend.
type storage struct {
	trips triprepoport.Repository
	idem  idempotencyport.Store
	close func()
}

func openStorage(ctx context.Context, cfg config.Config, log *zap.Logger) (storage, error) {
	switch cfg.Storage {
	case config.StoragePostgres:
		if _, err := postgres.Migrate(ctx, cfg.DatabaseURL); err != nil {
			return storage{}, fmt.Errorf("postgres migrate: %w", err)
		}
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return storage{}, fmt.Errorf("postgres: %w", err)
		}
		log.Info("storage ready", zap.String("backend", cfg.Storage))
		return storage{
			trips: pgtriprepo.NewRepo(pool),
			idem:  pgidempotency.NewStore(pool),
			close: pool.Close,
		}, nil
	case config.StorageSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return storage{}, fmt.Errorf("sqlite: %w", err)
		}
		log.Info("storage ready", zap.String("backend", cfg.Storage), zap.String("path", cfg.SQLitePath))
		// Idempotency records are short-lived; the local backend keeps them in memory.
		return storage{
			trips: sqlitetriprepo.NewRepo(db),
			idem:  memidempotency.NewStore(),
			close: closeDB(db, log),
		}, nil
	default:
		log.Warn("using in-memory storage; trips are lost on restart")
		return storage{
			trips: memtriprepo.NewRepo(),
			idem:  memidempotency.NewStore(),
			close: func() {},
		}, nil
	}
}

func closeDB(db *sql.DB, log *zap.Logger) func() {
	return func() {
		if err := db.Close(); err != nil {
			log.Warn("closing database", zap.Error(err))
		}
	}
}

func newGeocoder(cfg config.GeocoderConfig) geocoderport.Geocoder {
	if cfg.Provider == config.GeocoderNominatim {
		return nominatim.New(cfg, &http.Client{Timeout: cfg.Timeout})
	}
	return memgeo.NewCatalog()
}

func newAuth(cfg config.Config, log *zap.Logger) func(http.Handler) http.Handler {
	if cfg.AuthMode == config.AuthModeDev {
		log.Warn("dev auth enabled; X-Debug-Subject is trusted", zap.String("default_subject", cfg.DevSubject))
		return httpapi.NewDevAuthMiddleware(cfg.DevSubject)
	}
	return httpapi.NewAuthMiddleware(jwtverifier.New(cfg.JWT).WithLogger(log.Named("auth")))
}

func serve(parent context.Context, cfg config.Config, log *zap.Logger) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.close()

	clk := platformclock.NewSystemClock()
	tripSvc := trips.NewService(store.trips, clk)
	ed := editor.NewManager(tripSvc, clk, log.Named("editor"), editor.Options{
		Delay:        cfg.Autosave.Delay,
		FlushTimeout: cfg.Autosave.FlushTimeout,
		IdleTimeout:  cfg.Autosave.IdleTimeout,
	})
	placeSvc := places.NewService(newGeocoder(cfg.Geocoder), log.Named("places"))

	api := httpapi.NewServer(tripSvc, ed, placeSvc, store.idem, clk, log)
	handler := httpapi.NewRouter(api, httpapi.RouterOptions{
		AuthMiddleware: newAuth(cfg, log),
		Logger:         log.Named("http"),
		CORSOrigins:    cfg.CORSOrigins,
		MaxBodyBytes:   cfg.MaxBodyBytes,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if cfg.Autosave.IdleTimeout > 0 && cfg.Autosave.SweepInterval > 0 {
		go sweepIdle(ctx, ed, clk, cfg.Autosave.SweepInterval, log)
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("api listening", zap.String("addr", srv.Addr), zap.String("storage", cfg.Storage), zap.String("auth", cfg.AuthMode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	if err := ed.Shutdown(shutdownCtx); err != nil {
		log.Error("flushing pending trips", zap.Error(err))
		return err
	}
	return nil
}

// sweepIdle periodically drops editor sessions nobody has touched for a while.
func sweepIdle(ctx context.Context, ed *editor.Manager, clk platformclock.SystemClock, every time.Duration, log *zap.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := ed.Sweep(clk.Now()); n > 0 {
				log.Debug("evicted idle sessions", zap.Int("count", n), zap.Int("open", ed.Len()))
			}
		}
	}
}
