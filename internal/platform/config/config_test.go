package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/travelplan/itinerary-api/internal/platform/config"
)

var envKeys = []string{
	"CONFIG_FILE", "PORT", "LOG_LEVEL", "LOG_FORMAT", "CORS_ORIGINS", "MAX_BODY_BYTES",
	"STORAGE", "DATABASE_URL", "SQLITE_PATH",
	"AUTH_MODE", "DEV_SUBJECT", "JWT_ISSUER", "JWT_AUDIENCE", "JWT_JWKS_URL",
	"JWT_CLOCK_SKEW", "JWT_JWKS_REFRESH_INTERVAL", "JWT_JWKS_MIN_REFRESH_INTERVAL",
	"AUTOSAVE_DELAY", "AUTOSAVE_FLUSH_TIMEOUT", "SESSION_IDLE_TIMEOUT", "SESSION_SWEEP_INTERVAL",
	"GEOCODER", "GEOCODER_URL", "GEOCODER_USER_AGENT", "GEOCODER_TIMEOUT",
}

// clearEnv blanks every variable Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_defaultsInDevMode(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_MODE", "dev")

	cfg, err := config.Load()

	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, config.StorageMemory, cfg.Storage)
	require.Equal(t, config.GeocoderStatic, cfg.Geocoder.Provider)
	require.Equal(t, 2*time.Second, cfg.Autosave.Delay)
	require.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
}

func TestLoad_envOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_MODE", "jwt")
	t.Setenv("JWT_ISSUER", "iss")
	t.Setenv("JWT_AUDIENCE", "aud")
	t.Setenv("JWT_JWKS_URL", "http://idp/jwks")
	t.Setenv("JWT_CLOCK_SKEW", "5s")
	t.Setenv("STORAGE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/trips")
	t.Setenv("AUTOSAVE_DELAY", "750ms")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := config.Load()

	require.NoError(t, err)
	require.Equal(t, config.StoragePostgres, cfg.Storage)
	require.Equal(t, 5*time.Second, cfg.JWT.ClockSkew)
	require.Equal(t, 750*time.Millisecond, cfg.Autosave.Delay)
	require.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
}

func TestLoad_reportsEveryProblem(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_MODE", "jwt")
	t.Setenv("STORAGE", "postgres")
	t.Setenv("AUTOSAVE_DELAY", "soon")

	_, err := config.Load()

	require.Error(t, err)
	require.ErrorContains(t, err, "JWT_ISSUER")
	require.ErrorContains(t, err, "DATABASE_URL")
	require.ErrorContains(t, err, "AUTOSAVE_DELAY")
}

func TestLoad_tomlFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "api.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
port = "9000"
storage = "sqlite"
sqlite_path = "/tmp/trips.db"

[auth]
mode = "dev"
dev_subject = "alice"

[autosave]
delay = "3s"
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9100")

	cfg, err := config.Load()

	require.NoError(t, err)
	require.Equal(t, "9100", cfg.Port, "env wins over file")
	require.Equal(t, config.StorageSQLite, cfg.Storage)
	require.Equal(t, "/tmp/trips.db", cfg.SQLitePath)
	require.Equal(t, "alice", cfg.DevSubject)
	require.Equal(t, 3*time.Second, cfg.Autosave.Delay)
}

func TestLoad_yamlFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "api.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
auth:
  mode: dev
geocoder:
  provider: nominatim
  url: http://geo.internal
  timeout: 2s
`), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := config.Load()

	require.NoError(t, err)
	require.Equal(t, config.GeocoderNominatim, cfg.Geocoder.Provider)
	require.Equal(t, "http://geo.internal", cfg.Geocoder.URL)
	require.Equal(t, 2*time.Second, cfg.Geocoder.Timeout)
}

func TestLoad_unknownFileExtension(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "api.ini")
	require.NoError(t, os.WriteFile(path, []byte("port=1"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	_, err := config.Load()

	require.ErrorContains(t, err, "unsupported extension")
}
