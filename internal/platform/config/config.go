// Package config loads and validates application configuration.
//
// Values are resolved in three layers: built-in defaults, then an optional
// TOML or YAML file named by CONFIG_FILE, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"

	AuthModeJWT = "jwt"
	AuthModeDev = "dev"

	GeocoderStatic    = "static"
	GeocoderNominatim = "nominatim"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// LogLevel controls the minimum log level: debug, info, warn, error.
	LogLevel string
	// LogFormat is "json" (production) or "console".
	LogFormat string

	// CORSOrigins is the list of allowed cross-origin request origins.
	CORSOrigins []string

	MaxBodyBytes int64

	// Storage selects the trip repository backend: memory, postgres or sqlite.
	Storage     string
	DatabaseURL string
	SQLitePath  string

	// AuthMode is "jwt" or "dev". Dev mode trusts the X-Debug-Subject header.
	AuthMode   string
	DevSubject string
	JWT        JWTConfig

	Autosave AutosaveConfig
	Geocoder GeocoderConfig
}

// AutosaveConfig tunes the per-trip editor sessions.
type AutosaveConfig struct {
	// Delay is the quiet period after the last change before a trip is written.
	Delay time.Duration
	// FlushTimeout bounds a single write.
	FlushTimeout time.Duration
	// IdleTimeout evicts sessions untouched for this long; 0 disables eviction.
	IdleTimeout   time.Duration
	SweepInterval time.Duration
}

type GeocoderConfig struct {
	Provider  string
	URL       string
	UserAgent string
	Timeout   time.Duration
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() Config {
	return Config{
		Port:         "8080",
		LogLevel:     "info",
		LogFormat:    "json",
		CORSOrigins:  []string{"http://localhost:3000"},
		MaxBodyBytes: 1 << 20,
		Storage:      StorageMemory,
		SQLitePath:   "itinerary.db",
		AuthMode:     AuthModeJWT,
		JWT:          defaultJWTConfig(),
		Autosave: AutosaveConfig{
			Delay:         2 * time.Second,
			FlushTimeout:  5 * time.Second,
			IdleTimeout:   30 * time.Minute,
			SweepInterval: time.Minute,
		},
		Geocoder: GeocoderConfig{
			Provider:  GeocoderStatic,
			URL:       "https://nominatim.openstreetmap.org",
			UserAgent: "itinerary-api/1.0",
			Timeout:   5 * time.Second,
		},
	}
}

// Load resolves defaults, the optional CONFIG_FILE and the environment, then
// validates the result. The returned error lists every problem found.
func Load() (Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	var problems []string
	applyEnv(&cfg, &problems)
	problems = append(problems, cfg.validate()...)
	if len(problems) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return cfg, nil
}

// fileConfig mirrors Config for TOML/YAML documents. Durations are strings
// such as "2s" or "5m".
type fileConfig struct {
	Port         string   `toml:"port" yaml:"port"`
	LogLevel     string   `toml:"log_level" yaml:"log_level"`
	LogFormat    string   `toml:"log_format" yaml:"log_format"`
	CORSOrigins  []string `toml:"cors_origins" yaml:"cors_origins"`
	MaxBodyBytes int64    `toml:"max_body_bytes" yaml:"max_body_bytes"`

	Storage     string `toml:"storage" yaml:"storage"`
	DatabaseURL string `toml:"database_url" yaml:"database_url"`
	SQLitePath  string `toml:"sqlite_path" yaml:"sqlite_path"`

	Auth struct {
		Mode       string `toml:"mode" yaml:"mode"`
		DevSubject string `toml:"dev_subject" yaml:"dev_subject"`
		Issuer     string `toml:"issuer" yaml:"issuer"`
		Audience   string `toml:"audience" yaml:"audience"`
		JWKSURL    string `toml:"jwks_url" yaml:"jwks_url"`
		ClockSkew  string `toml:"clock_skew" yaml:"clock_skew"`
	} `toml:"auth" yaml:"auth"`

	Autosave struct {
		Delay         string `toml:"delay" yaml:"delay"`
		FlushTimeout  string `toml:"flush_timeout" yaml:"flush_timeout"`
		IdleTimeout   string `toml:"idle_timeout" yaml:"idle_timeout"`
		SweepInterval string `toml:"sweep_interval" yaml:"sweep_interval"`
	} `toml:"autosave" yaml:"autosave"`

	Geocoder struct {
		Provider  string `toml:"provider" yaml:"provider"`
		URL       string `toml:"url" yaml:"url"`
		UserAgent string `toml:"user_agent" yaml:"user_agent"`
		Timeout   string `toml:"timeout" yaml:"timeout"`
	} `toml:"geocoder" yaml:"geocoder"`
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &fc); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return fmt.Errorf("config file %s: unsupported extension (want .toml, .yaml or .yml)", path)
	}

	setString(&cfg.Port, fc.Port)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.LogFormat, fc.LogFormat)
	if len(fc.CORSOrigins) > 0 {
		cfg.CORSOrigins = fc.CORSOrigins
	}
	if fc.MaxBodyBytes > 0 {
		cfg.MaxBodyBytes = fc.MaxBodyBytes
	}
	setString(&cfg.Storage, fc.Storage)
	setString(&cfg.DatabaseURL, fc.DatabaseURL)
	setString(&cfg.SQLitePath, fc.SQLitePath)

	setString(&cfg.AuthMode, fc.Auth.Mode)
	setString(&cfg.DevSubject, fc.Auth.DevSubject)
	setString(&cfg.JWT.Issuer, fc.Auth.Issuer)
	setString(&cfg.JWT.Audience, fc.Auth.Audience)
	setString(&cfg.JWT.JWKSURL, fc.Auth.JWKSURL)

	setString(&cfg.Geocoder.Provider, fc.Geocoder.Provider)
	setString(&cfg.Geocoder.URL, fc.Geocoder.URL)
	setString(&cfg.Geocoder.UserAgent, fc.Geocoder.UserAgent)

	var errs []error
	for _, d := range []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"auth.clock_skew", fc.Auth.ClockSkew, &cfg.JWT.ClockSkew},
		{"autosave.delay", fc.Autosave.Delay, &cfg.Autosave.Delay},
		{"autosave.flush_timeout", fc.Autosave.FlushTimeout, &cfg.Autosave.FlushTimeout},
		{"autosave.idle_timeout", fc.Autosave.IdleTimeout, &cfg.Autosave.IdleTimeout},
		{"autosave.sweep_interval", fc.Autosave.SweepInterval, &cfg.Autosave.SweepInterval},
		{"geocoder.timeout", fc.Geocoder.Timeout, &cfg.Geocoder.Timeout},
	} {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s must be a duration (e.g. 2s): %w", d.key, err))
			continue
		}
		*d.dst = v
	}
	return errors.Join(errs...)
}

func applyEnv(cfg *Config, problems *[]string) {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitCSV(v)
	}
	cfg.Storage = getEnv("STORAGE", cfg.Storage)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.SQLitePath = getEnv("SQLITE_PATH", cfg.SQLitePath)

	cfg.AuthMode = getEnv("AUTH_MODE", cfg.AuthMode)
	cfg.DevSubject = getEnv("DEV_SUBJECT", cfg.DevSubject)
	cfg.JWT.Issuer = getEnv("JWT_ISSUER", cfg.JWT.Issuer)
	cfg.JWT.Audience = getEnv("JWT_AUDIENCE", cfg.JWT.Audience)
	cfg.JWT.JWKSURL = getEnv("JWT_JWKS_URL", cfg.JWT.JWKSURL)

	cfg.Geocoder.Provider = getEnv("GEOCODER", cfg.Geocoder.Provider)
	cfg.Geocoder.URL = getEnv("GEOCODER_URL", cfg.Geocoder.URL)
	cfg.Geocoder.UserAgent = getEnv("GEOCODER_USER_AGENT", cfg.Geocoder.UserAgent)

	if v := os.Getenv("MAX_BODY_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			*problems = append(*problems, "MAX_BODY_BYTES must be a positive integer")
		} else {
			cfg.MaxBodyBytes = n
		}
	}

	for _, d := range []struct {
		key string
		dst *time.Duration
	}{
		{"JWT_CLOCK_SKEW", &cfg.JWT.ClockSkew},
		{"JWT_JWKS_REFRESH_INTERVAL", &cfg.JWT.JWKSRefreshInterval},
		{"JWT_JWKS_MIN_REFRESH_INTERVAL", &cfg.JWT.JWKSMinRefreshInterval},
		{"AUTOSAVE_DELAY", &cfg.Autosave.Delay},
		{"AUTOSAVE_FLUSH_TIMEOUT", &cfg.Autosave.FlushTimeout},
		{"SESSION_IDLE_TIMEOUT", &cfg.Autosave.IdleTimeout},
		{"SESSION_SWEEP_INTERVAL", &cfg.Autosave.SweepInterval},
		{"GEOCODER_TIMEOUT", &cfg.Geocoder.Timeout},
	} {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			*problems = append(*problems, fmt.Sprintf("%s must be a duration (e.g. 30s)", d.key))
			continue
		}
		*d.dst = parsed
	}
}

func (c Config) validate() []string {
	var problems []string

	switch c.Storage {
	case StorageMemory:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			problems = append(problems, "DATABASE_URL is required when STORAGE=postgres")
		}
	case StorageSQLite:
		if c.SQLitePath == "" {
			problems = append(problems, "SQLITE_PATH is required when STORAGE=sqlite")
		}
	default:
		problems = append(problems, fmt.Sprintf("STORAGE must be one of memory, postgres, sqlite (got %q)", c.Storage))
	}

	switch c.AuthMode {
	case AuthModeJWT:
		if missing := c.JWT.missing(); len(missing) > 0 {
			problems = append(problems, "missing required env vars: "+strings.Join(missing, ", "))
		}
	case AuthModeDev:
	default:
		problems = append(problems, fmt.Sprintf("AUTH_MODE must be jwt or dev (got %q)", c.AuthMode))
	}

	switch c.Geocoder.Provider {
	case GeocoderStatic:
	case GeocoderNominatim:
		if c.Geocoder.URL == "" {
			problems = append(problems, "GEOCODER_URL is required when GEOCODER=nominatim")
		}
	default:
		problems = append(problems, fmt.Sprintf("GEOCODER must be static or nominatim (got %q)", c.Geocoder.Provider))
	}

	if c.Autosave.Delay <= 0 {
		problems = append(problems, "AUTOSAVE_DELAY must be positive")
	}
	return problems
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
