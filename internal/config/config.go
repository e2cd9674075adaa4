// Package config provides application configuration loading from environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Database drivers understood by database.NewConnection.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all configuration for the gateway.
type Config struct {
	Port    string
	GinMode string

	APIBaseURL      string
	UpstreamTimeout time.Duration
	UpstreamRPS     float64
	UpstreamBurst   int
	FanoutLimit     int

	DBDriver    string
	DatabaseURL string

	// JWTSecret is the HMAC key shared with the dealership API.
	JWTSecret string

	CORSOrigins []string
	Location    *time.Location

	LogLevel string
	LogJSON  bool

	PrefetchEnabled bool
	PrefetchRPS     float64
}

// Load reads configuration from configs/.env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		GinMode:         os.Getenv("GIN_MODE"),
		APIBaseURL:      strings.TrimRight(strings.TrimSpace(os.Getenv("API_BASE_URL")), "/"),
		UpstreamTimeout: 10 * time.Second,
		UpstreamRPS:     20,
		UpstreamBurst:   10,
		FanoutLimit:     8,
		DBDriver:        strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogJSON:         os.Getenv("LOG_JSON") == "true",
		PrefetchEnabled: getEnv("PREFETCH_ENABLED", "true") == "true",
		PrefetchRPS:     5,
		Location:        time.Local,
	}

	if v := os.Getenv("UPSTREAM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.UpstreamTimeout = d
		}
	}
	if v := os.Getenv("UPSTREAM_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.UpstreamRPS = f
		}
	}
	if v := os.Getenv("UPSTREAM_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.UpstreamBurst = n
		}
	}
	if v := os.Getenv("FANOUT_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.FanoutLimit = n
		}
	}
	if v := os.Getenv("PREFETCH_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.PrefetchRPS = f
		}
	}
	if tz := os.Getenv("TIMEZONE"); tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			cfg.Location = loc
		}
	}

	cfg.CORSOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = nil
		for origin := range strings.SplitSeq(origins, ",") {
			origin = strings.TrimSpace(origin)
			if origin == "" {
				continue
			}
			cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
		}
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" && cfg.DBDriver == DriverPostgres {
		cfg.DatabaseURL = postgresDSNFromParts()
	}
	if cfg.DatabaseURL == "" && cfg.DBDriver == DriverSQLite {
		cfg.DatabaseURL = "file:dealership.db?cache=shared"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Now is the current time in the configured location. "Today" on the dashboards is measured
// with this clock.
func (c *Config) Now() time.Time {
	return time.Now().In(c.Location)
}

// validate checks that all required configuration is present.
func (c *Config) validate() error {
	var errs []string

	if c.APIBaseURL == "" {
		errs = append(errs, "API_BASE_URL is required")
	} else if u, err := url.Parse(c.APIBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, "API_BASE_URL must be an absolute URL")
	}

	if c.JWTSecret == "" {
		errs = append(errs, "JWT_SECRET is required")
	}

	if c.DBDriver != DriverPostgres && c.DBDriver != DriverSQLite {
		errs = append(errs, "DB_DRIVER must be postgres or sqlite")
	}

	if c.GinMode == "release" && len(c.CORSOrigins) == 0 {
		errs = append(errs, "CORS_ORIGINS is required in release mode")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

func postgresDSNFromParts() string {
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbUser := getEnv("DB_USER", "postgres")
	dbPassword := getEnv("DB_PASSWORD", "postgres")
	dbName := getEnv("DB_NAME", "postgres")
	dbSslMode := getEnv("DB_SSLMODE", "disable")

	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(dbUser, dbPassword),
		Host:     dbHost + ":" + dbPort,
		Path:     "/" + dbName,
		RawQuery: "sslmode=" + url.QueryEscape(dbSslMode),
	}
	return u.String()
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
