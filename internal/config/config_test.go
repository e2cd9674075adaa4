package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("JWT_SECRET", "shared-secret")

	t.Run("loads required values and defaults", func(t *testing.T) {
		t.Setenv("API_BASE_URL", "https://api.example.com/")
		t.Setenv("DATABASE_URL", "postgres://localhost/test")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, "https://api.example.com", cfg.APIBaseURL)
		require.Equal(t, "8080", cfg.Port)
		require.Equal(t, DriverPostgres, cfg.DBDriver)
		require.Equal(t, 10*time.Second, cfg.UpstreamTimeout)
		require.Equal(t, 8, cfg.FanoutLimit)
		require.True(t, cfg.PrefetchEnabled)
		require.Equal(t, "shared-secret", cfg.JWTSecret)
	})

	t.Run("fails without JWT_SECRET", func(t *testing.T) {
		t.Setenv("API_BASE_URL", "https://api.example.com")
		t.Setenv("JWT_SECRET", "")

		_, err := Load()
		require.Error(t, err)
		require.Contains(t, err.Error(), "JWT_SECRET is required")
	})

	t.Run("fails without API_BASE_URL", func(t *testing.T) {
		t.Setenv("API_BASE_URL", "")

		_, err := Load()
		require.Error(t, err)
		require.Contains(t, err.Error(), "API_BASE_URL is required")
	})

	t.Run("rejects relative base url", func(t *testing.T) {
		t.Setenv("API_BASE_URL", "/api")

		_, err := Load()
		require.Error(t, err)
		require.Contains(t, err.Error(), "absolute URL")
	})

	t.Run("rejects unknown driver", func(t *testing.T) {
		t.Setenv("API_BASE_URL", "https://api.example.com")
		t.Setenv("DB_DRIVER", "mysql")

		_, err := Load()
		require.Error(t, err)
		require.Contains(t, err.Error(), "DB_DRIVER")
	})

	t.Run("builds postgres dsn from parts", func(t *testing.T) {
		t.Setenv("API_BASE_URL", "https://api.example.com")
		t.Setenv("DATABASE_URL", "")
		t.Setenv("DB_HOST", "db")
		t.Setenv("DB_PORT", "6543")
		t.Setenv("DB_USER", "dealer")
		t.Setenv("DB_PASSWORD", "secret")
		t.Setenv("DB_NAME", "cars")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, "postgres://dealer:secret@db:6543/cars?sslmode=disable", cfg.DatabaseURL)
	})

	t.Run("sqlite gets a file default", func(t *testing.T) {
		t.Setenv("API_BASE_URL", "https://api.example.com")
		t.Setenv("DATABASE_URL", "")
		t.Setenv("DB_DRIVER", "SQLite")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, DriverSQLite, cfg.DBDriver)
		require.Contains(t, cfg.DatabaseURL, "dealership.db")
	})

	t.Run("parses tuning values", func(t *testing.T) {
		t.Setenv("API_BASE_URL", "https://api.example.com")
		t.Setenv("UPSTREAM_TIMEOUT", "3s")
		t.Setenv("UPSTREAM_RPS", "2.5")
		t.Setenv("UPSTREAM_BURST", "4")
		t.Setenv("FANOUT_LIMIT", "3")
		t.Setenv("PREFETCH_ENABLED", "false")
		t.Setenv("TIMEZONE", "Africa/Algiers")
		t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, 3*time.Second, cfg.UpstreamTimeout)
		require.InDelta(t, 2.5, cfg.UpstreamRPS, 0.0001)
		require.Equal(t, 4, cfg.UpstreamBurst)
		require.Equal(t, 3, cfg.FanoutLimit)
		require.False(t, cfg.PrefetchEnabled)
		require.Equal(t, "Africa/Algiers", cfg.Location.String())
		require.Equal(t, "Africa/Algiers", cfg.Now().Location().String())
		require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	})

	t.Run("ignores invalid tuning values", func(t *testing.T) {
		t.Setenv("API_BASE_URL", "https://api.example.com")
		t.Setenv("UPSTREAM_TIMEOUT", "soon")
		t.Setenv("FANOUT_LIMIT", "-1")
		t.Setenv("TIMEZONE", "Mars/Olympus")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, 10*time.Second, cfg.UpstreamTimeout)
		require.Equal(t, 8, cfg.FanoutLimit)
		require.Equal(t, time.Local, cfg.Location)
	})
}
