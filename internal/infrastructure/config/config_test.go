package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ledgerEnvKeys = []string{
	"LEDGER_APP_NAME",
	"LEDGER_APP_ENV",
	"LEDGER_APP_PORT",
	"LEDGER_DATABASE_DRIVER",
	"LEDGER_DATABASE_HOST",
	"LEDGER_DATABASE_PORT",
	"LEDGER_DATABASE_PASSWORD",
	"LEDGER_DATABASE_SSLMODE",
	"LEDGER_DATABASE_MAX_OPEN_CONNS",
	"LEDGER_DATABASE_MAX_IDLE_CONNS",
	"LEDGER_CACHE_BACKEND",
	"LEDGER_CACHE_SNAPSHOT_TTL",
	"LEDGER_LEDGER_TIMEZONE",
	"LEDGER_LEDGER_GUEST_PLACEHOLDER",
	"LEDGER_LEDGER_CHANGE_LISTENER_ENABLED",
	"LEDGER_LEDGER_STATEMENT_FONT_DIR",
	"LEDGER_LEDGER_STATEMENT_FONT_FILE",
	"LEDGER_TELEMETRY_SAMPLING_RATIO",
	"LEDGER_TELEMETRY_DB_LOG_FULL_SQL",
	"LEDGER_HTTP_CORS_ALLOW_ORIGINS",
	"LEDGER_APP_VERSION",
}

// clearLedgerEnv unsets every key for the duration of the test
func clearLedgerEnv(t *testing.T) {
	t.Helper()
	for _, k := range ledgerEnvKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearLedgerEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "ledger-service", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "postgres", cfg.Database.Driver)
		assert.Equal(t, "ledger", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, "memory", cfg.Cache.Backend)
		assert.Equal(t, 2*time.Minute, cfg.Cache.SnapshotTTL)
		assert.Equal(t, "Asia/Ho_Chi_Minh", cfg.Ledger.Timezone)
		assert.Equal(t, "Khách vãng lai", cfg.Ledger.GuestPlaceholder)
		assert.Equal(t, "ALL", cfg.Ledger.DefaultStatusFilter)
		assert.Equal(t, "ledger_records_changed", cfg.Ledger.ChangeChannel)
		assert.Equal(t, 20, cfg.Ledger.MaxLoggedWarnings)
		assert.False(t, cfg.Ledger.ChangeListenerEnabled)
	})

	t.Run("loads values from environment variables with LEDGER prefix", func(t *testing.T) {
		clearLedgerEnv(t)
		t.Setenv("LEDGER_APP_NAME", "ledger-test")
		t.Setenv("LEDGER_APP_PORT", "9000")
		t.Setenv("LEDGER_DATABASE_HOST", "testdb.local")
		t.Setenv("LEDGER_DATABASE_PORT", "5433")
		t.Setenv("LEDGER_CACHE_BACKEND", "redis")
		t.Setenv("LEDGER_CACHE_SNAPSHOT_TTL", "30s")
		t.Setenv("LEDGER_LEDGER_TIMEZONE", "UTC")
		t.Setenv("LEDGER_LEDGER_GUEST_PLACEHOLDER", "Walk-in")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "ledger-test", cfg.App.Name)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "redis", cfg.Cache.Backend)
		assert.Equal(t, 30*time.Second, cfg.Cache.SnapshotTTL)
		assert.Equal(t, "UTC", cfg.Ledger.Timezone)
		assert.Equal(t, "Walk-in", cfg.Ledger.GuestPlaceholder)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearLedgerEnv(t)
		t.Setenv("LEDGER_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("LEDGER_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("rejects unknown database driver", func(t *testing.T) {
		clearLedgerEnv(t)
		t.Setenv("LEDGER_DATABASE_DRIVER", "mysql")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.driver")
	})

	t.Run("rejects unknown cache backend", func(t *testing.T) {
		clearLedgerEnv(t)
		t.Setenv("LEDGER_CACHE_BACKEND", "memcached")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cache.backend")
	})

	t.Run("rejects invalid timezone", func(t *testing.T) {
		clearLedgerEnv(t)
		t.Setenv("LEDGER_LEDGER_TIMEZONE", "Mars/Olympus_Mons")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ledger.timezone")
	})

	t.Run("change listener requires postgres", func(t *testing.T) {
		clearLedgerEnv(t)
		t.Setenv("LEDGER_DATABASE_DRIVER", "sqlite")
		t.Setenv("LEDGER_LEDGER_CHANGE_LISTENER_ENABLED", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "change_listener_enabled")
	})

	t.Run("statement font needs both dir and file", func(t *testing.T) {
		clearLedgerEnv(t)
		t.Setenv("LEDGER_LEDGER_STATEMENT_FONT_DIR", "/usr/share/fonts/dejavu")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "statement_font")
	})

	t.Run("splits list values from the environment", func(t *testing.T) {
		clearLedgerEnv(t)
		t.Setenv("LEDGER_HTTP_CORS_ALLOW_ORIGINS", "https://a.example.com,https://b.example.com")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.HTTP.CORSAllowOrigins)
		assert.Equal(t, []string{"GET", "POST", "OPTIONS"}, cfg.HTTP.CORSAllowMethods)
	})

	t.Run("reports every failed field", func(t *testing.T) {
		clearLedgerEnv(t)
		t.Setenv("LEDGER_CACHE_BACKEND", "memcached")
		t.Setenv("LEDGER_DATABASE_MAX_OPEN_CONNS", "-1")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cache.backend must be one of [memory redis none]")
		assert.Contains(t, err.Error(), "database.max_open_conns must be >")
	})

	t.Run("rejects sampling ratio above one", func(t *testing.T) {
		clearLedgerEnv(t)
		t.Setenv("LEDGER_TELEMETRY_SAMPLING_RATIO", "1.5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sampling_ratio")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func(t *testing.T) {
		clearLedgerEnv(t)
		t.Setenv("LEDGER_APP_ENV", "production")
		t.Setenv("LEDGER_DATABASE_PASSWORD", "secure-password")
		t.Setenv("LEDGER_DATABASE_SSLMODE", "require")
	}

	t.Run("rejects wildcard cors origin in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("LEDGER_HTTP_CORS_ALLOW_ORIGINS", "*")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cors_allow_origins")
	})

	t.Run("passes validation with valid production config", func(t *testing.T) {
		setValidProductionBase(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})

	t.Run("requires database.password in production", func(t *testing.T) {
		setValidProductionBase(t)
		os.Unsetenv("LEDGER_DATABASE_PASSWORD")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("LEDGER_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("rejects full SQL logging in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("LEDGER_TELEMETRY_DB_LOG_FULL_SQL", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db_log_full_sql")
	})

	t.Run("sqlite needs no password in production", func(t *testing.T) {
		clearLedgerEnv(t)
		t.Setenv("LEDGER_APP_ENV", "production")
		t.Setenv("LEDGER_DATABASE_DRIVER", "sqlite")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "sqlite", cfg.Database.Driver)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "/testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := RedisConfig{Host: "cache.local", Port: 6380}
	assert.Equal(t, "cache.local:6380", cfg.Addr())
}
