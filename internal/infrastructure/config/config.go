// Package config loads service settings from config.toml, .env and
// LEDGER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "LEDGER"

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
}

type AppConfig struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Port    string `mapstructure:"port" validate:"required,numeric"`
	Version string `mapstructure:"version"`
}

// DatabaseConfig selects postgres for deployments and sqlite for local runs
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver" validate:"oneof=postgres sqlite"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port" validate:"gt=0,lt=65536"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	SQLitePath      string `mapstructure:"sqlite_path"`
	MaxOpenConns    int    `mapstructure:"max_open_conns" validate:"gt=0"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // minutes
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // minutes
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

type CacheConfig struct {
	Backend               string        `mapstructure:"backend" validate:"oneof=memory redis none"`
	SnapshotTTL           time.Duration `mapstructure:"snapshot_ttl" validate:"gte=0"`
	KeyPrefix             string        `mapstructure:"key_prefix"`
	PubSubChannel         string        `mapstructure:"pubsub_channel"`
	AllowInMemoryFallback bool          `mapstructure:"allow_in_memory_fallback"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"` // stdout, stderr or a file path
}

type HTTPConfig struct {
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes   int           `mapstructure:"max_header_bytes"`
	CORSAllowOrigins []string      `mapstructure:"cors_allow_origins"` // empty allows no cross-origin calls
	CORSAllowMethods []string      `mapstructure:"cors_allow_methods"`
	CORSAllowHeaders []string      `mapstructure:"cors_allow_headers"`
	TrustedProxies   []string      `mapstructure:"trusted_proxies"`
}

// TelemetryConfig covers OTLP export and pyroscope profiling
type TelemetryConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	CollectorEndpoint string  `mapstructure:"collector_endpoint"` // host:port of the OTLP gRPC receiver
	SamplingRatio     float64 `mapstructure:"sampling_ratio" validate:"gte=0,lte=1"`
	ServiceName       string  `mapstructure:"service_name"`
	Insecure          bool    `mapstructure:"insecure"`

	MetricsEnabled  bool          `mapstructure:"metrics_enabled"`
	MetricsInterval time.Duration `mapstructure:"metrics_interval"`
	LogsEnabled     bool          `mapstructure:"logs_enabled"`

	DBTraceEnabled    bool          `mapstructure:"db_trace_enabled"`
	DBLogFullSQL      bool          `mapstructure:"db_log_full_sql"`
	DBSlowQueryThresh time.Duration `mapstructure:"db_slow_query_threshold"`

	ProfilingEnabled      bool   `mapstructure:"profiling_enabled"`
	ProfilingServer       string `mapstructure:"profiling_server"`
	ProfilingSpanProfiles bool   `mapstructure:"profiling_span_profiles"`
}

type LedgerConfig struct {
	Timezone              string `mapstructure:"timezone" validate:"timezone"` // IANA zone of the business day
	GuestPlaceholder      string `mapstructure:"guest_placeholder" validate:"required"`
	DefaultStatusFilter   string `mapstructure:"default_status_filter"`
	ChangeListenerEnabled bool   `mapstructure:"change_listener_enabled"`
	ChangeChannel         string `mapstructure:"change_channel"`
	MaxLoggedWarnings     int    `mapstructure:"max_logged_warnings" validate:"gte=0"`
	StatementFontDir      string `mapstructure:"statement_font_dir" validate:"required_with=StatementFontFile"`
	StatementFontFile     string `mapstructure:"statement_font_file" validate:"required_with=StatementFontDir"`
}

// defaults also registers every key so LEDGER_* variables reach Unmarshal
var defaults = map[string]any{
	"app.name":    "ledger-service",
	"app.env":     "development",
	"app.port":    "8080",
	"app.version": "dev",

	"database.driver":             "postgres",
	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "ledger",
	"database.sslmode":            "disable",
	"database.sqlite_path":        "ledger.db",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  60,
	"database.conn_max_idle_time": 30,

	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"cache.backend":                  "memory",
	"cache.snapshot_ttl":             2 * time.Minute,
	"cache.key_prefix":               "ledger:snapshot:",
	"cache.pubsub_channel":           "ledger:snapshot:invalidate",
	"cache.allow_in_memory_fallback": false,

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"http.read_timeout":       15 * time.Second,
	"http.write_timeout":      30 * time.Second,
	"http.idle_timeout":       60 * time.Second,
	"http.max_header_bytes":   1 << 20,
	"http.cors_allow_origins": []string{},
	"http.cors_allow_methods": []string{"GET", "POST", "OPTIONS"},
	"http.cors_allow_headers": []string{"Content-Type", "Authorization", "X-Request-ID", "X-Tenant-ID"},
	"http.trusted_proxies":    []string{},

	"telemetry.enabled":                 false,
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.sampling_ratio":          1.0,
	"telemetry.service_name":            "ledger-service",
	"telemetry.insecure":                false,
	"telemetry.metrics_enabled":         false,
	"telemetry.metrics_interval":        time.Minute,
	"telemetry.logs_enabled":            false,
	"telemetry.db_trace_enabled":        false,
	"telemetry.db_log_full_sql":         false,
	"telemetry.db_slow_query_threshold": 200 * time.Millisecond,
	"telemetry.profiling_enabled":       false,
	"telemetry.profiling_server":        "http://localhost:4040",
	"telemetry.profiling_span_profiles": false,

	"ledger.timezone":                "Asia/Ho_Chi_Minh",
	"ledger.guest_placeholder":       "Khách vãng lai",
	"ledger.default_status_filter":   "ALL",
	"ledger.change_listener_enabled": false,
	"ledger.change_channel":          "ledger_records_changed",
	"ledger.max_logged_warnings":     20,
	"ledger.statement_font_dir":      "",
	"ledger.statement_font_file":     "",
}

// Load reads configuration. Later sources win:
// built-in defaults, config.toml (./ or /app), .env, LEDGER_* variables.
func Load() (*Config, error) {
	// no .env outside local development
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var structValidator = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their config key
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return val
}

func (c *Config) validate() error {
	if err := structValidator.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("validate config: %w", err)
		}
		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			msgs = append(msgs, describe(fe))
		}
		return errors.New(strings.Join(msgs, "; "))
	}

	// rules that span sections
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Ledger.ChangeListenerEnabled && c.Database.Driver != "postgres" {
		return errors.New("ledger.change_listener_enabled requires database.driver=postgres")
	}
	if c.App.Env == "production" {
		return c.validateProduction()
	}
	return nil
}

func (c *Config) validateProduction() error {
	if c.Database.Driver == "postgres" {
		if c.Database.Password == "" {
			return errors.New("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return errors.New("database.sslmode cannot be 'disable' in production")
		}
	}
	if slices.Contains(c.HTTP.CORSAllowOrigins, "*") {
		return errors.New("http.cors_allow_origins cannot be '*' in production")
	}
	if c.Telemetry.DBLogFullSQL {
		return errors.New("telemetry.db_log_full_sql must be false in production")
	}
	return nil
}

// describe renders one failed rule as "section.key must ..."
func describe(fe validator.FieldError) string {
	key := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", key, fe.Param(), fe.Value())
	case "timezone":
		return fmt.Sprintf("%s %q is not a valid IANA zone", key, fe.Value())
	case "required_with":
		return fmt.Sprintf("%s is required when %s is set", key, fe.Param())
	case "gt", "gte", "lt", "lte":
		return fmt.Sprintf("%s must be %s %s, got %v", key, comparisons[fe.Tag()], fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s", key, fe.Tag())
	}
}

var comparisons = map[string]string{"gt": ">", "gte": ">=", "lt": "<", "lte": "<="}

// DSN returns a postgres URL with user and password escaped
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + strconv.Itoa(d.Port),
		Path:     d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

func (r *RedisConfig) Addr() string {
	return r.Host + ":" + strconv.Itoa(r.Port)
}
