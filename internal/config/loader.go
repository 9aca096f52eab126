package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "lifecycle.yaml"

// DefaultEnvFile is the dotenv file merged into the process environment.
const DefaultEnvFile = ".env"

// Load returns a Config using the hierarchy: defaults < YAML < .env < ENV.
// Both files are optional; missing files are not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < .env < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	if err := loadDotenv(DefaultEnvFile); err != nil {
		return nil, fmt.Errorf("config dotenv: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is chosen by the operator
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadDotenv merges a dotenv file into the process environment without
// overriding variables that are already set.
func loadDotenv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "LIFECYCLE_PORT")
	setString(&cfg.Server.CORSOrigin, "LIFECYCLE_CORS_ORIGIN")
	setString(&cfg.Server.TriggerTokenHash, "LIFECYCLE_TRIGGER_TOKEN_HASH")

	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "LIFECYCLE_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "LIFECYCLE_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "LIFECYCLE_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "LIFECYCLE_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "LIFECYCLE_PG_HEALTH_CHECK")

	setString(&cfg.NATS.URL, "NATS_URL")

	setString(&cfg.Logging.Level, "LIFECYCLE_LOG_LEVEL")
	setString(&cfg.Logging.Service, "LIFECYCLE_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "LIFECYCLE_LOG_ASYNC")

	// Engine
	setString(&cfg.Engine.RenewalURL, "LIFECYCLE_RENEWAL_URL")
	setBool(&cfg.Engine.DedupeNotifications, "LIFECYCLE_DEDUPE_NOTIFICATIONS")
	setString(&cfg.Engine.Transport, "LIFECYCLE_TRANSPORT")
	setDuration(&cfg.Engine.SendTimeout, "LIFECYCLE_SEND_TIMEOUT")
	setInt(&cfg.Engine.BreakerMaxFailures, "LIFECYCLE_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Engine.BreakerTimeout, "LIFECYCLE_BREAKER_TIMEOUT")
	setDuration(&cfg.Engine.RunTimeout, "LIFECYCLE_RUN_TIMEOUT")

	// Settings store reader
	setDuration(&cfg.Settings.CacheTTL, "LIFECYCLE_SETTINGS_CACHE_TTL")
	setInt64(&cfg.Settings.CacheMaxCost, "LIFECYCLE_SETTINGS_CACHE_MAX_COST")

	// Scheduler
	setBool(&cfg.Scheduler.Enabled, "LIFECYCLE_SCHEDULER_ENABLED")
	setString(&cfg.Scheduler.DailyAt, "LIFECYCLE_SCHEDULER_DAILY_AT")
	setString(&cfg.Scheduler.Timezone, "LIFECYCLE_SCHEDULER_TZ")

	// OpenTelemetry
	setBool(&cfg.OTEL.Enabled, "LIFECYCLE_OTEL_ENABLED")
	setString(&cfg.OTEL.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.OTEL.Insecure, "LIFECYCLE_OTEL_INSECURE")
	setString(&cfg.OTEL.ServiceName, "OTEL_SERVICE_NAME")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Engine.SendTimeout <= 0 {
		return errors.New("engine.send_timeout must be > 0")
	}
	if cfg.Engine.BreakerMaxFailures < 1 {
		return errors.New("engine.breaker_max_failures must be >= 1")
	}
	switch cfg.Engine.Transport {
	case "smtp", "log":
	default:
		return fmt.Errorf("engine.transport %q must be smtp or log", cfg.Engine.Transport)
	}
	if cfg.Settings.CacheTTL < 0 {
		return errors.New("settings.cache_ttl must be >= 0")
	}
	if cfg.Scheduler.Enabled {
		if _, _, err := ParseDailyAt(cfg.Scheduler.DailyAt); err != nil {
			return fmt.Errorf("scheduler.daily_at: %w", err)
		}
		if _, err := time.LoadLocation(cfg.Scheduler.Timezone); err != nil {
			return fmt.Errorf("scheduler.timezone: %w", err)
		}
	}
	return nil
}

// ParseDailyAt parses an "HH:MM" wall-clock time.
func ParseDailyAt(s string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	hour, err = strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
