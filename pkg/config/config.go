package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/activitylens/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig           `yaml:"server"`
	Database      DatabaseConfig         `yaml:"database"`
	Redis         RedisConfig            `yaml:"redis"`
	Translations  TranslationConfig      `yaml:"translations"`
	Resolution    Resolution             `yaml:"resolution"`
	Entities      map[string]EntityTable `yaml:"entities"`
	Observability ObservabilityConfig    `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig selects the SQL backend that holds the activity log and entity tables.
type DatabaseConfig struct {
	Driver        string `yaml:"driver"`
	DSN           string `yaml:"dsn"`
	ActivityTable string `yaml:"activity_table"`
	MaxOpenConns  int    `yaml:"max_open_conns"`
	EnsureSchema  bool   `yaml:"ensure_schema"`
}

// RedisConfig enables the read-through entity cache. An empty URL disables it.
type RedisConfig struct {
	URL string        `yaml:"url"`
	TTL time.Duration `yaml:"ttl"`
}

// TranslationConfig locates the translation catalogs.
type TranslationConfig struct {
	Dir            string        `yaml:"dir"`
	Locale         string        `yaml:"locale"`
	FallbackLocale string        `yaml:"fallback_locale"`
	Watch          bool          `yaml:"watch"`
	CacheSize      int           `yaml:"cache_size"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
}

// EntityTable describes where entities of one type tag live.
type EntityTable struct {
	Table      string `yaml:"table"`
	KeyColumn  string `yaml:"key_column"`
	LabelField string `yaml:"label_field"`
	FailHard   bool   `yaml:"fail_hard"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       string `yaml:"log_level"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`

	OTelEnabled        bool   `yaml:"otel_enabled"`
	OTelEndpoint       string `yaml:"otel_endpoint"`
	OTelServiceName    string `yaml:"otel_service_name"`
	OTelServiceVersion string `yaml:"otel_service_version"`
	OTelInsecure       bool   `yaml:"otel_insecure"`
}

// Level returns the parsed log level.
func (o ObservabilityConfig) Level() observability.LogLevel {
	return observability.ParseLogLevel(o.LogLevel)
}

// Default returns the configuration used when no file or environment is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:        "postgres",
			ActivityTable: "activity_log",
			MaxOpenConns:  10,
		},
		Redis: RedisConfig{
			TTL: 5 * time.Minute,
		},
		Translations: TranslationConfig{
			Locale:         "en",
			FallbackLocale: "en",
			CacheSize:      1024,
			CacheTTL:       10 * time.Minute,
		},
		Resolution: DefaultResolution(),
		Entities:   map[string]EntityTable{},
		Observability: ObservabilityConfig{
			LogLevel:           "info",
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "activitylens",
			OTelServiceVersion: "0.1.0",
			OTelInsecure:       true,
		},
	}
}

// Load reads path (if non-empty and present), applies environment overrides and validates
// the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	cfg.applyEntityDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applyEnv overrides scalar settings from ACTIVITYLENS_* variables
func applyEnv(cfg *Config) {
	cfg.Server.Addr = getEnv("ACTIVITYLENS_ADDR", cfg.Server.Addr)
	cfg.Server.ReadTimeout = getEnvDuration("ACTIVITYLENS_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvDuration("ACTIVITYLENS_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.ShutdownTimeout = getEnvDuration("ACTIVITYLENS_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)

	cfg.Database.Driver = getEnv("ACTIVITYLENS_DB_DRIVER", cfg.Database.Driver)
	cfg.Database.DSN = getEnv("ACTIVITYLENS_DB_DSN", cfg.Database.DSN)
	cfg.Database.ActivityTable = getEnv("ACTIVITYLENS_ACTIVITY_TABLE", cfg.Database.ActivityTable)
	cfg.Database.MaxOpenConns = getEnvInt("ACTIVITYLENS_DB_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)
	cfg.Database.EnsureSchema = getEnvBool("ACTIVITYLENS_DB_ENSURE_SCHEMA", cfg.Database.EnsureSchema)

	cfg.Redis.URL = getEnv("ACTIVITYLENS_REDIS_URL", cfg.Redis.URL)
	cfg.Redis.TTL = getEnvDuration("ACTIVITYLENS_REDIS_TTL", cfg.Redis.TTL)

	cfg.Translations.Dir = getEnv("ACTIVITYLENS_TRANSLATIONS_DIR", cfg.Translations.Dir)
	cfg.Translations.Locale = getEnv("ACTIVITYLENS_LOCALE", cfg.Translations.Locale)
	cfg.Translations.FallbackLocale = getEnv("ACTIVITYLENS_FALLBACK_LOCALE", cfg.Translations.FallbackLocale)
	cfg.Translations.Watch = getEnvBool("ACTIVITYLENS_TRANSLATIONS_WATCH", cfg.Translations.Watch)

	cfg.Observability.LogLevel = getEnv("ACTIVITYLENS_LOG_LEVEL", cfg.Observability.LogLevel)
	cfg.Observability.MetricsEnabled = getEnvBool("ACTIVITYLENS_METRICS_ENABLED", cfg.Observability.MetricsEnabled)
	cfg.Observability.OTelEnabled = getEnvBool("ACTIVITYLENS_OTEL_ENABLED", cfg.Observability.OTelEnabled)
	cfg.Observability.OTelEndpoint = getEnv("ACTIVITYLENS_OTEL_ENDPOINT", cfg.Observability.OTelEndpoint)
	cfg.Observability.OTelServiceName = getEnv("ACTIVITYLENS_OTEL_SERVICE_NAME", cfg.Observability.OTelServiceName)
	cfg.Observability.OTelInsecure = getEnvBool("ACTIVITYLENS_OTEL_INSECURE", cfg.Observability.OTelInsecure)
}

func (c *Config) applyEntityDefaults() {
	for entityType, table := range c.Entities {
		if table.KeyColumn == "" {
			table.KeyColumn = "id"
		}
		c.Entities[entityType] = table
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("invalid database driver: %s (must be postgres or sqlite3)", c.Database.Driver)
	}

	if c.Database.ActivityTable == "" {
		return fmt.Errorf("activity table name is required")
	}

	if err := c.Resolution.Validate(); err != nil {
		return fmt.Errorf("invalid resolution config: %w", err)
	}

	for entityType, table := range c.Entities {
		if table.Table == "" {
			return fmt.Errorf("entity %q has no table", entityType)
		}
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
