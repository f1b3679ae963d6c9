package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/activitylens/pkg/observability"
)

const layeringFile = `
server:
  addr: ":9090"
  read_timeout: 20s
database:
  driver: sqlite3
  max_open_conns: 4
  ensure_schema: true
observability:
  log_level: warn
  metrics_enabled: false
`

func TestLoad_EnvironmentLayering(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		check func(t *testing.T, cfg *Config)
	}{
		{
			name: "file values without environment",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, ":9090", cfg.Server.Addr)
				assert.Equal(t, 20*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout)
				assert.Equal(t, 4, cfg.Database.MaxOpenConns)
				assert.True(t, cfg.Database.EnsureSchema)
				assert.False(t, cfg.Observability.MetricsEnabled)
				assert.Equal(t, observability.WarnLevel, cfg.Observability.Level())
			},
		},
		{
			name: "strings replace file and default values",
			env: map[string]string{
				"ACTIVITYLENS_ADDR":           ":7070",
				"ACTIVITYLENS_ACTIVITY_TABLE": "audit_log",
				"ACTIVITYLENS_LOCALE":         "fr",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, ":7070", cfg.Server.Addr)
				assert.Equal(t, "audit_log", cfg.Database.ActivityTable)
				assert.Equal(t, "fr", cfg.Translations.Locale)
				assert.Equal(t, "en", cfg.Translations.FallbackLocale)
			},
		},
		{
			name: "booleans accept true, 1 and any case",
			env: map[string]string{
				"ACTIVITYLENS_METRICS_ENABLED":    "TRUE",
				"ACTIVITYLENS_TRANSLATIONS_WATCH": "1",
				"ACTIVITYLENS_DB_ENSURE_SCHEMA":   "false",
				"ACTIVITYLENS_OTEL_INSECURE":      "no",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.Observability.MetricsEnabled)
				assert.True(t, cfg.Translations.Watch)
				assert.False(t, cfg.Database.EnsureSchema)
				assert.False(t, cfg.Observability.OTelInsecure)
			},
		},
		{
			name: "integers and durations are parsed",
			env: map[string]string{
				"ACTIVITYLENS_DB_MAX_OPEN_CONNS": "25",
				"ACTIVITYLENS_READ_TIMEOUT":      "45s",
				"ACTIVITYLENS_SHUTDOWN_TIMEOUT":  "2m",
				"ACTIVITYLENS_REDIS_TTL":         "90s",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 25, cfg.Database.MaxOpenConns)
				assert.Equal(t, 45*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 2*time.Minute, cfg.Server.ShutdownTimeout)
				assert.Equal(t, 90*time.Second, cfg.Redis.TTL)
			},
		},
		{
			name: "unparseable numbers keep the file value",
			env: map[string]string{
				"ACTIVITYLENS_DB_MAX_OPEN_CONNS": "many",
				"ACTIVITYLENS_READ_TIMEOUT":      "soon",
				"ACTIVITYLENS_REDIS_TTL":         "-",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 4, cfg.Database.MaxOpenConns)
				assert.Equal(t, 20*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 5*time.Minute, cfg.Redis.TTL)
			},
		},
		{
			name: "log level names are case insensitive",
			env:  map[string]string{"ACTIVITYLENS_LOG_LEVEL": "ERROR"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, observability.ErrorLevel, cfg.Observability.Level())
			},
		},
		{
			name: "unknown log level is info",
			env:  map[string]string{"ACTIVITYLENS_LOG_LEVEL": "verbose"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, observability.InfoLevel, cfg.Observability.Level())
			},
		},
	}

	path := writeConfigFile(t, layeringFile)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.env {
				t.Setenv(key, value)
			}

			cfg, err := Load(path)
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "activitylens.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("missing file uses defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)

		assert.Equal(t, ":8080", cfg.Server.Addr)
		assert.Equal(t, "postgres", cfg.Database.Driver)
		assert.Equal(t, "activity_log", cfg.Database.ActivityTable)
		assert.Equal(t, DefaultHiddenAttributes, cfg.Resolution.HiddenAttributes)
		assert.Equal(t, observability.InfoLevel, cfg.Observability.Level())
	})

	t.Run("file values are loaded", func(t *testing.T) {
		path := writeConfigFile(t, `
server:
  addr: ":9090"
database:
  driver: sqlite3
  dsn: "file::memory:"
redis:
  url: redis://cache:6379
  ttl: 30s
resolution:
  resolvers:
    user_id: App\Models\User
  label_attribute:
    App\Models\User: name
  hidden_attributes: [password]
  subject_aliases:
    App\Models\Invoice: inv
entities:
  App\Models\User:
    table: users
    label_field: name
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, ":9090", cfg.Server.Addr)
		assert.Equal(t, "sqlite3", cfg.Database.Driver)
		assert.Equal(t, 30*time.Second, cfg.Redis.TTL)

		entityType, ok := cfg.Resolution.ResolverFor("user_id")
		assert.True(t, ok)
		assert.Equal(t, `App\Models\User`, entityType)
		assert.Equal(t, []string{"password"}, cfg.Resolution.HiddenAttributes)

		users := cfg.Entities[`App\Models\User`]
		assert.Equal(t, "users", users.Table)
		assert.Equal(t, "id", users.KeyColumn)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := writeConfigFile(t, "server:\n  addr: \":9090\"\n")
		t.Setenv("ACTIVITYLENS_ADDR", ":7070")
		t.Setenv("ACTIVITYLENS_LOG_LEVEL", "debug")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, ":7070", cfg.Server.Addr)
		assert.Equal(t, observability.DebugLevel, cfg.Observability.Level())
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeConfigFile(t, "server: [unterminated")
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("invalid driver fails validation", func(t *testing.T) {
		t.Setenv("ACTIVITYLENS_DB_DRIVER", "mysql")
		_, err := Load("")
		assert.ErrorContains(t, err, "invalid database driver")
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "empty activity table",
			mutate:  func(c *Config) { c.Database.ActivityTable = "" },
			wantErr: true,
		},
		{
			name: "entity without table",
			mutate: func(c *Config) {
				c.Entities["App\\Models\\User"] = EntityTable{KeyColumn: "id"}
			},
			wantErr: true,
		},
		{
			name: "otel without endpoint",
			mutate: func(c *Config) {
				c.Observability.OTelEnabled = true
				c.Observability.OTelEndpoint = ""
			},
			wantErr: true,
		},
		{
			name: "duplicate alias",
			mutate: func(c *Config) {
				c.Resolution.SubjectAliases = map[string]string{"A": "x", "B": "x"}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
