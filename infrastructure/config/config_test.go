package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("STORE_DRIVER", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, MailerLog, cfg.Mailer)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store_driver: postgres
database_url: postgres://file/graph
rate_limit_per_minute: 10
shutdown_timeout: 5s
cors_origins:
  - https://app.example.com
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("RATE_LIMIT_PER_MINUTE", "60")
	t.Setenv("DATABASE_URL", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, StorePostgres, cfg.StoreDriver)
	assert.Equal(t, "postgres://file/graph", cfg.DatabaseURL)
	assert.Equal(t, 60, cfg.RateLimitPerMinute, "environment wins over the file")
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.CORSOrigins)
}

func TestLoadConfig_BadFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"postgres without dsn", func(c *Config) { c.StoreDriver = StorePostgres }, "DATABASE_URL"},
		{"unknown store", func(c *Config) { c.StoreDriver = "redis" }, "STORE_DRIVER"},
		{"unknown mailer", func(c *Config) { c.Mailer = "smtp" }, "MAILER"},
		{"unknown metrics", func(c *Config) { c.MetricsBackend = "statsd" }, "METRICS_BACKEND"},
		{"production without secret", func(c *Config) {
			c.Environment = "production"
			c.StoreDriver = StoreDynamoDB
		}, "JWT_SECRET"},
		{"production on memory", func(c *Config) {
			c.Environment = "production"
			c.JWTSecret = "s"
		}, "memory store"},
		{"production behind gateway", func(c *Config) {
			c.Environment = "production"
			c.StoreDriver = StoreDynamoDB
			c.TrustGatewayHeaders = true
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("CORS_ORIGINS", " https://a.example.com, ,https://b.example.com ")
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, getEnvList("CORS_ORIGINS", nil))
}
