package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoadFrom_Defaults(t *testing.T) {
	p := writeConfig(t, "server:\n  host: \"127.0.0.1\"\n")
	cfg := LoadFrom(p)

	assert.Equal(t, DefaultPoolSize, cfg.Browser.PoolSize)
	assert.Equal(t, DefaultLoadTimeout, cfg.Browser.LoadTimeout)
	assert.Equal(t, DefaultSettleDelay, cfg.Browser.SettleDelay)
	assert.Equal(t, 900, cfg.Image.Width)
	assert.Equal(t, 900, cfg.Image.Height)
	assert.Equal(t, ":3000", cfg.Server.Port)
	assert.Equal(t, DefaultRequestTimeout, cfg.Server.RequestTimeout)
	assert.Equal(t, "goal-images/", cfg.Storage.KeyPrefix)
	assert.Equal(t, cfg.Browser.PoolSize, cfg.Jobs.Workers)
}

func TestLoadFrom_Valid(t *testing.T) {
	p := writeConfig(t, `server:
  port: ":9000"
browser:
  pool_size: 2
  load_timeout: 10s
  settle_delay: 250ms
  health_check: true
image:
  width: 1200
  height: 630
cache:
  redis_host: "localhost:6379"
  image_cache_enabled: true
  image_cache_ttl: 1h
storage:
  bucket: "goals"
  region: "fra1"
jobs:
  workers: 4
`)
	cfg := LoadFrom(p)
	assert.Equal(t, 2, cfg.Browser.PoolSize)
	assert.Equal(t, 10*time.Second, cfg.Browser.LoadTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Browser.SettleDelay)
	assert.True(t, cfg.Browser.HealthCheck)
	assert.Equal(t, 1200, cfg.Image.Width)
	assert.Equal(t, 630, cfg.Image.Height)
	assert.Equal(t, time.Hour, cfg.Cache.ImageCacheTTL)
	assert.Equal(t, "goals", cfg.Storage.Bucket)
	assert.Equal(t, 4, cfg.Jobs.Workers)
}

func TestLoadFrom_EnvOverrides(t *testing.T) {
	p := writeConfig(t, "browser:\n  pool_size: 2\n")
	t.Setenv("BROWSER_POOL_SIZE", "5")
	t.Setenv("IMAGE_WIDTH", "1200")
	t.Setenv("IMAGE_HEIGHT", "630")
	t.Setenv("CHROME_BIN", "/usr/bin/chromium")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/images")

	cfg := LoadFrom(p)
	assert.Equal(t, 5, cfg.Browser.PoolSize)
	assert.Equal(t, 1200, cfg.Image.Width)
	assert.Equal(t, 630, cfg.Image.Height)
	assert.Equal(t, "/usr/bin/chromium", cfg.Browser.ChromePath)
	assert.Equal(t, "redis:6379", cfg.Cache.RedisHost)
	assert.Equal(t, "postgres://u:p@db:5432/images", cfg.Postgres.Host)
}

func TestLoadFrom_PanicsOnInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yml  string
	}{
		{name: "negative pool size", yml: "browser:\n  pool_size: -1\n"},
		{name: "negative width", yml: "image:\n  width: -5\n"},
		{name: "negative settle delay", yml: "browser:\n  settle_delay: -1s\n"},
		{name: "negative request timeout", yml: "server:\n  request_timeout: -1s\n"},
		{name: "negative user limit", yml: "rate_limiter:\n  user_limit: -1\n"},
		{name: "malformed yaml", yml: "browser: [\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := writeConfig(t, tc.yml)
			defer func() {
				if recover() == nil {
					t.Fatalf("expected panic")
				}
			}()
			_ = LoadFrom(p)
		})
	}
}

func TestLoadFrom_PanicsOnBadEnvInt(t *testing.T) {
	p := writeConfig(t, "{}\n")
	t.Setenv("BROWSER_POOL_SIZE", "three")
	assert.Panics(t, func() { _ = LoadFrom(p) })
}

func TestLoad_UsesConfigPathEnv(t *testing.T) {
	p := writeConfig(t, "browser:\n  pool_size: 7\n")
	t.Setenv("CONFIG_PATH", p)
	cfg := Load()
	if cfg.Browser.PoolSize != 7 {
		t.Fatalf("expected CONFIG_PATH to be used")
	}
}
