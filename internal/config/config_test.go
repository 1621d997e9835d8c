package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fractal "github.com/marben/fractal_explorer"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "explorer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_EmptyPathIsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
size: 512
variant: burning-ship
render:
  workers: 3
server:
  listen: ":9000"
store:
  driver: redis
  redis:
    addr: "redis:6379"
    ttl: 30m
  idle_timeout: 5m
log:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 512, cfg.Size)
	assert.Equal(t, fractal.BurningShip, cfg.Variant)
	assert.Equal(t, 3, cfg.Render.Workers)
	assert.Equal(t, 64, cfg.Render.TileSize, "unset fields keep their default")
	assert.Equal(t, 0.5, cfg.ZoomScale)
	assert.Equal(t, ":9000", cfg.Server.Listen)
	assert.Equal(t, DriverRedis, cfg.Store.Driver)
	assert.Equal(t, "redis:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, 30*time.Minute, cfg.Store.Redis.TTL)
	assert.Equal(t, "fractal:session:", cfg.Store.Redis.Prefix)
	assert.Equal(t, 5*time.Minute, cfg.Store.IdleTimeout)
	assert.Equal(t, "json", cfg.Log.Format)

	r := cfg.Renderer()
	assert.Equal(t, 3, r.Workers)
	assert.Equal(t, 64, r.TileSize)
}

func TestLoad_UnknownVariant(t *testing.T) {
	_, err := Load(writeConfig(t, "variant: julia\n"))
	assert.ErrorIs(t, err, fractal.ErrUnknownVariant)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Size = 0
	cfg.ZoomScale = 1.5
	cfg.Store.Driver = "etcd"
	cfg.Log.Format = "xml"
	cfg.Store.IdleTimeout = -time.Second

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"size", "zoom_scale", "etcd", "log.format", "store.idle_timeout"} {
		assert.ErrorContains(t, err, want)
	}
}

func TestValidate_RedisNeedsAddr(t *testing.T) {
	cfg := Default()
	cfg.Store.Driver = DriverRedis
	cfg.Store.Redis.Addr = ""
	assert.ErrorContains(t, cfg.Validate(), "store.redis.addr")
}
