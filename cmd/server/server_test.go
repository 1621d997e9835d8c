package main

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fractal "github.com/marben/fractal_explorer"
	"github.com/marben/fractal_explorer/internal/config"
	"github.com/marben/fractal_explorer/session"
)

func TestApplyFlags(t *testing.T) {
	cmd := newCommand()
	require.NoError(t, cmd.Flags().Parse([]string{"--listen", ":9999", "--variant", "tricorn", "--store", "redis", "--redis-addr", "r:6379"}))

	cfg := config.Default()
	require.NoError(t, applyFlags(cmd, &cfg))
	assert.Equal(t, ":9999", cfg.Server.Listen)
	assert.Equal(t, fractal.Tricorn, cfg.Variant)
	assert.Equal(t, config.DriverRedis, cfg.Store.Driver)
	assert.Equal(t, "r:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, "./static", cfg.Server.StaticDir, "unset flags keep the config value")
}

func TestApplyFlags_Invalid(t *testing.T) {
	cmd := newCommand()
	require.NoError(t, cmd.Flags().Parse([]string{"--variant", "julia"}))
	cfg := config.Default()
	assert.ErrorIs(t, applyFlags(cmd, &cfg), fractal.ErrUnknownVariant)

	cmd = newCommand()
	require.NoError(t, cmd.Flags().Parse([]string{"--store", "etcd"}))
	cfg = config.Default()
	assert.ErrorContains(t, applyFlags(cmd, &cfg), "etcd")
}

func TestOpenStore_Memory(t *testing.T) {
	store, closeStore, err := openStore(context.Background(), config.Default().Store)
	require.NoError(t, err)
	defer closeStore()

	_, err = store.Load(context.Background(), "nobody")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestOpenStore_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default().Store
	cfg.Driver = config.DriverRedis
	cfg.Redis.Addr = mr.Addr()
	cfg.Redis.Prefix = "t:"

	store, closeStore, err := openStore(context.Background(), cfg)
	require.NoError(t, err)
	defer closeStore()

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "x", session.State{Variant: fractal.Mandelbrot, Viewport: fractal.Mandelbrot.DefaultViewport()}))
	assert.True(t, mr.Exists("t:x"))
}

func TestOpenStore_RedisUnreachable(t *testing.T) {
	cfg := config.Default().Store
	cfg.Driver = config.DriverRedis
	cfg.Redis.Addr = "127.0.0.1:1"
	_, _, err := openStore(context.Background(), cfg)
	assert.Error(t, err)
}

func TestServe_StopsOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Listen = "127.0.0.1:0"
	cfg.Log.Level = "error"

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, serve(ctx, cfg))
}
