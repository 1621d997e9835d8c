package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	fractal "github.com/marben/fractal_explorer"
	"github.com/marben/fractal_explorer/internal/logging"
	"github.com/marben/fractal_explorer/render"
)

// Config is the configuration shared by the explorer binaries.
type Config struct {
	Size      int             `yaml:"size"`
	ZoomScale float64         `yaml:"zoom_scale"`
	Variant   fractal.Variant `yaml:"variant"`

	Render RenderConfig `yaml:"render"`
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Log    LogConfig    `yaml:"log"`
}

type RenderConfig struct {
	Workers  int `yaml:"workers"`
	TileSize int `yaml:"tile_size"`
}

type ServerConfig struct {
	Listen    string `yaml:"listen"`
	StaticDir string `yaml:"static_dir"`
	MaxSize   int    `yaml:"max_size"`
}

type StoreConfig struct {
	Driver string      `yaml:"driver"`
	Redis  RedisConfig `yaml:"redis"`

	// IdleTimeout drops unused sessions from memory; 0 keeps them.
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Size:      800,
		ZoomScale: 0.5,
		Variant:   fractal.Mandelbrot,
		Render: RenderConfig{
			TileSize: render.DefaultTileSize,
		},
		Server: ServerConfig{
			Listen:    ":8080",
			StaticDir: "./static",
			MaxSize:   2048,
		},
		Store: StoreConfig{
			Driver: DriverMemory,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "fractal:session:",
			},
			IdleTimeout: 30 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	if c.Size <= 0 {
		errs = append(errs, fmt.Errorf("size must be positive, got %d", c.Size))
	}
	if !(c.ZoomScale > 0 && c.ZoomScale <= 1) {
		errs = append(errs, fmt.Errorf("zoom_scale must be in (0, 1], got %v", c.ZoomScale))
	}
	if !c.Variant.Valid() {
		errs = append(errs, fmt.Errorf("%w: %d", fractal.ErrUnknownVariant, int(c.Variant)))
	}
	if c.Render.Workers < 0 {
		errs = append(errs, fmt.Errorf("render.workers must not be negative, got %d", c.Render.Workers))
	}
	if c.Render.TileSize < 0 {
		errs = append(errs, fmt.Errorf("render.tile_size must not be negative, got %d", c.Render.TileSize))
	}
	if c.Server.MaxSize <= 0 {
		errs = append(errs, fmt.Errorf("server.max_size must be positive, got %d", c.Server.MaxSize))
	}
	if c.Store.IdleTimeout < 0 {
		errs = append(errs, fmt.Errorf("store.idle_timeout must not be negative, got %s", c.Store.IdleTimeout))
	}
	switch c.Store.Driver {
	case DriverMemory:
	case DriverRedis:
		if c.Store.Redis.Addr == "" {
			errs = append(errs, errors.New("store.redis.addr is required for the redis driver"))
		}
		if c.Store.Redis.TTL < 0 {
			errs = append(errs, fmt.Errorf("store.redis.ttl must not be negative, got %s", c.Store.Redis.TTL))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.driver %q", c.Store.Driver))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// Renderer builds the renderer described by the render section.
func (c Config) Renderer() *render.Renderer {
	return &render.Renderer{Workers: c.Render.Workers, TileSize: c.Render.TileSize}
}
