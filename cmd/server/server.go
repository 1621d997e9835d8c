// server runs the fractal explorer over HTTP: a JSON API, PNG frames and a live websocket explorer.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/marben/fractal_explorer/internal/config"
	"github.com/marben/fractal_explorer/internal/httpapi"
	"github.com/marben/fractal_explorer/internal/logging"
	"github.com/marben/fractal_explorer/internal/metrics"
	"github.com/marben/fractal_explorer/session"
	"github.com/marben/fractal_explorer/store/memory"
	"github.com/marben/fractal_explorer/store/redis"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("run: %+v", err)
	}
}

func run() error {
	return newCommand().Execute()
}

func newCommand() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:           "server",
		Short:         "Serve the fractal explorer over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := applyFlags(cmd, &cfg); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "YAML config file")
	f.StringP("listen", "l", "", "address to listen on (default from config, :8080)")
	f.String("static", "", "directory with the web client")
	f.String("store", "", "session store: memory or redis")
	f.String("redis-addr", "", "redis address for the redis store")
	f.String("variant", "", "variant new sessions start with")
	f.String("log-level", "", "debug, info, warn or error")
	return cmd
}

// applyFlags overrides cfg with the flags set on the command line.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	set := func(name string, dst *string) {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	set("listen", &cfg.Server.Listen)
	set("static", &cfg.Server.StaticDir)
	set("store", &cfg.Store.Driver)
	set("redis-addr", &cfg.Store.Redis.Addr)
	set("log-level", &cfg.Log.Level)
	if f.Changed("variant") {
		name, _ := f.GetString("variant")
		if err := cfg.Variant.UnmarshalText([]byte(name)); err != nil {
			return err
		}
	}
	return cfg.Validate()
}

func serve(ctx context.Context, cfg config.Config) error {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := logging.New(level, cfg.Log.Format)

	store, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	renderer := cfg.Renderer()
	renderer.Logger = logger
	mgr := session.NewManager(store,
		session.WithDefaultVariant(cfg.Variant),
		session.WithExplorerOptions(session.WithZoomScale(cfg.ZoomScale), session.WithRenderer(renderer)),
		session.WithLogger(logger),
		session.WithIdleTimeout(cfg.Store.IdleTimeout),
	)
	api := httpapi.NewServer(mgr,
		httpapi.WithMetrics(metrics.New(reg)),
		httpapi.WithLogger(logger),
		httpapi.WithMaxSize(cfg.Server.MaxSize),
		httpapi.WithImageSize(cfg.Size),
		httpapi.WithStaticDir(cfg.Server.StaticDir),
	)

	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr, "store", cfg.Store.Driver, "static", cfg.Server.StaticDir)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("http server: %w", err)

	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
			if err := srv.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("close server: %w", err)
			}
		}
		logger.Info("server stopped")
		return nil
	}
}

// openStore builds the configured session store and a function releasing it.
func openStore(ctx context.Context, cfg config.StoreConfig) (session.Store, func() error, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return memory.NewStore(), func() error { return nil }, nil

	case config.DriverRedis:
		opts := []redis.Option{redis.WithTTL(cfg.Redis.TTL)}
		if cfg.Redis.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Redis.Prefix))
		}
		store := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...)
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		return store, store.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
