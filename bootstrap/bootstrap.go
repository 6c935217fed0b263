// Package bootstrap wires configuration, storage, the dispatcher and the
// admin HTTP channel into a runnable application.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	apihttp "github.com/artpar/anvil/adapters/http"
	"github.com/artpar/anvil/adapters/metrics"
	"github.com/artpar/anvil/config"
	httpChannel "github.com/artpar/anvil/core/channel/http"
	"github.com/artpar/anvil/core/events"
	"github.com/artpar/anvil/core/registry"
	"github.com/artpar/anvil/core/resource"
	"github.com/artpar/anvil/core/runtime"
)

// App represents the running application.
type App struct {
	Config     *config.Config
	Logger     zerolog.Logger
	Registry   *registry.Registry
	Runtime    *runtime.Runtime
	Events     *events.Bus
	Metrics    *metrics.Collector
	Store      *Store
	HTTPServer *http.Server

	holder  *config.Holder
	handler http.Handler
}

// Options configures New. Every field is optional.
type Options struct {
	// ConfigPath is the YAML config file. When empty or missing the
	// configuration comes from ANVIL_* environment variables.
	ConfigPath string

	// Config bypasses loading entirely.
	Config *config.Config

	// HotReload watches ConfigPath and applies log level changes live.
	HotReload bool

	// Resources are declared in code and served alongside the ones
	// loaded from the resources directory.
	Resources []*resource.Resource

	// LogOutput defaults to stdout.
	LogOutput io.Writer

	Version string
	Commit  string
}

// New builds the application. Every resource is provisioned in the store
// and registered with the dispatcher before New returns, so a resource
// whose model cannot be served fails here rather than on first request.
func New(ctx context.Context, opts Options) (*App, error) {
	a := &App{}

	cfg, err := a.loadConfig(opts)
	if err != nil {
		return nil, err
	}
	a.Config = cfg

	out := opts.LogOutput
	if out == nil {
		out = os.Stdout
	}
	a.Logger = SetupLogger(cfg.Logging, out)
	if a.holder != nil {
		a.holder.SetLogger(a.Logger.With().Str("component", "config").Logger())
	}

	var promReg *prometheus.Registry
	if cfg.Metrics.Enabled {
		promReg = prometheus.NewRegistry()
		promReg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.Metrics = metrics.NewWithRegistry(promReg)
	}

	resources, err := LoadResources(cfg.Resources.Dir, opts.Resources, a.Logger)
	if err != nil {
		return nil, err
	}

	a.Registry = registry.New()
	if err := a.Registry.RegisterAll(resources...); err != nil {
		return nil, fmt.Errorf("register resources: %w", err)
	}

	a.Store, err = OpenStore(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	a.Events = events.NewBus(a.Logger.With().Str("component", "events").Logger())
	a.Runtime = runtime.New(a.Store, runtime.Config{
		Logger:  a.Logger.With().Str("component", "runtime").Logger(),
		Metrics: a.Metrics,
		Events:  a.Events,
	})

	for _, res := range a.Registry.List() {
		if err := a.Store.Ensure(ctx, res); err != nil {
			a.Store.Close()
			return nil, fmt.Errorf("provision %s: %w", res.Slug(), err)
		}
		if err := a.Runtime.Register(res); err != nil {
			a.Store.Close()
			return nil, err
		}
	}

	a.Logger.Info().
		Int("resources", a.Registry.Len()).
		Str("driver", cfg.Database.Driver).
		Msg("resources ready")

	var bus *events.Bus
	if cfg.Admin.Events {
		bus = a.Events
	}
	channel := httpChannel.New(httpChannel.Config{
		Runtime:  a.Runtime,
		Registry: a.Registry,
		Events:   bus,
		Logger:   a.Logger.With().Str("component", "admin").Logger(),
		Metrics:  a.Metrics,
	})

	routerCfg := apihttp.RouterConfig{
		Health:         apihttp.NewHealthHandler(apihttp.HealthCheckFunc(a.Store.HealthCheck)),
		Metrics:        a.Metrics,
		MetricsPath:    cfg.Metrics.Path,
		AdminHandler:   channel.Handler(),
		AdminPath:      cfg.Admin.BasePath,
		Version:        opts.Version,
		Commit:         opts.Commit,
		RequestTimeout: cfg.Server.WriteTimeout,
	}
	if promReg != nil {
		routerCfg.MetricsHandler = promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})
	}
	a.handler = apihttp.NewRouter(a.Logger, routerCfg)

	a.HTTPServer = &http.Server{
		Addr:        cfg.Server.Addr(),
		Handler:     a.handler,
		ReadTimeout: cfg.Server.ReadTimeout,
		// No WriteTimeout: it would cut websocket streams. Plain requests
		// are bounded by the router's timeout middleware instead.
	}

	if a.holder != nil {
		a.watchConfig()
	}

	return a, nil
}

func (a *App) loadConfig(opts Options) (*config.Config, error) {
	if opts.Config != nil {
		return opts.Config, nil
	}

	if opts.HotReload && opts.ConfigPath != "" {
		if _, err := os.Stat(opts.ConfigPath); err == nil {
			// The real logger is attached once the config has been read.
			holder, err := config.NewHolder(opts.ConfigPath, zerolog.Nop())
			if err != nil {
				return nil, err
			}
			a.holder = holder
			return holder.Get(), nil
		}
	}

	cfg, err := config.LoadWithFallback(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// watchConfig applies reloadable settings when the config file changes.
func (a *App) watchConfig() {
	h := a.holder
	h.OnChange(func(cfg *config.Config) {
		if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
			zerolog.SetGlobalLevel(level)
			a.Logger.Info().Str("level", level.String()).Msg("log level applied")
		}
	})
	h.OnReload(func(err error) {
		a.Metrics.ObserveReload(err, time.Now())
	})
}

// ReloadConfig re-reads the config file and applies reloadable settings.
// It does nothing unless the app was built with HotReload.
func (a *App) ReloadConfig() error {
	if a.holder == nil {
		return nil
	}
	return a.holder.Reload()
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run starts the HTTP server and blocks until SIGINT/SIGTERM or a server
// error, then shuts down.
func (a *App) Run() error {
	if a.holder != nil {
		if err := a.holder.WatchFile(); err != nil {
			a.Logger.Warn().Err(err).Msg("config file watch disabled")
		}
		a.holder.WatchSignals()
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Str("admin", a.Config.Admin.BasePath).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		a.Shutdown()
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	if a.holder != nil {
		a.holder.Stop()
	}

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("store close error")
			return err
		}
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

// SetupLogger builds the root logger from logging settings and sets the
// global level.
func SetupLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).With().Timestamp().Logger()
}
