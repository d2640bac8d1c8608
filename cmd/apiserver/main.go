// Command apiserver serves the reporting API over HTTP.
package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/turtacn/TreatyBoard/internal/bootstrap"
	"github.com/turtacn/TreatyBoard/internal/config"
	"github.com/turtacn/TreatyBoard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TreatyBoard/internal/infrastructure/monitoring/prometheus"
	httpserver "github.com/turtacn/TreatyBoard/internal/interfaces/http"
	"github.com/turtacn/TreatyBoard/internal/interfaces/http/handlers"
	"github.com/turtacn/TreatyBoard/internal/interfaces/http/middleware"
)

const defaultConfigPath = "configs/config.yaml"

// Build-time variables injected via ldflags.
var version = "dev"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	flag.Parse()

	cfg, watchPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)

	if err := run(cfg, watchPath, logger); err != nil {
		logger.Error("api server exited", logging.Err(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, watchPath string, logger logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting TreatyBoard API server",
		logging.String("version", version),
		logging.Int("port", cfg.Server.Port),
		logging.String("source", cfg.Source.Kind),
	)

	var collector prometheus.MetricsCollector
	if cfg.Metrics.Enabled {
		c, err := prometheus.NewMetricsCollector(cfg.Metrics.CollectorConfig, logger)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		collector = c
	}

	infra, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{Collector: collector, Listen: true})
	if err != nil {
		return err
	}
	defer infra.Close()
	if err := infra.Start(ctx); err != nil {
		return err
	}

	if watchPath != "" {
		err := config.Watch(watchPath, func(next *config.Config) {
			infra.ApplyRuntime(next)
		}, func(err error) {
			logger.Warn("config reload rejected", logging.Err(err))
		})
		if err != nil {
			logger.Warn("config watch disabled", logging.Err(err))
		}
	}

	checkers := make([]handlers.HealthChecker, 0, len(infra.Checks()))
	for _, c := range infra.Checks() {
		checkers = append(checkers, handlers.NewChecker(c.Name, c.Probe))
	}

	routerCfg := httpserver.RouterConfig{
		ReportHandler:    handlers.NewReportHandler(infra.Service, logger),
		HealthHandler:    handlers.NewHealthHandler(version, checkers...),
		Logging:          middleware.DefaultLoggingConfig(),
		Logger:           logger,
		Metrics:          infra.Metrics,
		MetricsCollector: collector,
		MetricsPath:      cfg.Metrics.Path,
		Mode:             cfg.Server.Mode,
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		cors := middleware.DefaultCORSConfig()
		cors.AllowedOrigins = cfg.Server.CORSOrigins
		routerCfg.CORS = &cors
	}

	srv := httpserver.NewServer(httpserver.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, httpserver.NewRouter(routerCfg), logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")
	if err := srv.Stop(context.Background()); err != nil {
		return err
	}
	logger.Info("api server stopped")
	return nil
}

// loadConfig reads path when it exists.  A missing default file falls back
// to TREATYBOARD_* environment variables so containers can run without one.
// The returned path is empty when no file backs the config.
func loadConfig(path string) (*config.Config, string, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, path, nil
	}
	if path == defaultConfigPath && stderrors.Is(err, config.ErrConfigFileNotFound) {
		cfg, err = config.LoadFromEnv()
		return cfg, "", err
	}
	return nil, "", err
}
