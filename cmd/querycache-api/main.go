// Package main serves the query cache HTTP API.
//
// @title           Query Cache API
// @version         1.0
// @description     Runs analytical queries through a local file cache and keeps a fetch history.
// @host            localhost:8080
// @BasePath        /api/v1
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"go-query-cache/internal/api"
	"go-query-cache/internal/api/handler"
	"go-query-cache/internal/config"
	"go-query-cache/internal/logging"
	"go-query-cache/internal/metrics"
	"go-query-cache/internal/runner"
	"go-query-cache/internal/source"
	"go-query-cache/internal/store"
	"go-query-cache/pkg/router"
	"go-query-cache/pkg/utils"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	addr := flag.String("addr", "", "listen address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("failed to load config")
	}
	if *addr != "" {
		cfg.API.Addr = *addr
	}
	logger := logging.New(cfg.Log, os.Stderr)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("server stopped")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	layout := utils.NewCacheLayout(cfg.DataDir)
	if err := layout.EnsureBaseDirExists(); err != nil {
		return err
	}

	hist, err := store.Open(cfg.HistoryPath())
	if err != nil {
		return err
	}
	defer hist.Close()

	src, err := source.Lazy(cfg.Source)
	if err != nil {
		return err
	}
	defer src.Close()

	m := metrics.New(prometheus.DefaultRegisterer)
	qr := runner.New(src,
		runner.WithLogger(logger),
		runner.WithRecorder(hist),
		runner.WithObserver(m),
	)

	h := handler.New(qr, hist, layout, cfg.QueryTimeout(), logger)
	r := api.NewRouter(h, promhttp.Handler(),
		router.WithLogger(logger),
		router.WithObserver(m),
	)

	logger.Info().
		Str("data_dir", cfg.DataDir).
		Str("source", cfg.Source.Type).
		Msg("query cache api starting")
	return r.Start(ctx, cfg.API.Addr)
}
