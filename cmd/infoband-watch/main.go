package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sanspareilsmyn/infoband/internal/config"
	"github.com/sanspareilsmyn/infoband/internal/logging"
	"github.com/sanspareilsmyn/infoband/internal/publish"
	"github.com/sanspareilsmyn/infoband/internal/watch"
)

var configFile = flag.String("config", "", "Path to the configuration file (defaults and environment only when empty)")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration from %q: %v\n", *configFile, err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()
	sugar := logger.Sugar()

	sub, err := publish.NewSubscriber(cfg.Publish, logger.Named("subscriber"))
	if err != nil {
		sugar.Fatalw("Failed to initialize frame subscriber", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-signals
		sugar.Infow("Received signal, stopping watcher...", "signal", sig.String())
		cancel()
	}()

	sugar.Infow("Watching published frames",
		"topic", cfg.Publish.Topic,
		"brokers", cfg.Publish.Brokers,
		"group_id", cfg.Publish.GroupID,
	)

	if cfg.Metrics.Enabled {
		srv := &http.Server{Addr: cfg.Metrics.ListenAddr, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				sugar.Errorw("Metrics server failed", "error", err)
			}
		}()
		defer func() { _ = srv.Close() }()
	}

	alerter := watch.NewAlerter(cfg.Watch, logger.Named("alerter"))
	err = sub.Run(ctx, alerter.Handle)

	switch {
	case err == nil, errors.Is(err, context.Canceled):
		sugar.Info("Watcher stopped.")
	default:
		sugar.Errorw("Watcher stopped unexpectedly", "error", err)
		_ = logger.Sync()
		os.Exit(1)
	}
}
