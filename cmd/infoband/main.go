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
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sanspareilsmyn/infoband/internal/config"
	"github.com/sanspareilsmyn/infoband/internal/desktop"
	"github.com/sanspareilsmyn/infoband/internal/logging"
	"github.com/sanspareilsmyn/infoband/internal/mic"
	"github.com/sanspareilsmyn/infoband/internal/overlay"
	"github.com/sanspareilsmyn/infoband/internal/power"
	"github.com/sanspareilsmyn/infoband/internal/publish"
	"github.com/sanspareilsmyn/infoband/internal/render"
	"github.com/sanspareilsmyn/infoband/internal/telemetry"
	"github.com/sanspareilsmyn/infoband/internal/timer"
)

var (
	configFile = flag.String("config", "", "Path to the configuration file (defaults and environment only when empty)")
	logger     *zap.Logger
)

func main() {
	// Initialize Configuration
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration from %q: %v\n", *configFile, err)
		os.Exit(1)
	}

	// Initialize Logger
	var logErr error
	logger, logErr = logging.NewLogger(cfg.Log)
	if logErr != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to initialize logger: %v\n", logErr)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	sugar := logger.Sugar()
	sugar.Infow("Logger initialized",
		"level", cfg.Log.Level,
		"format", cfg.Log.Format,
	)
	sugar.Infow("Configuration loaded successfully", "path", *configFile)

	// Initialize Collaborators
	source, err := telemetry.NewProcSource(cfg.Sampler.ProcPath, cfg.Sampler.SysPath)
	if err != nil {
		sugar.Fatalw("Failed to open counter source", "error", err)
	}

	renderers := render.Multi{render.NewLogRenderer(logger.Named("render"))}
	if cfg.Publish.Enabled {
		publisher, err := publish.NewPublisher(cfg.Publish, logger.Named("publisher"))
		if err != nil {
			sugar.Fatalw("Failed to initialize frame publisher", "error", err)
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				sugar.Warnw("Failed to close frame publisher", "error", err)
			}
		}()
		renderers = append(renderers, publisher)
	}

	if cfg.Metrics.Enabled {
		stop := serveMetrics(cfg.Metrics.ListenAddr)
		defer stop()
	}

	shell := desktop.NewShell(cfg.Desktop, logger.Named("desktop"))
	mics := mic.NewMemoryDevices()
	mics.Add("default-capture", true)

	window := overlay.NewWindow(cfg.Overlay.QueueSize, logger.Named("window"))
	create := func(post overlay.Poster) (*overlay.Controller, error) {
		return overlay.NewController(cfg, overlay.Deps{
			Shell:     shell,
			Window:    desktop.NewWindow(logger.Named("overlay_window")),
			Mics:      mics,
			Source:    source,
			Renderer:  renderers,
			Awake:     power.LogRequester{Logger: logger.Named("power")},
			Scheduler: timer.Runtime{},
		}, post, logger.Named("overlay"))
	}

	// Handle Signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGUSR1, syscall.SIGUSR2)
	defer signal.Stop(signals)

	go forwardSignals(signals, window, cancel, sugar)

	// Run Overlay
	sugar.Info("Starting overlay event loop...")
	runErr := window.Run(ctx, create)

	// Evaluate Result
	finalLogLevel := zapcore.InfoLevel
	shutdownReason := "gracefully"
	var finalErrorField = zap.Skip()

	switch {
	case runErr == nil:
		sugar.Info("Overlay destroyed without error.")
	case errors.Is(runErr, context.Canceled):
		sugar.Info("Overlay cancelled (expected on shutdown).")
	default:
		shutdownReason = "due to error"
		finalLogLevel = zapcore.ErrorLevel
		finalErrorField = zap.Error(runErr)
		sugar.Errorw("Overlay stopped unexpectedly", zap.Error(runErr))
	}

	finalMessage := fmt.Sprintf("Overlay shutdown %s.", shutdownReason)
	logger.Log(finalLogLevel, finalMessage,
		zap.String("reason", shutdownReason),
		finalErrorField,
	)

	sugar.Info("infoband finished.")
}

// forwardSignals maps process signals onto overlay events: SIGHUP re-reads
// the display, SIGUSR1 is the mic hotkey and SIGUSR2 forces a redraw.
func forwardSignals(signals <-chan os.Signal, window *overlay.Window, cancel context.CancelFunc, sugar *zap.SugaredLogger) {
	for {
		select {
		case <-window.Done():
			return
		case sig := <-signals:
			var ev overlay.Event
			switch sig {
			case syscall.SIGINT, syscall.SIGTERM:
				sugar.Infow("Received signal, initiating shutdown...", "signal", sig.String())
				cancel()
				return
			case syscall.SIGHUP:
				ev = overlay.DisplayChanged{}
			case syscall.SIGUSR1:
				ev = overlay.Hotkey{ID: overlay.HotkeyMicMute}
			case syscall.SIGUSR2:
				ev = overlay.Redraw{}
			default:
				continue
			}
			sugar.Debugw("Forwarding signal", "signal", sig.String(), "event", ev.Kind().String())
			if err := window.Post(ev); err != nil {
				sugar.Warnw("Failed to post signal event", "signal", sig.String(), "error", err)
			}
		}
	}
}

// serveMetrics exposes the Prometheus registry and returns a function that
// shuts the server down.
func serveMetrics(addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("Serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("Metrics server shutdown failed", zap.Error(err))
		}
	}
}
