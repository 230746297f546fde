// Minimap tracker - reads the on-screen coordinate readout and streams the
// projected position to map clients over WebSocket.
package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/minimap-tracker/internal/config"
	"github.com/GriffinCanCode/minimap-tracker/internal/geo"
	"github.com/GriffinCanCode/minimap-tracker/internal/grpcclient"
	"github.com/GriffinCanCode/minimap-tracker/internal/metrics"
	"github.com/GriffinCanCode/minimap-tracker/internal/ocr"
	"github.com/GriffinCanCode/minimap-tracker/internal/ocr/tesseract"
	"github.com/GriffinCanCode/minimap-tracker/internal/resilience"
	"github.com/GriffinCanCode/minimap-tracker/internal/screen"
	"github.com/GriffinCanCode/minimap-tracker/internal/server"
	"github.com/GriffinCanCode/minimap-tracker/internal/store"
	"github.com/GriffinCanCode/minimap-tracker/internal/tracker"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg := config.Load()
	slog.SetDefault(newLogger(cfg))

	if err := run(cfg); err != nil {
		slog.Error("tracker exited", "error", err)
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rec, closer, err := newRecognizer(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	region := screen.Region{
		XOffset: cfg.CaptureXOffset,
		YOffset: cfg.CaptureYOffset,
		Width:   cfg.CaptureWidth,
		Height:  cfg.CaptureHeight,
	}
	pipeline := tracker.NewPipeline(screen.New(cfg.ProcessName, region), rec, tracker.Options{
		Upscale:       cfg.OCRUpscale,
		HueTier:       cfg.OCRHueTier,
		HueTolerance:  cfg.OCRHueTolerance,
		SkipUnchanged: cfg.SkipUnchangedFrames,
		Calibration:   geo.DefaultCalibration(),
		Now:           time.Now,
	})

	var sink tracker.Sink
	if cfg.RedisAddr != "" {
		positions, batcher, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = positions.Close() }()
		defer batcher.Stop()
		sink = batcher
	}

	trk := tracker.New(pipeline, tracker.Config{
		AcceptedInterval: cfg.AcceptedInterval,
		MissInterval:     cfg.MissInterval,
		Enabled:          cfg.TrackingEnabled,
		HistorySize:      cfg.HistorySize,
	}, sink)

	srv := server.New(trk, cfg)
	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return trk.Run(gctx) })
	g.Go(func() error {
		srv.RunCleanup(gctx)
		return nil
	})
	g.Go(func() error {
		slog.Info("tracker starting",
			"http", cfg.HTTPAddr,
			"process", cfg.ProcessName,
			"ocr", cfg.OCRBackend,
			"redis", cfg.RedisAddr != "",
		)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// newRecognizer builds the configured OCR backend. The returned closer
// releases engine or connection resources.
func newRecognizer(ctx context.Context, cfg *config.Config) (ocr.Recognizer, io.Closer, error) {
	switch cfg.OCRBackend {
	case config.OCRBackendGRPC:
		client, err := grpcclient.New(cfg.OCRAddr, grpcclient.DefaultConfig())
		if err != nil {
			return nil, nil, err
		}
		client.Breaker().WithHook(metrics.BreakerHook)
		if err := client.WaitReady(ctx, resilience.StartupRetryConfig("ocr_server")); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		slog.Info("connected to ocr server", "addr", cfg.OCRAddr)
		return client, client, nil

	case config.OCRBackendStatic:
		if cfg.OCRReplayFile == "" {
			return ocr.NewStatic(), nopCloser{}, nil
		}
		replay, err := ocr.LoadReplay(cfg.OCRReplayFile)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("replaying recorded ocr output", "file", cfg.OCRReplayFile)
		return replay, nopCloser{}, nil

	default:
		engine, err := tesseract.New(
			ocr.WithLanguage(cfg.OCRLanguage),
			ocr.WithTessdata(cfg.OCRTessdata),
			ocr.WithSingleLine(true),
		)
		if err != nil {
			return nil, nil, err
		}
		return engine, engine, nil
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func openStore(ctx context.Context, cfg *config.Config) (*store.PositionStore, *store.Batcher, error) {
	var positions *store.PositionStore
	err := resilience.Retry(ctx, resilience.StartupRetryConfig("redis"), func() error {
		var err error
		positions, err = store.Open(ctx, store.Config{
			Addr:        cfg.RedisAddr,
			DB:          cfg.RedisDB,
			TTL:         cfg.PositionTTL,
			TrailLength: cfg.TrailLength,
		})
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	slog.Info("persisting positions", "redis", cfg.RedisAddr)
	return positions, store.NewBatcher(positions, store.DefaultBatcherMaxSize, store.DefaultBatcherFlushDelay), nil
}
