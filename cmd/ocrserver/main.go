// OCR server - exposes a local Tesseract engine over gRPC so the tracker can
// run on a machine without trained data installed.
package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"

	"github.com/GriffinCanCode/minimap-tracker/internal/config"
	"github.com/GriffinCanCode/minimap-tracker/internal/grpcclient"
	"github.com/GriffinCanCode/minimap-tracker/internal/ocr"
	"github.com/GriffinCanCode/minimap-tracker/internal/ocr/tesseract"
	"github.com/GriffinCanCode/minimap-tracker/internal/trace"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	engine, err := tesseract.New(
		ocr.WithLanguage(cfg.OCRLanguage),
		ocr.WithTessdata(cfg.OCRTessdata),
		ocr.WithSingleLine(true),
	)
	if err != nil {
		slog.Error("failed to start tesseract", "error", err)
		os.Exit(1)
	}
	defer func() { _ = engine.Close() }()

	lis, err := net.Listen("tcp", cfg.OCRAddr)
	if err != nil {
		slog.Error("failed to listen", "addr", cfg.OCRAddr, "error", err)
		os.Exit(1)
	}

	s := grpc.NewServer(grpc.ChainUnaryInterceptor(trace.UnaryServerInterceptor()))
	grpcclient.RegisterOCRServer(s, grpcclient.NewRecognizerServer(engine))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutting down...")
		s.GracefulStop()
	}()

	slog.Info("ocr server starting", "addr", cfg.OCRAddr, "language", cfg.OCRLanguage)
	if err := s.Serve(lis); err != nil {
		slog.Error("grpc serve error", "error", err)
		os.Exit(1)
	}
}
