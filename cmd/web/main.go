package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gfrcli/internal/app"
	"gfrcli/internal/config"
	"gfrcli/internal/infrastructure"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("gfr-web", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "config file (default: config.yaml if present)")
	port := fs.Int("port", 0, "listen port (overrides config)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	paths, err := config.ResolvePaths(cfg)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	cfg.Logging.FilePath = paths.Resolve(cfg.Logging.FilePath)

	logger, logFile, err := infrastructure.NewLogger(cfg.Logging, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize logger: %v\n", err)
		return 1
	}
	if logFile != nil {
		defer logFile.Close()
	}
	slog.SetDefault(logger)

	telemetry, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		logger.Error("failed to initialize telemetry", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		if err := telemetry.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()
	if err := telemetry.RegisterRuntimeCollectors(); err != nil {
		logger.Warn("runtime collectors unavailable", slog.String("error", err.Error()))
	}

	application := app.NewApplication(cfg, logger, telemetry)
	if err := application.ListenAndRun(ctx); err != nil {
		logger.Error("application error", slog.String("error", err.Error()))
		return 1
	}
	return 0
}
