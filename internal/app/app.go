package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gfrcli/internal/config"
	apperrors "gfrcli/internal/errors"
	"gfrcli/internal/estimator"
	"gfrcli/internal/infrastructure"
	customMiddleware "gfrcli/internal/middleware"
	"gfrcli/internal/services"
	handlers "gfrcli/internal/transport/http"
)

// Application represents the web service container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	Telemetry     *infrastructure.Telemetry
	ErrorHandler  *apperrors.ErrorHandler
	RateService   *services.RateService
	HealthService *services.HealthService
}

// NewApplication wires services, handlers and middleware. Configuration,
// logging and telemetry are initialized by the caller.
func NewApplication(cfg *config.Config, logger *slog.Logger, telemetry *infrastructure.Telemetry) *Application {
	a := &Application{
		Config:       cfg,
		Logger:       logger,
		Telemetry:    telemetry,
		ErrorHandler: apperrors.NewErrorHandler(logger, cfg.Logging.Level == "debug"),
	}

	est := estimator.New(cfg.Estimator.Workers, logger, estimator.WithTracer(telemetry.Tracer))
	a.RateService = services.NewRateService(est, telemetry.Metrics, logger)
	a.HealthService = services.NewHealthService(config.AppVersion)

	a.setupRouter()
	a.createServer()
	return a
}

func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// RequestID → RealIP → OTel → Logger → Recoverer
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.NewOTelMiddleware(a.Telemetry.Tracer, a.Telemetry.Metrics).Handler)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(apperrors.RecoveryMiddleware(a.ErrorHandler))
	r.Use(customMiddleware.SecurityHeaders)

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
	r.Get("/api/health", healthHandler.HealthCheck)
	r.Get("/api/version", healthHandler.Version)
	r.Handle("/metrics", a.Telemetry.Handler())

	r.Group(func(r chi.Router) {
		if rl := a.Config.Server.RateLimit; rl.Enabled {
			r.Use(customMiddleware.NewRateLimiter(rl.RPS, rl.Burst, a.ErrorHandler, a.Logger).Handler)
		}
		rateHandler := handlers.NewRateHandler(a.RateService, a.Config.Server.MaxUploadBytes, a.Logger, a.ErrorHandler)
		r.Mount("/api/v1", rateHandler.Routes())
	})

	a.Router = r
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Run serves on ln until ctx is cancelled or the server fails, then shuts
// down gracefully within the configured shutdown timeout.
func (a *Application) Run(ctx context.Context, ln net.Listener) error {
	a.Logger.InfoContext(ctx, "server listening",
		slog.String("address", ln.Addr().String()),
		slog.String("version", config.AppVersion))

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- a.Server.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	return a.Stop(context.WithoutCancel(ctx))
}

// ListenAndRun listens on the configured port and calls Run
func (a *Application) ListenAndRun(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.Server.Addr, err)
	}
	return a.Run(ctx, ln)
}

// Stop gracefully stops the server
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.Logger.InfoContext(ctx, "server shutdown complete")
	return nil
}
