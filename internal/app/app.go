// Package app wires configuration, services, and transport into a
// runnable dashboard server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"

	"enrolcli/internal/config"
	"enrolcli/internal/dataset"
	"enrolcli/internal/errors"
	"enrolcli/internal/exporter"
	"enrolcli/internal/infrastructure"
	customMiddleware "enrolcli/internal/middleware"
	"enrolcli/internal/services"
	handlers "enrolcli/internal/transport/http"
	ws "enrolcli/internal/websocket"
)

const (
	Version = "1.0.0"
	AppName = "Enrolment Analytics Dashboard"
)

// BuildTime is set at compile time via -ldflags
var BuildTime = time.Now().Format(time.RFC3339)

// Application represents the main application container
type Application struct {
	Config           *config.Config
	Router           *chi.Mux
	Server           *http.Server
	WebSocketHub     *ws.Hub
	Store            *dataset.Store
	DashboardService *services.DashboardService
	HealthService    *services.HealthService
	Logger           *slog.Logger
	OTelProviders    *infrastructure.OTelProviders
}

// NewApplication creates a new application instance with dependency injection
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", Version))

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
	}

	app.initializeServices()
	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() {
	hub := ws.NewHub(a.Logger)
	hub.Start()
	a.WebSocketHub = hub

	loader := dataset.NewLoader(a.Config.Paths.DataDir, a.Logger)
	a.Store = dataset.NewStore(loader, a.Logger)
	a.Store.SetMetrics(a.OTelProviders.Metrics)

	a.DashboardService = services.NewDashboardService(a.Store, a.Logger)
	a.DashboardService.SetInstrumentation(a.OTelProviders.Tracer, a.OTelProviders.Metrics)
	a.HealthService = services.NewHealthService(Version, BuildTime, a.Config.Paths, a.Store, a.Logger)
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// RequestID alone for the websocket route: it must not pass through
	// middleware that wraps the ResponseWriter.
	r.Use(customMiddleware.RequestID)

	r.HandleFunc("/ws", a.handleWebSocket)

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.Metrics(a.OTelProviders.Metrics))
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r)
	})

	// Prometheus metrics endpoint outside the middleware group
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.Timeout(a.Config.Server.ReadTimeout, a.Logger))

		healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/health/ready", healthHandler.ReadinessCheck)
		r.Get("/health/live", healthHandler.LivenessCheck)
		r.Get("/version", healthHandler.Version)

		errorHandler := errors.NewErrorHandler(a.Logger, false)

		r.NotFound(func(w http.ResponseWriter, req *http.Request) {
			errorHandler.HandleError(w, req, errors.ErrNotFound)
		})

		dashboardHandler := handlers.NewDashboardHandler(
			a.DashboardService,
			a.WebSocketHub,
			exporter.NewCSVWriter(a.Config.Paths.ExportsDir),
			exporter.NewExcelWriter(a.Config.Paths.ExportsDir),
			a.Logger,
			errorHandler,
		)
		r.Mount("/dashboard", dashboardHandler.Routes())
		r.Post("/dataset/reload", dashboardHandler.Reload)
	})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1")
	},
}

// handleWebSocket upgrades the connection and hands it to the hub
func (a *Application) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.Logger.ErrorContext(r.Context(), "WebSocket upgrade failed",
			slog.String("error", err.Error()),
			slog.String("remote_addr", r.RemoteAddr))
		return
	}

	ws.ServeWS(a.WebSocketHub, conn, infrastructure.GetTraceID(r.Context()))
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start starts the HTTP server and warms the dataset cache
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting server",
		slog.Int("port", a.Config.Server.Port),
		slog.String("data_dir", a.Config.Paths.DataDir),
		slog.String("exports_dir", a.Config.Paths.ExportsDir))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	// Warm the dataset cache in the background. A failure here is not
	// fatal: the files may appear later and a reload will pick them up.
	go func() {
		table, err := a.Store.Load(context.Background())
		if err != nil {
			a.Logger.Warn("Dataset warm-up failed",
				slog.String("error", err.Error()),
				slog.String("data_dir", a.Config.Paths.DataDir))
			return
		}
		a.Logger.Info("Dataset cache warmed",
			slog.Int("rows", len(table.Rows)),
			slog.Int("warnings", len(a.Store.Warnings())))
	}()

	a.Logger.InfoContext(ctx, "Application started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))

	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.WebSocketHub.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	if err := infrastructure.CloseLogFile(); err != nil {
		a.Logger.ErrorContext(ctx, "Error closing log file", slog.String("error", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case sig := <-sigChan:
		a.Logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		a.Logger.Info("Context cancelled, shutting down")
	}

	return a.Stop(context.Background())
}
