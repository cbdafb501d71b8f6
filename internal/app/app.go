package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"husholdning/internal/config"
	"husholdning/internal/connectors"
	apierrors "husholdning/internal/errors"
	"husholdning/internal/exporter"
	"husholdning/internal/infrastructure"
	"husholdning/internal/middleware"
	"husholdning/internal/services"
	handlers "husholdning/internal/transport/http"
	ws "husholdning/internal/websocket"
	"husholdning/internal/workflow"
	"husholdning/pkg/contracts"
)

// AppName is logged at startup
const AppName = "husholdning"

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics

	Sources     connectors.Sources
	Hub         *ws.Hub
	Store       *services.ResultStore
	Workflows   *services.WorkflowService
	Health      *services.HealthService
	Exporter    *exporter.Exporter
	RateLimiter *middleware.RateLimiter

	background context.CancelFunc
}

// Option customizes an Application
type Option func(*Application)

// WithSources replaces the live upstream connectors
func WithSources(sources connectors.Sources) Option {
	return func(a *Application) { a.Sources = sources }
}

// Load reads the configuration at path, sets up logging and builds the
// application
func Load(path string, opts ...Option) (*Application, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return New(cfg, logger, opts...)
}

// New wires every component of the application
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	a := &Application{Config: cfg, Logger: logger}
	for _, opt := range opts {
		opt(a)
	}

	logger.Info("application_starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version))

	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Otel), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	a.OTelProviders = providers

	if a.Metrics, err = infrastructure.CreateBusinessMetrics(providers.Meter); err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	if err := a.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	a.setupRouter()
	a.createServer()
	return a, nil
}

// NewSources builds the live connectors from cfg. Finn pages are rendered
// in headless Chrome when cfg.Browser is set.
func NewSources(cfg config.ConnectorsConfig, logger *slog.Logger) connectors.Sources {
	client := connectors.NewClient(connectors.ClientConfig{
		Timeout:           cfg.Timeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
		UserAgent:         cfg.UserAgent,
	}, infrastructure.WithComponent(logger, "connectors"))

	var fetcher connectors.Fetcher
	if cfg.Browser {
		fetcher = connectors.BrowserFetcher{Headless: true, Timeout: cfg.Timeout}
	}

	return connectors.NewWeb(client, fetcher, connectors.Endpoints{
		SifoURL:          cfg.SifoURL,
		FinnAdvertURL:    cfg.FinnAdvertURL,
		FinnCommunityURL: cfg.FinnCommunityURL,
		PostenURL:        cfg.PostenURL,
		PostenClientURL:  cfg.PostenClientURL,
		SSBRateURL:       cfg.SSBRateURL,
		SkatteetatenURL:  cfg.SkatteetatenURL,
	})
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	cfg := a.Config
	if a.Sources == nil {
		a.Sources = NewSources(cfg.Connectors, a.Logger)
	}

	tracer, err := workflow.NewTracer(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create workflow tracer: %w", err)
	}

	a.Hub = ws.NewHub(a.Logger,
		ws.WithMetrics(a.Metrics),
		ws.WithKeepalive(cfg.WebSocket.PingPeriod, cfg.WebSocket.PongWait),
	)
	a.Store = services.NewResultStore(cfg.Workflow.ResultTTL, a.Metrics, a.Logger)
	a.Workflows = services.NewWorkflowService(a.Sources, a.Store, cfg.Workflow, a.Logger,
		services.WithPublisher(a.Hub),
		services.WithTracer(tracer),
		services.WithMetrics(a.Metrics),
		services.WithDiagramDir(cfg.Paths.DiagramDir),
	)
	a.Health = services.NewHealthService(cfg.Paths, a.Store, a.Hub, a.Logger)
	a.Exporter = exporter.New(cfg.Paths.ExportDir, a.Metrics, a.Logger)

	if cfg.Security.RateLimit.Enabled {
		a.RateLimiter = middleware.NewRateLimiter(cfg.Security.RateLimit.RPS, cfg.Security.RateLimit.Burst, a.Logger)
	}
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	cfg := a.Config
	errorHandler := apierrors.NewErrorHandler(a.Logger, false)
	validator := middleware.NewValidationMiddleware(a.Logger, errorHandler)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	// The WebSocket upgrade needs the raw ResponseWriter
	r.Handle("/ws", ws.NewHandler(a.Hub, cfg.WebSocket, cfg.Security.AllowedOrigins, a.Logger))

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics).Handler)
		r.Use(apierrors.NewErrorMiddleware(errorHandler, a.Logger).Handler)
		r.Use(middleware.SecurityHeaders)
		if cfg.Security.EnableCORS {
			r.Use(middleware.CORS(middleware.CORSConfig{
				AllowedOrigins: cfg.Security.AllowedOrigins,
				AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
				MaxAge:         300,
				Logger:         a.Logger,
			}))
		}
		if a.RateLimiter != nil {
			r.Use(a.RateLimiter.Handler)
		}
		r.Use(validator.ValidateRequest)
		r.Use(middleware.Deadline(cfg.Server.WriteTimeout))

		healthHandler := handlers.NewHealthHandler(a.Health, a.Logger)
		r.Get("/", handlers.ServeIndex(cfg.Paths.WebDir))
		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/health/ready", healthHandler.ReadinessCheck)
		r.Get("/health/live", healthHandler.LivenessCheck)

		r.Route(handlers.APIBasePath, func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))

			r.Get("/version", healthHandler.Version)
			r.Get("/stats", healthHandler.Stats)
			r.Post("/client-log", handlers.NewClientLogHandler(validator, errorHandler, a.Logger).Handle)
			r.Mount("/results", handlers.NewResultsHandler(a.Workflows, a.Exporter, validator, errorHandler, a.Logger).Routes())
			r.Mount("/", handlers.NewWorkflowHandler(a.Workflows, validator, errorHandler, a.Logger).Routes())
		})
	})

	a.Router = r
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts the background loops and the HTTP server. Server failures
// are sent on the returned channel.
func (a *Application) Start(ctx context.Context) <-chan error {
	bg, cancel := context.WithCancel(context.Background())
	a.background = cancel

	a.Hub.Start()
	go a.Store.Run(bg, time.Minute)
	if a.RateLimiter != nil {
		go a.RateLimiter.Run(bg)
	}
	a.performStartupHealthCheck(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.Logger.InfoContext(ctx, "server_listening", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "application_stopping")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}
	if err := a.Workflows.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("workflow shutdown: %w", err))
	}
	a.Hub.Stop()
	if a.background != nil {
		a.background()
	}
	if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "otel_shutdown_failed", slog.String("error", err.Error()))
	}

	a.Logger.InfoContext(ctx, "application_stopped")
	return errors.Join(errs...)
}

// Run runs the application until SIGINT or SIGTERM, or until the server fails
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := a.Start(ctx)
	var serveErr error
	select {
	case <-ctx.Done():
		a.Logger.Info("shutdown_signal_received")
	case serveErr = <-errCh:
		if serveErr != nil {
			a.Logger.Error("server_failed", slog.String("error", serveErr.Error()))
		}
	}

	if err := a.Stop(context.Background()); err != nil {
		return errors.Join(serveErr, err)
	}
	return serveErr
}

// performStartupHealthCheck logs readiness problems without failing startup
func (a *Application) performStartupHealthCheck(ctx context.Context) {
	status := a.Health.ReadinessCheck(ctx)
	if status.Status != "ready" {
		a.Logger.WarnContext(ctx, "startup_health_check_warnings", slog.Any("services", status.Services))
		return
	}
	a.Logger.InfoContext(ctx, "startup_health_check_passed")
}
