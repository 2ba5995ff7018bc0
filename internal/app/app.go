package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"minimvc/internal/bootstrap"
	"minimvc/internal/config"
	"minimvc/internal/dispatch"
	apperrors "minimvc/internal/errors"
	"minimvc/internal/infrastructure"
	"minimvc/internal/meta"
	customMiddleware "minimvc/internal/middleware"
	handlers "minimvc/internal/transport/http"
)

const (
	AppName = "minimvc"
	Version = infrastructure.ServiceVersion
)

// RegisterFunc records the classes of one package in the catalog
type RegisterFunc func(*meta.Catalog) error

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.Metrics
	Context       *bootstrap.Context
	Dispatcher    *dispatch.Dispatcher
}

// NewApplication builds the application from a validated configuration.
// The register functions fill the class catalog before startup runs. A nil
// logger selects the process logger configured from cfg.Logging.
func NewApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, register ...RegisterFunc) (*Application, error) {
	if cfg == nil {
		return nil, apperrors.NewConfigurationError("config", "configuration is required", nil)
	}
	if logger == nil {
		var err error
		logger, err = infrastructure.InitializeLogger(cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	logger.InfoContext(ctx, "Application starting",
		slog.String("name", AppName),
		slog.String("version", Version),
		slog.String("scan_package", cfg.Framework.ScanPackage))

	binding, err := dispatch.ParseBinding(cfg.Framework.ParamBinding)
	if err != nil {
		return nil, apperrors.NewConfigurationError("framework.paramBinding", err.Error(), nil)
	}

	catalog := meta.NewCatalog()
	for _, fn := range register {
		if err := fn(catalog); err != nil {
			return nil, fmt.Errorf("failed to register classes: %w", err)
		}
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	metrics, err := infrastructure.CreateMetrics(otelProviders.Meter)
	if err != nil {
		_ = otelProviders.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	appCtx, err := bootstrap.Run(ctx, catalog, bootstrap.Options{
		ScanPackage: cfg.Framework.ScanPackage,
		Strict:      cfg.Framework.Strict,
		Issues:      cfg.Issues,
		Logger:      logger,
	})
	if err != nil {
		_ = otelProviders.Shutdown(ctx)
		return nil, err
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		Context:       appCtx,
	}
	app.Dispatcher = appCtx.Dispatcher(dispatch.Options{
		ContextPath:   cfg.Framework.ContextPath,
		Binding:       binding,
		NumericParams: cfg.Framework.NumericParams,
		Logger:        logger,
		Tracer:        otelProviders.Tracer,
		Metrics:       metrics,
	})

	app.setupRouter()
	app.createServer()

	return app, nil
}

// setupRouter configures the HTTP router. Everything not claimed by the
// admin surface or /metrics reaches the dispatcher, whatever the method.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	// outside the group so scrapes skip logging and rate limiting
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.Group(func(r chi.Router) {
		// RequestID → RealIP → OTel → Logger → Recoverer → RateLimiter
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		if prefix := adminPrefix(a.Config.Server.AdminPrefix); prefix != "" {
			admin := handlers.NewAdminHandler(a.Context, Version, a.Logger)
			r.Mount(prefix, admin.Routes())
		}

		r.Handle("/*", a.Dispatcher)
	})

	a.Router = r
}

// adminPrefix normalizes the configured admin mount point
func adminPrefix(p string) string {
	p = strings.TrimSuffix(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
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
		ErrorLog:       slog.NewLogLogger(a.Logger.Handler(), slog.LevelError),
	}
}

// Run listens on the configured address and serves until ctx is done or an
// interrupt arrives, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		_ = a.OTelProviders.Shutdown(context.Background())
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then stops the application.
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfoContext(ctx, "Application started",
			slog.String("address", ln.Addr().String()),
			slog.Int("routes", a.Context.Routes.Len()),
			slog.Int("beans", a.Context.Registry.Count()))

		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		// the parent context is done; shutdown gets its own deadline
		return a.Stop(context.WithoutCancel(ctx))
	})

	return g.Wait()
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}
