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
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"bizpulse/internal/config"
	apierrors "bizpulse/internal/errors"
	"bizpulse/internal/infrastructure"
	"bizpulse/internal/operations"
	ws "bizpulse/internal/websocket"
	"bizpulse/pkg/contracts"
)

// Application wires the processing core to its HTTP, websocket and
// telemetry surfaces
type Application struct {
	Config        *config.Config
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	RunTracer     *operations.RunTracer
	Orchestrator  *operations.Orchestrator
	JobStore      *operations.MemoryJobStore
	JobQueue      *operations.JobQueue
	WebSocketHub  *ws.Hub
	ErrorHandler  *apierrors.ErrorHandler
	Router        chi.Router
	Server        *http.Server

	startTime   time.Time
	stopWorkers context.CancelFunc
}

// NewApplication creates an application from cfg. A nil logger builds one
// from the logging section.
func NewApplication(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}

	if logger == nil {
		var err error
		logger, err = infrastructure.NewLogger(cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	logger.Info("application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version),
		slog.Int("port", cfg.Server.Port))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.NewOTelConfig(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		startTime:     time.Now(),
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.setupRouter(); err != nil {
		return nil, fmt.Errorf("failed to set up router: %w", err)
	}

	app.createServer()

	return app, nil
}

// initializeServices builds the run pipeline, job queue and websocket hub
func (a *Application) initializeServices() error {
	tracer, err := operations.NewRunTracer(a.OTelProviders)
	if err != nil {
		return fmt.Errorf("failed to initialize run tracer: %w", err)
	}
	a.RunTracer = tracer

	wsMetrics, err := ws.NewOTelMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to initialize websocket metrics: %w", err)
	}
	a.WebSocketHub = ws.NewHub(a.Logger, wsMetrics)

	a.Orchestrator = operations.NewOrchestrator(a.Config.Processing,
		operations.WithLogger(a.Logger),
		operations.WithTracer(tracer),
	)

	a.JobStore = operations.NewMemoryJobStore()
	a.JobQueue = operations.NewJobQueue(a.Config.Processing, a.JobStore, a.Orchestrator, a.WebSocketHub, a.Logger)
	a.JobQueue.SetTracer(tracer)

	a.ErrorHandler = apierrors.NewErrorHandler(a.Logger, a.Config.Telemetry.Environment == "development")

	return nil
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

// Start launches the hub, the job workers and the HTTP server. Serve errors
// cancel the context through cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	return a.Serve(ctx, ln, cancel)
}

// Serve is Start on an existing listener
func (a *Application) Serve(ctx context.Context, ln net.Listener, cancel context.CancelFunc) error {
	a.WebSocketHub.Start()

	workerCtx, stopWorkers := context.WithCancel(context.WithoutCancel(ctx))
	a.stopWorkers = stopWorkers
	a.JobQueue.Start(workerCtx)

	go func() {
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			if cancel != nil {
				cancel()
			}
		}
	}()

	a.Logger.InfoContext(ctx, "application started",
		slog.String("address", ln.Addr().String()),
		slog.Int("queue_workers", a.Config.Processing.QueueWorkers))
	return nil
}

// Stop drains the server, then the job queue, then the hub, and finally
// flushes telemetry
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}

	if err := a.JobQueue.Stop(a.Config.Server.ShutdownTimeout); err != nil {
		a.Logger.ErrorContext(ctx, "job queue did not stop gracefully", slog.String("error", err.Error()))
	}
	if a.stopWorkers != nil {
		a.stopWorkers()
	}

	a.WebSocketHub.Stop()

	if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "error shutting down OpenTelemetry", slog.String("error", err.Error()))
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	a.Logger.InfoContext(ctx, "application shutdown complete")
	return nil
}

// Run runs the application until SIGINT, SIGTERM or a server error
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx, stop); err != nil {
		return err
	}

	<-ctx.Done()
	a.Logger.Info("received shutdown signal")

	return a.Stop(context.Background())
}
