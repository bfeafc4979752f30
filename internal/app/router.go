package app

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"bizpulse/internal/config"
	apierrors "bizpulse/internal/errors"
	customMiddleware "bizpulse/internal/middleware"
	handlers "bizpulse/internal/transport/http"
	ws "bizpulse/internal/websocket"
)

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() error {
	r := chi.NewRouter()

	// These do not wrap the ResponseWriter, so they are safe for the websocket upgrade
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).
		Handle(config.WebSocketEndpoint, ws.NewHandler(a.WebSocketHub, a.Config.WebSocket, a.Logger))

	r.Handle(config.MetricsEndpoint, handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP, a.ErrorHandler))

	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.RunTracer.Metrics(), a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create OpenTelemetry middleware: %w", err)
	}

	r.Group(func(r chi.Router) {
		r.Use(otelMiddleware.Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.CORS(a.corsConfig()))

		if rl := a.Config.Server.RateLimit; rl.Enabled {
			r.Use(customMiddleware.NewRateLimiter(rl.RPS, rl.Burst, a.Logger).Handler)
		}

		health := handlers.NewHealthHandler(a.startTime, map[string]handlers.StatsFunc{
			"job_queue": a.JobQueue.GetQueueStats,
			"jobs":      a.jobStats,
			"websocket": a.WebSocketHub.GetHubMetrics,
		}, a.Logger)
		r.Get(config.HealthEndpoint, health.HealthCheck)

		r.Route(config.APIBasePath, func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))
			r.Use(customMiddleware.MaxBodyBytes(a.Config.Server.MaxBodyBytes))
			r.Use(apierrors.NewErrorMiddleware(a.ErrorHandler, a.Logger).Handler)

			r.Get("/version", health.Version)
			r.Mount("/processing", handlers.NewProcessingHandler(
				a.Orchestrator, a.JobQueue, a.ErrorHandler, a.Config.Server.MaxBodyBytes, a.Logger,
			).Routes())
			r.Mount("/utilities", handlers.NewUtilitiesHandler(
				a.ErrorHandler, a.Config.Server.MaxBodyBytes, a.Logger,
			).Routes())
		})
	})

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	a.Router = r
	return nil
}

func (a *Application) jobStats() map[string]interface{} {
	stats := a.JobStore.GetStats()
	out := make(map[string]interface{}, len(stats))
	for k, v := range stats {
		out[k] = v
	}
	return out
}

func (a *Application) corsConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{"X-Request-ID", "Location"},
		MaxAge:         300,
		Logger:         a.Logger,
	}
}
