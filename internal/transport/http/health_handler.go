package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"bizpulse/internal/infrastructure"
	"bizpulse/pkg/contracts"
)

// StatsFunc reports the state of a component for the health endpoint
type StatsFunc func() map[string]interface{}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	startTime  time.Time
	components map[string]StatsFunc
	logger     *slog.Logger
}

// NewHealthHandler creates a new health handler. Each component's stats are
// included in the health response under its name.
func NewHealthHandler(startTime time.Time, components map[string]StatsFunc, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{
		startTime:  startTime,
		components: components,
		logger:     logger.With(slog.String("handler", "health")),
	}
}

// HealthResponse is the body of GET /healthz
type HealthResponse struct {
	Status     string                            `json:"status"`
	Timestamp  time.Time                         `json:"timestamp"`
	Version    contracts.VersionInfo             `json:"version"`
	Runtime    infrastructure.RuntimeStats       `json:"runtime"`
	Components map[string]map[string]interface{} `json:"components,omitempty"`
}

// HealthCheck handles GET /healthz
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   contracts.GetVersionInfo(),
		Runtime:   infrastructure.ReadRuntimeStats(h.startTime),
	}

	if len(h.components) > 0 {
		resp.Components = make(map[string]map[string]interface{}, len(h.components))
		for name, stats := range h.components {
			resp.Components[name] = stats()
		}
	}

	render.JSON(w, r, resp)
}

// Version handles GET /api/version
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, contracts.GetVersionInfo())
}
