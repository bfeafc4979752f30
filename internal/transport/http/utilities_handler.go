package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "bizpulse/internal/errors"
	"bizpulse/internal/industry/banking"
	"bizpulse/internal/industry/ecommerce"
	"bizpulse/internal/industry/healthcare"
	"bizpulse/internal/middleware"
	"bizpulse/pkg/contracts/domain"
)

// RedactRequest is the body of POST /api/utilities/redact
type RedactRequest struct {
	Text string `json:"text"`
}

// MaskRequest is the body of POST /api/utilities/mask. Without fields the
// default sensitive banking fields are masked.
type MaskRequest struct {
	Records []map[string]interface{} `json:"records" validate:"required"`
	Fields  []string                 `json:"fields,omitempty" validate:"omitempty,dive,required"`
}

// InventoryAlertsRequest is the body of POST /api/utilities/inventory-alerts
type InventoryAlertsRequest struct {
	Products []domain.Product `json:"products" validate:"required"`
}

// AnonymizeRequest is the body of POST /api/utilities/anonymize
type AnonymizeRequest struct {
	Patients []domain.PatientData `json:"patients" validate:"required"`
}

// UtilitiesHandler exposes the pure record utilities over HTTP
type UtilitiesHandler struct {
	validation *middleware.ValidationMiddleware
	errors     *apierrors.ErrorHandler
	logger     *slog.Logger
}

// NewUtilitiesHandler creates a utilities handler
func NewUtilitiesHandler(errorHandler *apierrors.ErrorHandler, maxBodySize int64, logger *slog.Logger) *UtilitiesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, false)
	}
	return &UtilitiesHandler{
		validation: middleware.NewValidationMiddleware(logger, errorHandler, maxBodySize),
		errors:     errorHandler,
		logger:     logger.With(slog.String("handler", "utilities")),
	}
}

// Routes returns a chi router for the utility endpoints
func (h *UtilitiesHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.validation.ValidateRequest)

	r.Post("/redact", h.Redact)
	r.Post("/mask", h.Mask)
	r.Post("/inventory-alerts", h.InventoryAlerts)
	r.Post("/anonymize", h.Anonymize)

	return r
}

// Redact handles POST /api/utilities/redact
func (h *UtilitiesHandler) Redact(w http.ResponseWriter, r *http.Request) {
	var req RedactRequest
	if err := h.validation.Decode(r, &req); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, RedactRequest{Text: healthcare.RedactSensitiveInformation(req.Text)})
}

// Mask handles POST /api/utilities/mask
func (h *UtilitiesHandler) Mask(w http.ResponseWriter, r *http.Request) {
	var req MaskRequest
	if err := h.validation.Decode(r, &req); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"records": banking.MaskSensitiveData(req.Records, req.Fields...),
	})
}

// InventoryAlerts handles POST /api/utilities/inventory-alerts
func (h *UtilitiesHandler) InventoryAlerts(w http.ResponseWriter, r *http.Request) {
	var req InventoryAlertsRequest
	if err := h.validation.Decode(r, &req); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	alerts := ecommerce.GenerateInventoryAlerts(req.Products)
	h.logger.DebugContext(r.Context(), "inventory alerts generated",
		slog.Int("products", len(req.Products)),
		slog.Int("out_of_stock", len(alerts.OutOfStock)),
		slog.Int("low_stock", len(alerts.LowStock)))

	render.JSON(w, r, alerts)
}

// Anonymize handles POST /api/utilities/anonymize
func (h *UtilitiesHandler) Anonymize(w http.ResponseWriter, r *http.Request) {
	var req AnonymizeRequest
	if err := h.validation.Decode(r, &req); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"patients": healthcare.AnonymizePatientData(req.Patients),
	})
}
