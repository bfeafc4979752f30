package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"bizpulse/internal/importer"
	"bizpulse/internal/operations"
	"bizpulse/pkg/contracts/domain"
)

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := middleware.GetReqID(r.Context())

	h.logger.ErrorContext(r.Context(), "request failed",
		slog.String("error", err.Error()),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("remote_addr", r.RemoteAddr),
	)

	problem := h.ErrorToProblem(err, r)
	problem.WithExtension("trace_id", reqID)

	if h.includeStack {
		problem.WithExtension("stack", getStackTrace())
	}

	render.Render(w, r, problem)
}

// ErrorToProblem converts an error to RFC 7807 Problem Details
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	var (
		apiErr      *APIError
		opErr       *operations.OperationError
		validErrs   validator.ValidationErrors
		importErr   *importer.ImportError
		maxBytesErr *http.MaxBytesError
	)

	switch {
	case errors.As(err, &apiErr):
		return h.apiErrorToProblem(apiErr, r)

	case errors.Is(err, operations.ErrJobNotFound):
		return NewProblemDetails(http.StatusNotFound, TypeJobNotFound, "Job Not Found", err.Error(), r.URL.Path)

	case errors.Is(err, operations.ErrJobFinished):
		return NewProblemDetails(http.StatusConflict, TypeJobFinished, "Job Already Finished", err.Error(), r.URL.Path)

	case errors.Is(err, operations.ErrQueueFull):
		return NewProblemDetails(
			http.StatusServiceUnavailable,
			TypeQueueFull,
			"Queue Full",
			"The processing queue is full. Please try again later.",
			r.URL.Path,
		).WithExtension("retry_after", 30)

	case errors.Is(err, operations.ErrQueueStopped):
		return NewProblemDetails(
			http.StatusServiceUnavailable,
			TypeServiceDown,
			"Service Unavailable",
			"The processing queue is shutting down",
			r.URL.Path,
		)

	case errors.As(err, &opErr):
		return operationErrorToProblem(opErr, r)

	case errors.As(err, &validErrs):
		details := FromValidator(validErrs).Details.(ValidationErrors)
		return NewProblemDetails(
			http.StatusBadRequest,
			TypeValidation,
			"Validation Failed",
			"Request validation failed",
			r.URL.Path,
		).WithExtension("errors", details.Errors)

	case errors.As(err, &importErr):
		problem := NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeImportFailed,
			"Import Failed",
			importErr.Error(),
			r.URL.Path,
		)
		rows := make([]string, 0, len(importErr.Rows))
		for _, row := range importErr.Rows {
			rows = append(rows, row.Error())
		}
		return problem.WithExtension("rows", rows)

	case errors.Is(err, importer.ErrUnsupportedFormat):
		return NewProblemDetails(http.StatusUnprocessableEntity, TypeImportFailed, "Import Failed", err.Error(), r.URL.Path)

	case errors.As(err, &maxBytesErr):
		return NewProblemDetails(
			http.StatusRequestEntityTooLarge,
			TypePayloadTooLarge,
			"Payload Too Large",
			fmt.Sprintf("The request body exceeds the maximum allowed size of %d bytes", maxBytesErr.Limit),
			r.URL.Path,
		)

	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Timeout",
			"The request took too long to process and was cancelled",
			r.URL.Path,
		)

	default:
		return NewProblemDetails(
			http.StatusInternalServerError,
			TypeInternal,
			"Internal Server Error",
			"An unexpected error occurred while processing your request",
			r.URL.Path,
		)
	}
}

func operationErrorToProblem(opErr *operations.OperationError, r *http.Request) *ProblemDetails {
	var problem *ProblemDetails
	switch opErr.Type {
	case operations.ErrorTypeValidation:
		problem = NewProblemDetails(http.StatusBadRequest, TypeValidation, "Validation Failed", opErr.Message, r.URL.Path)
		if items, ok := opErr.Context["errors"].([]string); ok {
			problem.WithExtension("errors", items)
		}
	case operations.ErrorTypeUnsupported:
		problem = NewProblemDetails(http.StatusUnprocessableEntity, TypeUnsupportedIndustry, "Unsupported Industry", opErr.Message, r.URL.Path)
	case operations.ErrorTypeNotFound:
		problem = NewProblemDetails(http.StatusNotFound, TypeNotFound, "Resource Not Found", opErr.Message, r.URL.Path)
	case operations.ErrorTypeInvalidState:
		problem = NewProblemDetails(http.StatusConflict, TypeConflict, "Conflict", opErr.Message, r.URL.Path)
	case operations.ErrorTypeTimeout:
		problem = NewProblemDetails(http.StatusGatewayTimeout, TypeTimeout, "Run Timeout", opErr.Message, r.URL.Path)
	case operations.ErrorTypeCancellation:
		problem = NewProblemDetails(http.StatusServiceUnavailable, TypeRunCancelled, "Run Cancelled", opErr.Message, r.URL.Path)
	default:
		problem = NewProblemDetails(http.StatusInternalServerError, TypeRunFailed, "Run Failed", opErr.Message, r.URL.Path)
	}

	if opErr.Stage != "" {
		problem.WithExtension("stage", opErr.Stage)
	}
	return problem.WithExtension("retryable", opErr.Retryable)
}

// apiErrorToProblem converts APIError to ProblemDetails
func (h *ErrorHandler) apiErrorToProblem(apiErr *APIError, r *http.Request) *ProblemDetails {
	problemType := TypeInternal
	switch apiErr.ErrorCode {
	case "VALIDATION_FAILED", "INVALID_REQUEST", "MISSING_PARAMETER", "INVALID_PARAMETER":
		problemType = TypeValidation
	case "NOT_FOUND":
		problemType = TypeNotFound
	case "JOB_NOT_FOUND":
		problemType = TypeJobNotFound
	case "CONFLICT":
		problemType = TypeConflict
	case "JOB_FINISHED":
		problemType = TypeJobFinished
	case "UNSUPPORTED_INDUSTRY":
		problemType = TypeUnsupportedIndustry
	case "IMPORT_FAILED":
		problemType = TypeImportFailed
	case "PAYLOAD_TOO_LARGE":
		problemType = TypePayloadTooLarge
	case "RATE_LIMIT_EXCEEDED":
		problemType = TypeRateLimit
	case "QUEUE_FULL":
		problemType = TypeQueueFull
	case "SERVICE_UNAVAILABLE":
		problemType = TypeServiceDown
	case "RUN_FAILED", "RUN_EXECUTION_FAILED":
		problemType = TypeRunFailed
	case "WEBSOCKET_UPGRADE_FAILED":
		problemType = TypeWebSocketUpgrade
	}

	problem := NewProblemDetails(
		apiErr.StatusCode,
		problemType,
		http.StatusText(apiErr.StatusCode),
		apiErr.Message,
		r.URL.Path,
	).WithExtension("error_code", apiErr.ErrorCode)

	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}

	return problem
}

// RunFailed responds with a problem carrying the failed run result, so the
// partial record count and error list reach the client.
func (h *ErrorHandler) RunFailed(w http.ResponseWriter, r *http.Request, result *domain.RunResult) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.WarnContext(r.Context(), "run failed",
		slog.String("run_id", result.RunID),
		slog.String("industry", string(result.Industry)),
		slog.Int("processed", result.ProcessedRecordCount),
		slog.String("request_id", reqID),
	)

	detail := "processing run failed"
	if len(result.Errors) > 0 {
		detail = result.Errors[0]
	}

	problem := NewProblemDetails(
		http.StatusUnprocessableEntity,
		TypeRunFailed,
		"Run Failed",
		detail,
		r.URL.Path,
	).
		WithExtension("trace_id", reqID).
		WithExtension("result", result)

	render.Render(w, r, problem)
}

// HandlePanic recovers from panics and returns RFC 7807 error
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)

	problem := NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred",
		r.URL.Path,
	).WithExtension("trace_id", reqID)

	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprintf("%v", recovered))
		problem.WithExtension("stack", getStackTrace())
	}

	render.Render(w, r, problem)
}

// NotFound returns a standard 404 error
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusNotFound,
		TypeNotFound,
		"Not Found",
		"The requested resource was not found",
		r.URL.Path,
	).WithExtension("trace_id", middleware.GetReqID(r.Context()))

	render.Render(w, r, problem)
}

// MethodNotAllowed returns a standard 405 error
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusMethodNotAllowed,
		TypeMethodNotAllowed,
		"Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method),
		r.URL.Path,
	).WithExtension("trace_id", middleware.GetReqID(r.Context()))

	render.Render(w, r, problem)
}

func getStackTrace() string {
	buf := make([]byte, 1024*8)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
