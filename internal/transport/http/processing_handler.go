package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apierrors "bizpulse/internal/errors"
	"bizpulse/internal/infrastructure"
	"bizpulse/internal/middleware"
	"bizpulse/internal/operations"
	"bizpulse/pkg/contracts/domain"
)

const (
	defaultJobListLimit = 50
	maxJobListLimit     = 500
)

// ProcessingHandler serves synchronous runs and the async job API
type ProcessingHandler struct {
	runner     operations.Runner
	jobs       JobService
	validation *middleware.ValidationMiddleware
	query      *middleware.QueryParamValidator
	errors     *apierrors.ErrorHandler
	logger     *slog.Logger
	tracer     trace.Tracer
}

// NewProcessingHandler creates a processing handler. jobs may be nil, in
// which case the job endpoints answer 503.
func NewProcessingHandler(runner operations.Runner, jobs JobService, errorHandler *apierrors.ErrorHandler, maxBodySize int64, logger *slog.Logger) *ProcessingHandler {
	if runner == nil {
		panic("runner cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, false)
	}

	return &ProcessingHandler{
		runner:     runner,
		jobs:       jobs,
		validation: middleware.NewValidationMiddleware(logger, errorHandler, maxBodySize),
		query:      middleware.NewQueryParamValidator(logger, errorHandler),
		errors:     errorHandler,
		logger:     logger.With(slog.String("handler", "processing")),
		tracer:     otel.Tracer("processing-handler"),
	}
}

// Routes returns a chi router for the processing endpoints
func (h *ProcessingHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.validation.ValidateRequest)

	r.Post("/runs", h.StartRun)

	r.Route("/jobs", func(r chi.Router) {
		r.Post("/", h.SubmitJob)
		r.Get("/", h.ListJobs)
		r.Get("/{id}", h.GetJob)
		r.Delete("/{id}", h.CancelJob)
	})

	return r
}

// decodeRunRequest reads and validates a run request. The response has been
// written when ok is false.
func (h *ProcessingHandler) decodeRunRequest(w http.ResponseWriter, r *http.Request, span trace.Span) (operations.RunRequest, bool) {
	var req operations.RunRequest
	if err := h.validation.Decode(r, &req); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.type", "request_validation"))
		h.errors.HandleError(w, r, err)
		return req, false
	}

	if !req.Industry.Valid() {
		err := apierrors.NewWithDetails(
			http.StatusUnprocessableEntity,
			"UNSUPPORTED_INDUSTRY",
			fmt.Sprintf("Industry %q is not supported", req.Industry),
			map[string]interface{}{"supported": domain.Industries()},
		)
		span.RecordError(err)
		h.errors.HandleError(w, r, err)
		return req, false
	}

	span.SetAttributes(
		attribute.String("run.industry", string(req.Industry)),
		attribute.Int("run.record_count", req.RecordCount),
	)
	return req, true
}

// StartRun handles POST /api/processing/runs. The run executes on the
// request goroutine and the response is its RunResult.
func (h *ProcessingHandler) StartRun(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "processing_handler.start_run",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("request_id", middleware.GetReqID(r.Context())),
		),
	)
	defer span.End()
	r = r.WithContext(ctx)

	req, ok := h.decodeRunRequest(w, r, span)
	if !ok {
		return
	}

	h.logger.InfoContext(ctx, "run request",
		slog.String("industry", string(req.Industry)),
		slog.Int("record_count", req.RecordCount),
		slog.String("request_id", middleware.GetReqID(ctx)))

	result := h.runner.Run(ctx, req)
	span.SetAttributes(
		attribute.String("run.id", result.RunID),
		attribute.Int("run.processed", result.ProcessedRecordCount),
	)

	if !result.Succeeded() {
		span.SetStatus(codes.Error, "run failed")
		h.errors.RunFailed(w, r, result)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, result)
}

// SubmitJob handles POST /api/processing/jobs
func (h *ProcessingHandler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "processing_handler.submit_job",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("request_id", middleware.GetReqID(r.Context())),
		),
	)
	defer span.End()
	r = r.WithContext(ctx)

	if !h.jobsAvailable(w, r) {
		return
	}

	req, ok := h.decodeRunRequest(w, r, span)
	if !ok {
		return
	}

	job := operations.NewJob(req)
	if traceID := infrastructure.GetTraceID(ctx); traceID != "" {
		job.Metadata = map[string]interface{}{"trace_id": traceID}
	}
	span.SetAttributes(attribute.String("job.id", job.ID))

	if err := h.jobs.Enqueue(job); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "enqueue failed")
		h.logger.WarnContext(ctx, "job rejected",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()))
		h.errors.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "job submitted",
		slog.String("job_id", job.ID),
		slog.String("industry", string(job.Industry)))

	w.Header().Set("Location", "/api/processing/jobs/"+job.ID)
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, job)
}

// GetJob handles GET /api/processing/jobs/{id}
func (h *ProcessingHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	if !h.jobsAvailable(w, r) {
		return
	}
	jobID := chi.URLParam(r, "id")

	job, err := h.jobs.GetJob(jobID)
	if err != nil {
		h.logger.DebugContext(r.Context(), "job lookup failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()))
		h.errors.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, job)
}

// ListJobs handles GET /api/processing/jobs?status=&industry=&limit=
func (h *ProcessingHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	if !h.jobsAvailable(w, r) {
		return
	}

	status, ok := h.query.ValidateEnum(w, r, "status", []string{
		string(operations.JobStatusPending),
		string(operations.JobStatusRunning),
		string(operations.JobStatusCompleted),
		string(operations.JobStatusFailed),
		string(operations.JobStatusCancelled),
	}, "")
	if !ok {
		return
	}

	industries := make([]string, 0, len(domain.Industries()))
	for _, i := range domain.Industries() {
		industries = append(industries, string(i))
	}
	industry, ok := h.query.ValidateEnum(w, r, "industry", industries, "")
	if !ok {
		return
	}

	limit, ok := h.query.ValidateInt(w, r, "limit", 1, maxJobListLimit, defaultJobListLimit)
	if !ok {
		return
	}

	jobs, err := h.jobs.ListJobs(operations.JobFilter{
		Status:   operations.JobStatus(status),
		Industry: domain.Industry(industry),
		Limit:    limit,
	})
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
		"queue": h.jobs.GetQueueStats(),
	})
}

// CancelJob handles DELETE /api/processing/jobs/{id}. A running job stops at
// its next chunk or batch boundary, so the returned state may still be running.
func (h *ProcessingHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	if !h.jobsAvailable(w, r) {
		return
	}
	ctx := r.Context()
	jobID := chi.URLParam(r, "id")

	if err := h.jobs.CancelJob(jobID); err != nil {
		h.logger.WarnContext(ctx, "job cancel failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()))
		h.errors.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "job cancel requested", slog.String("job_id", jobID))

	job, err := h.jobs.GetJob(jobID)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, job)
}

func (h *ProcessingHandler) jobsAvailable(w http.ResponseWriter, r *http.Request) bool {
	if h.jobs != nil {
		return true
	}
	h.errors.HandleError(w, r, apierrors.New(
		http.StatusServiceUnavailable,
		"SERVICE_UNAVAILABLE",
		"Job queue is not available",
	))
	return false
}
