package operations

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"bizpulse/internal/infrastructure"
	"bizpulse/pkg/contracts/domain"
)

const (
	TracerName = "bizpulse.processing"
)

// RunTracer provides OpenTelemetry instrumentation for processing runs and jobs
type RunTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.ProcessingMetrics
}

// NewRunTracer creates a run tracer on the given providers. Nil providers
// produce a tracer whose spans and instruments are no-ops.
func NewRunTracer(providers *infrastructure.OTelProviders) (*RunTracer, error) {
	tracer := tracenoop.NewTracerProvider().Tracer(TracerName)
	meter := metricnoop.NewMeterProvider().Meter(TracerName)
	if providers != nil {
		if providers.Tracer != nil {
			tracer = providers.Tracer
		}
		if providers.Meter != nil {
			meter = providers.Meter
		}
	}

	metrics, err := infrastructure.CreateProcessingMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create processing metrics: %w", err)
	}

	return &RunTracer{
		tracer:  tracer,
		metrics: metrics,
	}, nil
}

// NoopRunTracer returns a tracer that records nothing
func NoopRunTracer() *RunTracer {
	t, err := NewRunTracer(nil)
	if err != nil {
		// the noop meter never fails to create instruments
		panic(err)
	}
	return t
}

// Metrics exposes the processing instruments, for the HTTP middleware
func (rt *RunTracer) Metrics() *infrastructure.ProcessingMetrics {
	return rt.metrics
}

// StartRun creates a span for one processing run
func (rt *RunTracer) StartRun(ctx context.Context, runID string, industry domain.Industry) (context.Context, trace.Span) {
	ctx, span := rt.tracer.Start(ctx, fmt.Sprintf("processing.run.%s", industry),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("run.industry", string(industry)),
		),
	)

	rt.metrics.ActiveRuns.Add(ctx, 1,
		metric.WithAttributes(attribute.String("industry", string(industry))),
	)

	return ctx, span
}

// RecordChunk counts one processed chunk
func (rt *RunTracer) RecordChunk(ctx context.Context, industry domain.Industry, index, total int) {
	rt.metrics.ChunksProcessed.Add(ctx, 1,
		metric.WithAttributes(attribute.String("industry", string(industry))),
	)

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(
			attribute.Int("run.chunks_done", index+1),
			attribute.Int("run.chunks_total", total),
		)
	}
}

// RecordProgress adds a progress event to the run span
func (rt *RunTracer) RecordProgress(ctx context.Context, percent int) {
	infrastructure.AddSpanEvent(ctx, "run.progress", map[string]interface{}{
		"percent": percent,
	})
}

// FinishRun records the outcome of a run on its span and in the run metrics
func (rt *RunTracer) FinishRun(ctx context.Context, span trace.Span, result *domain.RunResult, err error) {
	industry := string(result.Industry)
	status := string(result.Status)
	duration := time.Duration(result.ElapsedMs) * time.Millisecond

	span.SetAttributes(
		attribute.String("run.status", status),
		attribute.Int("run.processed_records", result.ProcessedRecordCount),
		attribute.Int64("run.elapsed_ms", result.ElapsedMs),
	)

	attrs := metric.WithAttributes(
		attribute.String("industry", industry),
		attribute.String("status", status),
	)
	rt.metrics.RunsTotal.Add(ctx, 1, attrs)
	rt.metrics.RunDuration.Record(ctx, duration.Seconds(), attrs)
	if result.ProcessedRecordCount > 0 {
		rt.metrics.RecordsProcessed.Add(ctx, int64(result.ProcessedRecordCount),
			metric.WithAttributes(attribute.String("industry", industry)),
		)
	}
	rt.metrics.ActiveRuns.Add(ctx, -1,
		metric.WithAttributes(attribute.String("industry", industry)),
	)

	if err != nil {
		infrastructure.RecordError(ctx, err,
			trace.WithAttributes(
				attribute.String("run.id", result.RunID),
				attribute.String("error.type", string(GetErrorType(err))),
			),
		)
		span.SetStatus(codes.Error, err.Error())
		return
	}

	infrastructure.AddSpanEvent(ctx, "run.completed", map[string]interface{}{
		"run_id":    result.RunID,
		"processed": result.ProcessedRecordCount,
	})
	span.SetStatus(codes.Ok, "run completed")
}

// RecordJob counts a job reaching the given status
func (rt *RunTracer) RecordJob(ctx context.Context, industry domain.Industry, status JobStatus) {
	rt.metrics.JobsTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("industry", string(industry)),
			attribute.String("status", string(status)),
		),
	)
}
