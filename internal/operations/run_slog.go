package operations

import (
	"context"
	"log/slog"

	"bizpulse/pkg/contracts/domain"
)

// logRunStart logs the start of a processing run
func (o *Orchestrator) logRunStart(ctx context.Context, req RunRequest) {
	o.logger.InfoContext(ctx, "run_start",
		slog.String("run_id", req.RunID),
		slog.String("industry", string(req.Industry)),
		slog.Int("record_count", req.RecordCount),
		slog.Int("chunk_size", req.ChunkSize),
		slog.Int("workers", req.Workers))
}

// logRunComplete logs the completion of a processing run
func (o *Orchestrator) logRunComplete(ctx context.Context, result *domain.RunResult) {
	o.logger.InfoContext(ctx, "run_complete",
		slog.String("run_id", result.RunID),
		slog.String("industry", string(result.Industry)),
		slog.Int("processed", result.ProcessedRecordCount),
		slog.Int64("elapsed_ms", result.ElapsedMs))
}

// logRunError logs a failed processing run
func (o *Orchestrator) logRunError(ctx context.Context, result *domain.RunResult, err error) {
	errorMsg := "unknown error"
	if err != nil {
		errorMsg = err.Error()
	}
	o.logger.ErrorContext(ctx, "run_error",
		slog.String("run_id", result.RunID),
		slog.String("industry", string(result.Industry)),
		slog.String("error_type", string(GetErrorType(err))),
		slog.Int("processed", result.ProcessedRecordCount),
		slog.String("error", errorMsg))
}

// logJobState logs a job status transition
func (q *JobQueue) logJobState(ctx context.Context, job *Job) {
	q.logger.InfoContext(ctx, "job_state",
		slog.String("job_id", job.ID),
		slog.String("industry", string(job.Industry)),
		slog.String("status", string(job.Status)),
		slog.Int("progress", job.Progress))
}
