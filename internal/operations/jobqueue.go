package operations

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"bizpulse/internal/config"
	"bizpulse/internal/infrastructure"
	"bizpulse/pkg/contracts/domain"
)

// JobStatus represents the status of a job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Finished reports whether the status is terminal
func (s JobStatus) Finished() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// Job represents an async processing run
type Job struct {
	ID          string                 `json:"id"`
	Industry    domain.Industry        `json:"industry"`
	RecordCount int                    `json:"record_count,omitempty"`
	Status      JobStatus              `json:"status"`
	Progress    int                    `json:"progress"`
	Message     string                 `json:"message,omitempty"`
	ETA         string                 `json:"eta,omitempty"`
	Error       string                 `json:"error,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	StartedAt   *time.Time             `json:"started_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Result      *domain.RunResult      `json:"result,omitempty"`
	Request     *RunRequest            `json:"-"`
}

// NewJob creates a pending job for req
func NewJob(req RunRequest) *Job {
	return &Job{
		ID:          uuid.NewString(),
		Industry:    req.Industry,
		RecordCount: req.RecordCount,
		Status:      JobStatusPending,
		Request:     &req,
	}
}

// JobStore interface for job persistence
type JobStore interface {
	CreateJob(job *Job) error
	GetJob(id string) (*Job, error)
	UpdateJob(job *Job) error
	ListJobs(filter JobFilter) ([]*Job, error)
	DeleteJob(id string) error
}

// JobFilter for querying jobs
type JobFilter struct {
	Status   JobStatus
	Industry domain.Industry
	Since    time.Time
	Limit    int
}

type jobCleaner interface {
	CleanupOldJobs(olderThan time.Duration) (int, error)
}

// JobQueue runs processing jobs on a fixed pool of workers
type JobQueue struct {
	mu        sync.Mutex
	jobs      chan string
	workers   int
	retention time.Duration
	wg        sync.WaitGroup
	store     JobStore
	runner    Runner
	hub       WebSocketHub
	tracer    *RunTracer
	logger    *slog.Logger
	shutdown  chan struct{}
	stopOnce  sync.Once
	stopped   bool
	active    map[string]context.CancelFunc // running jobs
}

// NewJobQueue creates a new job queue. hub may be nil.
func NewJobQueue(cfg config.ProcessingConfig, store JobStore, runner Runner, hub WebSocketHub, logger *slog.Logger) *JobQueue {
	workers := cfg.QueueWorkers
	if workers <= 0 {
		workers = 4
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = workers * 2
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &JobQueue{
		jobs:      make(chan string, size),
		workers:   workers,
		retention: cfg.JobRetention,
		store:     store,
		runner:    runner,
		hub:       hub,
		tracer:    NoopRunTracer(),
		logger:    logger.With(slog.String("component", "jobqueue")),
		shutdown:  make(chan struct{}),
		active:    make(map[string]context.CancelFunc),
	}
}

// SetTracer records job metrics with t
func (q *JobQueue) SetTracer(t *RunTracer) {
	if t != nil {
		q.tracer = t
	}
}

// Start begins processing jobs
func (q *JobQueue) Start(ctx context.Context) {
	q.logger.Info("starting job queue", slog.Int("workers", q.workers))

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}

	if cleaner, ok := q.store.(jobCleaner); ok && q.retention > 0 {
		q.wg.Add(1)
		go q.cleanup(ctx, cleaner)
	}
}

// Stop gracefully shuts down the job queue. Jobs still running when the
// timeout expires are cancelled.
func (q *JobQueue) Stop(timeout time.Duration) error {
	q.logger.Info("stopping job queue")

	q.stopOnce.Do(func() {
		q.mu.Lock()
		q.stopped = true
		q.mu.Unlock()
		close(q.shutdown)
	})

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("job queue stopped gracefully")
		return nil
	case <-time.After(timeout):
		q.logger.Warn("job queue stop timeout exceeded")
		q.mu.Lock()
		for _, cancel := range q.active {
			cancel()
		}
		q.mu.Unlock()
		return fmt.Errorf("timeout waiting for workers to finish")
	}
}

// Submit creates a job for req and enqueues it
func (q *JobQueue) Submit(req RunRequest) (*Job, error) {
	job := NewJob(req)
	if err := q.Enqueue(job); err != nil {
		return job, err
	}
	return job, nil
}

// Enqueue adds a job to the queue
func (q *JobQueue) Enqueue(job *Job) error {
	q.mu.Lock()
	stopped := q.stopped
	q.mu.Unlock()
	if stopped {
		return ErrQueueStopped
	}

	job.Status = JobStatusPending
	job.CreatedAt = time.Now()
	job.Message = "Waiting for a worker"

	if err := q.store.CreateJob(job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}

	select {
	case q.jobs <- job.ID:
		q.logger.Info("job enqueued",
			slog.String("job_id", job.ID),
			slog.String("industry", string(job.Industry)))
		return nil
	default:
		job.Status = JobStatusFailed
		job.Error = ErrQueueFull.Error()
		now := time.Now()
		job.CompletedAt = &now
		if err := q.store.UpdateJob(job); err != nil {
			q.logger.Error("failed to update rejected job", slog.String("error", err.Error()))
		}
		q.tracer.RecordJob(context.Background(), job.Industry, JobStatusFailed)
		return ErrQueueFull
	}
}

// GetJob retrieves a job by ID
func (q *JobQueue) GetJob(id string) (*Job, error) {
	return q.store.GetJob(id)
}

// CancelJob cancels a pending or running job. A running job stops at its
// next chunk or batch boundary.
func (q *JobQueue) CancelJob(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, err := q.store.GetJob(id)
	if err != nil {
		return err
	}

	switch job.Status {
	case JobStatusPending:
		job.Status = JobStatusCancelled
		job.Message = "Job cancelled"
		now := time.Now()
		job.CompletedAt = &now
		if err := q.store.UpdateJob(job); err != nil {
			return err
		}
		q.tracer.RecordJob(context.Background(), job.Industry, JobStatusCancelled)
		q.broadcast(EventProcessingComplete, job, map[string]interface{}{
			"industry": job.Industry,
		})
		return nil
	case JobStatusRunning:
		if cancel, ok := q.active[id]; ok {
			cancel()
		}
		return nil
	default:
		return fmt.Errorf("%w: job %s is %s", ErrJobFinished, id, job.Status)
	}
}

// ListJobs returns jobs matching the filter
func (q *JobQueue) ListJobs(filter JobFilter) ([]*Job, error) {
	return q.store.ListJobs(filter)
}

// worker processes jobs from the queue
func (q *JobQueue) worker(ctx context.Context, workerID int) {
	defer q.wg.Done()

	logger := q.logger.With(slog.Int("worker_id", workerID))
	logger.Debug("worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug("worker stopped by context")
			return
		case <-q.shutdown:
			logger.Debug("worker stopped by shutdown")
			return
		case id := <-q.jobs:
			q.processJob(ctx, id, logger)
		}
	}
}

// claim marks a pending job as running and registers its cancel func
func (q *JobQueue) claim(ctx context.Context, id string) (*Job, context.Context, context.CancelFunc, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, err := q.store.GetJob(id)
	if err != nil {
		return nil, nil, nil, err
	}
	if job.Status != JobStatusPending {
		return job, nil, nil, nil
	}

	jobCtx, cancel := context.WithCancel(ctx)
	q.active[id] = cancel

	job.Status = JobStatusRunning
	now := time.Now()
	job.StartedAt = &now
	job.Progress = 0
	job.Message = "Job started"
	if err := q.store.UpdateJob(job); err != nil {
		q.logger.Error("failed to update job status", slog.String("error", err.Error()))
	}
	return job, jobCtx, cancel, nil
}

// processJob executes a single job
func (q *JobQueue) processJob(ctx context.Context, id string, logger *slog.Logger) {
	job, jobCtx, cancel, err := q.claim(ctx, id)
	if err != nil {
		logger.Error("failed to load job", slog.String("job_id", id), slog.String("error", err.Error()))
		return
	}
	if jobCtx == nil {
		logger.Debug("skipping job", slog.String("job_id", id), slog.String("status", string(job.Status)))
		return
	}

	if traceID, ok := job.Metadata["trace_id"].(string); ok && traceID != "" {
		jobCtx = infrastructure.WithTraceID(jobCtx, traceID)
	} else {
		jobCtx = infrastructure.EnsureTraceID(jobCtx)
	}

	logger = logger.With(
		slog.String("job_id", job.ID),
		slog.String("industry", string(job.Industry)),
	)
	q.logJobState(jobCtx, job)

	defer func() {
		// Recover from any panics to prevent server crash
		if r := recover(); r != nil {
			logger.Error("job processing panicked", slog.Any("panic", r))
			q.finish(jobCtx, job, JobStatusFailed, fmt.Sprintf("job processing panicked: %v", r))
		}

		cancel()
		q.mu.Lock()
		delete(q.active, job.ID)
		q.mu.Unlock()
	}()

	if job.Request == nil {
		q.finish(jobCtx, job, JobStatusFailed, "job has no run request")
		return
	}

	req := *job.Request
	req.RunID = job.ID
	tracker := NewProgressTracker(job.ID, 100)
	forward := req.OnProgress
	req.OnProgress = func(percent int) {
		tracker.Update(percent, fmt.Sprintf("%d%% processed", percent))
		job.Progress = percent
		job.ETA = tracker.GetETA()
		job.Message = fmt.Sprintf("%d%% processed", percent)
		if err := q.store.UpdateJob(job); err != nil {
			logger.Error("failed to update job progress", slog.String("error", err.Error()))
		}
		q.broadcast(EventProcessingProgress, job, map[string]interface{}{
			"industry": job.Industry,
			"progress": percent,
			"eta":      job.ETA,
		})
		if forward != nil {
			forward(percent)
		}
	}

	result := q.runner.Run(jobCtx, req)
	job.Result = result

	switch {
	case result.Succeeded():
		job.Progress = 100
		job.ETA = ""
		q.finish(jobCtx, job, JobStatusCompleted, "")
	case jobCtx.Err() != nil:
		q.finish(jobCtx, job, JobStatusCancelled, firstError(result))
	default:
		q.finish(jobCtx, job, JobStatusFailed, firstError(result))
	}
}

// finish stores the terminal state of job and announces it
func (q *JobQueue) finish(ctx context.Context, job *Job, status JobStatus, errMsg string) {
	job.Status = status
	job.Error = errMsg
	completedAt := time.Now()
	job.CompletedAt = &completedAt

	switch status {
	case JobStatusCompleted:
		job.Message = "Job completed successfully"
	case JobStatusCancelled:
		job.Message = "Job cancelled"
	default:
		job.Message = "Job failed"
	}

	if err := q.store.UpdateJob(job); err != nil {
		q.logger.Error("failed to update job completion", slog.String("error", err.Error()))
	}
	q.tracer.RecordJob(ctx, job.Industry, status)
	q.logJobState(ctx, job)

	q.broadcast(EventProcessingComplete, job, map[string]interface{}{
		"industry": job.Industry,
		"error":    job.Error,
		"result":   job.Result,
	})
}

func (q *JobQueue) broadcast(eventType string, job *Job, metadata map[string]interface{}) {
	if q.hub == nil {
		return
	}
	q.hub.BroadcastUpdate(eventType, job.ID, string(job.Status), metadata)
}

// cleanup periodically drops finished jobs older than the retention period
func (q *JobQueue) cleanup(ctx context.Context, cleaner jobCleaner) {
	defer q.wg.Done()

	ticker := time.NewTicker(min(q.retention, time.Hour))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.shutdown:
			return
		case <-ticker.C:
			deleted, err := cleaner.CleanupOldJobs(q.retention)
			if err != nil {
				q.logger.Error("job cleanup failed", slog.String("error", err.Error()))
				continue
			}
			if deleted > 0 {
				q.logger.Info("removed finished jobs", slog.Int("count", deleted))
			}
		}
	}
}

// GetQueueStats returns queue statistics
func (q *JobQueue) GetQueueStats() map[string]interface{} {
	q.mu.Lock()
	activeCount := len(q.active)
	q.mu.Unlock()

	return map[string]interface{}{
		"workers":     q.workers,
		"queue_size":  len(q.jobs),
		"queue_cap":   cap(q.jobs),
		"active_jobs": activeCount,
	}
}

func firstError(result *domain.RunResult) string {
	if result == nil || len(result.Errors) == 0 {
		return "run failed"
	}
	return result.Errors[0]
}
