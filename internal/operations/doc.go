// Package operations runs processing work on behalf of callers.
//
// The Orchestrator turns a RunRequest into a single run: it picks the
// industry handler, supplies the records (or generates synthetic ones),
// forwards progress and returns a RunResult. A run never panics or returns
// an error to its caller; failures are reported as a failed RunResult whose
// Errors start with a summary message and, for validation failures, list
// every rejected record.
//
// The JobQueue executes the same requests asynchronously on a worker pool.
// Jobs live in a JobStore (MemoryJobStore in production), report progress
// with an ETA, broadcast progress and completion events through a
// WebSocketHub, and can be cancelled while pending or running.
//
// RunTracer wires runs and jobs into OpenTelemetry: one span per run plus
// the processing counters and histograms exported at /metrics.
package operations
