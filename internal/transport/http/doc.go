// Package http implements the HTTP handlers of the bizpulse service. Handlers
// decode and validate requests, call into the operations layer and render
// results with go-chi/render.
//
// # Endpoints
//
//	POST   /api/processing/runs             run synchronously, respond with the RunResult
//	POST   /api/processing/jobs             enqueue a run, respond 202 with the job
//	GET    /api/processing/jobs             list jobs (status, industry, limit)
//	GET    /api/processing/jobs/{id}        job state, progress and result
//	DELETE /api/processing/jobs/{id}        cancel a pending or running job
//	POST   /api/utilities/redact            redact free text
//	POST   /api/utilities/mask              mask sensitive record fields
//	POST   /api/utilities/inventory-alerts  out-of-stock and low-stock product ids
//	POST   /api/utilities/anonymize         anonymize patient data
//	GET    /healthz                         health, version and runtime stats
//	GET    /metrics                         Prometheus scrape endpoint
//
// # Error Handling
//
// Every error response is an RFC 7807 problem rendered by
// internal/errors.ErrorHandler. A synchronous run that fails answers 422
// with the partial RunResult under the "result" member:
//
//	{
//	    "type": "/errors/processing/run-failed",
//	    "title": "Run Failed",
//	    "status": 422,
//	    "detail": "[validation] banking: validation failed with 1 errors",
//	    "instance": "/api/processing/runs",
//	    "result": {...}
//	}
package http
