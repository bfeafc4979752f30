// Package app wires the processing engine, job queue, websocket hub and
// HTTP API into a single runnable service.
//
// # Initialization Flow
//
//	1. Build the logger and OpenTelemetry providers from configuration
//	2. Create the orchestrator, job store, job queue and websocket hub
//	3. Mount handlers and middleware on a chi router
//	4. Configure the HTTP server
//
// # Usage
//
//	application, err := app.NewApplication(cfg, logger)
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
//
// # Graceful Shutdown
//
// Run stops on SIGINT or SIGTERM. Stop drains in-flight requests, gives
// running jobs the configured shutdown timeout to finish, closes websocket
// clients and flushes telemetry.
package app
