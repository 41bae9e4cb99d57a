// Package app wires the estimator web service together: services, HTTP
// handlers, middleware and the http.Server lifecycle.
//
// Middleware order is RequestID, RealIP, OTel, StructuredLogger, Recovery,
// SecurityHeaders. Rate limiting applies to /api/v1 only, so health checks
// and metrics scrapes are never throttled.
//
// # Usage
//
//	app := app.NewApplication(cfg, logger, telemetry)
//	if err := app.ListenAndRun(ctx); err != nil {
//	    return err
//	}
//
// Run returns once ctx is cancelled and in-flight requests have completed or
// the shutdown timeout has passed. Telemetry is shut down by the caller.
package app
