// Package http implements the HTTP handlers of the estimator web service.
// Handlers stay thin: they decode and validate requests, delegate to the
// services layer and render results. Every error is rendered as RFC 7807
// problem details through the shared errors.ErrorHandler.
//
// Routes:
//
//	POST /api/v1/estimate  JSON sample in, {"rate": ..., "trace_id": ...} out
//	POST /api/v1/tables    CSV table in, CSV table with GMR Pre and GMR Post out
//	GET  /api/health       liveness and runtime details
//	GET  /api/version      build and runtime information
package http
