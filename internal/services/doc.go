// Package services holds the operations shared by the batch command and the
// HTTP server.
//
// RateService runs a pass: validate paths, load the table, apply the
// estimator, save atomically, then record metrics and log a summary. It also
// serves single estimates and in-memory table conversions for HTTP uploads.
// HealthService reports liveness and build information.
package services
