// Package shared holds helpers used by more than one gfrcli package.
//
// The testutil subpackage provides:
//
//   - A capturing slog handler for asserting on warnings and errors
//   - Fixture writers for small rate-estimator input tables
//
// Nothing here carries estimator logic. Production code must not import testutil.
package shared
