// Package services defines shared utilities consumed by the upload pipeline
// and its remote integrations.
//
// Key responsibilities:
//   - Context helpers that stamp queue item IDs, batch IDs, pipeline steps, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures as
//     allocation, transient, logical, or local I/O problems.
//
// Use these helpers when wiring new pipeline steps so operational behaviour
// (error reporting, observability) stays uniform.
package services
