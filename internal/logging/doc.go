// Package logging assembles structured slog loggers used across jobmedia.
//
// It owns the console and JSON handlers, maps config levels and outputs onto
// them, and exposes context-aware helpers so pipeline code tags every line with
// the queued image, batch, and pipeline step it concerns. A no-op logger is
// provided for tests and wiring code that cannot fail.
package logging
