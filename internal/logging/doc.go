// Package logging assembles structured slog loggers and formatting helpers
// used across the publish pipeline.
//
// It owns the configurable console/JSON handlers, centralizes level and
// output plumbing, and exposes context-aware helpers so plugin code can
// automatically tag log lines with the executing phase, item, plugin, and
// run correlation ID. The package also provides a no-op logger for tests and
// wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits data with the same shape and routing guarantees.
package logging
