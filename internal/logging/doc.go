// Package logging assembles structured slog loggers and formatting helpers
// used across the analysis pipeline.
//
// It owns the console/JSON handler plumbing, centralizes level and output
// wiring, and exposes context-aware helpers so phase code can automatically
// tag log lines with track keys, phase names, and batch identifiers. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
//
// Prefer these constructors over hand-rolled slog setup to ensure new
// components emit data with the same shape and routing as the rest of the
// system.
package logging
