// Package services defines shared utilities consumed by the analysis phases
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp track keys, phase names, and batch
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that keep failure
//     classification consistent across phase boundaries.
//
// Use these helpers when wiring new phase logic so operational behaviour
// (error handling, observability) stays uniform across the pipeline.
package services
