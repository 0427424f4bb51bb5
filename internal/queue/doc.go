// Package queue persists the analysis ledger: one row per submitted track
// with per-phase statuses and timestamps, backed by SQLite.
//
// The ledger is observational. The scheduler records transitions here so
// `rhythm queue` can show what happened across runs, but scheduler
// correctness never depends on a ledger write succeeding.
package queue
