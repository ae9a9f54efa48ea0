// Package repositories implements SQLite persistence for the pipeline's tables.
//
// Key Implementations:
//   - [PlayRepository] : the my_played_tracks destination table, with
//     conflict-tolerant batch loading keyed on played_at
//   - [RunRepository] : the etl_runs ledger recording each pipeline
//     invocation, with soft deletes and atomic sequence generation
//
// Sequence numbers provide stable, human-readable ordering (e.g., run #42)
// independent of UUIDs and creation timestamps. The [NextSequence] function
// atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
