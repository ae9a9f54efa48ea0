// Package pipeline orchestrates the extract-transform-validate-load pass over
// a user's play history, with real-time progress reporting.
//
// # Stages
//
// One [Engine.Run] call performs four stages in a fixed order, each consuming
// only its predecessor's output:
//
//  1. Extract : fetch raw play events since local midnight
//     - Computes the watermark (start of the current local day)
//     - Fetches a single page from the configured [services.Source]
//     - A transport failure or missing payload fails with [shared.ErrExtraction]
//
//  2. Transform : project raw events into flat records
//     - One [models.PlayRecord] per event, in source order
//     - Artist is the first album artist; timestamp is the date prefix of played_at
//
//  3. Validate : gate the batch before any write
//     - Empty batch short-circuits the pass without error
//     - Duplicate played_at, empty fields, or stale dates abort the run
//
//  4. Load : idempotently append to my_played_tracks
//     - Primary key conflicts mean the record was stored by an earlier run;
//       they are logged and skipped, never fatal
//
// # Progress Reporting
//
// All stages emit non-blocking [ProgressUpdate] events carrying phase, step
// counters, and messages. Updates use select with default to prevent blocking.
// The transform update carries the full batch as Data so frontends can render
// it before validation runs.
//
// # Run Ledger
//
// When constructed with a [repositories.RunRepository], the engine records
// each pass in the etl_runs table: created in the running state before
// extraction, then marked completed or failed with stage counts. Ledger
// writes are best-effort; a ledger failure never fails the pipeline.
package pipeline
