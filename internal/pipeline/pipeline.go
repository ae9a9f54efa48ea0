package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/playlog/internal/models"
	"github.com/desertthunder/playlog/internal/repositories"
	"github.com/desertthunder/playlog/internal/services"
	"github.com/desertthunder/playlog/internal/shared"
)

// defaultPageLimit matches the source API's maximum page size.
const defaultPageLimit = 50

// Result contains all data from one pipeline pass.
type Result struct {
	Records   []models.PlayRecord // Transformed batch, in source order
	Loaded    bool                // Whether the batch reached the store
	Inserted  int                 // Rows newly written this pass
	Conflicts int                 // Rows skipped as already stored
	Run       *models.Run         // Ledger entry for this pass, nil when the ledger is disabled
}

// Engine performs one extract-transform-validate-load pass per Run call.
//
// The run ledger is optional: a nil RunRepository disables it. Ledger write
// failures are logged and never abort the pass.
type Engine struct {
	source services.Source
	plays  *repositories.PlayRepository
	runs   *repositories.RunRepository
	logger *log.Logger
	limit  int
	now    func() time.Time
}

// NewEngine creates an Engine with the provided source and stores.
func NewEngine(source services.Source, plays *repositories.PlayRepository, runs *repositories.RunRepository, logger *log.Logger) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &Engine{
		source: source,
		plays:  plays,
		runs:   runs,
		logger: logger,
		limit:  defaultPageLimit,
		now:    time.Now,
	}
}

// SetPageLimit overrides how many events one extraction page may hold.
// Non-positive values are ignored.
func (e *Engine) SetPageLimit(limit int) {
	if limit > 0 {
		e.limit = limit
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full, skip this update
	}
}

// Run performs a full pipeline pass: extract plays since local midnight,
// transform them into flat records, validate the batch, and load it into
// the store.
//
// An empty batch is a successful no-op pass. Validation failures abort the
// run before any write; the returned Result still carries the transformed
// batch for display. Store-level primary key conflicts are recovered: the
// run completes with the conflict count in the Result.
func (e *Engine) Run(ctx context.Context, progress chan<- ProgressUpdate) (*Result, error) {
	if e.source == nil {
		return nil, fmt.Errorf("%w: play history source not initialized", shared.ErrServiceUnavailable)
	}
	if e.plays == nil {
		return nil, fmt.Errorf("%w: play store not initialized", shared.ErrServiceUnavailable)
	}

	startedAt := e.now()
	run := e.beginRun(startedAt)
	result := &Result{Run: run}

	watermark := Watermark(startedAt)
	e.sendProgress(progress, extractUpdate(watermark))

	page, err := e.extract(ctx, watermark)
	if err != nil {
		e.failRun(run, 0, err)
		return nil, err
	}

	records, err := Transform(page)
	if err != nil {
		e.failRun(run, 0, err)
		return nil, err
	}

	result.Records = records
	e.sendProgress(progress, transformUpdate(records))

	e.sendProgress(progress, validateUpdate(len(records)))

	proceed, err := Validate(records, startedAt)
	if err != nil {
		e.failRun(run, len(records), err)
		return result, err
	}

	if !proceed {
		e.sendProgress(progress, emptyBatchUpdate())
		e.completeRun(run, result)
		return result, nil
	}

	e.sendProgress(progress, loadUpdate(len(records)))

	if err := e.plays.EnsureSchema(); err != nil {
		e.failRun(run, len(records), err)
		return result, err
	}

	inserted, conflicts, err := e.plays.InsertBatch(records)
	if err != nil {
		e.failRun(run, len(records), err)
		return result, err
	}

	result.Loaded = true
	result.Inserted = inserted
	result.Conflicts = conflicts

	if conflicts > 0 {
		e.logger.Warn("Skipped records already present in the store", "conflicts", conflicts)
	}

	e.sendProgress(progress, loadedUpdate(inserted, conflicts))
	e.completeRun(run, result)

	return result, nil
}

// beginRun records a new ledger entry in the running state.
// Returns nil when the ledger is disabled or the write fails.
func (e *Engine) beginRun(startedAt time.Time) *models.Run {
	if e.runs == nil {
		return nil
	}

	run := models.NewRun(0, startedAt)
	if err := e.runs.Create(run); err != nil {
		e.logger.Warn("Failed to record run in ledger", "error", err)
		return nil
	}

	return run
}

// failRun marks the ledger entry as failed with the given error.
func (e *Engine) failRun(run *models.Run, extracted int, runErr error) {
	if run == nil {
		return
	}

	run.SetCounts(extracted, 0, 0)
	run.Fail(e.now(), runErr.Error())

	if err := e.runs.Update(run); err != nil {
		e.logger.Warn("Failed to update run ledger", "error", err)
	}
}

// completeRun marks the ledger entry as completed with the pass counts.
func (e *Engine) completeRun(run *models.Run, result *Result) {
	if run == nil {
		return
	}

	run.SetCounts(len(result.Records), result.Inserted, result.Conflicts)
	run.Complete(e.now())

	if err := e.runs.Update(run); err != nil {
		e.logger.Warn("Failed to update run ledger", "error", err)
	}
}
