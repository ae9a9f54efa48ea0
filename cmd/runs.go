package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/playlog/internal/formatter"
	"github.com/desertthunder/playlog/internal/models"
	"github.com/desertthunder/playlog/internal/repositories"
	"github.com/desertthunder/playlog/internal/shared"
	"github.com/urfave/cli/v3"
)

// runLedgerEntry is the JSON shape of one recorded run.
type runLedgerEntry struct {
	Sequence   int        `json:"sequence"`
	Status     string     `json:"status"`
	Extracted  int        `json:"extracted"`
	Inserted   int        `json:"inserted"`
	Conflicts  int        `json:"conflicts"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}

func newRunLedgerEntry(run *models.Run) runLedgerEntry {
	return runLedgerEntry{
		Sequence:   run.Sequence(),
		Status:     run.Status(),
		Extracted:  run.Extracted(),
		Inserted:   run.Inserted(),
		Conflicts:  run.Conflicts(),
		StartedAt:  run.StartedAt(),
		FinishedAt: run.FinishedAt(),
		Error:      run.ErrorMessage(),
	}
}

// Runs lists recorded pipeline runs, newest first.
func (r *Runner) Runs(ctx context.Context, cmd *cli.Command) error {
	limit := int(cmd.Int("limit"))
	status := cmd.String("status")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	config := r.ensureConfig(cmd)

	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	criteria := map[string]any{}
	if status != "" {
		criteria["status"] = status
	}
	if limit > 0 {
		criteria["limit"] = limit
	}

	runs, err := repositories.NewRunRepository(db).List(criteria)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if useJSON {
		entries := make([]runLedgerEntry, 0, len(runs))
		for _, run := range runs {
			entries = append(entries, newRunLedgerEntry(run))
		}
		return r.writeJSON(entries, pretty)
	}

	if len(runs) == 0 {
		return r.writePlain("No runs recorded yet.\n")
	}

	return r.writePlain("%s", formatter.RunsTable(runs))
}
