package repositories

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/desertthunder/playlog/internal/models"
	"github.com/desertthunder/playlog/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

// testBatch builds n records played one minute apart on the given date
func testBatch(day string, n int) []models.PlayRecord {
	records := make([]models.PlayRecord, 0, n)
	for i := 0; i < n; i++ {
		playedAt := fmt.Sprintf("%sT10:%02d:00.000Z", day, i)
		records = append(records, models.PlayRecord{
			SongName:   fmt.Sprintf("Song %d", i),
			ArtistName: "Test Artist",
			PlayedAt:   playedAt,
			Timestamp:  playedAt[:10],
		})
	}
	return records
}

func TestPlayRepository(t *testing.T) {
	t.Run("EnsureSchema", func(t *testing.T) {
		db, err := shared.NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create test database: %v", err)
		}
		defer db.Close()

		repo := NewPlayRepository(db)

		if err := repo.EnsureSchema(); err != nil {
			t.Fatalf("failed to create schema: %v", err)
		}

		if _, _, err := repo.InsertBatch(testBatch("2024-06-15", 1)); err != nil {
			t.Fatalf("table should be usable after EnsureSchema: %v", err)
		}

		if err := repo.EnsureSchema(); err != nil {
			t.Errorf("EnsureSchema should be idempotent: %v", err)
		}

		count, err := repo.Count()
		if err != nil {
			t.Fatalf("failed to count: %v", err)
		}
		if count != 1 {
			t.Errorf("re-running EnsureSchema should not drop rows, got count %d", count)
		}
	})

	t.Run("InsertBatch", func(t *testing.T) {
		t.Run("inserts all new records", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewPlayRepository(db)
			records := testBatch("2024-06-15", 3)

			inserted, conflicts, err := repo.InsertBatch(records)
			if err != nil {
				t.Fatalf("failed to insert batch: %v", err)
			}

			if inserted != 3 {
				t.Errorf("expected 3 inserted, got %d", inserted)
			}
			if conflicts != 0 {
				t.Errorf("expected 0 conflicts, got %d", conflicts)
			}

			count, err := repo.Count()
			if err != nil {
				t.Fatalf("failed to count: %v", err)
			}
			if count != 3 {
				t.Errorf("expected 3 rows, got %d", count)
			}
		})

		t.Run("reloading the same batch only counts conflicts", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewPlayRepository(db)
			records := testBatch("2024-06-15", 3)

			if _, _, err := repo.InsertBatch(records); err != nil {
				t.Fatalf("failed to insert batch: %v", err)
			}

			inserted, conflicts, err := repo.InsertBatch(records)
			if err != nil {
				t.Fatalf("reload should not fail: %v", err)
			}

			if inserted != 0 {
				t.Errorf("expected 0 inserted on reload, got %d", inserted)
			}
			if conflicts != 3 {
				t.Errorf("expected 3 conflicts on reload, got %d", conflicts)
			}

			count, _ := repo.Count()
			if count != 3 {
				t.Errorf("reload should not add rows, got count %d", count)
			}
		})

		t.Run("partial overlap inserts only the new rows", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewPlayRepository(db)

			if _, _, err := repo.InsertBatch(testBatch("2024-06-15", 2)); err != nil {
				t.Fatalf("failed to insert first batch: %v", err)
			}

			inserted, conflicts, err := repo.InsertBatch(testBatch("2024-06-15", 4))
			if err != nil {
				t.Fatalf("failed to insert second batch: %v", err)
			}

			if inserted != 2 {
				t.Errorf("expected 2 inserted, got %d", inserted)
			}
			if conflicts != 2 {
				t.Errorf("expected 2 conflicts, got %d", conflicts)
			}
		})

		t.Run("empty batch is a no-op", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewPlayRepository(db)

			inserted, conflicts, err := repo.InsertBatch(nil)
			if err != nil {
				t.Fatalf("empty batch should not fail: %v", err)
			}
			if inserted != 0 || conflicts != 0 {
				t.Errorf("expected 0/0 for empty batch, got %d/%d", inserted, conflicts)
			}
		})
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewPlayRepository(db)

		if _, _, err := repo.InsertBatch(testBatch("2024-06-15", 5)); err != nil {
			t.Fatalf("failed to insert batch: %v", err)
		}

		records, err := repo.List(0)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(records) != 5 {
			t.Fatalf("expected 5 records, got %d", len(records))
		}

		if records[0].PlayedAt < records[4].PlayedAt {
			t.Error("expected newest record first")
		}

		limited, err := repo.List(2)
		if err != nil {
			t.Fatalf("failed to list with limit: %v", err)
		}
		if len(limited) != 2 {
			t.Errorf("expected 2 records with limit, got %d", len(limited))
		}
	})
}

func TestRunRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		run := models.NewRun(0, time.Now())

		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		if run.ID() == "" {
			t.Error("run ID should be set after creation")
		}

		if run.Sequence() < 1 {
			t.Errorf("run sequence should be assigned, got %d", run.Sequence())
		}
	})

	t.Run("Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		run := models.NewRun(0, time.Now())

		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		retrieved, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}

		if retrieved.ID() != run.ID() {
			t.Errorf("expected ID %s, got %s", run.ID(), retrieved.ID())
		}

		if retrieved.Status() != models.RunStatusRunning {
			t.Errorf("expected status running, got %s", retrieved.Status())
		}

		if retrieved.FinishedAt() != nil {
			t.Error("running run should have no finished_at")
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		run := models.NewRun(0, time.Now())

		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		run.SetCounts(10, 8, 2)
		run.Complete(time.Now())

		if err := repo.Update(run); err != nil {
			t.Fatalf("failed to update run: %v", err)
		}

		retrieved, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}

		if retrieved.Status() != models.RunStatusCompleted {
			t.Errorf("expected status completed, got %s", retrieved.Status())
		}
		if retrieved.Extracted() != 10 || retrieved.Inserted() != 8 || retrieved.Conflicts() != 2 {
			t.Errorf("expected counts 10/8/2, got %d/%d/%d",
				retrieved.Extracted(), retrieved.Inserted(), retrieved.Conflicts())
		}
		if retrieved.FinishedAt() == nil {
			t.Error("completed run should have finished_at")
		}
	})

	t.Run("Failed Run Round Trip", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		run := models.NewRun(0, time.Now())

		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		run.Fail(time.Now(), "primary key check violated")

		if err := repo.Update(run); err != nil {
			t.Fatalf("failed to update run: %v", err)
		}

		retrieved, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}

		if retrieved.Status() != models.RunStatusFailed {
			t.Errorf("expected status failed, got %s", retrieved.Status())
		}
		if retrieved.ErrorMessage() != "primary key check violated" {
			t.Errorf("unexpected error message %q", retrieved.ErrorMessage())
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		run := models.NewRun(0, time.Now())

		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		if err := repo.Delete(run.ID()); err != nil {
			t.Fatalf("failed to delete run: %v", err)
		}

		_, err := repo.Get(run.ID())
		if err == nil {
			t.Error("expected error when getting deleted run")
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)

		for i := 0; i < 3; i++ {
			run := models.NewRun(0, time.Now())
			if err := repo.Create(run); err != nil {
				t.Fatalf("failed to create run: %v", err)
			}

			if i == 0 {
				run.Fail(time.Now(), "boom")
				if err := repo.Update(run); err != nil {
					t.Fatalf("failed to update run: %v", err)
				}
			}
		}

		runs, err := repo.List(map[string]any{})
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 3 {
			t.Fatalf("expected 3 runs, got %d", len(runs))
		}

		if runs[0].Sequence() < runs[2].Sequence() {
			t.Error("expected newest run first")
		}

		failed, err := repo.List(map[string]any{"status": models.RunStatusFailed})
		if err != nil {
			t.Fatalf("failed to list failed runs: %v", err)
		}
		if len(failed) != 1 {
			t.Errorf("expected 1 failed run, got %d", len(failed))
		}

		limited, err := repo.List(map[string]any{"limit": 2})
		if err != nil {
			t.Fatalf("failed to list with limit: %v", err)
		}
		if len(limited) != 2 {
			t.Errorf("expected 2 runs with limit, got %d", len(limited))
		}
	})
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	first, err := NextSequence(db, "etl_runs")
	if err != nil {
		t.Fatalf("failed to get sequence: %v", err)
	}
	if first != 1 {
		t.Errorf("expected first sequence 1, got %d", first)
	}

	second, err := NextSequence(db, "etl_runs")
	if err != nil {
		t.Fatalf("failed to get sequence: %v", err)
	}
	if second != first+1 {
		t.Errorf("expected sequence %d, got %d", first+1, second)
	}
}
