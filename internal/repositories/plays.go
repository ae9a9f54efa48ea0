package repositories

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/desertthunder/playlog/internal/models"
)

// playSchema is the destination table definition. The loader creates the
// table on demand, so this has to stay in sync with the migration in
// shared/sql/0000_create_tables_up.sql.
const playSchema = `
	CREATE TABLE IF NOT EXISTS my_played_tracks(
		song_name VARCHAR(200),
		artist_name VARCHAR(200),
		played_at VARCHAR(200),
		timestamp VARCHAR(200),
		CONSTRAINT primary_key_constraint PRIMARY KEY (played_at)
	)
`

// PlayRepository persists transformed play records into my_played_tracks.
//
// The table is keyed on played_at, so re-loading a batch that was already
// stored surfaces as primary key conflicts rather than duplicate rows.
type PlayRepository struct {
	db *sql.DB
}

// NewPlayRepository creates a new PlayRepository with the given database connection
func NewPlayRepository(db *sql.DB) *PlayRepository {
	return &PlayRepository{db: db}
}

// EnsureSchema creates the destination table if it does not exist yet.
func (r *PlayRepository) EnsureSchema() error {
	if _, err := r.db.Exec(playSchema); err != nil {
		return fmt.Errorf("failed to create my_played_tracks: %w", err)
	}
	return nil
}

// InsertBatch loads records into my_played_tracks inside a single transaction.
//
// Each record is inserted individually. A primary key conflict on played_at
// means the record was loaded by an earlier invocation: the row is skipped
// and counted, and the batch continues. Any other failure aborts the whole
// transaction. Returns how many rows were inserted and how many were skipped
// as conflicts.
func (r *PlayRepository) InsertBatch(records []models.PlayRecord) (int, int, error) {
	if len(records) == 0 {
		return 0, 0, nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO my_played_tracks (song_name, artist_name, played_at, timestamp)
		VALUES (?, ?, ?, ?)
	`

	stmt, err := tx.Prepare(query)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	conflicts := 0

	for _, record := range records {
		_, err := stmt.Exec(record.SongName, record.ArtistName, record.PlayedAt, record.Timestamp)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint") {
				conflicts++
				continue
			}
			return 0, 0, fmt.Errorf("failed to insert play record %s: %w", record.PlayedAt, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit batch: %w", err)
	}

	return inserted, conflicts, nil
}

// Count returns the number of rows in my_played_tracks.
func (r *PlayRepository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM my_played_tracks").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count play records: %w", err)
	}
	return count, nil
}

// List retrieves the most recent play records, newest first.
//
// A non-positive limit returns all rows.
func (r *PlayRepository) List(limit int) ([]models.PlayRecord, error) {
	query := "SELECT song_name, artist_name, played_at, timestamp FROM my_played_tracks ORDER BY played_at DESC"

	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query play records: %w", err)
	}
	defer rows.Close()

	var records []models.PlayRecord
	for rows.Next() {
		var record models.PlayRecord
		if err := rows.Scan(&record.SongName, &record.ArtistName, &record.PlayedAt, &record.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan play record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}
