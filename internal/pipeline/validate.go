package pipeline

import (
	"fmt"
	"time"

	"github.com/desertthunder/playlog/internal/models"
	"github.com/desertthunder/playlog/internal/shared"
)

// Validate gates a batch before any write is attempted.
//
// Checks run in a fixed order and the first violation aborts the whole batch:
//
//  1. An empty batch returns (false, nil): nothing to do, not an error.
//  2. All played_at values must be pairwise distinct (ErrPrimaryKey).
//  3. No field of any record may be empty (ErrNullValues).
//  4. Every record's timestamp must equal today's local date (ErrInvalidTimestamp).
//
// The boolean reports whether the loader should run; it is true only for a
// non-empty batch that passed every check.
func Validate(records []models.PlayRecord, today time.Time) (bool, error) {
	if len(records) == 0 {
		return false, nil
	}

	seen := make(map[string]struct{}, len(records))
	for _, record := range records {
		if _, dup := seen[record.PlayedAt]; dup {
			return false, fmt.Errorf("%w: played_at %s appears more than once", shared.ErrPrimaryKey, record.PlayedAt)
		}
		seen[record.PlayedAt] = struct{}{}
	}

	for i, record := range records {
		if record.SongName == "" || record.ArtistName == "" || record.PlayedAt == "" || record.Timestamp == "" {
			return false, fmt.Errorf("%w: record %d (played_at %s)", shared.ErrNullValues, i, record.PlayedAt)
		}
	}

	date := today.Format("2006-01-02")
	for _, record := range records {
		if record.Timestamp != date {
			return false, fmt.Errorf("%w: %s is not from %s", shared.ErrInvalidTimestamp, record.Timestamp, date)
		}
	}

	return true, nil
}
