// package models defines the data model for the play history ETL pipeline
package models

import (
	"fmt"
	"time"
)

// Model defines the base interface for all persistent models in the pipeline.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// PlayRecord is the canonical transformed unit of the pipeline: one play
// event flattened from the raw service payload, keyed by PlayedAt.
type PlayRecord struct {
	SongName   string `json:"song_name"`
	ArtistName string `json:"artist_name"`
	PlayedAt   string `json:"played_at"` // full ISO-8601 timestamp, primary key
	Timestamp  string `json:"timestamp"` // first ten characters of PlayedAt (YYYY-MM-DD)
}

// Run status values for the pipeline run ledger.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run is a persistent record of one pipeline invocation.
//
// Tracks the lifecycle of a single extract-transform-validate-load pass:
// when it started, how it finished, and how many records moved.
type Run struct {
	id           string
	sequence     int
	status       string
	extracted    int
	inserted     int
	conflicts    int
	errorMessage string
	startedAt    time.Time
	finishedAt   *time.Time
	createdAt    time.Time
	updatedAt    time.Time
	deletedAt    *time.Time
}

// NewRun creates a run in the running state.
//
// The ID and sequence are assigned by the repository on Create.
func NewRun(sequence int, startedAt time.Time) *Run {
	now := time.Now()
	return &Run{
		sequence:  sequence,
		status:    RunStatusRunning,
		startedAt: startedAt,
		createdAt: now,
		updatedAt: now,
	}
}

func (r *Run) ID() string             { return r.id }
func (r *Run) Sequence() int          { return r.sequence }
func (r *Run) Status() string         { return r.status }
func (r *Run) Extracted() int         { return r.extracted }
func (r *Run) Inserted() int          { return r.inserted }
func (r *Run) Conflicts() int         { return r.conflicts }
func (r *Run) ErrorMessage() string   { return r.errorMessage }
func (r *Run) StartedAt() time.Time   { return r.startedAt }
func (r *Run) FinishedAt() *time.Time { return r.finishedAt }
func (r *Run) CreatedAt() time.Time   { return r.createdAt }
func (r *Run) UpdatedAt() time.Time   { return r.updatedAt }
func (r *Run) DeletedAt() *time.Time  { return r.deletedAt }

func (r *Run) SetID(id string)            { r.id = id }
func (r *Run) SetSequence(sequence int)   { r.sequence = sequence }
func (r *Run) SetStatus(status string)    { r.status = status }
func (r *Run) SetErrorMessage(msg string) { r.errorMessage = msg }
func (r *Run) SetStartedAt(t time.Time)   { r.startedAt = t }
func (r *Run) SetFinishedAt(t *time.Time) { r.finishedAt = t }
func (r *Run) SetCreatedAt(t time.Time)   { r.createdAt = t }
func (r *Run) SetUpdatedAt(t time.Time)   { r.updatedAt = t }
func (r *Run) SetDeletedAt(t *time.Time)  { r.deletedAt = t }

// SetCounts records how many records each stage handled.
func (r *Run) SetCounts(extracted, inserted, conflicts int) {
	r.extracted = extracted
	r.inserted = inserted
	r.conflicts = conflicts
}

// Complete marks the run as finished successfully at t.
func (r *Run) Complete(t time.Time) {
	r.status = RunStatusCompleted
	r.finishedAt = &t
}

// Fail marks the run as failed at t with the given error message.
func (r *Run) Fail(t time.Time, msg string) {
	r.status = RunStatusFailed
	r.errorMessage = msg
	r.finishedAt = &t
}

// Validate checks if the run's data is valid.
func (r *Run) Validate() error {
	switch r.status {
	case RunStatusRunning, RunStatusCompleted, RunStatusFailed:
	default:
		return fmt.Errorf("invalid run status %q", r.status)
	}

	if r.startedAt.IsZero() {
		return fmt.Errorf("run started_at must be set")
	}

	if r.extracted < 0 || r.inserted < 0 || r.conflicts < 0 {
		return fmt.Errorf("run counts must not be negative")
	}

	return nil
}
