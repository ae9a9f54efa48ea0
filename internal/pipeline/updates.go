package pipeline

import (
	"fmt"
	"time"

	"github.com/desertthunder/playlog/internal/models"
)

// ProgressUpdate represents a progress event during a pipeline pass.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Pipeline phase
	Step    int    // Current step number within the pass
	Total   int    // Total steps in a full pass
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced frontends
}

// Pipeline phase enumeration
type Phase int

const (
	PhaseExtract Phase = iota
	PhaseTransform
	PhaseValidate
	PhaseLoad
)

// totalSteps is the number of stages in a full pass.
const totalSteps = 4

func (p Phase) String() string {
	switch p {
	case PhaseExtract:
		return "extract"
	case PhaseTransform:
		return "transform"
	case PhaseValidate:
		return "validate"
	case PhaseLoad:
		return "load"
	default:
		return ""
	}
}

func extractUpdate(watermark time.Time) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseExtract,
		Step:    1,
		Total:   totalSteps,
		Message: fmt.Sprintf("Fetching plays since %s...", watermark.Format("2006-01-02 15:04 MST")),
	}
}

// transformUpdate carries the transformed batch as Data so frontends can
// render it before validation runs.
func transformUpdate(records []models.PlayRecord) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseTransform,
		Step:    2,
		Total:   totalSteps,
		Message: fmt.Sprintf("Transformed %d play events", len(records)),
		Data:    records,
	}
}

func validateUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseValidate,
		Step:    3,
		Total:   totalSteps,
		Message: fmt.Sprintf("Validating %d records...", count),
	}
}

func emptyBatchUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseValidate,
		Step:    3,
		Total:   totalSteps,
		Message: "No new plays since midnight. Nothing to load.",
	}
}

func loadUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseLoad,
		Step:    4,
		Total:   totalSteps,
		Message: fmt.Sprintf("Loading %d records into my_played_tracks...", count),
	}
}

func loadedUpdate(inserted, conflicts int) ProgressUpdate {
	message := fmt.Sprintf("Loaded %d new records", inserted)
	if conflicts > 0 {
		message = fmt.Sprintf("Loaded %d new records (%d already stored)", inserted, conflicts)
	}

	return ProgressUpdate{
		Phase:   PhaseLoad,
		Step:    4,
		Total:   totalSteps,
		Message: message,
	}
}
