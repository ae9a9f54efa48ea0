package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/playlog/internal/services"
	"github.com/desertthunder/playlog/internal/shared"
)

// Watermark returns the cutoff instant for a run starting at now: local
// midnight of the current day. Only play events strictly after this instant
// count as new for the run.
func Watermark(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// extract fetches one page of play events recorded after the watermark.
//
// A transport failure or a missing payload fails with ErrExtraction; the
// underlying cause stays in the chain so callers can still detect token
// expiry. A page with zero items is a legitimate result, handled by the
// validator's emptiness short-circuit.
func (e *Engine) extract(ctx context.Context, watermark time.Time) (*services.RecentlyPlayedPage, error) {
	page, err := e.source.RecentlyPlayed(ctx, watermark, e.limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrExtraction, err)
	}

	if page == nil {
		return nil, fmt.Errorf("%w: empty response payload", shared.ErrExtraction)
	}

	return page, nil
}
