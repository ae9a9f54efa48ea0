package pipeline

import (
	"fmt"

	"github.com/desertthunder/playlog/internal/models"
	"github.com/desertthunder/playlog/internal/services"
)

// Transform projects each raw play event into exactly one PlayRecord.
//
// Items are processed in source order, which the API delivers chronologically;
// the order is preserved, never re-sorted. The artist is the first listed
// album artist and the timestamp is the ten character date prefix of
// played_at. No validation happens here: structurally broken items fail with
// a plain error naming the item position.
func Transform(page *services.RecentlyPlayedPage) ([]models.PlayRecord, error) {
	records := make([]models.PlayRecord, 0, len(page.Items))

	for i, item := range page.Items {
		if len(item.Track.Album.Artists) == 0 {
			return nil, fmt.Errorf("item %d: track %q has no album artists", i, item.Track.Name)
		}

		if len(item.PlayedAt) < 10 {
			return nil, fmt.Errorf("item %d: malformed played_at %q", i, item.PlayedAt)
		}

		records = append(records, models.PlayRecord{
			SongName:   item.Track.Name,
			ArtistName: item.Track.Album.Artists[0],
			PlayedAt:   item.PlayedAt,
			Timestamp:  item.PlayedAt[:10],
		})
	}

	return records, nil
}
