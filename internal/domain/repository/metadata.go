package repository

import (
	"context"

	"github.com/ymzk-dev/mediavault/internal/domain/model"
)

// MetadataRepository defines the persistence operations for video metadata.
// Two implementations exist: the embedded SQLite store (primary) and the
// flat-file JSON store (emergency fallback). The persistence gateway selects
// one at startup and never mixes the two within a session.
//
// Every mutation returns the authoritative post-write state so callers can
// report it without a second read.
type MetadataRepository interface {
	// Ratings returns the rating of every rated video.
	Ratings(ctx context.Context) (model.RatingsSnapshot, error)

	// Views returns the view entry of every viewed video.
	Views(ctx context.Context) (model.ViewsSnapshot, error)

	// Tags returns the tag list of every tagged video.
	Tags(ctx context.Context) (model.TagsSnapshot, error)

	// Favorites returns the set of currently favorited videos.
	Favorites(ctx context.Context) (model.FavoritesSnapshot, error)

	// Videos returns every known video record keyed by filename.
	Videos(ctx context.Context) (model.VideosSnapshot, error)

	// SetRating stores a rating for a video, creating the entry on first
	// write. The value must already be validated by the caller.
	SetRating(ctx context.Context, key string, value int) (model.RatingEntry, error)

	// IncrementView increments a video's view count by one and returns the
	// new entry. The count starts at zero for unknown videos.
	IncrementView(ctx context.Context, key string) (model.ViewEntry, error)

	// AddTag associates a normalized tag with a video. Adding an existing
	// tag is a no-op. Returns the video's full tag list after the write.
	AddTag(ctx context.Context, key, tag string) ([]string, error)

	// RemoveTag removes a tag from a video, matching case-insensitively.
	// Returns the video's full tag list after the write.
	RemoveTag(ctx context.Context, key, tag string) ([]string, error)

	// ToggleFavorite flips a video's favorite membership and reports the
	// new state.
	ToggleFavorite(ctx context.Context, key string) (bool, error)

	// UpsertVideo creates or updates a video record.
	UpsertVideo(ctx context.Context, video model.VideoRecord) error

	// RemoveVideo deletes a video record and all of its metadata.
	RemoveVideo(ctx context.Context, key string) error

	// Close releases the underlying store.
	Close() error
}
