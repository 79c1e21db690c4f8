package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ymzk-dev/mediavault/internal/domain/model"
	"github.com/ymzk-dev/mediavault/internal/domain/repository"
)

// Compile-time verification that Store implements repository.MetadataRepository.
var _ repository.MetadataRepository = (*Store)(nil)

// Ratings returns the rating of every rated video.
func (s *Store) Ratings(ctx context.Context) (model.RatingsSnapshot, error) {
	const query = `SELECT filename, rating, updated_at FROM ratings`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query ratings: %w", err)
	}
	defer rows.Close()

	snapshot := make(model.RatingsSnapshot)
	for rows.Next() {
		var (
			filename  string
			value     int
			updatedAt time.Time
		)
		if err := rows.Scan(&filename, &value, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		snapshot[filename] = model.RatingEntry{Value: value, UpdatedAt: updatedAt}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ratings: %w", err)
	}

	return snapshot, nil
}

// Views returns the view entry of every viewed video.
func (s *Store) Views(ctx context.Context) (model.ViewsSnapshot, error) {
	const query = `SELECT filename, view_count, last_viewed FROM views`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query views: %w", err)
	}
	defer rows.Close()

	snapshot := make(model.ViewsSnapshot)
	for rows.Next() {
		var (
			filename   string
			count      int64
			lastViewed time.Time
		)
		if err := rows.Scan(&filename, &count, &lastViewed); err != nil {
			return nil, fmt.Errorf("scan view: %w", err)
		}
		snapshot[filename] = model.ViewEntry{Count: count, LastViewedAt: lastViewed}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate views: %w", err)
	}

	return snapshot, nil
}

// Tags returns the tag list of every tagged video.
func (s *Store) Tags(ctx context.Context) (model.TagsSnapshot, error) {
	const query = `SELECT filename, tag FROM video_tags ORDER BY filename, tag`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	snapshot := make(model.TagsSnapshot)
	for rows.Next() {
		var filename, tag string
		if err := rows.Scan(&filename, &tag); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		snapshot[filename] = append(snapshot[filename], tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}

	return snapshot, nil
}

// Favorites returns the set of currently favorited videos.
func (s *Store) Favorites(ctx context.Context) (model.FavoritesSnapshot, error) {
	const query = `SELECT filename FROM favorites`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query favorites: %w", err)
	}
	defer rows.Close()

	snapshot := make(model.FavoritesSnapshot)
	for rows.Next() {
		var filename string
		if err := rows.Scan(&filename); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		snapshot[filename] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate favorites: %w", err)
	}

	return snapshot, nil
}

// Videos returns every known video record keyed by filename.
func (s *Store) Videos(ctx context.Context) (model.VideosSnapshot, error) {
	const query = `SELECT filename, file_size, duration_seconds, added_at FROM videos`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	snapshot := make(model.VideosSnapshot)
	for rows.Next() {
		var (
			filename string
			size     int64
			seconds  float64
			addedAt  time.Time
		)
		if err := rows.Scan(&filename, &size, &seconds, &addedAt); err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		snapshot[filename] = model.VideoRecord{
			Filename: filename,
			Size:     size,
			Duration: time.Duration(seconds * float64(time.Second)),
			AddedAt:  addedAt,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}

	return snapshot, nil
}

// SetRating upserts a video's rating. The entry is created implicitly on
// first write.
func (s *Store) SetRating(ctx context.Context, key string, value int) (model.RatingEntry, error) {
	const query = `
		INSERT INTO ratings (filename, rating, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(filename) DO UPDATE SET
			rating = excluded.rating,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx, query, key, value, now); err != nil {
		return model.RatingEntry{}, fmt.Errorf("upsert rating: %w", err)
	}

	return model.RatingEntry{Value: value, UpdatedAt: now}, nil
}

// IncrementView bumps a video's view count by one and returns the new entry.
func (s *Store) IncrementView(ctx context.Context, key string) (model.ViewEntry, error) {
	const query = `
		INSERT INTO views (filename, view_count, last_viewed)
		VALUES (?, 1, ?)
		ON CONFLICT(filename) DO UPDATE SET
			view_count = view_count + 1,
			last_viewed = excluded.last_viewed
		RETURNING view_count, last_viewed
	`

	var (
		count      int64
		lastViewed time.Time
	)
	if err := s.db.QueryRowContext(ctx, query, key, time.Now().UTC()).Scan(&count, &lastViewed); err != nil {
		return model.ViewEntry{}, fmt.Errorf("increment view: %w", err)
	}

	return model.ViewEntry{Count: count, LastViewedAt: lastViewed}, nil
}

// AddTag associates a tag with a video. The NOCASE unique constraint makes
// duplicate tags a silent no-op.
func (s *Store) AddTag(ctx context.Context, key, tag string) ([]string, error) {
	const query = `INSERT OR IGNORE INTO video_tags (filename, tag) VALUES (?, ?)`

	if _, err := s.db.ExecContext(ctx, query, key, tag); err != nil {
		return nil, fmt.Errorf("insert tag: %w", err)
	}

	return s.videoTags(ctx, key)
}

// RemoveTag removes a tag from a video, matching case-insensitively.
func (s *Store) RemoveTag(ctx context.Context, key, tag string) ([]string, error) {
	const query = `DELETE FROM video_tags WHERE filename = ? AND tag = ?`

	res, err := s.db.ExecContext(ctx, query, key, tag)
	if err != nil {
		return nil, fmt.Errorf("delete tag: %w", err)
	}

	tags, err := s.videoTags(ctx, key)
	if err != nil {
		return nil, err
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 && len(tags) == 0 {
		return nil, repository.ErrVideoNotFound
	}

	return tags, nil
}

// ToggleFavorite flips favorite membership inside a transaction so
// concurrent toggles cannot double-insert.
func (s *Store) ToggleFavorite(ctx context.Context, key string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin toggle favorite: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM favorites WHERE filename = ?`, key).Scan(&exists)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx, `INSERT INTO favorites (filename) VALUES (?)`, key); err != nil {
			return false, fmt.Errorf("insert favorite: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return false, fmt.Errorf("commit toggle favorite: %w", err)
		}
		return true, nil
	case err != nil:
		return false, fmt.Errorf("check favorite: %w", err)
	default:
		if _, err := tx.ExecContext(ctx, `DELETE FROM favorites WHERE filename = ?`, key); err != nil {
			return false, fmt.Errorf("delete favorite: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return false, fmt.Errorf("commit toggle favorite: %w", err)
		}
		return false, nil
	}
}

// UpsertVideo creates or updates a video record.
func (s *Store) UpsertVideo(ctx context.Context, video model.VideoRecord) error {
	const query = `
		INSERT INTO videos (filename, file_size, duration_seconds, added_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(filename) DO UPDATE SET
			file_size = excluded.file_size,
			duration_seconds = excluded.duration_seconds
	`

	_, err := s.db.ExecContext(ctx, query,
		video.Filename,
		video.Size,
		video.Duration.Seconds(),
		video.AddedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert video: %w", err)
	}

	return nil
}

// RemoveVideo deletes a video record and all of its metadata.
func (s *Store) RemoveVideo(ctx context.Context, key string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin remove video: %w", err)
	}
	defer tx.Rollback()

	for _, query := range []string{
		`DELETE FROM ratings WHERE filename = ?`,
		`DELETE FROM views WHERE filename = ?`,
		`DELETE FROM video_tags WHERE filename = ?`,
		`DELETE FROM favorites WHERE filename = ?`,
		`DELETE FROM videos WHERE filename = ?`,
	} {
		if _, err := tx.ExecContext(ctx, query, key); err != nil {
			return fmt.Errorf("remove video metadata: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit remove video: %w", err)
	}

	return nil
}

func (s *Store) videoTags(ctx context.Context, key string) ([]string, error) {
	const query = `SELECT tag FROM video_tags WHERE filename = ? ORDER BY tag`

	rows, err := s.db.QueryContext(ctx, query, key)
	if err != nil {
		return nil, fmt.Errorf("query video tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("scan video tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate video tags: %w", err)
	}

	return tags, nil
}
