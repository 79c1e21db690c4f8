// Package flatfile implements the metadata repository on plain JSON files.
// It is the emergency fallback used when the SQLite store cannot be opened:
// reads parse the relevant file in full and writes rewrite it in full, so it
// is a degraded path, not a supported steady state. The same files double as
// backup snapshots written opportunistically while the primary store is
// healthy.
package flatfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/ymzk-dev/mediavault/internal/domain/model"
	"github.com/ymzk-dev/mediavault/internal/domain/repository"
)

const (
	ratingsFile   = "ratings.json"
	viewsFile     = "views.json"
	tagsFile      = "tags.json"
	favoritesFile = "favorites.json"
	videosFile    = "videos.json"
)

// favoritesDoc is the on-disk shape of favorites.json.
type favoritesDoc struct {
	Favorites []string `json:"favorites"`
}

// videoDoc is the on-disk shape of one videos.json entry.
type videoDoc struct {
	Size            int64     `json:"size"`
	DurationSeconds float64   `json:"duration_seconds"`
	AddedAt         time.Time `json:"added_at"`
}

// Store persists metadata as whole JSON files under a single directory.
// One mutex serializes every read-modify-write cycle.
type Store struct {
	dir string
	mu  sync.Mutex
}

// Compile-time verification that Store implements repository.MetadataRepository.
var _ repository.MetadataRepository = (*Store)(nil)

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create fallback directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Ratings parses ratings.json in full.
func (s *Store) Ratings(ctx context.Context) (model.RatingsSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadRatings()
}

// Views parses views.json in full.
func (s *Store) Views(ctx context.Context) (model.ViewsSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadViews()
}

// Tags parses tags.json in full.
func (s *Store) Tags(ctx context.Context) (model.TagsSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadTags()
}

// Favorites parses favorites.json in full.
func (s *Store) Favorites(ctx context.Context) (model.FavoritesSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadFavorites()
}

// Videos parses videos.json in full.
func (s *Store) Videos(ctx context.Context) (model.VideosSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadVideos()
}

// SetRating rewrites ratings.json with the updated value.
func (s *Store) SetRating(ctx context.Context, key string, value int) (model.RatingEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ratings, err := s.loadRatings()
	if err != nil {
		return model.RatingEntry{}, err
	}

	entry := model.RatingEntry{Value: value, UpdatedAt: time.Now().UTC()}
	ratings[key] = entry

	if err := s.saveRatings(ratings); err != nil {
		return model.RatingEntry{}, err
	}
	return entry, nil
}

// IncrementView rewrites views.json with the incremented count.
func (s *Store) IncrementView(ctx context.Context, key string) (model.ViewEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	views, err := s.loadViews()
	if err != nil {
		return model.ViewEntry{}, err
	}

	entry := model.ViewEntry{
		Count:        views[key].Count + 1,
		LastViewedAt: time.Now().UTC(),
	}
	views[key] = entry

	if err := s.saveViews(views); err != nil {
		return model.ViewEntry{}, err
	}
	return entry, nil
}

// AddTag rewrites tags.json with the tag appended, skipping duplicates
// case-insensitively.
func (s *Store) AddTag(ctx context.Context, key, tag string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tags, err := s.loadTags()
	if err != nil {
		return nil, err
	}

	current := tags[key]
	if !model.ContainsTag(current, tag) {
		current = append(current, tag)
		tags[key] = current
		if err := s.saveTags(tags); err != nil {
			return nil, err
		}
	}

	return append([]string(nil), current...), nil
}

// RemoveTag rewrites tags.json with the tag removed.
func (s *Store) RemoveTag(ctx context.Context, key, tag string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tags, err := s.loadTags()
	if err != nil {
		return nil, err
	}

	current, ok := tags[key]
	if !ok {
		return nil, repository.ErrVideoNotFound
	}

	remaining := current[:0:0]
	for _, t := range current {
		if !model.ContainsTag([]string{tag}, t) {
			remaining = append(remaining, t)
		}
	}

	if len(remaining) == 0 {
		delete(tags, key)
	} else {
		tags[key] = remaining
	}
	if err := s.saveTags(tags); err != nil {
		return nil, err
	}

	return append([]string(nil), remaining...), nil
}

// ToggleFavorite rewrites favorites.json with membership flipped.
func (s *Store) ToggleFavorite(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	favorites, err := s.loadFavorites()
	if err != nil {
		return false, err
	}

	favorited := !favorites.Has(key)
	if favorited {
		favorites[key] = struct{}{}
	} else {
		delete(favorites, key)
	}

	if err := s.saveFavorites(favorites); err != nil {
		return false, err
	}
	return favorited, nil
}

// UpsertVideo rewrites videos.json with the record added or replaced.
func (s *Store) UpsertVideo(ctx context.Context, video model.VideoRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	videos, err := s.loadVideos()
	if err != nil {
		return err
	}
	videos[video.Filename] = video
	return s.saveVideos(videos)
}

// RemoveVideo drops the key from every file that mentions it.
func (s *Store) RemoveVideo(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ratings, err := s.loadRatings()
	if err != nil {
		return err
	}
	views, err := s.loadViews()
	if err != nil {
		return err
	}
	tags, err := s.loadTags()
	if err != nil {
		return err
	}
	favorites, err := s.loadFavorites()
	if err != nil {
		return err
	}
	videos, err := s.loadVideos()
	if err != nil {
		return err
	}

	delete(ratings, key)
	delete(views, key)
	delete(tags, key)
	delete(favorites, key)
	delete(videos, key)

	return s.writeAllLocked(ratings, views, tags, favorites, videos)
}

// WriteAll replaces every flat file with the given snapshots. Used by the
// persistence gateway to take backup snapshots while running in primary mode.
func (s *Store) WriteAll(
	ctx context.Context,
	ratings model.RatingsSnapshot,
	views model.ViewsSnapshot,
	tags model.TagsSnapshot,
	favorites model.FavoritesSnapshot,
	videos model.VideosSnapshot,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeAllLocked(ratings, views, tags, favorites, videos)
}

// Close is a no-op; flat files hold no open handles between operations.
func (s *Store) Close() error {
	return nil
}

func (s *Store) writeAllLocked(
	ratings model.RatingsSnapshot,
	views model.ViewsSnapshot,
	tags model.TagsSnapshot,
	favorites model.FavoritesSnapshot,
	videos model.VideosSnapshot,
) error {
	if err := s.saveRatings(ratings); err != nil {
		return err
	}
	if err := s.saveViews(views); err != nil {
		return err
	}
	if err := s.saveTags(tags); err != nil {
		return err
	}
	if err := s.saveFavorites(favorites); err != nil {
		return err
	}
	return s.saveVideos(videos)
}

// The on-disk formats match the original emergency files: ratings and views
// are plain filename->number maps, so per-entry timestamps do not survive a
// round trip through fallback storage.

func (s *Store) loadRatings() (model.RatingsSnapshot, error) {
	raw := make(map[string]int)
	if err := s.loadJSON(ratingsFile, &raw); err != nil {
		return nil, err
	}
	snapshot := make(model.RatingsSnapshot, len(raw))
	for key, value := range raw {
		snapshot[key] = model.RatingEntry{Value: value}
	}
	return snapshot, nil
}

func (s *Store) saveRatings(snapshot model.RatingsSnapshot) error {
	raw := make(map[string]int, len(snapshot))
	for key, entry := range snapshot {
		raw[key] = entry.Value
	}
	return s.saveJSON(ratingsFile, raw)
}

func (s *Store) loadViews() (model.ViewsSnapshot, error) {
	raw := make(map[string]int64)
	if err := s.loadJSON(viewsFile, &raw); err != nil {
		return nil, err
	}
	snapshot := make(model.ViewsSnapshot, len(raw))
	for key, count := range raw {
		snapshot[key] = model.ViewEntry{Count: count}
	}
	return snapshot, nil
}

func (s *Store) saveViews(snapshot model.ViewsSnapshot) error {
	raw := make(map[string]int64, len(snapshot))
	for key, entry := range snapshot {
		raw[key] = entry.Count
	}
	return s.saveJSON(viewsFile, raw)
}

func (s *Store) loadTags() (model.TagsSnapshot, error) {
	snapshot := make(model.TagsSnapshot)
	if err := s.loadJSON(tagsFile, &snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (s *Store) saveTags(snapshot model.TagsSnapshot) error {
	return s.saveJSON(tagsFile, snapshot)
}

func (s *Store) loadFavorites() (model.FavoritesSnapshot, error) {
	var doc favoritesDoc
	if err := s.loadJSON(favoritesFile, &doc); err != nil {
		return nil, err
	}
	snapshot := make(model.FavoritesSnapshot, len(doc.Favorites))
	for _, key := range doc.Favorites {
		snapshot[key] = struct{}{}
	}
	return snapshot, nil
}

func (s *Store) saveFavorites(snapshot model.FavoritesSnapshot) error {
	return s.saveJSON(favoritesFile, favoritesDoc{Favorites: snapshot.Sorted()})
}

func (s *Store) loadVideos() (model.VideosSnapshot, error) {
	raw := make(map[string]videoDoc)
	if err := s.loadJSON(videosFile, &raw); err != nil {
		return nil, err
	}
	snapshot := make(model.VideosSnapshot, len(raw))
	for key, doc := range raw {
		snapshot[key] = model.VideoRecord{
			Filename: key,
			Size:     doc.Size,
			Duration: time.Duration(doc.DurationSeconds * float64(time.Second)),
			AddedAt:  doc.AddedAt,
		}
	}
	return snapshot, nil
}

func (s *Store) saveVideos(snapshot model.VideosSnapshot) error {
	raw := make(map[string]videoDoc, len(snapshot))
	for key, record := range snapshot {
		raw[key] = videoDoc{
			Size:            record.Size,
			DurationSeconds: record.Duration.Seconds(),
			AddedAt:         record.AddedAt,
		}
	}
	return s.saveJSON(videosFile, raw)
}

// loadJSON parses an entire file into v. A missing file is an empty store.
func (s *Store) loadJSON(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

// saveJSON writes v to a temp file and renames it into place so a crash
// mid-write never leaves a truncated file behind.
func (s *Store) saveJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	target := filepath.Join(s.dir, name)
	tmp := target + ".tmp"

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}
