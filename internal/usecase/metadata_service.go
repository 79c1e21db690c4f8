package usecase

import (
	"context"
	"fmt"

	"github.com/ymzk-dev/mediavault/internal/domain/model"
	"github.com/ymzk-dev/mediavault/internal/domain/repository"
)

// SnapshotCache is the cache surface the services depend on. Implemented by
// *cache.Store.
type SnapshotCache interface {
	Ratings(ctx context.Context) (model.RatingsSnapshot, error)
	Views(ctx context.Context) (model.ViewsSnapshot, error)
	Tags(ctx context.Context) (model.TagsSnapshot, error)
	Favorites(ctx context.Context) (model.FavoritesSnapshot, error)
	Videos(ctx context.Context) (model.VideosSnapshot, error)

	ApplyRating(key string, e model.RatingEntry)
	ApplyView(key string, e model.ViewEntry)
	ApplyTags(key string, tags []string)
	ApplyFavorite(key string, favorite bool)
	ApplyVideo(video model.VideoRecord)
	InvalidateVideo(key string)
}

// MetadataService coordinates metadata writes: validate, persist through the
// gateway, then patch the cache with the authoritative stored value so the
// writer immediately reads its own write.
type MetadataService interface {
	// SetRating stores a 1..5 star rating. Last write wins.
	SetRating(ctx context.Context, key string, value int) (model.RatingEntry, error)

	// IncrementView bumps a video's view counter by one.
	IncrementView(ctx context.Context, key string) (model.ViewEntry, error)

	// AddTag attaches a normalized tag and returns the video's full tag
	// list. Adding a tag that already exists, in any letter case, is a
	// no-op that returns the existing list.
	AddTag(ctx context.Context, key, tag string) ([]string, error)

	// RemoveTag detaches a tag and returns the remaining list.
	RemoveTag(ctx context.Context, key, tag string) ([]string, error)

	// ToggleFavorite flips favorite membership and returns the new state
	// together with the full sorted favorites list.
	ToggleFavorite(ctx context.Context, key string) (bool, []string, error)

	// RegisterVideo records a scanned library file.
	RegisterVideo(ctx context.Context, video model.VideoRecord) error

	// RemoveVideo purges a video's metadata across every domain.
	RemoveVideo(ctx context.Context, key string) error
}

type metadataService struct {
	store repository.MetadataRepository
	cache SnapshotCache
}

// NewMetadataService creates a MetadataService over the durable store and the
// snapshot cache.
func NewMetadataService(store repository.MetadataRepository, cache SnapshotCache) MetadataService {
	return &metadataService{store: store, cache: cache}
}

func (s *metadataService) SetRating(ctx context.Context, key string, value int) (model.RatingEntry, error) {
	if err := model.ValidateRating(value); err != nil {
		return model.RatingEntry{}, err
	}

	entry, err := s.store.SetRating(ctx, key, value)
	if err != nil {
		return model.RatingEntry{}, err
	}

	s.cache.ApplyRating(key, entry)
	return entry, nil
}

func (s *metadataService) IncrementView(ctx context.Context, key string) (model.ViewEntry, error) {
	entry, err := s.store.IncrementView(ctx, key)
	if err != nil {
		return model.ViewEntry{}, err
	}

	s.cache.ApplyView(key, entry)
	return entry, nil
}

func (s *metadataService) AddTag(ctx context.Context, key, tag string) ([]string, error) {
	normalized, err := model.NormalizeTag(tag)
	if err != nil {
		return nil, err
	}

	// A case-insensitive duplicate is a no-op served from the cache; the
	// durable store enforces the same rule for writers that race past this
	// check.
	current, err := s.cache.Tags(ctx)
	if err != nil {
		return nil, fmt.Errorf("read tags: %w", err)
	}
	if model.ContainsTag(current[key], normalized) {
		return current[key], nil
	}

	tags, err := s.store.AddTag(ctx, key, normalized)
	if err != nil {
		return nil, err
	}

	s.cache.ApplyTags(key, tags)
	return tags, nil
}

func (s *metadataService) RemoveTag(ctx context.Context, key, tag string) ([]string, error) {
	normalized, err := model.NormalizeTag(tag)
	if err != nil {
		return nil, err
	}

	tags, err := s.store.RemoveTag(ctx, key, normalized)
	if err != nil {
		return nil, err
	}

	s.cache.ApplyTags(key, tags)
	return tags, nil
}

func (s *metadataService) ToggleFavorite(ctx context.Context, key string) (bool, []string, error) {
	favorite, err := s.store.ToggleFavorite(ctx, key)
	if err != nil {
		return false, nil, err
	}

	s.cache.ApplyFavorite(key, favorite)

	favorites, err := s.cache.Favorites(ctx)
	if err != nil {
		return false, nil, fmt.Errorf("read favorites: %w", err)
	}
	return favorite, favorites.Sorted(), nil
}

func (s *metadataService) RegisterVideo(ctx context.Context, video model.VideoRecord) error {
	if video.Filename == "" {
		return model.ErrEmptyFilename
	}

	if err := s.store.UpsertVideo(ctx, video); err != nil {
		return err
	}

	s.cache.ApplyVideo(video)
	return nil
}

func (s *metadataService) RemoveVideo(ctx context.Context, key string) error {
	if err := s.store.RemoveVideo(ctx, key); err != nil {
		return err
	}

	s.cache.InvalidateVideo(key)
	return nil
}
