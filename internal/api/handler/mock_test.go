package handler

import (
	"context"

	"github.com/ymzk-dev/mediavault/internal/domain/model"
	"github.com/ymzk-dev/mediavault/internal/usecase"
)

// mockMetadataService provides a configurable mock for usecase.MetadataService.
type mockMetadataService struct {
	setRatingFn      func(ctx context.Context, key string, value int) (model.RatingEntry, error)
	incrementViewFn  func(ctx context.Context, key string) (model.ViewEntry, error)
	addTagFn         func(ctx context.Context, key, tag string) ([]string, error)
	removeTagFn      func(ctx context.Context, key, tag string) ([]string, error)
	toggleFavoriteFn func(ctx context.Context, key string) (bool, []string, error)
}

var _ usecase.MetadataService = (*mockMetadataService)(nil)

func (m *mockMetadataService) SetRating(ctx context.Context, key string, value int) (model.RatingEntry, error) {
	if m.setRatingFn != nil {
		return m.setRatingFn(ctx, key, value)
	}
	return model.RatingEntry{Value: value}, nil
}

func (m *mockMetadataService) IncrementView(ctx context.Context, key string) (model.ViewEntry, error) {
	if m.incrementViewFn != nil {
		return m.incrementViewFn(ctx, key)
	}
	return model.ViewEntry{Count: 1}, nil
}

func (m *mockMetadataService) AddTag(ctx context.Context, key, tag string) ([]string, error) {
	if m.addTagFn != nil {
		return m.addTagFn(ctx, key, tag)
	}
	return []string{tag}, nil
}

func (m *mockMetadataService) RemoveTag(ctx context.Context, key, tag string) ([]string, error) {
	if m.removeTagFn != nil {
		return m.removeTagFn(ctx, key, tag)
	}
	return nil, nil
}

func (m *mockMetadataService) ToggleFavorite(ctx context.Context, key string) (bool, []string, error) {
	if m.toggleFavoriteFn != nil {
		return m.toggleFavoriteFn(ctx, key)
	}
	return true, []string{key}, nil
}

func (m *mockMetadataService) RegisterVideo(ctx context.Context, video model.VideoRecord) error {
	return nil
}

func (m *mockMetadataService) RemoveVideo(ctx context.Context, key string) error {
	return nil
}

// mockLibraryService provides a configurable mock for usecase.LibraryService.
type mockLibraryService struct {
	listFn       func(ctx context.Context, sortBy, order string) ([]usecase.VideoMeta, error)
	getFn        func(ctx context.Context, key string) (usecase.VideoMeta, error)
	relatedFn    func(ctx context.Context, key string, limit int) ([]usecase.VideoMeta, error)
	bestOfFn     func(ctx context.Context) ([]usecase.VideoMeta, error)
	uniqueTagsFn func(ctx context.Context) ([]string, error)
	favoritesFn  func(ctx context.Context) ([]usecase.VideoMeta, error)
	randomFn     func(ctx context.Context) (usecase.VideoMeta, error)
	viewCountsFn func(ctx context.Context) (model.ViewsSnapshot, error)
}

var _ usecase.LibraryService = (*mockLibraryService)(nil)

func (m *mockLibraryService) List(ctx context.Context, sortBy, order string) ([]usecase.VideoMeta, error) {
	if m.listFn != nil {
		return m.listFn(ctx, sortBy, order)
	}
	return nil, nil
}

func (m *mockLibraryService) Get(ctx context.Context, key string) (usecase.VideoMeta, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return usecase.VideoMeta{}, nil
}

func (m *mockLibraryService) Related(ctx context.Context, key string, limit int) ([]usecase.VideoMeta, error) {
	if m.relatedFn != nil {
		return m.relatedFn(ctx, key, limit)
	}
	return nil, nil
}

func (m *mockLibraryService) BestOf(ctx context.Context) ([]usecase.VideoMeta, error) {
	if m.bestOfFn != nil {
		return m.bestOfFn(ctx)
	}
	return nil, nil
}

func (m *mockLibraryService) UniqueTags(ctx context.Context) ([]string, error) {
	if m.uniqueTagsFn != nil {
		return m.uniqueTagsFn(ctx)
	}
	return nil, nil
}

func (m *mockLibraryService) Favorites(ctx context.Context) ([]usecase.VideoMeta, error) {
	if m.favoritesFn != nil {
		return m.favoritesFn(ctx)
	}
	return nil, nil
}

func (m *mockLibraryService) Random(ctx context.Context) (usecase.VideoMeta, error) {
	if m.randomFn != nil {
		return m.randomFn(ctx)
	}
	return usecase.VideoMeta{}, nil
}

func (m *mockLibraryService) ViewCounts(ctx context.Context) (model.ViewsSnapshot, error) {
	if m.viewCountsFn != nil {
		return m.viewCountsFn(ctx)
	}
	return model.ViewsSnapshot{}, nil
}
