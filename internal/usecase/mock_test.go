package usecase

import (
	"context"
	"sync"

	"github.com/ymzk-dev/mediavault/internal/domain/model"
	"github.com/ymzk-dev/mediavault/internal/domain/repository"
)

// mockStore provides a configurable mock for repository.MetadataRepository.
type mockStore struct {
	ratingsFn        func(ctx context.Context) (model.RatingsSnapshot, error)
	viewsFn          func(ctx context.Context) (model.ViewsSnapshot, error)
	tagsFn           func(ctx context.Context) (model.TagsSnapshot, error)
	favoritesFn      func(ctx context.Context) (model.FavoritesSnapshot, error)
	videosFn         func(ctx context.Context) (model.VideosSnapshot, error)
	setRatingFn      func(ctx context.Context, key string, value int) (model.RatingEntry, error)
	incrementViewFn  func(ctx context.Context, key string) (model.ViewEntry, error)
	addTagFn         func(ctx context.Context, key, tag string) ([]string, error)
	removeTagFn      func(ctx context.Context, key, tag string) ([]string, error)
	toggleFavoriteFn func(ctx context.Context, key string) (bool, error)
	upsertVideoFn    func(ctx context.Context, video model.VideoRecord) error
	removeVideoFn    func(ctx context.Context, key string) error
}

var _ repository.MetadataRepository = (*mockStore)(nil)

func (m *mockStore) Ratings(ctx context.Context) (model.RatingsSnapshot, error) {
	if m.ratingsFn != nil {
		return m.ratingsFn(ctx)
	}
	return model.RatingsSnapshot{}, nil
}

func (m *mockStore) Views(ctx context.Context) (model.ViewsSnapshot, error) {
	if m.viewsFn != nil {
		return m.viewsFn(ctx)
	}
	return model.ViewsSnapshot{}, nil
}

func (m *mockStore) Tags(ctx context.Context) (model.TagsSnapshot, error) {
	if m.tagsFn != nil {
		return m.tagsFn(ctx)
	}
	return model.TagsSnapshot{}, nil
}

func (m *mockStore) Favorites(ctx context.Context) (model.FavoritesSnapshot, error) {
	if m.favoritesFn != nil {
		return m.favoritesFn(ctx)
	}
	return model.FavoritesSnapshot{}, nil
}

func (m *mockStore) Videos(ctx context.Context) (model.VideosSnapshot, error) {
	if m.videosFn != nil {
		return m.videosFn(ctx)
	}
	return model.VideosSnapshot{}, nil
}

func (m *mockStore) SetRating(ctx context.Context, key string, value int) (model.RatingEntry, error) {
	if m.setRatingFn != nil {
		return m.setRatingFn(ctx, key, value)
	}
	return model.RatingEntry{Value: value}, nil
}

func (m *mockStore) IncrementView(ctx context.Context, key string) (model.ViewEntry, error) {
	if m.incrementViewFn != nil {
		return m.incrementViewFn(ctx, key)
	}
	return model.ViewEntry{Count: 1}, nil
}

func (m *mockStore) AddTag(ctx context.Context, key, tag string) ([]string, error) {
	if m.addTagFn != nil {
		return m.addTagFn(ctx, key, tag)
	}
	return []string{tag}, nil
}

func (m *mockStore) RemoveTag(ctx context.Context, key, tag string) ([]string, error) {
	if m.removeTagFn != nil {
		return m.removeTagFn(ctx, key, tag)
	}
	return nil, nil
}

func (m *mockStore) ToggleFavorite(ctx context.Context, key string) (bool, error) {
	if m.toggleFavoriteFn != nil {
		return m.toggleFavoriteFn(ctx, key)
	}
	return true, nil
}

func (m *mockStore) UpsertVideo(ctx context.Context, video model.VideoRecord) error {
	if m.upsertVideoFn != nil {
		return m.upsertVideoFn(ctx, video)
	}
	return nil
}

func (m *mockStore) RemoveVideo(ctx context.Context, key string) error {
	if m.removeVideoFn != nil {
		return m.removeVideoFn(ctx, key)
	}
	return nil
}

func (m *mockStore) Close() error {
	return nil
}

// fakeCache is an in-memory SnapshotCache that records write-through patches
// so tests can assert the cache was, or was not, touched.
type fakeCache struct {
	mu        sync.Mutex
	ratings   model.RatingsSnapshot
	views     model.ViewsSnapshot
	tags      model.TagsSnapshot
	favorites model.FavoritesSnapshot
	videos    model.VideosSnapshot

	patchCalls int
}

var _ SnapshotCache = (*fakeCache)(nil)

func newFakeCache() *fakeCache {
	return &fakeCache{
		ratings:   model.RatingsSnapshot{},
		views:     model.ViewsSnapshot{},
		tags:      model.TagsSnapshot{},
		favorites: model.FavoritesSnapshot{},
		videos:    model.VideosSnapshot{},
	}
}

func (f *fakeCache) Ratings(ctx context.Context) (model.RatingsSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(model.RatingsSnapshot, len(f.ratings))
	for k, v := range f.ratings {
		out[k] = v
	}
	return out, nil
}

func (f *fakeCache) Views(ctx context.Context) (model.ViewsSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(model.ViewsSnapshot, len(f.views))
	for k, v := range f.views {
		out[k] = v
	}
	return out, nil
}

func (f *fakeCache) Tags(ctx context.Context) (model.TagsSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(model.TagsSnapshot, len(f.tags))
	for k, v := range f.tags {
		out[k] = append([]string(nil), v...)
	}
	return out, nil
}

func (f *fakeCache) Favorites(ctx context.Context) (model.FavoritesSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(model.FavoritesSnapshot, len(f.favorites))
	for k := range f.favorites {
		out[k] = struct{}{}
	}
	return out, nil
}

func (f *fakeCache) Videos(ctx context.Context) (model.VideosSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(model.VideosSnapshot, len(f.videos))
	for k, v := range f.videos {
		out[k] = v
	}
	return out, nil
}

func (f *fakeCache) ApplyRating(key string, e model.RatingEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ratings[key] = e
	f.patchCalls++
}

func (f *fakeCache) ApplyView(key string, e model.ViewEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.views[key] = e
	f.patchCalls++
}

func (f *fakeCache) ApplyTags(key string, tags []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(tags) == 0 {
		delete(f.tags, key)
	} else {
		f.tags[key] = append([]string(nil), tags...)
	}
	f.patchCalls++
}

func (f *fakeCache) ApplyFavorite(key string, favorite bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if favorite {
		f.favorites[key] = struct{}{}
	} else {
		delete(f.favorites, key)
	}
	f.patchCalls++
}

func (f *fakeCache) ApplyVideo(video model.VideoRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.videos[video.Filename] = video
	f.patchCalls++
}

func (f *fakeCache) InvalidateVideo(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.ratings, key)
	delete(f.views, key)
	delete(f.tags, key)
	delete(f.favorites, key)
	delete(f.videos, key)
	f.patchCalls++
}

func (f *fakeCache) patches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.patchCalls
}
