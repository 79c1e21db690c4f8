package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ymzk-dev/mediavault/internal/domain/model"
	"github.com/ymzk-dev/mediavault/internal/domain/repository"
)

// mockRepository implements repository.MetadataRepository with pluggable
// behavior per method. Unset read methods return empty snapshots.
type mockRepository struct {
	ratingsFunc   func(ctx context.Context) (model.RatingsSnapshot, error)
	viewsFunc     func(ctx context.Context) (model.ViewsSnapshot, error)
	tagsFunc      func(ctx context.Context) (model.TagsSnapshot, error)
	favoritesFunc func(ctx context.Context) (model.FavoritesSnapshot, error)
	videosFunc    func(ctx context.Context) (model.VideosSnapshot, error)

	ratingsCalls atomic.Int64
	videosCalls  atomic.Int64
}

var _ repository.MetadataRepository = (*mockRepository)(nil)

func (m *mockRepository) Ratings(ctx context.Context) (model.RatingsSnapshot, error) {
	m.ratingsCalls.Add(1)
	if m.ratingsFunc != nil {
		return m.ratingsFunc(ctx)
	}
	return model.RatingsSnapshot{}, nil
}

func (m *mockRepository) Views(ctx context.Context) (model.ViewsSnapshot, error) {
	if m.viewsFunc != nil {
		return m.viewsFunc(ctx)
	}
	return model.ViewsSnapshot{}, nil
}

func (m *mockRepository) Tags(ctx context.Context) (model.TagsSnapshot, error) {
	if m.tagsFunc != nil {
		return m.tagsFunc(ctx)
	}
	return model.TagsSnapshot{}, nil
}

func (m *mockRepository) Favorites(ctx context.Context) (model.FavoritesSnapshot, error) {
	if m.favoritesFunc != nil {
		return m.favoritesFunc(ctx)
	}
	return model.FavoritesSnapshot{}, nil
}

func (m *mockRepository) Videos(ctx context.Context) (model.VideosSnapshot, error) {
	m.videosCalls.Add(1)
	if m.videosFunc != nil {
		return m.videosFunc(ctx)
	}
	return model.VideosSnapshot{}, nil
}

func (m *mockRepository) SetRating(ctx context.Context, key string, value int) (model.RatingEntry, error) {
	return model.RatingEntry{Value: value}, nil
}

func (m *mockRepository) IncrementView(ctx context.Context, key string) (model.ViewEntry, error) {
	return model.ViewEntry{Count: 1}, nil
}

func (m *mockRepository) AddTag(ctx context.Context, key, tag string) ([]string, error) {
	return []string{tag}, nil
}

func (m *mockRepository) RemoveTag(ctx context.Context, key, tag string) ([]string, error) {
	return nil, nil
}

func (m *mockRepository) ToggleFavorite(ctx context.Context, key string) (bool, error) {
	return true, nil
}

func (m *mockRepository) UpsertVideo(ctx context.Context, video model.VideoRecord) error {
	return nil
}

func (m *mockRepository) RemoveVideo(ctx context.Context, key string) error {
	return nil
}

func (m *mockRepository) Close() error {
	return nil
}

// countingRecorder counts hit/miss events like the performance collector.
type countingRecorder struct {
	hits   atomic.Int64
	misses atomic.Int64
}

func (r *countingRecorder) RecordHit()  { r.hits.Add(1) }
func (r *countingRecorder) RecordMiss() { r.misses.Add(1) }

// fakeClock drives the cache's notion of time.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(repo repository.MetadataRepository, rec Recorder) (*Store, *fakeClock) {
	clock := newFakeClock()
	s := New(repo, rec, DefaultConfig())
	s.now = clock.Now
	return s, clock
}

func TestStore_TTLExpiry(t *testing.T) {
	repo := &mockRepository{
		ratingsFunc: func(ctx context.Context) (model.RatingsSnapshot, error) {
			return model.RatingsSnapshot{"a.mp4": {Value: 3}}, nil
		},
	}
	rec := &countingRecorder{}
	s, clock := newTestStore(repo, rec)
	ctx := context.Background()

	// Cold read loads from the store.
	if _, err := s.Ratings(ctx); err != nil {
		t.Fatalf("Ratings failed: %v", err)
	}
	if got := repo.ratingsCalls.Load(); got != 1 {
		t.Fatalf("store reads = %d, want 1", got)
	}

	// Inside the TTL the snapshot is served from memory.
	clock.Advance(4 * time.Minute)
	if _, err := s.Ratings(ctx); err != nil {
		t.Fatalf("Ratings failed: %v", err)
	}
	if got := repo.ratingsCalls.Load(); got != 1 {
		t.Errorf("store reads = %d, want 1 (cached)", got)
	}

	// Past the TTL the next read refreshes.
	clock.Advance(2 * time.Minute)
	if _, err := s.Ratings(ctx); err != nil {
		t.Fatalf("Ratings failed: %v", err)
	}
	if got := repo.ratingsCalls.Load(); got != 2 {
		t.Errorf("store reads = %d, want 2 (refreshed)", got)
	}

	if rec.hits.Load() != 1 || rec.misses.Load() != 2 {
		t.Errorf("recorder: hits=%d misses=%d, want 1 hit 2 misses",
			rec.hits.Load(), rec.misses.Load())
	}
}

func TestStore_VideoListShorterTTL(t *testing.T) {
	repo := &mockRepository{}
	s, clock := newTestStore(repo, nil)
	ctx := context.Background()

	if _, err := s.Videos(ctx); err != nil {
		t.Fatalf("Videos failed: %v", err)
	}

	// 90 seconds is inside the metadata TTL but past the video-list TTL.
	clock.Advance(90 * time.Second)
	if _, err := s.Videos(ctx); err != nil {
		t.Fatalf("Videos failed: %v", err)
	}
	if got := repo.videosCalls.Load(); got != 2 {
		t.Errorf("video-list reads = %d, want 2", got)
	}
}

func TestStore_SingleflightColdCache(t *testing.T) {
	release := make(chan struct{})
	repo := &mockRepository{
		ratingsFunc: func(ctx context.Context) (model.RatingsSnapshot, error) {
			<-release
			return model.RatingsSnapshot{"a.mp4": {Value: 5}}, nil
		},
	}
	s, _ := newTestStore(repo, nil)
	ctx := context.Background()

	const goroutines = 20
	var started, done sync.WaitGroup
	started.Add(goroutines)
	done.Add(goroutines)

	for i := 0; i < goroutines; i++ {
		go func() {
			defer done.Done()
			started.Done()
			snap, err := s.Ratings(ctx)
			if err != nil {
				t.Errorf("Ratings failed: %v", err)
				return
			}
			if snap["a.mp4"].Value != 5 {
				t.Errorf("expected rating 5, got %d", snap["a.mp4"].Value)
			}
		}()
	}

	started.Wait()
	// Give the goroutines a beat to reach the in-flight refresh.
	time.Sleep(50 * time.Millisecond)
	close(release)
	done.Wait()

	if got := repo.ratingsCalls.Load(); got != 1 {
		t.Errorf("store reads = %d, want exactly 1 for coalesced refresh", got)
	}
}

func TestStore_RefreshError(t *testing.T) {
	wantErr := errors.New("store down")
	repo := &mockRepository{
		ratingsFunc: func(ctx context.Context) (model.RatingsSnapshot, error) {
			return nil, wantErr
		},
	}
	rec := &countingRecorder{}
	s, _ := newTestStore(repo, rec)

	if _, err := s.Ratings(context.Background()); !errors.Is(err, wantErr) {
		t.Fatalf("expected store error, got %v", err)
	}
	// A failed refresh is neither a hit nor a miss.
	if rec.hits.Load() != 0 || rec.misses.Load() != 0 {
		t.Errorf("recorder: hits=%d misses=%d, want 0/0",
			rec.hits.Load(), rec.misses.Load())
	}
	// Nothing is cached; the next read goes back to the store.
	s.Ratings(context.Background())
	if got := repo.ratingsCalls.Load(); got != 2 {
		t.Errorf("store reads = %d, want 2", got)
	}
}

func TestStore_InvalidateForcesRefresh(t *testing.T) {
	repo := &mockRepository{}
	s, _ := newTestStore(repo, nil)
	ctx := context.Background()

	s.Ratings(ctx)
	s.Ratings(ctx)
	if got := repo.ratingsCalls.Load(); got != 1 {
		t.Fatalf("store reads = %d, want 1", got)
	}

	s.Invalidate(model.DomainRatings)
	s.Ratings(ctx)
	if got := repo.ratingsCalls.Load(); got != 2 {
		t.Errorf("store reads = %d, want 2 after invalidation", got)
	}
}

func TestStore_ReadYourOwnWrite(t *testing.T) {
	repo := &mockRepository{
		ratingsFunc: func(ctx context.Context) (model.RatingsSnapshot, error) {
			return model.RatingsSnapshot{"a.mp4": {Value: 2}}, nil
		},
	}
	s, _ := newTestStore(repo, nil)
	ctx := context.Background()

	if _, err := s.Ratings(ctx); err != nil {
		t.Fatalf("Ratings failed: %v", err)
	}

	s.ApplyRating("a.mp4", model.RatingEntry{Value: 5})

	snap, err := s.Ratings(ctx)
	if err != nil {
		t.Fatalf("Ratings failed: %v", err)
	}
	if snap["a.mp4"].Value != 5 {
		t.Errorf("expected patched rating 5, got %d", snap["a.mp4"].Value)
	}
	// The patch must not have cost a store read.
	if got := repo.ratingsCalls.Load(); got != 1 {
		t.Errorf("store reads = %d, want 1", got)
	}
}

func TestStore_AllDomainGetters(t *testing.T) {
	repo := &mockRepository{
		ratingsFunc: func(ctx context.Context) (model.RatingsSnapshot, error) {
			return model.RatingsSnapshot{"a.mp4": {Value: 4}}, nil
		},
		viewsFunc: func(ctx context.Context) (model.ViewsSnapshot, error) {
			return model.ViewsSnapshot{"a.mp4": {Count: 7}}, nil
		},
		tagsFunc: func(ctx context.Context) (model.TagsSnapshot, error) {
			return model.TagsSnapshot{"a.mp4": {"#action"}}, nil
		},
		favoritesFunc: func(ctx context.Context) (model.FavoritesSnapshot, error) {
			return model.FavoritesSnapshot{"a.mp4": {}}, nil
		},
		videosFunc: func(ctx context.Context) (model.VideosSnapshot, error) {
			return model.VideosSnapshot{"a.mp4": {Filename: "a.mp4"}}, nil
		},
	}
	s, _ := newTestStore(repo, nil)
	ctx := context.Background()

	// Twice each: the first read goes through the refresh path, the second
	// through the cloned hit path.
	for i := 0; i < 2; i++ {
		ratings, err := s.Ratings(ctx)
		if err != nil || ratings["a.mp4"].Value != 4 {
			t.Fatalf("pass %d: ratings = %v (err %v), want a.mp4 rated 4", i, ratings, err)
		}
		views, err := s.Views(ctx)
		if err != nil || views["a.mp4"].Count != 7 {
			t.Fatalf("pass %d: views = %v (err %v), want a.mp4 count 7", i, views, err)
		}
		tags, err := s.Tags(ctx)
		if err != nil || len(tags["a.mp4"]) != 1 || tags["a.mp4"][0] != "#action" {
			t.Fatalf("pass %d: tags = %v (err %v), want a.mp4 tagged #action", i, tags, err)
		}
		favorites, err := s.Favorites(ctx)
		if err != nil || !favorites.Has("a.mp4") {
			t.Fatalf("pass %d: favorites = %v (err %v), want a.mp4 favorited", i, favorites, err)
		}
		videos, err := s.Videos(ctx)
		if err != nil || videos["a.mp4"].Filename != "a.mp4" {
			t.Fatalf("pass %d: videos = %v (err %v), want a.mp4 present", i, videos, err)
		}
	}
}

func TestStore_StaleRefreshDoesNotClobberPatch(t *testing.T) {
	inFlight := make(chan struct{})
	release := make(chan struct{})

	repo := &mockRepository{}
	repo.ratingsFunc = func(ctx context.Context) (model.RatingsSnapshot, error) {
		// Block the second read mid-refresh so a write can land while the
		// pre-write snapshot is still in flight.
		if repo.ratingsCalls.Load() == 2 {
			close(inFlight)
			<-release
		}
		return model.RatingsSnapshot{"a.mp4": {Value: 2}}, nil
	}
	s, clock := newTestStore(repo, nil)
	ctx := context.Background()

	if _, err := s.Ratings(ctx); err != nil {
		t.Fatalf("Ratings failed: %v", err)
	}
	clock.Advance(6 * time.Minute)

	done := make(chan model.RatingsSnapshot, 1)
	go func() {
		snap, err := s.Ratings(ctx)
		if err != nil {
			t.Errorf("Ratings failed: %v", err)
		}
		done <- snap
	}()

	<-inFlight
	s.ApplyRating("a.mp4", model.RatingEntry{Value: 5})
	close(release)

	// The reader that triggered the refresh still sees the patched value.
	snap := <-done
	if snap["a.mp4"].Value != 5 {
		t.Errorf("rating = %d, want 5 (patch lost to a refresh that read before the write)", snap["a.mp4"].Value)
	}

	// The pre-write snapshot must not have been stamped fresh: the next read
	// goes back to the store instead of serving it for a full TTL.
	if _, err := s.Ratings(ctx); err != nil {
		t.Fatalf("Ratings failed: %v", err)
	}
	if got := repo.ratingsCalls.Load(); got != 3 {
		t.Errorf("store reads = %d, want 3 (racing refresh result must not be cached)", got)
	}
}

func TestStore_PatchSkipsNonResidentDomain(t *testing.T) {
	repo := &mockRepository{}
	s, _ := newTestStore(repo, nil)

	// No panic, no load: the domain simply is not resident.
	s.ApplyRating("a.mp4", model.RatingEntry{Value: 4})
	if got := repo.ratingsCalls.Load(); got != 0 {
		t.Errorf("store reads = %d, want 0", got)
	}
}

func TestStore_ReturnedSnapshotIsACopy(t *testing.T) {
	repo := &mockRepository{
		tagsFunc: func(ctx context.Context) (model.TagsSnapshot, error) {
			return model.TagsSnapshot{"a.mp4": {"#action"}}, nil
		},
	}
	s, _ := newTestStore(repo, nil)
	ctx := context.Background()

	first, err := s.Tags(ctx)
	if err != nil {
		t.Fatalf("Tags failed: %v", err)
	}
	first["a.mp4"] = append(first["a.mp4"], "#mutated")
	first["b.mp4"] = []string{"#rogue"}

	second, err := s.Tags(ctx)
	if err != nil {
		t.Fatalf("Tags failed: %v", err)
	}
	if len(second["a.mp4"]) != 1 || second["a.mp4"][0] != "#action" {
		t.Errorf("cached tags were mutated through a returned copy: %v", second["a.mp4"])
	}
	if _, ok := second["b.mp4"]; ok {
		t.Error("cached snapshot gained a key through a returned copy")
	}
}

func TestStore_InvalidateVideo(t *testing.T) {
	repo := &mockRepository{
		ratingsFunc: func(ctx context.Context) (model.RatingsSnapshot, error) {
			return model.RatingsSnapshot{"a.mp4": {Value: 3}, "b.mp4": {Value: 4}}, nil
		},
		tagsFunc: func(ctx context.Context) (model.TagsSnapshot, error) {
			return model.TagsSnapshot{"a.mp4": {"#old"}}, nil
		},
	}
	s, _ := newTestStore(repo, nil)
	ctx := context.Background()

	s.Ratings(ctx)
	s.Tags(ctx)
	s.InvalidateVideo("a.mp4")

	ratings, _ := s.Ratings(ctx)
	if _, ok := ratings["a.mp4"]; ok {
		t.Error("expected a.mp4 removed from ratings snapshot")
	}
	if ratings["b.mp4"].Value != 4 {
		t.Error("expected b.mp4 untouched")
	}
	tags, _ := s.Tags(ctx)
	if _, ok := tags["a.mp4"]; ok {
		t.Error("expected a.mp4 removed from tags snapshot")
	}
	// No refresh happened; the patches were in place.
	if got := repo.ratingsCalls.Load(); got != 1 {
		t.Errorf("store reads = %d, want 1", got)
	}
}

func TestStore_RefreshAll(t *testing.T) {
	repo := &mockRepository{}
	s, _ := newTestStore(repo, nil)
	ctx := context.Background()

	s.Ratings(ctx)
	if err := s.RefreshAll(ctx); err != nil {
		t.Fatalf("RefreshAll failed: %v", err)
	}

	// Ratings was loaded once cold and once by RefreshAll.
	if got := repo.ratingsCalls.Load(); got != 2 {
		t.Errorf("ratings reads = %d, want 2", got)
	}
	if got := repo.videosCalls.Load(); got != 1 {
		t.Errorf("videos reads = %d, want 1", got)
	}

	for _, st := range s.Status() {
		if !st.Cached || !st.Fresh {
			t.Errorf("domain %s: cached=%v fresh=%v, want cached and fresh",
				st.Domain, st.Cached, st.Fresh)
		}
	}
}

func TestStore_Status(t *testing.T) {
	repo := &mockRepository{}
	s, clock := newTestStore(repo, nil)

	s.Ratings(context.Background())
	clock.Advance(6 * time.Minute)

	statuses := s.Status()
	if len(statuses) != len(model.Domains) {
		t.Fatalf("status count = %d, want %d", len(statuses), len(model.Domains))
	}
	for _, st := range statuses {
		switch st.Domain {
		case model.DomainRatings:
			if !st.Cached {
				t.Error("expected ratings to be cached")
			}
			if st.Fresh {
				t.Error("expected ratings to be stale after 6 minutes")
			}
			if st.AgeSeconds != 360 {
				t.Errorf("AgeSeconds = %v, want 360", st.AgeSeconds)
			}
		case model.DomainVideos:
			if st.Cached {
				t.Error("expected videos to be uncached")
			}
			if st.TTLSeconds != 60 {
				t.Errorf("videos TTLSeconds = %v, want 60", st.TTLSeconds)
			}
		}
	}
}
