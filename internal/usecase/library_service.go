package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"github.com/ymzk-dev/mediavault/internal/domain/model"
	"github.com/ymzk-dev/mediavault/internal/domain/repository"
)

var (
	// ErrInvalidSort is returned for an unrecognized sort key or order.
	ErrInvalidSort = errors.New("invalid sort key or order")
	// ErrLibraryEmpty is returned when a random pick has nothing to pick from.
	ErrLibraryEmpty = errors.New("library is empty")
)

// Sort keys accepted by List.
const (
	SortByDate   = "date"
	SortByTitle  = "title"
	SortByRating = "rating"
	SortByViews  = "views"
)

// Sort orders accepted by List. The empty string selects each key's natural
// order: ascending for title, descending for everything else.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// VideoMeta is one library entry with its metadata from every domain
// assembled into a single view.
type VideoMeta struct {
	Filename        string    `json:"filename"`
	Size            int64     `json:"size"`
	DurationSeconds float64   `json:"duration_seconds"`
	AddedAt         time.Time `json:"added_at"`
	Rating          int       `json:"rating"`
	Views           int64     `json:"views"`
	Tags            []string  `json:"tags"`
	Favorite        bool      `json:"favorite"`
}

// LibraryService serves read-side library queries from cache snapshots.
type LibraryService interface {
	// List returns every video with assembled metadata, sorted.
	List(ctx context.Context, sortBy, order string) ([]VideoMeta, error)

	// Get returns one video's assembled metadata.
	Get(ctx context.Context, key string) (VideoMeta, error)

	// Related returns up to limit videos ranked by shared-tag count, ties
	// broken by rating.
	Related(ctx context.Context, key string, limit int) ([]VideoMeta, error)

	// BestOf returns videos rated 4 stars or better, best first.
	BestOf(ctx context.Context) ([]VideoMeta, error)

	// UniqueTags returns every distinct tag in use, sorted.
	UniqueTags(ctx context.Context) ([]string, error)

	// Favorites returns the favorited videos sorted by filename.
	Favorites(ctx context.Context) ([]VideoMeta, error)

	// Random returns one uniformly random video.
	Random(ctx context.Context) (VideoMeta, error)

	// ViewCounts returns the raw view counters keyed by filename.
	ViewCounts(ctx context.Context) (model.ViewsSnapshot, error)
}

type libraryService struct {
	cache SnapshotCache
}

// NewLibraryService creates a LibraryService over the snapshot cache.
func NewLibraryService(cache SnapshotCache) LibraryService {
	return &libraryService{cache: cache}
}

func (s *libraryService) List(ctx context.Context, sortBy, order string) ([]VideoMeta, error) {
	if sortBy == "" {
		sortBy = SortByDate
	}
	switch sortBy {
	case SortByDate, SortByTitle, SortByRating, SortByViews:
	default:
		return nil, fmt.Errorf("%w: sort=%q", ErrInvalidSort, sortBy)
	}
	switch order {
	case "", OrderAsc, OrderDesc:
	default:
		return nil, fmt.Errorf("%w: order=%q", ErrInvalidSort, order)
	}

	metas, err := s.assemble(ctx)
	if err != nil {
		return nil, err
	}

	sortMetas(metas, sortBy, order)
	return metas, nil
}

func (s *libraryService) Get(ctx context.Context, key string) (VideoMeta, error) {
	metas, err := s.assemble(ctx)
	if err != nil {
		return VideoMeta{}, err
	}
	for _, m := range metas {
		if m.Filename == key {
			return m, nil
		}
	}
	return VideoMeta{}, repository.ErrVideoNotFound
}

func (s *libraryService) Related(ctx context.Context, key string, limit int) ([]VideoMeta, error) {
	if limit <= 0 {
		limit = 10
	}

	metas, err := s.assemble(ctx)
	if err != nil {
		return nil, err
	}

	var base *VideoMeta
	for i := range metas {
		if metas[i].Filename == key {
			base = &metas[i]
			break
		}
	}
	if base == nil {
		return nil, repository.ErrVideoNotFound
	}

	type scored struct {
		meta    VideoMeta
		overlap int
	}
	candidates := make([]scored, 0, len(metas))
	for _, m := range metas {
		if m.Filename == key {
			continue
		}
		overlap := tagOverlap(base.Tags, m.Tags)
		if overlap == 0 {
			continue
		}
		candidates = append(candidates, scored{meta: m, overlap: overlap})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].overlap != candidates[j].overlap {
			return candidates[i].overlap > candidates[j].overlap
		}
		if candidates[i].meta.Rating != candidates[j].meta.Rating {
			return candidates[i].meta.Rating > candidates[j].meta.Rating
		}
		return candidates[i].meta.Filename < candidates[j].meta.Filename
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	related := make([]VideoMeta, len(candidates))
	for i, c := range candidates {
		related[i] = c.meta
	}
	return related, nil
}

func (s *libraryService) BestOf(ctx context.Context) ([]VideoMeta, error) {
	metas, err := s.assemble(ctx)
	if err != nil {
		return nil, err
	}

	best := metas[:0]
	for _, m := range metas {
		if m.Rating >= 4 {
			best = append(best, m)
		}
	}

	sort.SliceStable(best, func(i, j int) bool {
		if best[i].Rating != best[j].Rating {
			return best[i].Rating > best[j].Rating
		}
		return best[i].Filename < best[j].Filename
	})
	return best, nil
}

func (s *libraryService) UniqueTags(ctx context.Context) ([]string, error) {
	tags, err := s.cache.Tags(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]string)
	for _, list := range tags {
		for _, tag := range list {
			lower := strings.ToLower(tag)
			if _, ok := seen[lower]; !ok {
				seen[lower] = tag
			}
		}
	}

	unique := make([]string, 0, len(seen))
	for _, tag := range seen {
		unique = append(unique, tag)
	}
	sort.Strings(unique)
	return unique, nil
}

func (s *libraryService) Favorites(ctx context.Context) ([]VideoMeta, error) {
	metas, err := s.assemble(ctx)
	if err != nil {
		return nil, err
	}

	favorites := metas[:0]
	for _, m := range metas {
		if m.Favorite {
			favorites = append(favorites, m)
		}
	}

	sort.Slice(favorites, func(i, j int) bool {
		return favorites[i].Filename < favorites[j].Filename
	})
	return favorites, nil
}

func (s *libraryService) Random(ctx context.Context) (VideoMeta, error) {
	metas, err := s.assemble(ctx)
	if err != nil {
		return VideoMeta{}, err
	}
	if len(metas) == 0 {
		return VideoMeta{}, ErrLibraryEmpty
	}
	return metas[rand.N(len(metas))], nil
}

func (s *libraryService) ViewCounts(ctx context.Context) (model.ViewsSnapshot, error) {
	return s.cache.Views(ctx)
}

// assemble joins all five domain snapshots into per-video metadata.
func (s *libraryService) assemble(ctx context.Context) ([]VideoMeta, error) {
	videos, err := s.cache.Videos(ctx)
	if err != nil {
		return nil, fmt.Errorf("read videos: %w", err)
	}
	ratings, err := s.cache.Ratings(ctx)
	if err != nil {
		return nil, fmt.Errorf("read ratings: %w", err)
	}
	views, err := s.cache.Views(ctx)
	if err != nil {
		return nil, fmt.Errorf("read views: %w", err)
	}
	tags, err := s.cache.Tags(ctx)
	if err != nil {
		return nil, fmt.Errorf("read tags: %w", err)
	}
	favorites, err := s.cache.Favorites(ctx)
	if err != nil {
		return nil, fmt.Errorf("read favorites: %w", err)
	}

	metas := make([]VideoMeta, 0, len(videos))
	for key, video := range videos {
		meta := VideoMeta{
			Filename:        key,
			Size:            video.Size,
			DurationSeconds: video.Duration.Seconds(),
			AddedAt:         video.AddedAt,
			Rating:          ratings[key].Value,
			Views:           views[key].Count,
			Tags:            tags[key],
			Favorite:        favorites.Has(key),
		}
		if meta.Tags == nil {
			meta.Tags = []string{}
		}
		metas = append(metas, meta)
	}
	return metas, nil
}

func sortMetas(metas []VideoMeta, sortBy, order string) {
	less := func(i, j int) bool { return metas[i].Filename < metas[j].Filename }
	switch sortBy {
	case SortByDate:
		less = func(i, j int) bool { return metas[i].AddedAt.After(metas[j].AddedAt) }
	case SortByTitle:
		less = func(i, j int) bool {
			return strings.ToLower(metas[i].Filename) < strings.ToLower(metas[j].Filename)
		}
	case SortByRating:
		less = func(i, j int) bool {
			if metas[i].Rating != metas[j].Rating {
				return metas[i].Rating > metas[j].Rating
			}
			return metas[i].Filename < metas[j].Filename
		}
	case SortByViews:
		less = func(i, j int) bool {
			if metas[i].Views != metas[j].Views {
				return metas[i].Views > metas[j].Views
			}
			return metas[i].Filename < metas[j].Filename
		}
	}

	reverse := false
	switch order {
	case OrderAsc:
		// Title's natural order already is ascending.
		reverse = sortBy != SortByTitle
	case OrderDesc:
		reverse = sortBy == SortByTitle
	}

	if reverse {
		sort.SliceStable(metas, func(i, j int) bool { return less(j, i) })
		return
	}
	sort.SliceStable(metas, less)
}

func tagOverlap(a, b []string) int {
	count := 0
	for _, tag := range a {
		if model.ContainsTag(b, tag) {
			count++
		}
	}
	return count
}
