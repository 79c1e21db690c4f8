package model

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// Domain identifies one independently cached metadata category.
type Domain string

const (
	DomainRatings   Domain = "ratings"
	DomainViews     Domain = "views"
	DomainTags      Domain = "tags"
	DomainFavorites Domain = "favorites"
	DomainVideos    Domain = "videos"
)

// Domains lists every cached domain in a stable order.
var Domains = []Domain{DomainRatings, DomainViews, DomainTags, DomainFavorites, DomainVideos}

func (d Domain) IsValid() bool {
	switch d {
	case DomainRatings, DomainViews, DomainTags, DomainFavorites, DomainVideos:
		return true
	default:
		return false
	}
}

func (d Domain) String() string {
	return string(d)
}

// Rating bounds. A rating of zero means "unrated" and is never stored.
const (
	MinRating = 1
	MaxRating = 5
)

var (
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	ErrEmptyTag      = errors.New("tag cannot be empty")
)

// RatingEntry is a video's star rating. Last write wins.
type RatingEntry struct {
	Value     int
	UpdatedAt time.Time
}

// ValidateRating checks that a rating value is within the accepted range.
func ValidateRating(value int) error {
	if value < MinRating || value > MaxRating {
		return ErrInvalidRating
	}
	return nil
}

// ViewEntry tracks a video's view count. The count is monotonically
// non-decreasing and only ever mutated by increment.
type ViewEntry struct {
	Count        int64
	LastViewedAt time.Time
}

// NormalizeTag trims whitespace and enforces the leading "#" convention.
func NormalizeTag(tag string) (string, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" || tag == "#" {
		return "", ErrEmptyTag
	}
	if !strings.HasPrefix(tag, "#") {
		tag = "#" + tag
	}
	return tag, nil
}

// ContainsTag reports whether tags already holds tag, case-insensitively.
func ContainsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// Per-domain snapshot types returned by the persistence layer and held by
// the cache store. Callers always receive copies, never the shared maps.
type (
	RatingsSnapshot   map[string]RatingEntry
	ViewsSnapshot     map[string]ViewEntry
	TagsSnapshot      map[string][]string
	FavoritesSnapshot map[string]struct{}
	VideosSnapshot    map[string]VideoRecord
)

// Has reports favorite membership for a video key.
func (f FavoritesSnapshot) Has(key string) bool {
	_, ok := f[key]
	return ok
}

// Sorted returns the favorite keys in lexicographic order, suitable for a
// stable JSON response.
func (f FavoritesSnapshot) Sorted() []string {
	keys := make([]string, 0, len(f))
	for key := range f {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
