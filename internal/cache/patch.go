package cache

import (
	"github.com/ymzk-dev/mediavault/internal/domain/model"
)

// Write-through patches. Each applies the authoritative value returned by the
// durable store to the resident snapshot so a read immediately after a write
// observes the write without waiting out the TTL. A domain that is not
// resident is left alone; the next read loads it fresh anyway. Every patch
// bumps the domain generation, resident or not, so a refresh whose gateway
// read predates the write discards its snapshot instead of caching it.

// ApplyRating patches the ratings snapshot with a stored rating.
func (s *Store) ApplyRating(key string, e model.RatingEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gens[model.DomainRatings]++
	if ent, ok := s.entries[model.DomainRatings]; ok {
		ent.value.(model.RatingsSnapshot)[key] = e
	}
}

// ApplyView patches the views snapshot with a stored view entry.
func (s *Store) ApplyView(key string, e model.ViewEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gens[model.DomainViews]++
	if ent, ok := s.entries[model.DomainViews]; ok {
		ent.value.(model.ViewsSnapshot)[key] = e
	}
}

// ApplyTags replaces one video's tag list with the stored list.
func (s *Store) ApplyTags(key string, tags []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gens[model.DomainTags]++
	if ent, ok := s.entries[model.DomainTags]; ok {
		snap := ent.value.(model.TagsSnapshot)
		if len(tags) == 0 {
			delete(snap, key)
			return
		}
		snap[key] = append([]string(nil), tags...)
	}
}

// ApplyFavorite patches the favorites snapshot with a toggle result.
func (s *Store) ApplyFavorite(key string, favorite bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gens[model.DomainFavorites]++
	if ent, ok := s.entries[model.DomainFavorites]; ok {
		snap := ent.value.(model.FavoritesSnapshot)
		if favorite {
			snap[key] = struct{}{}
		} else {
			delete(snap, key)
		}
	}
}

// ApplyVideo patches the video-list snapshot with a registered video.
func (s *Store) ApplyVideo(video model.VideoRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gens[model.DomainVideos]++
	if ent, ok := s.entries[model.DomainVideos]; ok {
		ent.value.(model.VideosSnapshot)[video.Filename] = video
	}
}
