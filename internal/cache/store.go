// Package cache implements the in-memory snapshot cache that fronts the
// persistence gateway. Each metadata domain is cached as one snapshot with a
// last-refresh timestamp; stale snapshots are refreshed synchronously on the
// requesting goroutine, coalesced through singleflight so a cold or expired
// domain costs exactly one durable-store read no matter how many goroutines
// ask at once.
//
// Locking: the entry map and write-through patches share one mutex. Hit/miss
// metrics are recorded outside the lock, so the cache lock and the metrics
// lock are never held together.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ymzk-dev/mediavault/internal/domain/model"
	"github.com/ymzk-dev/mediavault/internal/domain/repository"
	"github.com/ymzk-dev/mediavault/internal/infrastructure/metrics"
)

// Recorder receives cache hit/miss events. Satisfied by *perf.Collector.
type Recorder interface {
	RecordHit()
	RecordMiss()
}

// Config holds cache construction parameters. TTLs are fixed at
// construction; there is no per-call override.
type Config struct {
	// TTL is the freshness window for metadata domains.
	TTL time.Duration
	// VideoListTTL is the shorter freshness window for the videos domain,
	// so new files are noticed quickly.
	VideoListTTL time.Duration
}

// DefaultConfig returns the default TTLs (5 minutes, 1 minute for videos).
func DefaultConfig() Config {
	return Config{
		TTL:          5 * time.Minute,
		VideoListTTL: time.Minute,
	}
}

type entry struct {
	value       any
	refreshedAt time.Time
}

// Store is the process-wide snapshot cache. Construct once and inject.
type Store struct {
	gw  repository.MetadataRepository
	rec Recorder
	cfg Config

	mu      sync.Mutex
	entries map[model.Domain]*entry
	// gens counts patches and invalidations per domain so an in-flight
	// refresh can tell its snapshot was read before a concurrent write.
	gens map[model.Domain]uint64
	sf   singleflight.Group

	now func() time.Time
}

// New creates a Store over the given gateway. rec may be nil, in which case
// hit/miss events are only exported to Prometheus.
func New(gw repository.MetadataRepository, rec Recorder, cfg Config) *Store {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}
	if cfg.VideoListTTL <= 0 {
		cfg.VideoListTTL = DefaultConfig().VideoListTTL
	}
	return &Store{
		gw:      gw,
		rec:     rec,
		cfg:     cfg,
		entries: make(map[model.Domain]*entry),
		gens:    make(map[model.Domain]uint64),
		now:     time.Now,
	}
}

// Ratings returns the ratings snapshot, refreshing it if stale.
func (s *Store) Ratings(ctx context.Context) (model.RatingsSnapshot, error) {
	v, err := s.get(ctx, model.DomainRatings,
		func(ctx context.Context) (any, error) { return s.gw.Ratings(ctx) },
		func(v any) any { return cloneMap(v.(model.RatingsSnapshot)) },
	)
	if err != nil {
		return nil, err
	}
	return v.(model.RatingsSnapshot), nil
}

// Views returns the views snapshot, refreshing it if stale.
func (s *Store) Views(ctx context.Context) (model.ViewsSnapshot, error) {
	v, err := s.get(ctx, model.DomainViews,
		func(ctx context.Context) (any, error) { return s.gw.Views(ctx) },
		func(v any) any { return cloneMap(v.(model.ViewsSnapshot)) },
	)
	if err != nil {
		return nil, err
	}
	return v.(model.ViewsSnapshot), nil
}

// Tags returns the tags snapshot, refreshing it if stale.
func (s *Store) Tags(ctx context.Context) (model.TagsSnapshot, error) {
	v, err := s.get(ctx, model.DomainTags,
		func(ctx context.Context) (any, error) { return s.gw.Tags(ctx) },
		func(v any) any { return cloneTags(v.(model.TagsSnapshot)) },
	)
	if err != nil {
		return nil, err
	}
	return v.(model.TagsSnapshot), nil
}

// Favorites returns the favorites snapshot, refreshing it if stale.
func (s *Store) Favorites(ctx context.Context) (model.FavoritesSnapshot, error) {
	v, err := s.get(ctx, model.DomainFavorites,
		func(ctx context.Context) (any, error) { return s.gw.Favorites(ctx) },
		func(v any) any { return cloneMap(v.(model.FavoritesSnapshot)) },
	)
	if err != nil {
		return nil, err
	}
	return v.(model.FavoritesSnapshot), nil
}

// Videos returns the video-list snapshot, refreshing it if stale. This
// domain uses the shorter VideoListTTL.
func (s *Store) Videos(ctx context.Context) (model.VideosSnapshot, error) {
	v, err := s.get(ctx, model.DomainVideos,
		func(ctx context.Context) (any, error) { return s.gw.Videos(ctx) },
		func(v any) any { return cloneMap(v.(model.VideosSnapshot)) },
	)
	if err != nil {
		return nil, err
	}
	return v.(model.VideosSnapshot), nil
}

// get serves one domain read. Fresh entry: copy out under the lock, record a
// hit. Stale or absent: refresh through singleflight, record a miss.
func (s *Store) get(
	ctx context.Context,
	domain model.Domain,
	refresh func(context.Context) (any, error),
	clone func(any) any,
) (any, error) {
	s.mu.Lock()
	if e, ok := s.entries[domain]; ok && s.fresh(e, domain) {
		v := clone(e.value)
		s.mu.Unlock()
		s.recordHit(domain)
		return v, nil
	}
	s.mu.Unlock()

	v, err, shared := s.sf.Do(domain.String(), func() (any, error) {
		s.mu.Lock()
		gen := s.gens[domain]
		s.mu.Unlock()

		snap, err := refresh(ctx)
		if err != nil {
			return nil, err
		}

		// A patch or invalidation that landed during the gateway read means
		// this snapshot predates a committed write. Storing it would clobber
		// the patch and serve pre-write data for a full TTL, so keep the
		// resident entry and let the next read refresh instead.
		s.mu.Lock()
		if s.gens[domain] == gen {
			s.entries[domain] = &entry{value: snap, refreshedAt: s.now()}
		}
		s.mu.Unlock()
		return snap, nil
	})

	if shared {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightShared).Inc()
	} else {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightInitiated).Inc()
	}

	if err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(domain.String(), metrics.CacheStatusError).Inc()
		return nil, err
	}
	s.recordMiss(domain)

	// Copy the resident entry rather than the raw refresh result so a
	// write-through patch that landed meanwhile is visible to this caller.
	s.mu.Lock()
	if e, ok := s.entries[domain]; ok {
		v = e.value
	}
	out := clone(v)
	s.mu.Unlock()

	return out, nil
}

func (s *Store) fresh(e *entry, domain model.Domain) bool {
	return s.now().Sub(e.refreshedAt) < s.ttlFor(domain)
}

func (s *Store) ttlFor(domain model.Domain) time.Duration {
	if domain == model.DomainVideos {
		return s.cfg.VideoListTTL
	}
	return s.cfg.TTL
}

func (s *Store) recordHit(domain model.Domain) {
	metrics.CacheOperationsTotal.WithLabelValues(domain.String(), metrics.CacheStatusHit).Inc()
	if s.rec != nil {
		s.rec.RecordHit()
	}
}

func (s *Store) recordMiss(domain model.Domain) {
	metrics.CacheOperationsTotal.WithLabelValues(domain.String(), metrics.CacheStatusMiss).Inc()
	if s.rec != nil {
		s.rec.RecordMiss()
	}
}

// Invalidate clears one domain; the next read triggers a fresh refresh even
// inside the TTL window.
func (s *Store) Invalidate(domain model.Domain) {
	s.mu.Lock()
	s.gens[domain]++
	delete(s.entries, domain)
	s.mu.Unlock()
}

// InvalidateAll clears every domain.
func (s *Store) InvalidateAll() {
	s.mu.Lock()
	for _, domain := range model.Domains {
		s.gens[domain]++
	}
	s.entries = make(map[model.Domain]*entry)
	s.mu.Unlock()
}

// InvalidateVideo drops one video's key from every resident snapshot. This
// is the removal hook for the library scanner: the durable delete has
// already happened, so patching out the key is cheaper than five refreshes.
func (s *Store) InvalidateVideo(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, domain := range model.Domains {
		s.gens[domain]++
	}
	if e, ok := s.entries[model.DomainRatings]; ok {
		delete(e.value.(model.RatingsSnapshot), key)
	}
	if e, ok := s.entries[model.DomainViews]; ok {
		delete(e.value.(model.ViewsSnapshot), key)
	}
	if e, ok := s.entries[model.DomainTags]; ok {
		delete(e.value.(model.TagsSnapshot), key)
	}
	if e, ok := s.entries[model.DomainFavorites]; ok {
		delete(e.value.(model.FavoritesSnapshot), key)
	}
	if e, ok := s.entries[model.DomainVideos]; ok {
		delete(e.value.(model.VideosSnapshot), key)
	}
}

// RefreshAll invalidates everything and reloads each domain synchronously.
// Used by the admin refresh endpoint and for cache warming at startup.
func (s *Store) RefreshAll(ctx context.Context) error {
	s.InvalidateAll()

	if _, err := s.Ratings(ctx); err != nil {
		return err
	}
	if _, err := s.Views(ctx); err != nil {
		return err
	}
	if _, err := s.Tags(ctx); err != nil {
		return err
	}
	if _, err := s.Favorites(ctx); err != nil {
		return err
	}
	_, err := s.Videos(ctx)
	return err
}

// DomainStatus describes one cached domain for the admin status endpoint.
type DomainStatus struct {
	Domain     model.Domain `json:"domain"`
	Cached     bool         `json:"cached"`
	AgeSeconds float64      `json:"age_seconds"`
	Fresh      bool         `json:"fresh"`
	TTLSeconds float64      `json:"ttl_seconds"`
}

// Status reports the freshness of every domain in a stable order.
func (s *Store) Status() []DomainStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make([]DomainStatus, 0, len(model.Domains))
	for _, domain := range model.Domains {
		status := DomainStatus{Domain: domain, TTLSeconds: s.ttlFor(domain).Seconds()}
		if e, ok := s.entries[domain]; ok {
			status.Cached = true
			status.AgeSeconds = s.now().Sub(e.refreshedAt).Seconds()
			status.Fresh = s.fresh(e, domain)
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// cloneMap is constrained on the map type itself so the clone keeps the
// caller's named snapshot type.
func cloneMap[M ~map[K]V, K comparable, V any](src M) M {
	dst := make(M, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func cloneTags(src model.TagsSnapshot) model.TagsSnapshot {
	dst := make(model.TagsSnapshot, len(src))
	for k, v := range src {
		dst[k] = append([]string(nil), v...)
	}
	return dst
}
