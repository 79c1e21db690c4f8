// Package persistence selects and fronts the durable metadata store. It
// opens the embedded SQLite store at startup and, if that fails, switches
// once to the flat-file fallback for the process lifetime. The mode is never
// re-evaluated mid-session, so a degraded process stays degraded until
// restart instead of flapping between backends.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ymzk-dev/mediavault/internal/domain/model"
	"github.com/ymzk-dev/mediavault/internal/domain/repository"
	"github.com/ymzk-dev/mediavault/internal/infrastructure/flatfile"
	"github.com/ymzk-dev/mediavault/internal/infrastructure/metrics"
	"github.com/ymzk-dev/mediavault/internal/infrastructure/sqlite"
	"github.com/ymzk-dev/mediavault/internal/perf"
)

// Mode reports which backend a gateway selected at startup.
type Mode string

const (
	ModePrimary  Mode = "primary"
	ModeFallback Mode = "fallback"
)

func (m Mode) String() string {
	return string(m)
}

// DefaultTimeout bounds every durable-store call so a wedged store cannot
// starve the cache's single-flight refresh indefinitely.
const DefaultTimeout = 5 * time.Second

// Config holds gateway construction parameters.
type Config struct {
	// DatabasePath is the SQLite database file.
	DatabasePath string
	// FallbackDir holds the flat-file JSON store and backup snapshots.
	FallbackDir string
	// Timeout bounds each durable-store call. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Gateway implements repository.MetadataRepository by delegating to the
// selected backend, adding a per-call deadline and query accounting.
type Gateway struct {
	repo    repository.MetadataRepository
	primary *sqlite.Store  // nil in fallback mode
	files   *flatfile.Store // backup target in primary mode, live store in fallback
	mode    Mode
	timeout time.Duration
}

// Compile-time verification that Gateway implements repository.MetadataRepository.
var _ repository.MetadataRepository = (*Gateway)(nil)

// Open constructs a Gateway. A SQLite open failure is not fatal: the gateway
// logs a warning and runs against the flat files instead.
func Open(cfg Config, logger *slog.Logger) (*Gateway, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	files, err := flatfile.New(cfg.FallbackDir)
	if err != nil {
		return nil, fmt.Errorf("open flat-file store: %w", err)
	}

	primary, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		logger.Warn("primary store unavailable, falling back to flat files",
			slog.String("db_path", cfg.DatabasePath),
			slog.String("fallback_dir", cfg.FallbackDir),
			slog.String("error", err.Error()),
		)
		return &Gateway{
			repo:    files,
			files:   files,
			mode:    ModeFallback,
			timeout: timeout,
		}, nil
	}

	logger.Info("primary store opened", slog.String("db_path", cfg.DatabasePath))
	return &Gateway{
		repo:    primary,
		primary: primary,
		files:   files,
		mode:    ModePrimary,
		timeout: timeout,
	}, nil
}

// Mode reports the backend selected at startup.
func (g *Gateway) Mode() Mode {
	return g.mode
}

// Backup writes the current store contents to the flat-file snapshots.
// It is a no-op in fallback mode, where the flat files already are the store.
func (g *Gateway) Backup(ctx context.Context) error {
	if g.mode != ModePrimary {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	ratings, err := g.primary.Ratings(ctx)
	if err != nil {
		return fmt.Errorf("backup ratings: %w", err)
	}
	views, err := g.primary.Views(ctx)
	if err != nil {
		return fmt.Errorf("backup views: %w", err)
	}
	tags, err := g.primary.Tags(ctx)
	if err != nil {
		return fmt.Errorf("backup tags: %w", err)
	}
	favorites, err := g.primary.Favorites(ctx)
	if err != nil {
		return fmt.Errorf("backup favorites: %w", err)
	}
	videos, err := g.primary.Videos(ctx)
	if err != nil {
		return fmt.Errorf("backup videos: %w", err)
	}

	return g.files.WriteAll(ctx, ratings, views, tags, favorites, videos)
}

// Close releases the selected backend.
func (g *Gateway) Close() error {
	return g.repo.Close()
}

func (g *Gateway) Ratings(ctx context.Context) (model.RatingsSnapshot, error) {
	ctx, cancel := g.begin(ctx, metrics.DBOpRead)
	defer cancel()
	snap, err := g.repo.Ratings(ctx)
	return snap, g.wrap("read ratings", err)
}

func (g *Gateway) Views(ctx context.Context) (model.ViewsSnapshot, error) {
	ctx, cancel := g.begin(ctx, metrics.DBOpRead)
	defer cancel()
	snap, err := g.repo.Views(ctx)
	return snap, g.wrap("read views", err)
}

func (g *Gateway) Tags(ctx context.Context) (model.TagsSnapshot, error) {
	ctx, cancel := g.begin(ctx, metrics.DBOpRead)
	defer cancel()
	snap, err := g.repo.Tags(ctx)
	return snap, g.wrap("read tags", err)
}

func (g *Gateway) Favorites(ctx context.Context) (model.FavoritesSnapshot, error) {
	ctx, cancel := g.begin(ctx, metrics.DBOpRead)
	defer cancel()
	snap, err := g.repo.Favorites(ctx)
	return snap, g.wrap("read favorites", err)
}

func (g *Gateway) Videos(ctx context.Context) (model.VideosSnapshot, error) {
	ctx, cancel := g.begin(ctx, metrics.DBOpRead)
	defer cancel()
	snap, err := g.repo.Videos(ctx)
	return snap, g.wrap("read videos", err)
}

func (g *Gateway) SetRating(ctx context.Context, key string, value int) (model.RatingEntry, error) {
	ctx, cancel := g.begin(ctx, metrics.DBOpWrite)
	defer cancel()
	entry, err := g.repo.SetRating(ctx, key, value)
	return entry, g.wrap("write rating", err)
}

func (g *Gateway) IncrementView(ctx context.Context, key string) (model.ViewEntry, error) {
	ctx, cancel := g.begin(ctx, metrics.DBOpWrite)
	defer cancel()
	entry, err := g.repo.IncrementView(ctx, key)
	return entry, g.wrap("write view", err)
}

func (g *Gateway) AddTag(ctx context.Context, key, tag string) ([]string, error) {
	ctx, cancel := g.begin(ctx, metrics.DBOpWrite)
	defer cancel()
	tags, err := g.repo.AddTag(ctx, key, tag)
	return tags, g.wrap("write tag", err)
}

func (g *Gateway) RemoveTag(ctx context.Context, key, tag string) ([]string, error) {
	ctx, cancel := g.begin(ctx, metrics.DBOpWrite)
	defer cancel()
	tags, err := g.repo.RemoveTag(ctx, key, tag)
	return tags, g.wrap("remove tag", err)
}

func (g *Gateway) ToggleFavorite(ctx context.Context, key string) (bool, error) {
	ctx, cancel := g.begin(ctx, metrics.DBOpWrite)
	defer cancel()
	fav, err := g.repo.ToggleFavorite(ctx, key)
	return fav, g.wrap("toggle favorite", err)
}

func (g *Gateway) UpsertVideo(ctx context.Context, video model.VideoRecord) error {
	ctx, cancel := g.begin(ctx, metrics.DBOpWrite)
	defer cancel()
	return g.wrap("upsert video", g.repo.UpsertVideo(ctx, video))
}

func (g *Gateway) RemoveVideo(ctx context.Context, key string) error {
	ctx, cancel := g.begin(ctx, metrics.DBOpWrite)
	defer cancel()
	return g.wrap("remove video", g.repo.RemoveVideo(ctx, key))
}

// begin applies the per-call deadline and accounts the query, both for the
// per-request fanout counter and the Prometheus series.
func (g *Gateway) begin(ctx context.Context, op string) (context.Context, context.CancelFunc) {
	perf.CountQueries(ctx, 1)
	metrics.DBOperationsTotal.WithLabelValues(op, g.mode.String()).Inc()
	return context.WithTimeout(ctx, g.timeout)
}

// wrap maps deadline expiry to ErrStoreUnavailable so callers can classify
// a wedged store as a server fault without inspecting context errors.
func (g *Gateway) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, repository.ErrStoreUnavailable)
	}
	return fmt.Errorf("%s: %w", op, err)
}
