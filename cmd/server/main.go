package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/ymzk-dev/mediavault/internal/api/handler"
	"github.com/ymzk-dev/mediavault/internal/api/middleware"
	"github.com/ymzk-dev/mediavault/internal/cache"
	"github.com/ymzk-dev/mediavault/internal/config"
	"github.com/ymzk-dev/mediavault/internal/domain/model"
	"github.com/ymzk-dev/mediavault/internal/infrastructure/persistence"
	"github.com/ymzk-dev/mediavault/internal/perf"
	"github.com/ymzk-dev/mediavault/internal/thumbnail"
	"github.com/ymzk-dev/mediavault/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	gw, err := persistence.Open(persistence.Config{
		DatabasePath: cfg.Store.DatabasePath,
		FallbackDir:  cfg.Store.FallbackDir,
		Timeout:      cfg.Store.QueryTimeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("open metadata store: %w", err)
	}
	defer gw.Close()

	collector := perf.NewCollector(cfg.Metrics.WindowSize)
	snapshots := cache.New(gw, collector, cache.Config{
		TTL:          cfg.Cache.TTL,
		VideoListTTL: cfg.Cache.VideoListTTL,
	})

	metadataSvc := usecase.NewMetadataService(gw, snapshots)
	librarySvc := usecase.NewLibraryService(snapshots)

	generator := thumbnail.NewFFmpegGenerator(thumbnail.GeneratorConfig{
		FFmpegPath:  cfg.Thumbnail.FFmpegPath,
		Width:       thumbnail.DefaultGeneratorConfig().Width,
		SeekSeconds: thumbnail.DefaultGeneratorConfig().SeekSeconds,
		Quality:     thumbnail.DefaultGeneratorConfig().Quality,
	})
	poolCfg := thumbnail.DefaultPoolConfig()
	poolCfg.Workers = cfg.Thumbnail.Workers
	poolCfg.QueueSize = cfg.Thumbnail.QueueSize
	poolCfg.MediaDir = cfg.Media.Dir
	poolCfg.ThumbDir = cfg.Thumbnail.Dir
	pool := thumbnail.NewPool(generator, poolCfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool.Start(ctx)
	defer pool.Stop()

	if err := syncLibrary(ctx, cfg.Media.Dir, gw, metadataSvc, logger); err != nil {
		logger.Warn("library scan failed", slog.String("error", err.Error()))
	}

	if err := snapshots.RefreshAll(ctx); err != nil {
		logger.Warn("cache warm-up failed", slog.String("error", err.Error()))
	}

	go backupLoop(ctx, gw, cfg.Store.BackupInterval, logger)

	r := setupRouter(cfg, logger, collector, snapshots, metadataSvc, librarySvc, pool, gw.Mode().String())

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			slog.Int("port", cfg.Server.Port),
			slog.String("backend", gw.Mode().String()),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down server", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	// One final snapshot so the flat files are current across restarts.
	if err := gw.Backup(shutdownCtx); err != nil {
		logger.Warn("final backup failed", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
	return nil
}

func setupRouter(
	cfg *config.Config,
	logger *slog.Logger,
	collector *perf.Collector,
	snapshots *cache.Store,
	metadataSvc usecase.MetadataService,
	librarySvc usecase.LibraryService,
	pool *thumbnail.Pool,
	backend string,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Metrics(collector))

	metadataHandler := handler.NewMetadataHandler(metadataSvc)
	libraryHandler := handler.NewLibraryHandler(librarySvc, pool)
	streamHandler := handler.NewStreamHandler(cfg.Media.Dir)
	adminHandler := handler.NewAdminHandler(collector, snapshots, backend)

	r.Get("/health", handler.NewHealthHandler(backend))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/videos", libraryHandler.List)
		r.Get("/videos/best", libraryHandler.BestOf)
		r.Get("/videos/random", libraryHandler.Random)
		r.Get("/videos/{filename}", libraryHandler.Get)
		r.Get("/videos/{filename}/related", libraryHandler.Related)
		r.Get("/videos/{filename}/stream", streamHandler.Stream)
		r.Get("/tags", libraryHandler.Tags)
		r.Get("/favorites", libraryHandler.Favorites)
		r.Get("/views", libraryHandler.Views)

		// Write endpoints share one token bucket.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(rate.Limit(cfg.RateLimit.WritesPerSecond), cfg.RateLimit.WriteBurst))
			r.Post("/ratings", metadataHandler.Rate)
			r.Post("/views", metadataHandler.View)
			r.Post("/tags", metadataHandler.AddTag)
			r.Delete("/tags", metadataHandler.RemoveTag)
			r.Post("/favorites", metadataHandler.Favorite)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Get("/performance", adminHandler.Performance)
		r.Get("/cache/status", adminHandler.CacheStatus)
		r.Post("/cache/refresh", adminHandler.CacheRefresh)
	})

	thumbDir := http.Dir(cfg.Thumbnail.Dir)
	r.Handle("/thumbnails/*", http.StripPrefix("/thumbnails/", http.FileServer(thumbDir)))

	return r
}

// videoExtensions lists the file types the library scanner picks up.
var videoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".webm": true,
	".avi":  true,
	".mov":  true,
}

// syncLibrary reconciles the media directory with the video registry:
// new files are registered, records whose file vanished are purged.
func syncLibrary(ctx context.Context, mediaDir string, gw *persistence.Gateway, svc usecase.MetadataService, logger *slog.Logger) error {
	entries, err := os.ReadDir(mediaDir)
	if err != nil {
		return fmt.Errorf("read media directory: %w", err)
	}

	known, err := gw.Videos(ctx)
	if err != nil {
		return fmt.Errorf("read video registry: %w", err)
	}

	present := make(map[string]bool, len(entries))
	added := 0
	for _, entry := range entries {
		if entry.IsDir() || !videoExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		present[entry.Name()] = true
		if _, ok := known[entry.Name()]; ok {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			logger.Warn("skipping unreadable file",
				slog.String("filename", entry.Name()),
				slog.String("error", err.Error()),
			)
			continue
		}
		video, err := model.NewVideoRecord(entry.Name(), info.Size(), 0, info.ModTime())
		if err != nil {
			continue
		}
		if err := svc.RegisterVideo(ctx, video); err != nil {
			logger.Warn("failed to register video",
				slog.String("filename", entry.Name()),
				slog.String("error", err.Error()),
			)
			continue
		}
		added++
	}

	removed := 0
	for name := range known {
		if present[name] {
			continue
		}
		if err := svc.RemoveVideo(ctx, name); err != nil {
			logger.Warn("failed to purge missing video",
				slog.String("filename", name),
				slog.String("error", err.Error()),
			)
			continue
		}
		removed++
	}

	logger.Info("library scan complete",
		slog.Int("total", len(present)),
		slog.Int("added", added),
		slog.Int("removed", removed),
	)
	return nil
}

// backupLoop periodically snapshots the primary store to the flat files.
// In fallback mode Backup is a no-op, so the loop is harmless there.
func backupLoop(ctx context.Context, gw *persistence.Gateway, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := gw.Backup(ctx); err != nil {
				logger.Warn("periodic backup failed", slog.String("error", err.Error()))
				continue
			}
			logger.Info("flat-file backup written")
		}
	}
}
