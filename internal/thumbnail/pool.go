package thumbnail

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ymzk-dev/mediavault/internal/infrastructure/metrics"
)

// PoolConfig holds configuration for the worker pool.
type PoolConfig struct {
	// Workers is the number of concurrent ffmpeg processes.
	// Default: 2
	Workers int

	// QueueSize bounds the pending job queue. A full queue drops new jobs
	// instead of blocking the caller.
	// Default: 64
	QueueSize int

	// MediaDir is the directory holding source video files.
	MediaDir string

	// ThumbDir is the directory thumbnails are written to.
	ThumbDir string

	// JobTimeout bounds one ffmpeg invocation.
	// Default: 30s
	JobTimeout time.Duration
}

// DefaultPoolConfig returns a PoolConfig with production defaults. MediaDir
// and ThumbDir have no defaults and must be set.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Workers:    2,
		QueueSize:  64,
		JobTimeout: 30 * time.Second,
	}
}

type job struct {
	id       uuid.UUID
	filename string
}

// Pool runs thumbnail generation on background workers. Jobs are
// de-duplicated: a video that is already queued or in flight is not queued
// again.
type Pool struct {
	gen    Generator
	cfg    PoolConfig
	logger *slog.Logger

	queue chan job

	mu      sync.Mutex
	pending map[string]struct{}
	closed  bool

	wg sync.WaitGroup
}

// NewPool creates a Pool. Call Start to launch the workers.
func NewPool(gen Generator, cfg PoolConfig, logger *slog.Logger) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultPoolConfig().Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultPoolConfig().QueueSize
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = DefaultPoolConfig().JobTimeout
	}
	return &Pool{
		gen:     gen,
		cfg:     cfg,
		logger:  logger,
		queue:   make(chan job, cfg.QueueSize),
		pending: make(map[string]struct{}),
	}
}

// Start launches the worker goroutines. ctx cancels in-flight ffmpeg
// processes; queued jobs still drain on Stop.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
	p.logger.Info("thumbnail pool started",
		slog.Int("workers", p.cfg.Workers),
		slog.Int("queue_size", p.cfg.QueueSize),
	)
}

// Stop closes the queue and waits for the workers to drain it.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	close(p.queue)
	p.wg.Wait()
	p.logger.Info("thumbnail pool stopped")
}

// ThumbnailPath returns where a video's thumbnail lives on disk.
func (p *Pool) ThumbnailPath(filename string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	return filepath.Join(p.cfg.ThumbDir, base+".jpg")
}

// HasThumbnail reports whether a thumbnail already exists for the video.
func (p *Pool) HasThumbnail(filename string) bool {
	_, err := os.Stat(p.ThumbnailPath(filename))
	return err == nil
}

// Enqueue schedules thumbnail generation for one video. It returns false
// when the job was not queued: the thumbnail exists, the same file is
// already pending, or the queue is full.
func (p *Pool) Enqueue(filename string) bool {
	if p.HasThumbnail(filename) {
		metrics.ThumbnailJobsTotal.WithLabelValues(metrics.ThumbnailSkipped).Inc()
		return false
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false
	}
	if _, dup := p.pending[filename]; dup {
		p.mu.Unlock()
		metrics.ThumbnailJobsTotal.WithLabelValues(metrics.ThumbnailSkipped).Inc()
		return false
	}
	p.pending[filename] = struct{}{}
	p.mu.Unlock()

	j := job{id: uuid.New(), filename: filename}
	select {
	case p.queue <- j:
		metrics.ThumbnailJobsTotal.WithLabelValues(metrics.ThumbnailQueued).Inc()
		return true
	default:
		p.forget(filename)
		p.logger.Warn("thumbnail queue full, dropping job",
			slog.String("filename", filename),
		)
		metrics.ThumbnailJobsTotal.WithLabelValues(metrics.ThumbnailFailed).Inc()
		return false
	}
}

// EnsureThumbnails queues generation for every video that is missing a
// thumbnail. It never blocks the caller.
func (p *Pool) EnsureThumbnails(filenames []string) int {
	queued := 0
	for _, name := range filenames {
		if p.Enqueue(name) {
			queued++
		}
	}
	return queued
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for j := range p.queue {
		p.process(ctx, j)
	}
}

func (p *Pool) process(ctx context.Context, j job) {
	defer p.forget(j.filename)

	ctx, cancel := context.WithTimeout(ctx, p.cfg.JobTimeout)
	defer cancel()

	input := filepath.Join(p.cfg.MediaDir, j.filename)
	output := p.ThumbnailPath(j.filename)

	start := time.Now()
	if err := p.gen.Generate(ctx, input, output); err != nil {
		p.logger.Warn("thumbnail generation failed",
			slog.String("job_id", j.id.String()),
			slog.String("filename", j.filename),
			slog.String("error", err.Error()),
		)
		metrics.ThumbnailJobsTotal.WithLabelValues(metrics.ThumbnailFailed).Inc()
		return
	}

	p.logger.Info("thumbnail generated",
		slog.String("job_id", j.id.String()),
		slog.String("filename", j.filename),
		slog.Duration("elapsed", time.Since(start)),
	)
	metrics.ThumbnailJobsTotal.WithLabelValues(metrics.ThumbnailGenerated).Inc()
}

func (p *Pool) forget(filename string) {
	p.mu.Lock()
	delete(p.pending, filename)
	p.mu.Unlock()
}
