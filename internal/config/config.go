package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Cache     CacheConfig
	Media     MediaConfig
	Thumbnail ThumbnailConfig
	Metrics   MetricsConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port        int           `envconfig:"MV_PORT" default:"8080"`
	ReadTimeout time.Duration `envconfig:"MV_READ_TIMEOUT" default:"10s"`
	// WriteTimeout of zero leaves streaming responses unbounded.
	WriteTimeout    time.Duration `envconfig:"MV_WRITE_TIMEOUT" default:"0s"`
	ShutdownTimeout time.Duration `envconfig:"MV_SHUTDOWN_TIMEOUT" default:"10s"`
}

type StoreConfig struct {
	DatabasePath   string        `envconfig:"MV_DATABASE_PATH" default:"./data/metadata.db"`
	FallbackDir    string        `envconfig:"MV_FALLBACK_DIR" default:"./data"`
	QueryTimeout   time.Duration `envconfig:"MV_QUERY_TIMEOUT" default:"5s"`
	BackupInterval time.Duration `envconfig:"MV_BACKUP_INTERVAL" default:"15m"`
}

type CacheConfig struct {
	TTL          time.Duration `envconfig:"MV_CACHE_TTL" default:"5m"`
	VideoListTTL time.Duration `envconfig:"MV_VIDEO_LIST_TTL" default:"1m"`
}

type MediaConfig struct {
	Dir string `envconfig:"MV_MEDIA_DIR" default:"./media"`
}

type ThumbnailConfig struct {
	Dir        string `envconfig:"MV_THUMBNAIL_DIR" default:"./thumbnails"`
	Workers    int    `envconfig:"MV_THUMBNAIL_WORKERS" default:"2"`
	QueueSize  int    `envconfig:"MV_THUMBNAIL_QUEUE_SIZE" default:"64"`
	FFmpegPath string `envconfig:"MV_FFMPEG_PATH" default:"ffmpeg"`
}

type MetricsConfig struct {
	WindowSize int `envconfig:"MV_METRICS_WINDOW" default:"100"`
}

type RateLimitConfig struct {
	WritesPerSecond float64 `envconfig:"MV_WRITE_RATE" default:"10"`
	WriteBurst      int     `envconfig:"MV_WRITE_BURST" default:"20"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
