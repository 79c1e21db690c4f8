package model

import (
	"errors"
	"time"
)

// VideoRecord represents a video known to the library.
// The filename is the identity key across every metadata domain.
type VideoRecord struct {
	Filename string
	Size     int64
	Duration time.Duration
	AddedAt  time.Time
}

var (
	ErrEmptyFilename = errors.New("filename cannot be empty")
	ErrNegativeSize  = errors.New("file size cannot be negative")
)

// NewVideoRecord creates a VideoRecord for a freshly scanned file.
func NewVideoRecord(filename string, size int64, duration time.Duration, addedAt time.Time) (VideoRecord, error) {
	if filename == "" {
		return VideoRecord{}, ErrEmptyFilename
	}
	if size < 0 {
		return VideoRecord{}, ErrNegativeSize
	}
	return VideoRecord{
		Filename: filename,
		Size:     size,
		Duration: duration,
		AddedAt:  addedAt,
	}, nil
}
