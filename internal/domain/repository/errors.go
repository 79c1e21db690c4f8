package repository

import "errors"

var (
	// ErrVideoNotFound is returned when a video has no stored metadata to
	// operate on (e.g. removing a tag from an untagged video).
	ErrVideoNotFound = errors.New("video not found")

	// ErrStoreUnavailable is returned when the durable store cannot be
	// reached within the gateway's deadline.
	ErrStoreUnavailable = errors.New("durable store unavailable")
)
