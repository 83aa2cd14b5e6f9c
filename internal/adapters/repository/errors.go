package repository

import "errors"

// Sentinel kinds for snapshot store errors.
var (
	// ErrNotFound means no snapshot has been published yet.
	ErrNotFound = errors.New("snapshot not found")
	// ErrCorrupt means persisted state could not be decoded. Readers treat it as absent.
	ErrCorrupt = errors.New("persisted state corrupt")
	// ErrClosed is returned by every call after Close.
	ErrClosed = errors.New("store closed")
)
