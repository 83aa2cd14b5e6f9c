package catalog

import "errors"

// Sentinel kinds for catalog errors.
var (
	// ErrNotFound means no candidate list exists at the path.
	ErrNotFound = errors.New("catalog not found")
	// ErrCorrupt means the file exists but is not a usable catalog.
	ErrCorrupt = errors.New("catalog corrupt")
)
