package collector

import "errors"

// Sentinel kinds for collector errors.
var (
	// ErrNoEntities means no candidate could be resolved at all, either
	// because every validation chunk failed or the top listing failed.
	ErrNoEntities = errors.New("no entities resolved")
)
