package lock

import "errors"

// Sentinel kinds for lock errors.
var (
	ErrNotHeld = errors.New("leader lock not held")
)
