package harvest

import "errors"

// ErrNoGames is returned when upstream yields nothing worth writing.
var ErrNoGames = errors.New("no games fetched")
