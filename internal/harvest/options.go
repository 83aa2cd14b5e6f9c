package harvest

import (
	"time"

	"github.com/okian/streamscout/pkg/logger"
)

// Option applies a configuration option to the Harvester.
type Option func(*Harvester)

// WithTarget sets how many games to fetch.
func WithTarget(n int) Option {
	return func(h *Harvester) {
		if n > 0 {
			h.target = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Harvester) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithClock replaces time.Now for the fetched_at stamp.
func WithClock(now func() time.Time) Option {
	return func(h *Harvester) {
		if now != nil {
			h.now = now
		}
	}
}
