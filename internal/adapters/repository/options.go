package repository

import (
	"time"

	"github.com/okian/streamscout/pkg/logger"
)

const defaultLockRetryDelay = 25 * time.Millisecond

type settings struct {
	logger         logger.Logger
	lockRetryDelay time.Duration
}

func newSettings(opts []Option) settings {
	s := settings{logger: logger.NewNop(), lockRetryDelay: defaultLockRetryDelay}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option applies a configuration option to a store.
type Option func(*settings)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLockRetryDelay sets how often the file store polls a contended lock.
func WithLockRetryDelay(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.lockRetryDelay = d
		}
	}
}
