package collector

import (
	"time"

	"github.com/okian/streamscout/pkg/logger"
)

// Option applies a configuration option to the Collector.
type Option func(*Collector)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Collector) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMaxCandidates caps how many candidate names are considered.
func WithMaxCandidates(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.maxCandidates = n
		}
	}
}

// WithChunkSize sets how many names are validated per upstream call.
func WithChunkSize(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.chunkSize = n
		}
	}
}

// WithChunkDelay sets the pause between validation chunks.
func WithChunkDelay(d time.Duration) Option {
	return func(c *Collector) {
		if d >= 0 {
			c.chunkDelay = d
		}
	}
}

// WithBatchSize sets how many broadcast fetches run concurrently.
func WithBatchSize(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithBatchDelay sets the pause between fetch batches.
func WithBatchDelay(d time.Duration) Option {
	return func(c *Collector) {
		if d >= 0 {
			c.batchDelay = d
		}
	}
}

// WithPageSize sets the broadcast page size per entity.
func WithPageSize(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithFallbackTopCount sets how many top entities to list when no names are given.
func WithFallbackTopCount(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.fallbackTop = n
		}
	}
}
