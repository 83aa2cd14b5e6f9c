package dedupe

import "strings"

// Option applies a configuration option to the InMemoryDeduper.
type Option func(*inMemoryDeduper)

// WithMaxSize bounds the number of remembered keys.
// If maxSize > 0: bounded mode with FIFO eviction.
// If maxSize <= 0: unbounded mode.
func WithMaxSize(maxSize int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = maxSize
	}
}

// WithCaseFolding treats keys that differ only in case or surrounding
// whitespace as the same key.
func WithCaseFolding() Option {
	return func(d *inMemoryDeduper) {
		d.normalize = func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	}
}
