package upstream

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel kinds for upstream failures.
var (
	// ErrAuth means credentials are missing or rejected. Fatal at startup.
	ErrAuth = errors.New("upstream auth failed")
	// ErrHandshakeTimeout aborts the current refresh cycle only.
	ErrHandshakeTimeout = errors.New("upstream handshake timed out")
)

// CallError is a failed per-chunk or per-entity call. The collector logs and
// skips the unit that produced it.
type CallError struct {
	Op     string
	Status int
	Err    error
}

func (e *CallError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upstream %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("upstream %s: %v", e.Op, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// RateLimitedError is returned when the provider keeps answering 429 after retries.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited: retry after %s", e.RetryAfter)
}

// IsRateLimited reports whether err carries a RateLimitedError.
func IsRateLimited(err error) bool {
	var rl *RateLimitedError
	return errors.As(err, &rl)
}
