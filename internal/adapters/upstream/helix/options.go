package helix

import (
	"time"

	"github.com/okian/streamscout/pkg/logger"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithBaseURL overrides the Helix API root.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithAuthURL overrides the OAuth token endpoint.
func WithAuthURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.authURL = u
		}
	}
}

// WithRequestTimeout bounds each HTTP attempt.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.requestTimeout = d
		}
	}
}

// WithRetry sets the retry budget and the backoff window.
func WithRetry(retries int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		if retries >= 0 {
			c.retryMax = retries
		}
		if waitMin > 0 && waitMax >= waitMin {
			c.retryWaitMin, c.retryWaitMax = waitMin, waitMax
		}
	}
}

// WithHandshakeTimeout bounds token exchange, probe and warm-up together.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.handshakeTimeout = d
		}
	}
}

// WithWarmupDelay sets the settle pause after the probe.
func WithWarmupDelay(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.warmupDelay = d
		}
	}
}

// WithPageDelay sets the pause between pages of the top listing.
func WithPageDelay(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.pageDelay = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}
